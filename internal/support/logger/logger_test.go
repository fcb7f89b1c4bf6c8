package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/fx/fxevent"
)

func TestSetLogLevel(t *testing.T) {
	defer SetLogLevel("INFO")

	cases := map[string]LogLevel{
		"debug": LevelDebug,
		"INFO":  LevelInfo,
		"Warn":  LevelWarn,
		"ERROR": LevelError,
		"bogus": LevelInfo,
	}
	for in, want := range cases {
		SetLogLevel(in)
		assert.Equal(t, want, GetLogLevel(), in)
	}
}

func TestEnabled(t *testing.T) {
	defer SetLogLevel("INFO")

	SetLogLevel("WARN")
	_, ok := enabled(LevelInfo)
	assert.False(t, ok)
	_, ok = enabled(LevelError)
	assert.True(t, ok)
}

func TestConfigure_JSON(t *testing.T) {
	defer Configure("INFO", "console")

	Configure("DEBUG", "json")
	assert.Equal(t, LevelDebug, GetLogLevel())
	assert.NotPanics(t, func() { Debugf("configured %s", "json") })
}

func TestFxLoggerAdapter(t *testing.T) {
	l := NewFxLoggerAdapter()
	assert.NotPanics(t, func() {
		l.LogEvent(&fxevent.OnStartExecuted{FunctionName: "app.newServer.func1", Err: errors.New("bind")})
		l.LogEvent(&fxevent.Provided{Err: errors.New("missing type")})
		l.LogEvent(&fxevent.Started{})
	})
}

func TestShortFunctionName(t *testing.T) {
	assert.Equal(t, "app.newStorageResolver", shortFunctionName("app.newStorageResolver.func1"))
	assert.Equal(t, "app.newConnection", shortFunctionName("app.newConnection"))
}

func TestFxLoggerAdapter_HookTimings(t *testing.T) {
	defer SetLogLevel("INFO")
	SetLogLevel("DEBUG")

	l := NewFxLoggerAdapter()
	assert.NotPanics(t, func() {
		l.LogEvent(&fxevent.OnStopExecuted{FunctionName: "app.newObservability.func1"})
		l.LogEvent(&fxevent.Invoked{FunctionName: "app.Module.func1", Err: errors.New("missing dependency")})
		l.LogEvent(&fxevent.RollingBack{StartErr: errors.New("listen")})
	})
}
