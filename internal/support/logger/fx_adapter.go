package logger

import (
	"strings"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

// Module installs the fx event logger backed by this package.
var Module = fx.WithLogger(NewFxLoggerAdapter)

// FxLoggerAdapter implements fxevent.Logger. Only failures and hook timings are logged.
type FxLoggerAdapter struct{}

// NewFxLoggerAdapter creates a new instance of FxLoggerAdapter.
func NewFxLoggerAdapter() fxevent.Logger {
	return &FxLoggerAdapter{}
}

// LogEvent logs events from Fx.
func (l *FxLoggerAdapter) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuted:
		logHook("OnStart", e.FunctionName, e.Runtime.String(), e.Err)
	case *fxevent.OnStopExecuted:
		logHook("OnStop", e.FunctionName, e.Runtime.String(), e.Err)
	case *fxevent.Provided:
		if e.Err != nil {
			Errorf("Cannot provide %s: %v", shortFunctionName(e.ConstructorName), e.Err)
		}
	case *fxevent.Invoked:
		if e.Err != nil {
			Errorf("Cannot invoke %s: %v", shortFunctionName(e.FunctionName), e.Err)
		}
	case *fxevent.RollingBack:
		Errorf("Container start failed, rolling back: %v", e.StartErr)
	case *fxevent.Started:
		if e.Err != nil {
			Errorf("Container start failed: %v", e.Err)
		} else {
			Debugf("Container started.")
		}
	}
}

func logHook(kind, fn, runtime string, err error) {
	if err != nil {
		Errorf("%s hook %s failed: %v", kind, shortFunctionName(fn), err)
		return
	}
	Debugf("%s hook %s ran in %s", kind, shortFunctionName(fn), runtime)
}

// shortFunctionName strips anonymous function suffixes like ".func1".
func shortFunctionName(funcName string) string {
	if idx := strings.LastIndex(funcName, ".func"); idx != -1 {
		return funcName[:idx]
	}
	return funcName
}
