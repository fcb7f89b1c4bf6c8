// Package api serves the forecast store over HTTP: login, forecast queries,
// on-demand ETL and pipeline runs, the daily brief, health and metrics.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tigerroll/roomrate/internal/brief"
	"github.com/tigerroll/roomrate/internal/config"
	"github.com/tigerroll/roomrate/internal/domain/model"
	"github.com/tigerroll/roomrate/internal/etl"
	"github.com/tigerroll/roomrate/internal/feature"
	"github.com/tigerroll/roomrate/internal/job"
	"github.com/tigerroll/roomrate/internal/repository"
	"github.com/tigerroll/roomrate/internal/support/logger"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "roomrate"

// Store is the part of the forecast store the API reads.
type Store interface {
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	FindForecasts(ctx context.Context, start, end time.Time) ([]model.ForecastRecord, error)
	CompetitorMedians(ctx context.Context, start, end time.Time) (feature.CompetitorIndex, error)
}

// ETLRunner ingests the batch files.
type ETLRunner interface {
	Run(ctx context.Context) (etl.Summary, error)
}

// PipelineRunner runs the forecast pipeline.
type PipelineRunner interface {
	Run(ctx context.Context) (*job.RunResult, error)
}

// BriefGenerator writes the daily rate brief.
type BriefGenerator interface {
	Generate(ctx context.Context, req brief.Request) (brief.Result, error)
}

// Handlers holds the collaborators of the routes.
type Handlers struct {
	Store    Store
	ETL      ETLRunner
	Pipeline PipelineRunner
	Issuer   *TokenIssuer
	// Brief serves /brief. It may be nil.
	Brief BriefGenerator
	// Metrics serves /metrics. It may be nil.
	Metrics http.Handler
}

// ForecastItem is one row of the /forecast response.
type ForecastItem struct {
	StayDate       string   `json:"stay_date"`
	RoomType       string   `json:"room_type"`
	DemandForecast float64  `json:"demand_forecast"`
	CompetitorRate *float64 `json:"competitor_rate"`
	RecommendedADR float64  `json:"recommended_adr"`
}

type briefRequest struct {
	Send    bool   `json:"send"`
	ToEmail string `json:"to_email"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// NewRouter builds the gin engine.
func NewRouter(cfg config.APIConfig, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLog(), CORS(cfg.AllowedOrigins))

	r.GET("/health", h.health)
	r.POST("/auth/login", h.login)
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics))
	}

	authed := r.Group("/", RequireAuth(h.Issuer))
	authed.GET("/forecast", h.forecast)
	authed.POST("/etl/run", h.runETL)
	if h.Brief != nil {
		authed.POST("/brief", h.brief)
	}
	return r
}

func (h Handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "service": ServiceName})
}

func (h Handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "email and password are required"})
		return
	}
	masked := maskEmail(req.Email)
	logger.Infof("Login attempt for %s", masked)

	user, err := h.Store.FindUserByEmail(c.Request.Context(), req.Email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		logger.Errorf("Login lookup failed for %s: %v", masked, err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "login failed"})
		return
	}
	if user == nil || !CheckPassword(user.PasswordHash, req.Password) {
		logger.Warnf("Invalid credentials for %s", masked)
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid credentials"})
		return
	}
	token, err := h.Issuer.Issue(user)
	if err != nil {
		logger.Errorf("Failed to sign token for uid=%d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "login failed"})
		return
	}
	logger.Infof("Login success for %s, uid=%d", masked, user.ID)
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h Handlers) forecast(c *gin.Context) {
	start, errStart := model.ParseDay(c.Query("start"))
	end, errEnd := model.ParseDay(c.Query("end"))
	if errStart != nil || errEnd != nil || end.Before(start) {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "start and end must be YYYY-MM-DD with start <= end"})
		return
	}
	ctx := c.Request.Context()
	logger.Infof("/forecast requested by uid=%s range %s..%s", c.GetString(ctxUserID), model.FormatDay(start), model.FormatDay(end))

	rows, err := h.Store.FindForecasts(ctx, start, end)
	if err != nil {
		logger.Errorf("Failed to read forecasts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to read forecasts"})
		return
	}
	if len(rows) == 0 {
		logger.Warnf("No forecasts found; advise to run ETL/ML")
		c.JSON(http.StatusNotFound, gin.H{"detail": "No forecasts found. Run ETL/ML."})
		return
	}
	medians, err := h.Store.CompetitorMedians(ctx, start, end)
	if err != nil {
		logger.Warnf("Competitor medians unavailable: %v", err)
		medians = feature.CompetitorIndex{}
	}

	items := make([]ForecastItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, ForecastItem{
			StayDate:       model.FormatDay(r.StayDate),
			RoomType:       r.RoomType,
			DemandForecast: r.DemandForecast,
			CompetitorRate: medians.Median(r.StayDate, r.RoomType),
			RecommendedADR: r.RecommendedADR,
		})
	}
	c.JSON(http.StatusOK, items)
}

func (h Handlers) runETL(c *gin.Context) {
	ctx := c.Request.Context()
	logger.Infof("/etl/run triggered by uid=%s", c.GetString(ctxUserID))

	summary, err := h.ETL.Run(ctx)
	if err != nil {
		logger.Errorf("ETL failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "ETL failed: " + err.Error()})
		return
	}
	result, err := h.Pipeline.Run(ctx)
	if err != nil {
		logger.Errorf("Forecast pipeline failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Forecast pipeline failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "ETL+ML completed",
		"etl":     summary,
		"run":     result,
	})
}

func (h Handlers) brief(c *gin.Context) {
	var req briefRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid brief request"})
			return
		}
	}
	logger.Infof("/brief requested by uid=%s (send=%t)", c.GetString(ctxUserID), req.Send)

	result, err := h.Brief.Generate(c.Request.Context(), brief.Request{Send: req.Send, To: req.ToEmail})
	switch {
	case errors.Is(err, brief.ErrNoForecasts):
		logger.Warnf("No forecast rows for brief")
		c.JSON(http.StatusNotFound, gin.H{"detail": "No forecast rows"})
		return
	case err != nil:
		logger.Errorf("Brief failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Brief failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func maskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return "***"
	}
	if len(local) > 2 {
		local = local[:2]
	}
	return local + "***@" + domain
}
