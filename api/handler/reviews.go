package handler

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/gmapreviews/cache"
	"github.com/use-agent/gmapreviews/config"
	"github.com/use-agent/gmapreviews/models"
	"github.com/use-agent/gmapreviews/session"
	"github.com/use-agent/gmapreviews/webhook"
)

// SessionRunner runs scrape sessions one at a time.
type SessionRunner interface {
	Run(ctx context.Context, cfg config.SessionConfig, opts ...session.Option) (*session.Result, error)
	Busy() bool
}

// Reviews returns a handler for POST /api/v1/reviews.
//
// Orchestration flow:
//  1. Parse & validate request, apply server defaults.
//  2. Cache lookup when max_age is set.
//  3. Run one auto-scroll session (SESSION_BUSY if one is running).
//  4. Respond, cache and notify the webhook.
func Reviews(runner SessionRunner, defaults config.SessionConfig, cc *cache.Cache, hook config.WebhookConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		var req models.ReviewsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ReviewsResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults(defaults.MaxReviews, defaults.OutputFilename)

		cacheKey := cache.Key(req.PlaceURL, req.MaxReviews)
		if cc != nil && req.MaxAge > 0 {
			if cached, hit := cc.Get(cacheKey, req.MaxAge); hit {
				cached.CacheStatus = "hit"
				cached.Timing = models.TimingInfo{
					TotalMs: time.Since(totalStart).Milliseconds(),
				}
				c.JSON(http.StatusOK, cached)
				return
			}
		}

		cfg := defaults
		cfg.PlaceURL = req.PlaceURL
		cfg.MaxReviews = req.MaxReviews
		// keep output inside the configured directory
		cfg.OutputFilename = filepath.Base(req.OutputFilename)
		cfg.Mode = config.ModeAuto
		cfg.SnapshotPath = ""

		sessionStart := time.Now()
		res, err := runner.Run(c.Request.Context(), cfg)
		timing := models.TimingInfo{
			TotalMs:   time.Since(totalStart).Milliseconds(),
			SessionMs: time.Since(sessionStart).Milliseconds(),
		}

		resp := models.ReviewsResponse{
			Success:  err == nil,
			PlaceURL: req.PlaceURL,
			Reviews:  []models.Review{},
			Timing:   timing,
		}
		if res != nil {
			if res.Reviews != nil {
				resp.Reviews = res.Reviews
			}
			resp.Total = len(res.Reviews)
			resp.OutputPath = res.OutputPath
			resp.PanelOpened = res.PanelOpened
		}
		notify(hook, cfg, res, err)

		if err != nil {
			scrapeErr := asScrapeError(err)
			resp.Error = scrapeErr.ToDetail()
			c.JSON(mapErrorToStatus(scrapeErr), resp)
			return
		}

		// an interrupted session holds a partial list
		if cc != nil && req.MaxAge > 0 && (res == nil || res.StopReason != session.StopInterrupted) {
			cc.Set(cacheKey, resp)
			resp.CacheStatus = "miss"
		}
		c.JSON(http.StatusOK, resp)
	}
}

// notify delivers session.completed asynchronously. Busy rejections never
// started a session and are not reported.
func notify(hook config.WebhookConfig, cfg config.SessionConfig, res *session.Result, err error) {
	if hook.URL == "" {
		return
	}
	if se := asScrapeError(err); err != nil && se.Code == models.ErrCodeSessionBusy {
		return
	}
	data := webhook.SessionData{
		PlaceURL: cfg.PlaceURL,
		Mode:     string(cfg.Mode),
	}
	if res != nil {
		data.Total = len(res.Reviews)
		data.OutputPath = res.OutputPath
		data.StopReason = res.StopReason
	}
	if err != nil {
		data.Error = err.Error()
	}
	webhook.DeliverAsync(hook.URL, hook.Secret, webhook.NewSessionCompleted(data))
}

func asScrapeError(err error) *models.ScrapeError {
	var se *models.ScrapeError
	if errors.As(err, &se) {
		return se
	}
	if err == nil {
		return nil
	}
	return models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation, models.ErrCodePageLoad:
		return http.StatusBadGateway // 502
	case models.ErrCodeBrowserCrash:
		return http.StatusServiceUnavailable // 503
	case models.ErrCodeSessionBusy:
		return http.StatusConflict // 409
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
