package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go-sign-recognizer/internal/config"
	apperrors "go-sign-recognizer/internal/errors"
	"go-sign-recognizer/internal/logger"
	"go-sign-recognizer/internal/observer"
	"go-sign-recognizer/internal/scoring"
	"go-sign-recognizer/internal/service"
	"go-sign-recognizer/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// UserIDHeader carries the caller identity set by the authenticating proxy
const UserIDHeader = "X-User-ID"

const userIDKey = "user_id"

// NewHandler builds the HTTP router. metrics may be nil.
func NewHandler(svc service.RecognitionService, metrics *observer.MetricsObserver, cfg *config.Config) http.Handler {
	r := gin.New()

	// Add middleware
	r.Use(
		gin.Recovery(),
		requestLogger(),
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	h := &handler{svc: svc, metrics: metrics, cfg: cfg}

	// Configure routes
	r.GET("/health", h.healthCheck)
	r.GET("/labels", h.labels)
	r.GET("/metrics", h.metricsSnapshot)

	r.POST("/predict", h.predictUpload)
	r.POST("/predict/url", h.predictURL)
	r.POST("/predict/frame", h.predictFrame)
	r.POST("/predict/tensor", h.predictTensor)
	r.POST("/spell", h.spell)

	r.GET("/shared/:token", h.resolveShare)

	user := r.Group("/", requireUser())
	user.GET("/history", h.history)
	user.GET("/history/:id", h.getPrediction)
	user.DELETE("/history/:id", h.deletePrediction)
	user.POST("/history/:id/share", h.sharePrediction)
	user.DELETE("/shared/:token", h.revokeShare)
	user.GET("/stats", h.stats)
	user.GET("/favorites", h.favorites)
	user.POST("/favorites", h.addFavorite)
	user.DELETE("/favorites/:id", h.removeFavorite)
	user.GET("/settings", h.settings)
	user.PUT("/settings", h.updateSettings)

	return r
}

type handler struct {
	svc     service.RecognitionService
	metrics *observer.MetricsObserver
	cfg     *config.Config
}

func (h *handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
}

func (h *handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Health())
}

func (h *handler) labels(c *gin.Context) {
	labels := h.svc.Labels()
	c.JSON(http.StatusOK, models.LabelsResponse{Labels: labels, Count: len(labels)})
}

func (h *handler) metricsSnapshot(c *gin.Context) {
	var snapshot observer.Metrics
	if h.metrics != nil {
		snapshot = h.metrics.GetMetrics()
	}
	c.JSON(http.StatusOK, gin.H{
		"predictions": snapshot,
		"worker_pool": h.svc.WorkerStats(),
	})
}

func (h *handler) predictUpload(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, "no file part in request", bindError(err))
		return
	}
	file, err := readUpload(fileHeader)
	if err != nil {
		respondError(c, "failed to read upload", err)
		return
	}

	resp, err := h.svc.PredictUpload(ctx, optionalUser(c), file)
	if err != nil {
		respondError(c, "prediction failed", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) predictURL(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req models.URLPredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, "invalid request format", bindError(err))
		return
	}

	logger.WithField("url", req.URL).Debug("Fetching image")
	resp, err := h.svc.PredictURL(ctx, optionalUser(c), req.URL)
	if err != nil {
		respondError(c, "prediction failed", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) predictFrame(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req models.FramePredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, "invalid request format", bindError(err))
		return
	}

	resp, err := h.svc.PredictFrame(ctx, optionalUser(c), req.Image)
	if err != nil {
		respondError(c, "prediction failed", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) predictTensor(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req models.TensorPredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, "invalid request format", bindError(err))
		return
	}

	resp, err := h.svc.PredictTensor(ctx, optionalUser(c), req)
	if err != nil {
		respondError(c, "prediction failed", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) spell(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	form, err := c.MultipartForm()
	if err != nil {
		respondError(c, "invalid multipart form", bindError(err))
		return
	}
	headers := form.File["frames"]
	if len(headers) == 0 {
		headers = form.File["frames[]"]
	}

	frames := make([]service.UploadFile, 0, len(headers))
	for _, fh := range headers {
		file, err := readUpload(fh)
		if err != nil {
			respondError(c, "failed to read frame", err)
			return
		}
		frames = append(frames, file)
	}

	collapse := false
	if v := c.PostForm("collapse_repeats"); v != "" {
		collapse, err = strconv.ParseBool(v)
		if err != nil {
			respondError(c, "invalid collapse_repeats", apperrors.NewValidationError("collapse_repeats must be a boolean", err))
			return
		}
	}

	resp, err := h.svc.Spell(ctx, service.SpellRequest{
		Frames:          frames,
		Expected:        c.PostForm("expected"),
		Breaks:          scoring.ParseBreaks(c.PostForm("breaks")),
		CollapseRepeats: collapse,
	})
	if err != nil {
		respondError(c, "spelling failed", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) history(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(c, "invalid limit", apperrors.NewValidationError("limit must be a non-negative integer", err))
			return
		}
		limit = n
	}

	resp, err := h.svc.History(c.Request.Context(), c.GetString(userIDKey), limit)
	if err != nil {
		respondError(c, "failed to load history", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) getPrediction(c *gin.Context) {
	item, err := h.svc.GetPrediction(c.Request.Context(), c.GetString(userIDKey), c.Param("id"))
	if err != nil {
		respondError(c, "failed to load prediction", err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *handler) deletePrediction(c *gin.Context) {
	if err := h.svc.DeletePrediction(c.Request.Context(), c.GetString(userIDKey), c.Param("id")); err != nil {
		respondError(c, "failed to delete prediction", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) stats(c *gin.Context) {
	resp, err := h.svc.Stats(c.Request.Context(), c.GetString(userIDKey))
	if err != nil {
		respondError(c, "failed to load statistics", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) sharePrediction(c *gin.Context) {
	resp, err := h.svc.Share(c.Request.Context(), c.GetString(userIDKey), c.Param("id"))
	if err != nil {
		respondError(c, "failed to share prediction", err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *handler) resolveShare(c *gin.Context) {
	resp, err := h.svc.ResolveShare(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, "failed to resolve share", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) revokeShare(c *gin.Context) {
	if err := h.svc.RevokeShare(c.Request.Context(), c.GetString(userIDKey), c.Param("token")); err != nil {
		respondError(c, "failed to revoke share", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func readUpload(fh *multipart.FileHeader) (service.UploadFile, error) {
	f, err := fh.Open()
	if err != nil {
		return service.UploadFile{}, apperrors.NewValidationError("Cannot open uploaded file", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return service.UploadFile{}, apperrors.NewValidationError("Cannot read uploaded file", err)
	}
	return service.UploadFile{Filename: fh.Filename, Data: data}, nil
}

func optionalUser(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(UserIDHeader))
}

// Middleware and helper functions
func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := optionalUser(c)
		if userID == "" {
			respondError(c, "missing user identity",
				apperrors.NewUnauthorizedError(UserIDHeader+" header is required", nil))
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := logrus.Fields{
			"method":             c.Request.Method,
			"path":               c.Request.URL.Path,
			"status":             c.Writer.Status(),
			"ip":                 c.ClientIP(),
			"user_agent":         c.Request.UserAgent(),
			"processing_time_ms": time.Since(start).Milliseconds(),
		}
		if userID := optionalUser(c); userID != "" {
			fields["user_id"] = userID
		}
		logger.WithFields(fields).Info("Request completed")
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last()
			respondError(c, "request processing failed", err.Err)
		}
	}
}

// bindError classifies request parsing failures; oversized bodies become 413.
func bindError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &apperrors.AppError{
			Type:       apperrors.ErrorTypeValidation,
			Message:    fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit),
			StatusCode: http.StatusRequestEntityTooLarge,
			Cause:      err,
		}
	}
	return apperrors.NewValidationError("Invalid request", err)
}

func determineStatusCode(err error) int {
	// Check if it's a custom app error first
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	// Fallback to context-based errors
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, message string, err error) {
	code := determineStatusCode(err)

	entry := logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	})
	if code >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}

	resp := models.ErrorResponse{Error: http.StatusText(code), Message: message}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		resp.Message = fmt.Sprintf("%s: %s", message, appErr.Message)
		resp.Details = appErr.Details
	}
	c.AbortWithStatusJSON(code, resp)
}

func (h *handler) favorites(c *gin.Context) {
	resp, err := h.svc.Favorites(c.Request.Context(), c.GetString(userIDKey))
	if err != nil {
		respondError(c, "failed to load favorites", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) addFavorite(c *gin.Context) {
	var req models.FavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, "invalid request format", bindError(err))
		return
	}
	resp, err := h.svc.AddFavorite(c.Request.Context(), c.GetString(userIDKey), req.PredictionID)
	if err != nil {
		respondError(c, "failed to add favorite", err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *handler) removeFavorite(c *gin.Context) {
	if err := h.svc.RemoveFavorite(c.Request.Context(), c.GetString(userIDKey), c.Param("id")); err != nil {
		respondError(c, "failed to remove favorite", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) settings(c *gin.Context) {
	resp, err := h.svc.Settings(c.Request.Context(), c.GetString(userIDKey))
	if err != nil {
		respondError(c, "failed to load settings", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) updateSettings(c *gin.Context) {
	var req models.SettingsUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, "invalid request format", bindError(err))
		return
	}
	resp, err := h.svc.UpdateSettings(c.Request.Context(), c.GetString(userIDKey), req)
	if err != nil {
		respondError(c, "failed to update settings", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
