package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"go-sign-recognizer/internal/analyzer"
	apperrors "go-sign-recognizer/internal/errors"
	"go-sign-recognizer/internal/inference"
	"go-sign-recognizer/internal/logger"
	"go-sign-recognizer/internal/observer"
	"go-sign-recognizer/internal/repository"
	"go-sign-recognizer/internal/storage"
	"go-sign-recognizer/pkg/models"
	"go-sign-recognizer/pkg/validation"

	"github.com/sirupsen/logrus"
)

// Recognizer is the part of the inference pipeline the service needs.
// *inference.Pipeline satisfies it.
type Recognizer interface {
	Labels() inference.Labels
	InputSize() (int, int)
	ClassifyImage(img image.Image) (*inference.PredictionResult, error)
	ClassifyTensor(t inference.Tensor) (*inference.PredictionResult, error)
}

// UploadFile is one file received from a client
type UploadFile struct {
	Filename string
	Data     []byte
}

// SpellRequest is a sequence of frames to be turned into text
type SpellRequest struct {
	Frames          []UploadFile
	Expected        string
	Breaks          []int
	CollapseRepeats bool
}

// RecognitionService defines the sign recognition use cases
type RecognitionService interface {
	// Prediction
	PredictUpload(ctx context.Context, userID string, file UploadFile) (*models.PredictionResponse, error)
	PredictURL(ctx context.Context, userID, imageURL string) (*models.PredictionResponse, error)
	PredictFrame(ctx context.Context, userID, encoded string) (*models.PredictionResponse, error)
	PredictTensor(ctx context.Context, userID string, req models.TensorPredictionRequest) (*models.PredictionResponse, error)
	Spell(ctx context.Context, req SpellRequest) (*models.SpellResponse, error)

	// History and sharing
	History(ctx context.Context, userID string, limit int) (*models.HistoryResponse, error)
	GetPrediction(ctx context.Context, userID, id string) (*models.HistoryItem, error)
	DeletePrediction(ctx context.Context, userID, id string) error
	Stats(ctx context.Context, userID string) (*models.StatsResponse, error)
	Share(ctx context.Context, userID, id string) (*models.ShareResponse, error)
	ResolveShare(ctx context.Context, token string) (*models.SharedPredictionResponse, error)
	RevokeShare(ctx context.Context, userID, token string) error

	// Favorites and preferences
	Favorites(ctx context.Context, userID string) (*models.FavoritesResponse, error)
	AddFavorite(ctx context.Context, userID, predictionID string) (*models.FavoriteItem, error)
	RemoveFavorite(ctx context.Context, userID, predictionID string) error
	Settings(ctx context.Context, userID string) (*models.SettingsResponse, error)
	UpdateSettings(ctx context.Context, userID string, req models.SettingsUpdateRequest) (*models.SettingsResponse, error)

	// Introspection
	Labels() []string
	Health() models.HealthResponse
	WorkerStats() analyzer.PoolStats
}

// Dependencies bundles what NewRecognitionService needs. Store and Pool are
// optional: without a store uploads are not archived, without a pool /spell
// classifies frames sequentially.
type Dependencies struct {
	Recognizer      Recognizer
	Analyzer        analyzer.FrameAnalyzer
	Fetcher         storage.ImageFetcher
	Store           storage.ImageStore
	Repository      repository.PredictionRepository
	Events          observer.Subject
	Pool            *analyzer.WorkerPool
	URLValidator    *validation.URLValidator
	UploadValidator *validation.UploadValidator
	ShareTTL        time.Duration
	HistoryLimit    int
	MaxSpellFrames  int
}

const defaultMaxSpellFrames = 64

type recognitionService struct {
	recognizer      Recognizer
	analyzer        analyzer.FrameAnalyzer
	fetcher         storage.ImageFetcher
	store           storage.ImageStore
	repo            repository.PredictionRepository
	events          observer.Subject
	pool            *analyzer.WorkerPool
	urlValidator    *validation.URLValidator
	uploadValidator *validation.UploadValidator
	shareTTL        time.Duration
	historyLimit    int
	maxSpellFrames  int
	now             func() time.Time
}

// NewRecognitionService creates a new recognition service
func NewRecognitionService(deps Dependencies) (RecognitionService, error) {
	if deps.Recognizer == nil {
		return nil, fmt.Errorf("recognizer is required")
	}
	if deps.Repository == nil {
		return nil, fmt.Errorf("repository is required")
	}

	s := &recognitionService{
		recognizer:      deps.Recognizer,
		analyzer:        deps.Analyzer,
		fetcher:         deps.Fetcher,
		store:           deps.Store,
		repo:            deps.Repository,
		events:          deps.Events,
		pool:            deps.Pool,
		urlValidator:    deps.URLValidator,
		uploadValidator: deps.UploadValidator,
		shareTTL:        deps.ShareTTL,
		historyLimit:    deps.HistoryLimit,
		maxSpellFrames:  deps.MaxSpellFrames,
		now:             time.Now,
	}
	if s.analyzer == nil {
		s.analyzer = analyzer.NewFrameAnalyzer(nil, nil)
	}
	if s.urlValidator == nil {
		s.urlValidator = validation.NewURLValidator()
	}
	if s.uploadValidator == nil {
		s.uploadValidator = validation.NewUploadValidator([]string{"png", "jpg", "jpeg", "gif", "webp", "bmp"}, 0)
	}
	if s.shareTTL <= 0 {
		s.shareTTL = 7 * 24 * time.Hour
	}
	if s.historyLimit <= 0 {
		s.historyLimit = 50
	}
	if s.maxSpellFrames <= 0 {
		s.maxSpellFrames = defaultMaxSpellFrames
	}
	return s, nil
}

// PredictUpload classifies an uploaded image file
func (s *recognitionService) PredictUpload(ctx context.Context, userID string, file UploadFile) (*models.PredictionResponse, error) {
	if err := s.uploadValidator.ValidateUpload(file.Filename, int64(len(file.Data))); err != nil {
		return nil, err
	}
	filename := storage.SanitizeFilename(file.Filename)
	return s.predictEncoded(ctx, userID, repository.SourceImage, filename, file.Data)
}

// PredictURL fetches a remote image and classifies it
func (s *recognitionService) PredictURL(ctx context.Context, userID, imageURL string) (*models.PredictionResponse, error) {
	if err := s.urlValidator.ValidateImageURL(imageURL); err != nil {
		return nil, err
	}
	if s.fetcher == nil {
		return nil, apperrors.NewInternalError("Image fetching is not configured", nil)
	}

	data, err := s.fetcher.FetchImage(ctx, imageURL)
	if err != nil {
		var fetchErr *apperrors.AppError
		switch {
		case errors.Is(err, storage.ErrRedirectRefused):
			fetchErr = apperrors.NewValidationError("URL redirects to a disallowed address", err)
		case errors.Is(err, context.DeadlineExceeded):
			fetchErr = apperrors.NewTimeoutError("Image fetch timeout", err)
		default:
			fetchErr = apperrors.NewNetworkError("Failed to fetch image", err)
		}
		logger.WithError(err).WithField("url", imageURL).Warn("Failed to fetch image")
		s.publish(ctx, observer.PredictionEvent{EventType: observer.PredictionStarted, Source: string(repository.SourceURL), UserID: userID})
		s.publishFailure(ctx, repository.SourceURL, userID, s.now(), fetchErr)
		return nil, fetchErr
	}

	return s.predictEncoded(ctx, userID, repository.SourceURL, storage.SanitizeFilename(imageURL), data)
}

// PredictFrame classifies a webcam capture sent as base64 or a data URL
func (s *recognitionService) PredictFrame(ctx context.Context, userID, encoded string) (*models.PredictionResponse, error) {
	data, mime, err := decodeFrame(encoded)
	if err != nil {
		return nil, apperrors.NewValidationError("Invalid frame encoding", err)
	}
	if len(data) == 0 {
		return nil, apperrors.NewValidationError("Frame is empty", nil)
	}
	return s.predictEncoded(ctx, userID, repository.SourceWebcam, frameFilename(mime), data)
}

// PredictTensor classifies a client-side preprocessed tensor. Tensors are
// never archived; history keeps only the label.
func (s *recognitionService) PredictTensor(ctx context.Context, userID string, req models.TensorPredictionRequest) (*models.PredictionResponse, error) {
	start := s.now()
	source := repository.SourceTensor
	s.publish(ctx, observer.PredictionEvent{EventType: observer.PredictionStarted, Source: string(source), UserID: userID})

	tensor, err := inference.NewTensor(req.Shape, req.Data)
	if err != nil {
		appErr := apperrors.NewValidationError("Invalid tensor", err)
		s.publishFailure(ctx, source, userID, start, appErr)
		return nil, appErr
	}
	if err := ctx.Err(); err != nil {
		appErr := apperrors.NewTimeoutError("Request cancelled before classification", err)
		s.publishFailure(ctx, source, userID, start, appErr)
		return nil, appErr
	}

	result, err := s.recognizer.ClassifyTensor(tensor)
	if err != nil {
		appErr := apperrors.FromInference(err)
		s.publishFailure(ctx, source, userID, start, appErr)
		return nil, appErr
	}

	return s.finish(ctx, userID, source, "", "", result, nil, start), nil
}

// predictEncoded is the shared path for every source that carries image bytes
func (s *recognitionService) predictEncoded(ctx context.Context, userID string, source repository.Source, filename string, data []byte) (*models.PredictionResponse, error) {
	start := s.now()
	s.publish(ctx, observer.PredictionEvent{EventType: observer.PredictionStarted, Source: string(source), UserID: userID})

	img, _, err := inference.DecodeBytes(data)
	if err != nil {
		appErr := apperrors.FromInference(err)
		s.publishFailure(ctx, source, userID, start, appErr)
		return nil, appErr
	}

	report := s.analyzer.Analyze(img)

	result, err := s.classify(ctx, img)
	if err != nil {
		s.publishFailure(ctx, source, userID, start, err)
		return nil, err
	}

	storageKey := ""
	if userID != "" {
		storageKey = s.archive(ctx, filename, data)
	}
	return s.finish(ctx, userID, source, filename, storageKey, result, &report, start), nil
}

func (s *recognitionService) classify(ctx context.Context, img image.Image) (*inference.PredictionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewTimeoutError("Request cancelled before classification", err)
	}
	result, err := s.recognizer.ClassifyImage(img)
	if err != nil {
		return nil, apperrors.FromInference(err)
	}
	return result, nil
}

// archive stores the original bytes. Failures are logged and the prediction
// is still returned without a storage key.
func (s *recognitionService) archive(ctx context.Context, filename string, data []byte) string {
	if s.store == nil {
		return ""
	}
	key, err := s.store.Save(ctx, filename, data)
	if err != nil {
		logger.WithError(err).WithField("filename", filename).Warn("Failed to archive image")
		return ""
	}
	return key
}

// finish builds the response, records history for identified users and
// publishes the completion event.
func (s *recognitionService) finish(
	ctx context.Context,
	userID string,
	source repository.Source,
	filename, storageKey string,
	result *inference.PredictionResult,
	report *analyzer.QualityReport,
	start time.Time,
) *models.PredictionResponse {
	elapsed := s.now().Sub(start)
	resp := &models.PredictionResponse{
		PredictedClass:   result.PredictedClass,
		ClassIndex:       result.ClassIndex,
		Confidence:       result.Confidence,
		AllProbabilities: result.AllProbabilities,
		Source:           string(source),
		Filename:         filename,
		Quality:          toFrameQuality(report),
		ProcessingTimeMs: elapsed.Milliseconds(),
		Timestamp:        s.now().UTC(),
	}

	if userID != "" {
		record := &repository.Prediction{
			UserID:         userID,
			Filename:       filename,
			StorageKey:     storageKey,
			PredictedClass: result.PredictedClass,
			Confidence:     result.Confidence,
			Source:         source,
		}
		if err := s.repo.Save(ctx, record); err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"user_id": userID,
				"source":  source,
			}).Error("Failed to save prediction history")
		} else {
			resp.ID = record.ID
		}
	}

	metadata := map[string]interface{}{}
	if report != nil && len(report.Warnings) > 0 {
		metadata["quality_warnings"] = report.Warnings
	}
	s.publish(ctx, observer.PredictionEvent{
		EventType:      observer.PredictionCompleted,
		Source:         string(source),
		UserID:         userID,
		PredictedClass: result.PredictedClass,
		Confidence:     result.Confidence,
		ProcessingTime: elapsed,
		Metadata:       metadata,
	})
	return resp
}

func (s *recognitionService) publish(ctx context.Context, event observer.PredictionEvent) {
	if s.events == nil {
		return
	}
	s.events.NotifyObservers(ctx, event)
}

func (s *recognitionService) publishFailure(ctx context.Context, source repository.Source, userID string, start time.Time, err error) {
	msg := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	s.publish(ctx, observer.PredictionEvent{
		EventType:      observer.PredictionFailed,
		Source:         string(source),
		UserID:         userID,
		ProcessingTime: s.now().Sub(start),
		ErrorMessage:   msg,
	})
}

func toFrameQuality(report *analyzer.QualityReport) *models.FrameQuality {
	if report == nil {
		return nil
	}
	return &models.FrameQuality{
		Brightness:   report.Brightness,
		LaplacianVar: report.LaplacianVar,
		Warnings:     report.Warnings,
	}
}

// Labels returns the classifier labels in output order
func (s *recognitionService) Labels() []string {
	return []string(s.recognizer.Labels())
}

// Health reports model and storage readiness
func (s *recognitionService) Health() models.HealthResponse {
	height, width := s.recognizer.InputSize()
	resp := models.HealthResponse{
		Status:       "available",
		Classes:      len(s.recognizer.Labels()),
		InputHeight:  height,
		InputWidth:   width,
		StorageReady: s.store != nil,
	}
	if s.pool != nil {
		resp.PoolSize = s.pool.GetStats().Workers
	}
	return resp
}

// WorkerStats returns the batch worker pool counters
func (s *recognitionService) WorkerStats() analyzer.PoolStats {
	if s.pool == nil {
		return analyzer.PoolStats{}
	}
	return s.pool.GetStats()
}
