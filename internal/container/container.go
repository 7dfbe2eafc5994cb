package container

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go-sign-recognizer/internal/analyzer"
	"go-sign-recognizer/internal/config"
	"go-sign-recognizer/internal/factory"
	"go-sign-recognizer/internal/inference"
	"go-sign-recognizer/internal/logger"
	"go-sign-recognizer/internal/observer"
	"go-sign-recognizer/internal/repository"
	"go-sign-recognizer/internal/service"
	"go-sign-recognizer/internal/storage"
	"go-sign-recognizer/internal/transport"
	"go-sign-recognizer/pkg/validation"

	"github.com/sirupsen/logrus"
)

// Container holds all application dependencies
type Container struct {
	config             *config.Config
	classifier         *factory.LoadedClassifier
	pipeline           *inference.Pipeline
	imageStore         storage.ImageStore
	repository         repository.PredictionRepository
	publisher          *observer.EventPublisher
	metrics            *observer.MetricsObserver
	workerPool         *analyzer.WorkerPool
	recognitionService service.RecognitionService
	handler            http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	return NewContainerWithFactory(ctx, cfg, factory.NewComponentFactory(cfg))
}

// NewContainerWithFactory builds the dependency graph from the given
// factories. Anything built before a failure is released.
func NewContainerWithFactory(ctx context.Context, cfg *config.Config, components *factory.ComponentFactory) (_ *Container, err error) {
	c := &Container{config: cfg}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	labels, err := loadLabels(cfg.LabelsPath)
	if err != nil {
		return nil, err
	}

	c.classifier, err = components.ClassifierFactory.CreateClassifier()
	if err != nil {
		return nil, fmt.Errorf("failed to load classifier: %w", err)
	}
	if c.classifier.Classes != len(labels) {
		return nil, &inference.ModelLoadError{
			Path:   cfg.ModelPath,
			Reason: fmt.Sprintf("model has %d outputs but %d labels are configured", c.classifier.Classes, len(labels)),
		}
	}

	c.pipeline, err = inference.NewPipeline(c.classifier.Classifier, labels, cfg.ImageHeight, cfg.ImageWidth)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	c.imageStore, err = components.StorageFactory.CreateStorage(ctx, factory.StorageType(cfg.StorageBackend))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s storage: %w", cfg.StorageBackend, err)
	}

	c.repository, err = components.RepositoryFactory.CreateRepository(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open history repository: %w", err)
	}

	c.publisher = observer.NewEventPublisher()
	c.metrics = observer.NewMetricsObserver()
	c.publisher.Subscribe(observer.NewLoggingObserver(logger.Logger))
	c.publisher.Subscribe(c.metrics)

	c.workerPool = analyzer.NewWorkerPool(cfg.WorkerCount)
	c.workerPool.Start()

	c.recognitionService, err = service.NewRecognitionService(service.Dependencies{
		Recognizer:      c.pipeline,
		Analyzer:        analyzer.NewFrameAnalyzer(analyzer.NewMetricsCalculator(), validation.NewQualityValidator()),
		Fetcher:         components.StorageFactory.CreateFetcher(),
		Store:           c.imageStore,
		Repository:      c.repository,
		Events:          c.publisher,
		Pool:            c.workerPool,
		URLValidator:    validation.NewURLValidator(),
		UploadValidator: validation.NewUploadValidator(cfg.AllowedExtensions, cfg.MaxRequestBodySize),
		ShareTTL:        cfg.ShareTTL,
		HistoryLimit:    cfg.HistoryLimit,
	})
	if err != nil {
		return nil, err
	}

	c.handler = transport.NewHandler(c.recognitionService, c.metrics, cfg)

	logger.WithFields(logrus.Fields{
		"model":      cfg.ModelPath,
		"classes":    len(labels),
		"input":      fmt.Sprintf("%dx%d", cfg.ImageHeight, cfg.ImageWidth),
		"pool_size":  c.classifier.Pool.Size(),
		"workers":    c.workerPool.GetStats().Workers,
		"storage":    cfg.StorageBackend,
		"persistent": cfg.UsesDatabase(),
	}).Info("Sign recognizer initialised")
	return c, nil
}

func loadLabels(path string) (inference.Labels, error) {
	if path == "" {
		return inference.DefaultLabels(), nil
	}
	labels, err := inference.LoadLabels(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load labels from %s: %w", path, err)
	}
	return labels, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Close releases workers, model sessions and the database in reverse build order
func (c *Container) Close() error {
	var errs []error
	if c.workerPool != nil {
		c.workerPool.Close()
		c.workerPool.Wait()
	}
	if c.publisher != nil {
		c.publisher.Flush()
	}
	if c.repository != nil {
		if err := c.repository.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close repository: %w", err))
		}
	}
	if c.classifier != nil {
		if err := c.classifier.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close classifier: %w", err))
		}
		if err := inference.ShutdownRuntime(); err != nil {
			errs = append(errs, fmt.Errorf("shutdown onnxruntime: %w", err))
		}
	}
	return errors.Join(errs...)
}
