package factory

import (
	"context"
	"fmt"
	"net/url"

	"go-sign-recognizer/internal/config"
	"go-sign-recognizer/internal/inference"
	"go-sign-recognizer/internal/repository"
	"go-sign-recognizer/internal/storage"
	"go-sign-recognizer/pkg/validation"
)

// StorageType represents different types of storage backends
type StorageType string

const (
	// AzureStorage for Azure blob storage
	AzureStorage StorageType = config.StorageBackendAzure
	// LocalStorage for local file system
	LocalStorage StorageType = config.StorageBackendLocal
)

// ModelClassifier is a loaded model instance that can describe itself.
// *inference.ONNXClassifier satisfies it.
type ModelClassifier interface {
	inference.Classifier
	InputSize() (int, int)
	Classes() int
	Close() error
}

// ModelLoader loads one model instance
type ModelLoader func() (ModelClassifier, error)

// LoadedClassifier is a pool of model instances plus what the model reported
// about itself when it was loaded.
type LoadedClassifier struct {
	Classifier inference.Classifier
	Pool       *inference.Pool
	Classes    int
	Height     int
	Width      int
}

// Close releases every model instance
func (l *LoadedClassifier) Close() error {
	return l.Pool.Close()
}

// ClassifierFactory creates classifiers
type ClassifierFactory interface {
	CreateClassifier() (*LoadedClassifier, error)
}

// StorageFactory creates storage implementations
type StorageFactory interface {
	CreateStorage(ctx context.Context, storageType StorageType) (storage.ImageStore, error)
	CreateFetcher() storage.ImageFetcher
}

// RepositoryFactory creates the prediction history repository
type RepositoryFactory interface {
	CreateRepository(ctx context.Context) (repository.PredictionRepository, error)
}

// classifierFactory implements ClassifierFactory
type classifierFactory struct {
	cfg  *config.Config
	load ModelLoader
}

// NewClassifierFactory creates a factory that loads cfg.ModelPath with onnxruntime
func NewClassifierFactory(cfg *config.Config) ClassifierFactory {
	opts := inference.ONNXOptions{SharedLibraryPath: cfg.ONNXRuntimeLib}
	return NewClassifierFactoryWithLoader(cfg, func() (ModelClassifier, error) {
		return inference.LoadClassifier(cfg.ModelPath, opts)
	})
}

// NewClassifierFactoryWithLoader creates a factory around a custom loader
func NewClassifierFactoryWithLoader(cfg *config.Config, load ModelLoader) ClassifierFactory {
	return &classifierFactory{cfg: cfg, load: load}
}

// CreateClassifier loads ClassifierPoolSize instances, checks the model's
// input size against the configured one and bounds every call by
// InferenceTimeout.
func (f *classifierFactory) CreateClassifier() (*LoadedClassifier, error) {
	var first ModelClassifier
	pool, err := inference.NewPool(f.cfg.ClassifierPoolSize, func() (inference.Classifier, error) {
		c, err := f.load()
		if err != nil {
			return nil, err
		}
		if first == nil {
			first = c
		}
		return c, nil
	})
	if err != nil {
		return nil, err
	}

	height, width := first.InputSize()
	if height != f.cfg.ImageHeight || width != f.cfg.ImageWidth {
		pool.Close()
		return nil, &inference.ModelLoadError{
			Path: f.cfg.ModelPath,
			Reason: fmt.Sprintf("model expects %dx%d input but %dx%d is configured",
				height, width, f.cfg.ImageHeight, f.cfg.ImageWidth),
		}
	}

	return &LoadedClassifier{
		Classifier: inference.WithTimeout(pool, f.cfg.InferenceTimeout),
		Pool:       pool,
		Classes:    first.Classes(),
		Height:     height,
		Width:      width,
	}, nil
}

// storageFactory implements StorageFactory
type storageFactory struct {
	cfg *config.Config
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg *config.Config) StorageFactory {
	return &storageFactory{cfg: cfg}
}

// CreateStorage creates a storage implementation based on the specified type
func (f *storageFactory) CreateStorage(ctx context.Context, storageType StorageType) (storage.ImageStore, error) {
	switch storageType {
	case AzureStorage:
		return storage.NewAzureStore(ctx, f.cfg.AzureStorageAccount, f.cfg.AzureStorageKey, f.cfg.AzureStorageContainer)
	case LocalStorage:
		return storage.NewLocalStore(f.cfg.UploadDir)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// CreateFetcher creates the HTTP image fetcher used by /predict/url. Redirect
// targets go through the same URL policy as the request itself.
func (f *storageFactory) CreateFetcher() storage.ImageFetcher {
	urls := validation.NewURLValidator()
	return storage.NewHTTPImageFetcher(f.cfg.ImageFetchTimeout, f.cfg.MaxRequestBodySize).
		WithRedirectCheck(func(target *url.URL) error {
			return urls.ValidateImageURL(target.String())
		})
}

// repositoryFactory implements RepositoryFactory
type repositoryFactory struct {
	cfg *config.Config
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(cfg *config.Config) RepositoryFactory {
	return &repositoryFactory{cfg: cfg}
}

// CreateRepository connects to Postgres when DATABASE_URL is set and falls
// back to process memory otherwise.
func (f *repositoryFactory) CreateRepository(ctx context.Context) (repository.PredictionRepository, error) {
	if !f.cfg.UsesDatabase() {
		return repository.NewMemoryRepository(), nil
	}
	return repository.NewPostgresRepository(ctx, f.cfg.DatabaseURL)
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	ClassifierFactory ClassifierFactory
	StorageFactory    StorageFactory
	RepositoryFactory RepositoryFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg *config.Config) *ComponentFactory {
	return &ComponentFactory{
		ClassifierFactory: NewClassifierFactory(cfg),
		StorageFactory:    NewStorageFactory(cfg),
		RepositoryFactory: NewRepositoryFactory(cfg),
	}
}
