package container

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-sign-recognizer/internal/config"
	"go-sign-recognizer/internal/factory"
	"go-sign-recognizer/internal/inference"
	"go-sign-recognizer/internal/logger"
	"go-sign-recognizer/pkg/models"

	"github.com/gin-gonic/gin"
)

type fakeModel struct {
	classes int
	closed  *int
}

func (m *fakeModel) Predict(batch inference.Tensor) ([][]float32, error) {
	out := make([]float32, m.classes)
	out[0] = 1
	return [][]float32{out}, nil
}
func (m *fakeModel) InputSize() (int, int) { return 64, 64 }
func (m *fakeModel) Classes() int          { return m.classes }
func (m *fakeModel) Close() error {
	*m.closed++
	return nil
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Host:               "127.0.0.1",
		Port:               "0",
		RequestTimeout:     5 * time.Second,
		ImageFetchTimeout:  time.Second,
		InferenceTimeout:   time.Second,
		MaxRequestBodySize: 1 << 20,
		ModelPath:          "model.onnx",
		ImageHeight:        64,
		ImageWidth:         64,
		ClassifierPoolSize: 2,
		WorkerCount:        2,
		StorageBackend:     config.StorageBackendLocal,
		UploadDir:          t.TempDir(),
		AllowedExtensions:  []string{"png", "jpg"},
		ShareTTL:           time.Hour,
		HistoryLimit:       10,
	}
}

func componentsWithModel(cfg *config.Config, classes int, closed *int) *factory.ComponentFactory {
	components := factory.NewComponentFactory(cfg)
	components.ClassifierFactory = factory.NewClassifierFactoryWithLoader(cfg, func() (factory.ModelClassifier, error) {
		return &fakeModel{classes: classes, closed: closed}, nil
	})
	return components
}

func TestNewContainer_WiresHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger.SetOutput(io.Discard)

	cfg := testConfig(t)
	closed := 0
	c, err := NewContainerWithFactory(context.Background(), cfg, componentsWithModel(cfg, len(inference.DefaultLabels()), &closed))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if c.Config() != cfg {
		t.Error("Expected config to be retained")
	}

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var health models.HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatalf("Failed to decode health: %v", err)
	}
	if health.Classes != len(inference.DefaultLabels()) || health.PoolSize != 2 || !health.StorageReady {
		t.Errorf("Unexpected health: %+v", health)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Expected clean close, got %v", err)
	}
	if closed != 2 {
		t.Errorf("Expected both model instances closed, got %d", closed)
	}
}

func TestNewContainer_LabelCountMismatch(t *testing.T) {
	logger.SetOutput(io.Discard)
	cfg := testConfig(t)
	closed := 0

	_, err := NewContainerWithFactory(context.Background(), cfg, componentsWithModel(cfg, 10, &closed))
	if !inference.IsModelLoadError(err) {
		t.Fatalf("Expected ModelLoadError, got %v", err)
	}
	if closed != 2 {
		t.Errorf("Expected model instances to be released, got %d", closed)
	}
}

func TestNewContainer_MissingLabelsFile(t *testing.T) {
	logger.SetOutput(io.Discard)
	cfg := testConfig(t)
	cfg.LabelsPath = t.TempDir() + "/labels.txt"
	closed := 0

	if _, err := NewContainerWithFactory(context.Background(), cfg, componentsWithModel(cfg, 35, &closed)); err == nil {
		t.Fatal("Expected error for missing labels file")
	}
	if closed != 0 {
		t.Errorf("Expected no model to be loaded, got %d closes", closed)
	}
}
