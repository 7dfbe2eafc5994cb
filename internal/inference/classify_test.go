package inference

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func imageTensor(h, w int) Tensor {
	return Tensor{Shape: []int64{int64(h), int64(w), 3}, Data: make([]float32, h*w*3)}
}

func TestClassify_ConfidenceIsMaxElement(t *testing.T) {
	vectors := [][]float32{
		{0.1, 0.7, 0.2},
		{0.05, 0.05, 0.9},
		{0.333, 0.334, 0.333},
		{0.6, 0.1, 0.3},
	}
	for _, vector := range vectors {
		stub := &stubClassifier{vector: vector}
		result, err := Classify(imageTensor(2, 2), stub, Labels{"A", "B", "C"})
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		max := vector[0]
		for _, v := range vector {
			if v > max {
				max = v
			}
		}
		if result.Confidence != max {
			t.Errorf("Expected confidence %v for %v, got %v", max, vector, result.Confidence)
		}
		if result.AllProbabilities[result.PredictedClass] != result.Confidence {
			t.Errorf("Expected predicted class probability to equal confidence")
		}
	}
}

func TestClassify_LabelOrderMatchesVector(t *testing.T) {
	labels := DefaultLabels()
	vector := make([]float32, len(labels))
	for i := range vector {
		vector[i] = float32(i) / 1000
	}

	result, err := Classify(imageTensor(1, 1), &stubClassifier{vector: vector}, labels)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	for i, label := range labels {
		if result.AllProbabilities[label] != vector[i] {
			t.Errorf("Expected %s -> %v, got %v", label, vector[i], result.AllProbabilities[label])
		}
	}
	if result.PredictedClass != "9" {
		t.Errorf("Expected last label to win, got %s", result.PredictedClass)
	}
}

func TestClassify_TiesGoToLowestIndex(t *testing.T) {
	stub := &stubClassifier{vector: []float32{0.1, 0.4, 0.1, 0.4}}
	result, err := Classify(imageTensor(1, 1), stub, Labels{"A", "B", "C", "D"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if result.PredictedClass != "B" || result.ClassIndex != 1 {
		t.Errorf("Expected B at index 1, got %s at %d", result.PredictedClass, result.ClassIndex)
	}
}

func TestClassify_LengthMismatch(t *testing.T) {
	tests := []struct {
		name   string
		vector []float32
	}{
		{"shorter", []float32{0.5, 0.5}},
		{"longer", []float32{0.25, 0.25, 0.25, 0.25}},
		{"empty", []float32{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Classify(imageTensor(1, 1), &stubClassifier{vector: tt.vector}, Labels{"A", "B", "C"})
			var ce *ClassifierError
			if !errors.As(err, &ce) {
				t.Fatalf("Expected ClassifierError, got %v", err)
			}
		})
	}
}

func TestClassify_NaNRejected(t *testing.T) {
	stub := &stubClassifier{vector: []float32{0.2, float32(math.NaN())}}
	if _, err := Classify(imageTensor(1, 1), stub, Labels{"A", "B"}); !IsClassifierError(err) {
		t.Errorf("Expected ClassifierError, got %v", err)
	}
}

func TestClassify_AddsBatchDimensionOnce(t *testing.T) {
	stub := &stubClassifier{vector: []float32{1}}

	if _, err := Classify(imageTensor(3, 5), stub, Labels{"A"}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !sameShape(stub.lastShape, []int64{1, 3, 5, 3}) {
		t.Errorf("Expected [1 3 5 3], got %v", stub.lastShape)
	}

	batched := Tensor{Shape: []int64{1, 3, 5, 3}, Data: make([]float32, 45)}
	if _, err := Classify(batched, stub, Labels{"A"}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !sameShape(stub.lastShape, []int64{1, 3, 5, 3}) {
		t.Errorf("Expected batched tensor untouched, got %v", stub.lastShape)
	}
}

func TestClassify_RejectsMultiBatch(t *testing.T) {
	batched := Tensor{Shape: []int64{2, 1, 1, 3}, Data: make([]float32, 6)}
	if _, err := Classify(batched, &stubClassifier{vector: []float32{1}}, Labels{"A"}); !IsInvalidImage(err) {
		t.Errorf("Expected InvalidImageError, got %v", err)
	}
}

func TestClassify_ClassifierFailureIsWrapped(t *testing.T) {
	cause := errors.New("runtime exploded")
	_, err := Classify(imageTensor(1, 1), &stubClassifier{err: cause}, Labels{"A"})
	if !IsClassifierError(err) {
		t.Fatalf("Expected ClassifierError, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("Expected cause to be wrapped, got %v", err)
	}
}

func TestClassify_MultipleOutputVectors(t *testing.T) {
	twoVectors := ClassifierFunc(func(Tensor) ([][]float32, error) {
		return [][]float32{{1}, {1}}, nil
	})
	_, err := Classify(imageTensor(1, 1), twoVectors, Labels{"A"})
	if err == nil || !strings.Contains(err.Error(), "expected 1 output vector") {
		t.Errorf("Expected output count error, got %v", err)
	}
}

func TestNewTensor(t *testing.T) {
	if _, err := NewTensor([]int64{2, 2, 3}, make([]float32, 12)); err != nil {
		t.Errorf("Expected valid tensor, got %v", err)
	}
	if _, err := NewTensor([]int64{2, 2, 3}, make([]float32, 11)); err == nil {
		t.Error("Expected size mismatch error")
	}
	if _, err := NewTensor([]int64{2, 0, 3}, nil); err == nil {
		t.Error("Expected zero dimension error")
	}
	if _, err := NewTensor(nil, nil); err == nil {
		t.Error("Expected empty shape error")
	}
}
