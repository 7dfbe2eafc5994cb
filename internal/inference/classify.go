package inference

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Classifier is the opaque model: a batch of input tensors in, one
// probability vector per batch entry out.
type Classifier interface {
	Predict(batch Tensor) ([][]float32, error)
}

// ClassifierFunc adapts a plain function to Classifier.
type ClassifierFunc func(batch Tensor) ([][]float32, error)

// Predict calls f.
func (f ClassifierFunc) Predict(batch Tensor) ([][]float32, error) {
	return f(batch)
}

// PredictionResult is the top label for one input plus the full distribution.
type PredictionResult struct {
	PredictedClass   string             `json:"predicted_class"`
	ClassIndex       int                `json:"class_index"`
	Confidence       float32            `json:"confidence"`
	AllProbabilities map[string]float32 `json:"all_probabilities"`
}

// Classify runs one tensor through classifier and picks the most probable
// label. The vector length must equal len(labels); ties go to the lowest
// index. Confidence is the winning vector element itself.
func Classify(tensor Tensor, classifier Classifier, labels Labels) (*PredictionResult, error) {
	if classifier == nil {
		return nil, classifierFailure("no classifier configured", nil)
	}
	if len(labels) == 0 {
		return nil, classifierFailure("label set is empty", nil)
	}
	if int64(len(tensor.Data)) != tensor.Elements() || len(tensor.Data) == 0 {
		return nil, invalidImage(fmt.Sprintf("tensor shape %v does not match %d values", tensor.Shape, len(tensor.Data)), nil)
	}

	batch := tensor.WithBatch()
	if batch.Shape[0] != 1 {
		return nil, invalidImage(fmt.Sprintf("expected a single input, got batch of %d", batch.Shape[0]), nil)
	}

	outputs, err := classifier.Predict(batch)
	if err != nil {
		if IsClassifierError(err) || errors.Is(err, ErrInferenceTimeout) {
			return nil, err
		}
		return nil, classifierFailure("prediction failed", err)
	}
	if len(outputs) != 1 {
		return nil, classifierFailure(fmt.Sprintf("expected 1 output vector, got %d", len(outputs)), nil)
	}

	return resultFromVector(outputs[0], labels)
}

func resultFromVector(vector []float32, labels Labels) (*PredictionResult, error) {
	if len(vector) != len(labels) {
		return nil, classifierFailure(fmt.Sprintf("output has %d values but %d labels are configured", len(vector), len(labels)), nil)
	}

	widened := make([]float64, len(vector))
	for i, v := range vector {
		if math.IsNaN(float64(v)) {
			return nil, classifierFailure(fmt.Sprintf("output %d is NaN", i), nil)
		}
		widened[i] = float64(v)
	}

	// floats.MaxIdx returns the first index holding the maximum.
	best := floats.MaxIdx(widened)

	all := make(map[string]float32, len(labels))
	for i, label := range labels {
		all[label] = vector[i]
	}

	return &PredictionResult{
		PredictedClass:   labels[best],
		ClassIndex:       best,
		Confidence:       vector[best],
		AllProbabilities: all,
	}, nil
}
