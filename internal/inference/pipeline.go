package inference

import (
	"fmt"
	"image"
	"io"
)

// ClassifyImage loads the image at path, preprocesses it to
// targetHeight x targetWidth and classifies it.
func ClassifyImage(path string, classifier Classifier, labels Labels, targetHeight, targetWidth int) (*PredictionResult, error) {
	img, err := LoadImage(path)
	if err != nil {
		return nil, err
	}
	tensor, err := Preprocess(img, targetHeight, targetWidth)
	if err != nil {
		return nil, err
	}
	return Classify(tensor.Tensor(), classifier, labels)
}

// Pipeline is the immutable handle built once at startup and shared by every
// request: the loaded classifier, its labels and its input size.
type Pipeline struct {
	classifier Classifier
	labels     Labels
	height     int
	width      int
}

// NewPipeline validates and bundles the startup products of the pipeline.
func NewPipeline(classifier Classifier, labels Labels, height, width int) (*Pipeline, error) {
	if classifier == nil {
		return nil, fmt.Errorf("classifier is required")
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels are required")
	}
	if height <= 0 || width <= 0 {
		return nil, fmt.Errorf("input size must be positive (got %dx%d)", height, width)
	}
	return &Pipeline{
		classifier: classifier,
		labels:     append(Labels(nil), labels...),
		height:     height,
		width:      width,
	}, nil
}

// Labels returns a copy of the configured label set.
func (p *Pipeline) Labels() Labels {
	return append(Labels(nil), p.labels...)
}

// InputSize returns the target height and width.
func (p *Pipeline) InputSize() (int, int) {
	return p.height, p.width
}

// Preprocess resizes and normalises img to the pipeline's input size.
func (p *Pipeline) Preprocess(img image.Image) (*ImageTensor, error) {
	return Preprocess(img, p.height, p.width)
}

// ClassifyImage preprocesses and classifies a decoded image.
func (p *Pipeline) ClassifyImage(img image.Image) (*PredictionResult, error) {
	tensor, err := p.Preprocess(img)
	if err != nil {
		return nil, err
	}
	return p.ClassifyTensor(tensor.Tensor())
}

// ClassifyReader decodes and classifies an encoded image stream.
func (p *Pipeline) ClassifyReader(r io.Reader) (*PredictionResult, error) {
	img, _, err := DecodeImage(r)
	if err != nil {
		return nil, err
	}
	return p.ClassifyImage(img)
}

// ClassifyFile is ClassifyImage for a file on disk.
func (p *Pipeline) ClassifyFile(path string) (*PredictionResult, error) {
	return ClassifyImage(path, p.classifier, p.labels, p.height, p.width)
}

// ClassifyTensor classifies an already-prepared tensor. Only [H,W,3] and
// [1,H,W,3] at the pipeline's input size are accepted.
func (p *Pipeline) ClassifyTensor(t Tensor) (*PredictionResult, error) {
	dims := t.Shape
	if len(dims) == 4 && dims[0] == 1 {
		dims = dims[1:]
	}
	if len(dims) != 3 || dims[0] != int64(p.height) || dims[1] != int64(p.width) || dims[2] != RGBChannels {
		return nil, invalidImage(fmt.Sprintf("tensor shape %v does not match input %dx%dx%d",
			t.Shape, p.height, p.width, RGBChannels), nil)
	}
	return Classify(t, p.classifier, p.labels)
}
