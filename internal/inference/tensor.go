package inference

import "fmt"

// Tensor is a dense float32 array with an explicit shape.
type Tensor struct {
	Shape []int64
	Data  []float32
}

// NewTensor validates that data holds exactly as many values as shape implies.
func NewTensor(shape []int64, data []float32) (Tensor, error) {
	if len(shape) == 0 {
		return Tensor{}, fmt.Errorf("tensor shape must not be empty")
	}
	n := int64(1)
	for _, d := range shape {
		if d <= 0 {
			return Tensor{}, fmt.Errorf("tensor dimension must be > 0 (got %v)", shape)
		}
		n *= d
	}
	if int64(len(data)) != n {
		return Tensor{}, fmt.Errorf("tensor shape %v needs %d values, got %d", shape, n, len(data))
	}
	return Tensor{Shape: append([]int64(nil), shape...), Data: data}, nil
}

// Elements returns the number of values the shape describes.
func (t Tensor) Elements() int64 {
	if len(t.Shape) == 0 {
		return 0
	}
	n := int64(1)
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// WithBatch returns t with a leading batch dimension of 1 when t is a single
// HWC image. Tensors that already carry a batch dimension are returned as is.
func (t Tensor) WithBatch() Tensor {
	if len(t.Shape) != 3 {
		return t
	}
	shape := make([]int64, 0, 4)
	shape = append(shape, 1)
	shape = append(shape, t.Shape...)
	return Tensor{Shape: shape, Data: t.Data}
}

// ImageTensor is a preprocessed image in HWC order with values in [0,1].
type ImageTensor struct {
	Height   int
	Width    int
	Channels int
	Data     []float32
}

// At returns the value at row y, column x, channel c.
func (t *ImageTensor) At(y, x, c int) float32 {
	return t.Data[(y*t.Width+x)*t.Channels+c]
}

// Tensor exposes t as a rank-3 tensor sharing the same backing data.
func (t *ImageTensor) Tensor() Tensor {
	return Tensor{
		Shape: []int64{int64(t.Height), int64(t.Width), int64(t.Channels)},
		Data:  t.Data,
	}
}
