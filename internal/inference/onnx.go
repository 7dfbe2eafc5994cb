package inference

import (
	"errors"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Layout is the memory order an image model expects.
type Layout int

const (
	// LayoutNHWC is channels-last, the Keras default.
	LayoutNHWC Layout = iota
	// LayoutNCHW is channels-first, the PyTorch default.
	LayoutNCHW
)

func (l Layout) String() string {
	if l == LayoutNCHW {
		return "NCHW"
	}
	return "NHWC"
}

// ONNXOptions tunes LoadClassifier. Zero values pick sensible defaults.
type ONNXOptions struct {
	// SharedLibraryPath points at the onnxruntime shared library.
	SharedLibraryPath string
	// InputName and OutputName select graph endpoints; empty means the first.
	InputName  string
	OutputName string
	// IntraOpThreads caps the threads one Run may use; 0 keeps the runtime default.
	IntraOpThreads int
}

var runtimeMu sync.Mutex

// InitRuntime initialises the onnxruntime environment once per process.
func InitRuntime(libPath string) error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()
	if ort.IsInitialized() {
		return nil
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	return ort.InitializeEnvironment()
}

// ShutdownRuntime tears the onnxruntime environment down. Every classifier
// must be closed first.
func ShutdownRuntime() error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

// ONNXClassifier runs a single-input, single-output ONNX image model. The
// session binds fixed tensors, so calls are serialised on mu; use a Pool for
// parallelism.
type ONNXClassifier struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]

	layout   Layout
	height   int
	width    int
	channels int
	classes  int
}

// LoadClassifier loads the ONNX model at path. Any problem with the artifact
// is reported as a ModelLoadError.
func LoadClassifier(path string, opts ONNXOptions) (*ONNXClassifier, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ModelLoadError{Path: path, Reason: "model file does not exist", Err: err}
		}
		return nil, &ModelLoadError{Path: path, Reason: "cannot stat model file", Err: err}
	}
	if err := InitRuntime(opts.SharedLibraryPath); err != nil {
		return nil, &ModelLoadError{Path: path, Reason: "initialize onnxruntime", Err: err}
	}

	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, &ModelLoadError{Path: path, Reason: "read model signature", Err: err}
	}
	in, err := pickEndpoint(inputs, opts.InputName)
	if err != nil {
		return nil, &ModelLoadError{Path: path, Reason: "select input", Err: err}
	}
	out, err := pickEndpoint(outputs, opts.OutputName)
	if err != nil {
		return nil, &ModelLoadError{Path: path, Reason: "select output", Err: err}
	}
	if in.DataType != ort.TensorElementDataTypeFloat || out.DataType != ort.TensorElementDataTypeFloat {
		return nil, &ModelLoadError{Path: path, Reason: "model must take and return float32 tensors"}
	}

	c := &ONNXClassifier{}
	if err := c.readInputShape(in.Dimensions); err != nil {
		return nil, &ModelLoadError{Path: path, Reason: "unsupported input shape", Err: err}
	}
	if len(out.Dimensions) != 2 || out.Dimensions[1] <= 0 {
		return nil, &ModelLoadError{Path: path, Reason: fmt.Sprintf("output shape %v is not [batch, classes]", out.Dimensions)}
	}
	c.classes = int(out.Dimensions[1])

	inShape := ort.NewShape(1, int64(c.height), int64(c.width), int64(c.channels))
	if c.layout == LayoutNCHW {
		inShape = ort.NewShape(1, int64(c.channels), int64(c.height), int64(c.width))
	}
	c.input, err = ort.NewEmptyTensor[float32](inShape)
	if err != nil {
		return nil, &ModelLoadError{Path: path, Reason: "allocate input tensor", Err: err}
	}
	c.output, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(c.classes)))
	if err != nil {
		c.Close()
		return nil, &ModelLoadError{Path: path, Reason: "allocate output tensor", Err: err}
	}

	var sessionOpts *ort.SessionOptions
	if opts.IntraOpThreads > 0 {
		sessionOpts, err = ort.NewSessionOptions()
		if err != nil {
			c.Close()
			return nil, &ModelLoadError{Path: path, Reason: "create session options", Err: err}
		}
		defer sessionOpts.Destroy()
		if err := sessionOpts.SetIntraOpNumThreads(opts.IntraOpThreads); err != nil {
			c.Close()
			return nil, &ModelLoadError{Path: path, Reason: "set intra-op threads", Err: err}
		}
	}

	c.session, err = ort.NewAdvancedSession(path,
		[]string{in.Name}, []string{out.Name},
		[]ort.Value{c.input}, []ort.Value{c.output},
		sessionOpts)
	if err != nil {
		c.Close()
		return nil, &ModelLoadError{Path: path, Reason: "create session", Err: err}
	}
	return c, nil
}

func pickEndpoint(infos []ort.InputOutputInfo, name string) (ort.InputOutputInfo, error) {
	if len(infos) == 0 {
		return ort.InputOutputInfo{}, errors.New("model declares no endpoints")
	}
	if name == "" {
		return infos[0], nil
	}
	for _, info := range infos {
		if info.Name == name {
			return info, nil
		}
	}
	return ort.InputOutputInfo{}, fmt.Errorf("no endpoint named %q", name)
}

// readInputShape accepts [N,H,W,C] or [N,C,H,W] with C of 1 or 3 and fixed
// spatial dimensions; N may be dynamic.
func (c *ONNXClassifier) readInputShape(dims ort.Shape) error {
	if len(dims) != 4 {
		return fmt.Errorf("expected rank 4, got %v", dims)
	}
	isChannels := func(d int64) bool { return d == 1 || d == 3 }
	switch {
	case isChannels(dims[3]) && dims[1] > 0 && dims[2] > 0:
		c.layout, c.height, c.width, c.channels = LayoutNHWC, int(dims[1]), int(dims[2]), int(dims[3])
	case isChannels(dims[1]) && dims[2] > 0 && dims[3] > 0:
		c.layout, c.height, c.width, c.channels = LayoutNCHW, int(dims[2]), int(dims[3]), int(dims[1])
	default:
		return fmt.Errorf("cannot infer layout from %v", dims)
	}
	return nil
}

// InputSize returns the spatial size the model was exported with.
func (c *ONNXClassifier) InputSize() (int, int) {
	return c.height, c.width
}

// Classes returns the length of the model's output vector.
func (c *ONNXClassifier) Classes() int {
	return c.classes
}

// Layout returns the memory order the model expects.
func (c *ONNXClassifier) Layout() Layout {
	return c.layout
}

// Predict runs one [1,H,W,3] batch through the session.
func (c *ONNXClassifier) Predict(batch Tensor) ([][]float32, error) {
	want := []int64{1, int64(c.height), int64(c.width), RGBChannels}
	if !sameShape(batch.Shape, want) {
		return nil, classifierFailure(fmt.Sprintf("input shape %v, model expects %v", batch.Shape, want), nil)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, classifierFailure("session is closed", nil)
	}

	fillInput(c.input.GetData(), batch.Data, c.layout, c.height, c.width, c.channels)
	if err := c.session.Run(); err != nil {
		return nil, classifierFailure("run session", err)
	}

	out := make([]float32, c.classes)
	copy(out, c.output.GetData())
	return [][]float32{out}, nil
}

// fillInput copies an HWC RGB tensor into dst using the model's layout. Single
// channel models get the mean of R, G and B.
func fillInput(dst, src []float32, layout Layout, height, width, channels int) {
	plane := height * width
	for p := 0; p < plane; p++ {
		r, g, b := src[p*RGBChannels], src[p*RGBChannels+1], src[p*RGBChannels+2]
		if channels == 1 {
			dst[p] = (r + g + b) / 3
			continue
		}
		if layout == LayoutNCHW {
			dst[p], dst[plane+p], dst[2*plane+p] = r, g, b
		} else {
			dst[p*3], dst[p*3+1], dst[p*3+2] = r, g, b
		}
	}
}

func sameShape(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Close destroys the session and its tensors.
func (c *ONNXClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	if c.session != nil {
		keep(c.session.Destroy())
		c.session = nil
	}
	if c.input != nil {
		keep(c.input.Destroy())
		c.input = nil
	}
	if c.output != nil {
		keep(c.output.Destroy())
		c.output = nil
	}
	return first
}
