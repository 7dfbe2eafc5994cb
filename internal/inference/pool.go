package inference

import (
	"fmt"
	"io"
	"time"
)

// Pool spreads predictions over a fixed set of classifier instances. Each
// instance serves one call at a time, so runtimes that forbid concurrent
// inference on a single session can still serve concurrent requests.
type Pool struct {
	instances []Classifier
	free      chan Classifier
}

// NewPool builds size instances with factory. If any instance fails to build,
// the ones already created are closed and the error is returned.
func NewPool(size int, factory func() (Classifier, error)) (*Pool, error) {
	if size <= 0 {
		size = 1
	}
	p := &Pool{
		instances: make([]Classifier, 0, size),
		free:      make(chan Classifier, size),
	}
	for i := 0; i < size; i++ {
		c, err := factory()
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("create classifier %d/%d: %w", i+1, size, err)
		}
		p.instances = append(p.instances, c)
		p.free <- c
	}
	return p, nil
}

// Size returns the number of instances in the pool.
func (p *Pool) Size() int {
	return len(p.instances)
}

// Predict borrows an instance for the duration of one call.
func (p *Pool) Predict(batch Tensor) ([][]float32, error) {
	c := <-p.free
	defer func() { p.free <- c }()
	return c.Predict(batch)
}

// Close releases every instance that implements io.Closer.
func (p *Pool) Close() error {
	var first error
	for _, c := range p.instances {
		if closer, ok := c.(io.Closer); ok {
			if err := closer.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	p.instances = nil
	return first
}

type timeoutClassifier struct {
	next    Classifier
	timeout time.Duration
}

// WithTimeout bounds how long callers wait for next. The underlying call is
// not cancelled; it runs to completion in the background and its result is
// discarded.
func WithTimeout(next Classifier, timeout time.Duration) Classifier {
	if timeout <= 0 {
		return next
	}
	return &timeoutClassifier{next: next, timeout: timeout}
}

type prediction struct {
	out [][]float32
	err error
}

func (t *timeoutClassifier) Predict(batch Tensor) ([][]float32, error) {
	done := make(chan prediction, 1)
	go func() {
		out, err := t.next.Predict(batch)
		done <- prediction{out: out, err: err}
	}()

	timer := time.NewTimer(t.timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		return res.out, res.err
	case <-timer.C:
		return nil, ErrInferenceTimeout
	}
}
