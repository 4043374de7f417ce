package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	ort "github.com/yalue/onnxruntime_go"
)

// DefaultDrainTimeout bounds how long Close waits for in-flight runs.
const DefaultDrainTimeout = 30 * time.Second

// ModelOptions tunes the ONNX Runtime session pool.
type ModelOptions struct {
	Sessions       int
	IntraOpThreads int
	DrainTimeout   time.Duration
}

// runner is one inference slot. It is never used by two goroutines at once.
type runner interface {
	run(input []float32) ([]float32, error)
	destroy()
}

type session struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

func (s *session) run(input []float32) ([]float32, error) {
	copy(s.input.GetData(), input)
	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}
	raw := s.output.GetData()
	scores := make([]float32, len(raw))
	copy(scores, raw)
	return scores, nil
}

func (s *session) destroy() {
	if s.session != nil {
		s.session.Destroy()
	}
	if s.input != nil {
		s.input.Destroy()
	}
	if s.output != nil {
		s.output.Destroy()
	}
}

// Model is a pool of ONNX Runtime sessions over one model file. Each session
// owns its bound tensors, so a session serves one request at a time and the
// pool size bounds concurrent inference.
type Model struct {
	pool         chan runner
	runners      []runner
	drainTimeout time.Duration
}

// LoadModel opens the model at path with one session per pool slot. The
// model's output width must equal classes when it is static.
// The ONNX Runtime environment must already be initialized.
func LoadModel(path string, classes int, opts ModelOptions) (*Model, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("model file missing at %s: %w", path, err)
	}
	if opts.Sessions <= 0 {
		opts.Sessions = 1
	}

	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get model input/output info: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, errors.New("model declares no inputs or outputs")
	}
	dims := outputs[0].Dimensions
	if n := len(dims); n > 0 && dims[n-1] > 0 && int(dims[n-1]) != classes {
		return nil, fmt.Errorf("model has %d outputs but catalog has %d classes", dims[n-1], classes)
	}

	runners := make([]runner, 0, opts.Sessions)
	for i := 0; i < opts.Sessions; i++ {
		s, err := newSession(path, inputs[0].Name, outputs[0].Name, classes, opts.IntraOpThreads)
		if err != nil {
			for _, r := range runners {
				r.destroy()
			}
			return nil, err
		}
		runners = append(runners, s)
	}
	return newModel(runners, opts.DrainTimeout), nil
}

func newModel(runners []runner, drainTimeout time.Duration) *Model {
	if drainTimeout <= 0 {
		drainTimeout = DefaultDrainTimeout
	}
	m := &Model{
		pool:         make(chan runner, len(runners)),
		runners:      runners,
		drainTimeout: drainTimeout,
	}
	for _, r := range runners {
		m.pool <- r
	}
	return m
}

func newSession(path, inputName, outputName string, classes, intraOpThreads int) (*session, error) {
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer opts.Destroy()
	if intraOpThreads > 0 {
		if err := opts.SetIntraOpNumThreads(intraOpThreads); err != nil {
			return nil, fmt.Errorf("failed to set intra-op threads: %w", err)
		}
	}

	s := &session{}
	s.input, err = ort.NewTensor(ort.NewShape(1, ImageSize, ImageSize, Channels), make([]float32, InputLen))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	s.output, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(classes)))
	if err != nil {
		s.destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	s.session, err = ort.NewAdvancedSession(
		path,
		[]string{inputName},
		[]string{outputName},
		[]ort.Value{s.input},
		[]ort.Value{s.output},
		opts,
	)
	if err != nil {
		s.destroy()
		return nil, fmt.Errorf("failed to create ONNX Runtime session: %w", err)
	}
	return s, nil
}

// Classify waits for a free session and runs it. If ctx ends first the call
// returns early; a run already in flight finishes in the background before
// its session goes back to the pool.
func (m *Model) Classify(ctx context.Context, input []float32) ([]float32, error) {
	if m == nil || m.pool == nil {
		return nil, ErrModelNotReady
	}
	if len(input) != InputLen {
		return nil, fmt.Errorf("input has %d values, want %d", len(input), InputLen)
	}

	var r runner
	select {
	case r = <-m.pool:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	type result struct {
		scores []float32
		err    error
	}
	done := make(chan result, 1)
	go func() {
		defer func() { m.pool <- r }()
		scores, err := r.run(input)
		done <- result{scores: scores, err: err}
	}()

	select {
	case res := <-done:
		return res.scores, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close takes every session back from the pool, waiting for runs still in
// flight, and destroys them. Sessions that do not come back within the drain
// timeout are leaked rather than destroyed under a running inference.
func (m *Model) Close() error {
	if m == nil || m.pool == nil {
		return nil
	}
	timer := time.NewTimer(m.drainTimeout)
	defer timer.Stop()

	drained := 0
	for drained < len(m.runners) {
		select {
		case r := <-m.pool:
			r.destroy()
			drained++
		case <-timer.C:
			busy := len(m.runners) - drained
			slog.Error("Gave up waiting for in-flight inference",
				slog.Int("busy_sessions", busy),
				slog.Duration("waited", m.drainTimeout))
			m.runners = nil
			return fmt.Errorf("%d sessions still running after %s", busy, m.drainTimeout)
		}
	}
	m.runners = nil
	slog.Debug("ONNX sessions destroyed", slog.Int("sessions", drained))
	return nil
}
