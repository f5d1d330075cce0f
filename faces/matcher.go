package faces

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"rollcall/utils"

	"go.uber.org/zap"
)

// Extractor finds faces in a JPEG image and returns one descriptor per face.
// Implementations are not required to be safe for concurrent use.
type Extractor interface {
	Extract(jpeg []byte) ([]Descriptor, error)
	Close()
}

type State int

const (
	StateNotReady State = iota
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	}
	return "not ready"
}

var (
	ErrModelNotReady     = errors.New("face model not ready")
	ErrProcessingTimeout = errors.New("face processing timed out")
	ErrInvalidImage      = errors.New("invalid image")
	ErrNoFaceDetected    = errors.New("exactly one face expected")
)

// Matcher compares probe images against enrolled descriptors. It starts NotReady,
// becomes Ready once Load succeeds and is Closed for good by Close.
type Matcher struct {
	policy Policy

	mu        sync.RWMutex
	state     State
	extractor Extractor

	// serializes inference, the dlib recognizer is not thread safe
	inference sync.Mutex
	closed    atomic.Bool
}

func NewMatcher(policy Policy) *Matcher {
	return &Matcher{policy: policy}
}

func (m *Matcher) Policy() Policy {
	return m.policy
}

// Load opens the extractor (usually loading model files) and marks the matcher ready
func (m *Matcher) Load(open func() (Extractor, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case StateReady:
		return nil
	case StateClosed:
		return fmt.Errorf("load: %w: matcher closed", ErrModelNotReady)
	}
	extractor, err := open()
	if err != nil {
		return fmt.Errorf("load face model: %w", err)
	}
	m.extractor = extractor
	m.state = StateReady
	zap.S().Infof("Face matcher ready, threshold: %.2f, max distance: %.2f", m.policy.Threshold, m.policy.MaxDistance)
	return nil
}

func (m *Matcher) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Matcher) Ready() bool {
	return m.State() == StateReady
}

// Close waits for a running inference and releases the extractor
func (m *Matcher) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateReady {
		m.inference.Lock()
		m.closed.Store(true)
		m.extractor.Close()
		m.inference.Unlock()
	}
	m.extractor = nil
	m.state = StateClosed
}

// Match detects exactly one face in probe and compares it with enrolled.
// Match-level outcomes are reported in the decision, errors are processing failures.
func (m *Matcher) Match(ctx context.Context, probe []byte, enrolled Descriptor) (MatchDecision, error) {
	if enrolled.IsZero() {
		return MatchDecision{Reason: ReasonNoEnrollment}, nil
	}
	descriptors, err := m.extract(ctx, probe)
	if err != nil {
		return MatchDecision{}, err
	}
	if len(descriptors) != 1 {
		return MatchDecision{Reason: ReasonNoFaceDetected}, nil
	}
	return m.policy.Decide(Distance(descriptors[0], enrolled)), nil
}

type Enrollment struct {
	Descriptor Descriptor
	Confidence float64
}

// Enroll builds a reference descriptor from one or more images. Every image must contain exactly
// one face. Confidence is the lowest confidence of any image against the averaged descriptor.
func (m *Matcher) Enroll(ctx context.Context, images ...[]byte) (Enrollment, error) {
	if len(images) == 0 {
		return Enrollment{}, fmt.Errorf("%w: no images", ErrInvalidImage)
	}
	all := make([]Descriptor, 0, len(images))
	for i, img := range images {
		descriptors, err := m.extract(ctx, img)
		if err != nil {
			return Enrollment{}, fmt.Errorf("image %d: %w", i+1, err)
		}
		if len(descriptors) != 1 {
			return Enrollment{}, fmt.Errorf("image %d: %w, found %d", i+1, ErrNoFaceDetected, len(descriptors))
		}
		all = append(all, descriptors[0])
	}
	result := Enrollment{Descriptor: Mean(all), Confidence: 1}
	for _, d := range all {
		if c := m.policy.Confidence(Distance(d, result.Descriptor)); c < result.Confidence {
			result.Confidence = c
		}
	}
	return result, nil
}

type extractResult struct {
	descriptors []Descriptor
	err         error
}

func (m *Matcher) extract(ctx context.Context, img []byte) ([]Descriptor, error) {
	m.mu.RLock()
	extractor, state := m.extractor, m.state
	m.mu.RUnlock()
	if state != StateReady {
		return nil, ErrModelNotReady
	}
	probe, err := NormalizeProbe(img, m.policy.ProbeMaxSize)
	if err != nil {
		return nil, err
	}
	if m.policy.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.policy.Timeout)
		defer cancel()
	}
	done := make(chan extractResult, 1)
	go func() {
		m.inference.Lock()
		defer m.inference.Unlock()
		if m.closed.Load() {
			done <- extractResult{err: ErrModelNotReady}
			return
		}
		if ctx.Err() != nil {
			done <- extractResult{err: ctx.Err()}
			return
		}
		descriptors, err := extractor.Extract(probe)
		done <- extractResult{descriptors, err}
	}()
	select {
	case r := <-done:
		switch {
		case r.err == nil:
			return r.descriptors, nil
		case errors.Is(r.err, context.DeadlineExceeded):
			return nil, ErrProcessingTimeout
		case errors.Is(r.err, context.Canceled), errors.Is(r.err, ErrModelNotReady):
			return nil, r.err
		}
		return nil, fmt.Errorf("extract descriptors: %w", r.err)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrProcessingTimeout
		}
		return nil, ctx.Err()
	}
}

// NormalizeProbe re-encodes any supported image as a JPEG no larger than maxSize on either side
func NormalizeProbe(img []byte, maxSize uint) ([]byte, error) {
	if len(img) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidImage)
	}
	out := bytes.Buffer{}
	if _, err := utils.CreateThumb(maxSize, bytes.NewReader(img), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return out.Bytes(), nil
}
