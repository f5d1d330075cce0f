package faces

import (
	"math"
	"time"
)

type ReasonCode string

const (
	ReasonOK             ReasonCode = "OK"
	ReasonNoFaceDetected ReasonCode = "NO_FACE_DETECTED"
	ReasonNoEnrollment   ReasonCode = "NO_ENROLLMENT"
	ReasonBelowThreshold ReasonCode = "BELOW_THRESHOLD"
)

// MatchDecision is the outcome of comparing a probe against an enrolled descriptor.
// Lower distance means more similar; Passed is decided on the raw distance only.
type MatchDecision struct {
	Distance   float64    `json:"distance"`
	Confidence float64    `json:"confidence"`
	Passed     bool       `json:"passed"`
	Reason     ReasonCode `json:"reason"`
}

// Policy holds the tunable constants of the matcher
type Policy struct {
	Threshold    float64       // passed = distance <= Threshold
	MaxDistance  float64       // confidence reaches 0 at this distance
	Timeout      time.Duration // bound on a single inference, 0 - none
	ProbeMaxSize uint          // probes are downscaled to fit this square, 0 - untouched
}

var DefaultPolicy = Policy{
	Threshold:    0.6,
	MaxDistance:  1.0,
	Timeout:      10 * time.Second,
	ProbeMaxSize: 1024,
}

// Confidence maps a distance onto [0,1], decreasing monotonically
func (p Policy) Confidence(distance float64) float64 {
	if p.MaxDistance <= 0 {
		return 0
	}
	return math.Max(0, math.Min(1, 1-distance/p.MaxDistance))
}

func (p Policy) Decide(distance float64) MatchDecision {
	d := MatchDecision{
		Distance:   distance,
		Confidence: p.Confidence(distance),
		Passed:     distance <= p.Threshold,
		Reason:     ReasonOK,
	}
	if !d.Passed {
		d.Reason = ReasonBelowThreshold
	}
	return d
}
