package config

import (
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Setenv("FACE_MATCH_THRESHOLD", "0.55")
	t.Setenv("FACE_DETECT_CNN", "yes")
	t.Setenv("GRACE_PERIOD", "600")
	t.Setenv("FACE_MATCH_TIMEOUT", "3s")
	t.Setenv("MAX_CHECKIN_ATTEMPTS", "not a number")

	threshold, cnn, grace, timeout, attempts := FACE_MATCH_THRESHOLD, FACE_DETECT_CNN, GRACE_PERIOD, FACE_MATCH_TIMEOUT, MAX_CHECKIN_ATTEMPTS
	defer func() {
		FACE_MATCH_THRESHOLD, FACE_DETECT_CNN, GRACE_PERIOD, FACE_MATCH_TIMEOUT, MAX_CHECKIN_ATTEMPTS = threshold, cnn, grace, timeout, attempts
	}()

	Load()
	if FACE_MATCH_THRESHOLD != 0.55 {
		t.Errorf("FACE_MATCH_THRESHOLD = %v, want 0.55", FACE_MATCH_THRESHOLD)
	}
	if !FACE_DETECT_CNN {
		t.Errorf("FACE_DETECT_CNN = false, want true")
	}
	if GRACE_PERIOD != 10*time.Minute {
		t.Errorf("GRACE_PERIOD = %v, want 10m", GRACE_PERIOD)
	}
	if FACE_MATCH_TIMEOUT != 3*time.Second {
		t.Errorf("FACE_MATCH_TIMEOUT = %v, want 3s", FACE_MATCH_TIMEOUT)
	}
	if MAX_CHECKIN_ATTEMPTS != attempts {
		t.Errorf("MAX_CHECKIN_ATTEMPTS = %v, want unchanged %v", MAX_CHECKIN_ATTEMPTS, attempts)
	}
}

func TestLocation(t *testing.T) {
	orig := DEFAULT_TIMEZONE
	defer func() { DEFAULT_TIMEZONE = orig }()

	DEFAULT_TIMEZONE = "Asia/Jakarta"
	if got := Location().String(); got != "Asia/Jakarta" {
		t.Errorf("Location() = %v, want Asia/Jakarta", got)
	}
	DEFAULT_TIMEZONE = "Nowhere/Special"
	if got := Location(); got != time.Local {
		t.Errorf("Location() = %v, want Local", got)
	}
}
