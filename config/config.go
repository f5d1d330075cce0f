package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	TLS_DOMAINS        = "" // e.g. "example.com,example2.com"
	BIND_ADDRESS       = "0.0.0.0:8080"
	DEBUG_MODE         = true
	SESSION_KEY        = "change me, this is not a secret" // cookie store key, override in production
	PUSH_SERVER        = ""                                // HR push notifications are skipped when empty
	DEFAULT_LOCALE     = "en"
	DEFAULT_TIMEZONE   = "Local"
	MYSQL_DSN          = "" // MySQL will be used if this is set
	SQLITE_FILE        = "rollcall.db"
	STORE_BACKEND      = "sql" // "sql" or "mongo" (attendance, identities and roster)
	MONGO_URI          = "mongodb://localhost:27017"
	MONGO_DATABASE     = "rollcall"
	DEFAULT_BUCKET_DIR = "./images" // Used for creating the initial image bucket
	IMAGE_PATH_PATTERN = "<kind>/<year>/<month>/<id>"
	MIN_FREE_SPACE_MB  = 100 // disk buckets refuse new images below this

	// Face matching policy
	FACE_MODELS_DIR      = "./models"
	FACE_DETECT_CNN      = false // Use Convolutional Neural Network for face detection (as opposed to HOG). Much slower
	FACE_MATCH_THRESHOLD = 0.6   // Max euclidean distance between probe and enrolled descriptor to pass
	FACE_MAX_DISTANCE    = 1.0   // Distance at which confidence reaches 0
	FACE_MATCH_TIMEOUT   = 10 * time.Second
	FACE_PROBE_MAX_SIZE  = 1024 // px, probes are downscaled before detection

	// Attendance policy
	DAY_SHIFT_START      = "07:00"
	NIGHT_SHIFT_START    = "19:00"
	GRACE_PERIOD         = 15 * time.Minute
	MAX_CHECKIN_ATTEMPTS = 5       // failed face matches per employee per day, 0 - unlimited
	SWEEP_AT             = "08:00" // sweeps yesterday, after the night shift has ended
	SWEEP_CATCHUP_DAYS   = 1
)

// Load overrides the defaults above from the environment. It is called once the
// optional .env file has been read.
func Load() {
	readEnvString("TLS_DOMAINS", &TLS_DOMAINS)
	readEnvString("BIND_ADDRESS", &BIND_ADDRESS)
	readEnvBool("DEBUG_MODE", &DEBUG_MODE)
	readEnvString("SESSION_KEY", &SESSION_KEY)
	readEnvString("PUSH_SERVER", &PUSH_SERVER)
	readEnvString("DEFAULT_LOCALE", &DEFAULT_LOCALE)
	readEnvString("DEFAULT_TIMEZONE", &DEFAULT_TIMEZONE)
	readEnvString("MYSQL_DSN", &MYSQL_DSN)
	readEnvString("SQLITE_FILE", &SQLITE_FILE)
	readEnvString("STORE_BACKEND", &STORE_BACKEND)
	readEnvString("MONGO_URI", &MONGO_URI)
	readEnvString("MONGO_DATABASE", &MONGO_DATABASE)
	readEnvString("DEFAULT_BUCKET_DIR", &DEFAULT_BUCKET_DIR)
	readEnvString("IMAGE_PATH_PATTERN", &IMAGE_PATH_PATTERN)
	readEnvInt("MIN_FREE_SPACE_MB", &MIN_FREE_SPACE_MB)
	readEnvString("FACE_MODELS_DIR", &FACE_MODELS_DIR)
	readEnvBool("FACE_DETECT_CNN", &FACE_DETECT_CNN)
	readEnvFloat("FACE_MATCH_THRESHOLD", &FACE_MATCH_THRESHOLD)
	readEnvFloat("FACE_MAX_DISTANCE", &FACE_MAX_DISTANCE)
	readEnvDuration("FACE_MATCH_TIMEOUT", &FACE_MATCH_TIMEOUT)
	readEnvInt("FACE_PROBE_MAX_SIZE", &FACE_PROBE_MAX_SIZE)
	readEnvString("DAY_SHIFT_START", &DAY_SHIFT_START)
	readEnvString("NIGHT_SHIFT_START", &NIGHT_SHIFT_START)
	readEnvDuration("GRACE_PERIOD", &GRACE_PERIOD)
	readEnvInt("MAX_CHECKIN_ATTEMPTS", &MAX_CHECKIN_ATTEMPTS)
	readEnvString("SWEEP_AT", &SWEEP_AT)
	readEnvInt("SWEEP_CATCHUP_DAYS", &SWEEP_CATCHUP_DAYS)
}

// Location returns DEFAULT_TIMEZONE, falling back to the process local zone
func Location() *time.Location {
	loc, err := time.LoadLocation(DEFAULT_TIMEZONE)
	if err != nil {
		return time.Local
	}
	return loc
}

func readEnvString(name string, value *string) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	*value = v
}

func readEnvBool(name string, value *bool) {
	v := strings.ToLower(os.Getenv(name))
	if v == "true" || v == "1" || v == "yes" || v == "on" {
		*value = true
	} else if v == "false" || v == "0" || v == "no" || v == "off" {
		*value = false
	}
}

func readEnvFloat(name string, value *float64) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return
	}
	*value = f
}

func readEnvInt(name string, value *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	f, err := strconv.Atoi(v)
	if err != nil {
		return
	}
	*value = f
}

// readEnvDuration accepts Go durations ("90s", "15m") or plain seconds
func readEnvDuration(name string, value *time.Duration) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*value = d
		return
	}
	if s, err := strconv.Atoi(v); err == nil {
		*value = time.Duration(s) * time.Second
	}
}
