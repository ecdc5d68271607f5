// Package config loads plate reader settings from the environment.
//
// A .env file in the working directory is read first when present;
// variables already set in the environment win over it.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	perrors "github.com/ironsheep/plate-reader/internal/errors"
	"github.com/ironsheep/plate-reader/internal/pipeline"
	"github.com/ironsheep/plate-reader/internal/plate"
)

// OCR backends.
const (
	BackendTesseract   = "tesseract"
	BackendRekognition = "rekognition"
	BackendNone        = "none"
)

// Session backends.
const (
	SessionMemory = "memory"
	SessionRedis  = "redis"
)

// Config holds every setting of the plate reader binaries.
type Config struct {
	ServerPort string
	LogLevel   string

	// Recognizer
	OCRBackend        string
	TesseractLanguage string
	TessdataPrefix    string
	AWSRegion         string

	// Learned detector
	DetectorURL        string
	DetectorTimeout    time.Duration
	DetectorThresholds []float64

	// Plate rules. Zero or empty overrides keep the locale's value.
	Locale        string
	Patterns      []string
	MinLength     int
	MaxLength     int
	RequireLetter *bool
	RequireDigit  *bool
	Permissive    bool

	CorrectConfusions   bool
	MinConfidence       float64
	RotationFallback    bool
	EarlyExitConfidence float64
	DetectorWeight      float64
	OCRWeight           float64
	MaxImageWidth       int
	DetectionTimeout    time.Duration

	// Sessions
	SessionBackend string
	RedisURL       string
	SessionTTL     time.Duration

	MaxUploadBytes int64
}

// Load reads .env (if any) and the environment, then validates.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv reads the environment without loading .env or validating.
func FromEnv() *Config {
	defaults := pipeline.DefaultConfig()

	return &Config{
		ServerPort: getEnvOrDefault("SERVER_PORT", "8080"),
		LogLevel:   getEnvOrDefault("PLATE_LOG_LEVEL", "info"),

		OCRBackend:        strings.ToLower(getEnvOrDefault("OCR_BACKEND", BackendTesseract)),
		TesseractLanguage: getEnvOrDefault("TESSERACT_LANGUAGE", "eng"),
		TessdataPrefix:    getEnvOrDefault("TESSDATA_PREFIX", ""),
		AWSRegion:         getEnvOrDefault("AWS_REGION", "us-east-1"),

		DetectorURL:        getEnvOrDefault("DETECTOR_URL", ""),
		DetectorTimeout:    getEnvAsDurationOrDefault("DETECTOR_TIMEOUT", 10*time.Second),
		DetectorThresholds: getEnvAsFloatListOrDefault("DETECTOR_THRESHOLDS", defaults.DetectorThresholds),

		Locale:        strings.ToLower(getEnvOrDefault("PLATE_LOCALE", "international")),
		Patterns:      getEnvAsListOrDefault("PLATE_PATTERNS", nil),
		MinLength:     getEnvAsIntOrDefault("PLATE_MIN_LENGTH", 0),
		MaxLength:     getEnvAsIntOrDefault("PLATE_MAX_LENGTH", 0),
		RequireLetter: getEnvAsOptionalBool("PLATE_REQUIRE_LETTER"),
		RequireDigit:  getEnvAsOptionalBool("PLATE_REQUIRE_DIGIT"),
		Permissive:    getEnvAsBoolOrDefault("PLATE_PERMISSIVE", false),

		CorrectConfusions:   getEnvAsBoolOrDefault("PLATE_CORRECT_CONFUSIONS", defaults.CorrectConfusions),
		MinConfidence:       getEnvAsFloatOrDefault("OCR_MIN_CONFIDENCE", defaults.MinConfidence),
		RotationFallback:    getEnvAsBoolOrDefault("ROTATION_FALLBACK", defaults.RotationFallback),
		EarlyExitConfidence: getEnvAsFloatOrDefault("EARLY_EXIT_CONFIDENCE", defaults.EarlyExitConfidence),
		DetectorWeight:      getEnvAsFloatOrDefault("DETECTOR_WEIGHT", defaults.DetectorWeight),
		OCRWeight:           getEnvAsFloatOrDefault("OCR_WEIGHT", defaults.OCRWeight),
		MaxImageWidth:       getEnvAsIntOrDefault("MAX_IMAGE_WIDTH", defaults.MaxImageWidth),
		DetectionTimeout:    getEnvAsDurationOrDefault("DETECTION_TIMEOUT", defaults.Timeout),

		SessionBackend: strings.ToLower(getEnvOrDefault("SESSION_BACKEND", SessionMemory)),
		RedisURL:       getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		SessionTTL:     getEnvAsDurationOrDefault("SESSION_TTL", 10*time.Minute),

		MaxUploadBytes: int64(getEnvAsIntOrDefault("MAX_UPLOAD_BYTES", 10<<20)),
	}
}

// Validate reports every invalid setting in one INVALID_CONFIG error.
func (c *Config) Validate() error {
	var problems []string

	if _, err := strconv.Atoi(c.ServerPort); err != nil {
		problems = append(problems, fmt.Sprintf("SERVER_PORT must be a number, got %q", c.ServerPort))
	}
	switch c.OCRBackend {
	case BackendTesseract, BackendRekognition, BackendNone:
	default:
		problems = append(problems, fmt.Sprintf("OCR_BACKEND must be tesseract, rekognition or none, got %q", c.OCRBackend))
	}
	if c.OCRBackend == BackendRekognition && c.AWSRegion == "" {
		problems = append(problems, "AWS_REGION is required for the rekognition backend")
	}
	if c.DetectorURL != "" && !strings.HasPrefix(c.DetectorURL, "http://") && !strings.HasPrefix(c.DetectorURL, "https://") {
		problems = append(problems, fmt.Sprintf("DETECTOR_URL must be an http(s) URL, got %q", c.DetectorURL))
	}
	if _, ok := plate.Locale(c.Locale); !ok {
		problems = append(problems, fmt.Sprintf("PLATE_LOCALE must be one of %s, got %q",
			strings.Join(plate.LocaleNames(), ", "), c.Locale))
	}
	if c.DetectionTimeout <= 0 {
		problems = append(problems, "DETECTION_TIMEOUT must be positive")
	}
	switch c.SessionBackend {
	case SessionMemory:
	case SessionRedis:
		if c.RedisURL == "" {
			problems = append(problems, "REDIS_URL is required for the redis session backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("SESSION_BACKEND must be memory or redis, got %q", c.SessionBackend))
	}
	if c.SessionTTL <= 0 {
		problems = append(problems, "SESSION_TTL must be positive")
	}
	if c.MaxUploadBytes < 1024 {
		problems = append(problems, fmt.Sprintf("MAX_UPLOAD_BYTES must be at least 1024, got %d", c.MaxUploadBytes))
	}

	problems = append(problems, c.Pipeline().Problems()...)

	if len(problems) > 0 {
		return perrors.NewInvalidConfigError(problems)
	}
	return nil
}

// Rules returns the locale table with overrides applied. An unknown locale
// falls back to the international table.
func (c *Config) Rules() plate.Rules {
	rules, ok := plate.Locale(c.Locale)
	if !ok {
		rules = plate.International()
	}
	if len(c.Patterns) > 0 {
		rules.Name = "custom"
		rules.Patterns = append([]string(nil), c.Patterns...)
	}
	if c.MinLength > 0 {
		rules.MinLength = c.MinLength
	}
	if c.MaxLength > 0 {
		rules.MaxLength = c.MaxLength
	}
	if c.RequireLetter != nil {
		rules.RequireLetter = *c.RequireLetter
	}
	if c.RequireDigit != nil {
		rules.RequireDigit = *c.RequireDigit
	}
	rules.Permissive = c.Permissive
	return rules
}

// Validator compiles Rules.
func (c *Config) Validator() (*plate.Validator, error) {
	return plate.NewValidator(c.Rules())
}

// Pipeline builds the detection settings.
func (c *Config) Pipeline() pipeline.Config {
	p := pipeline.DefaultConfig()
	p.MinConfidence = c.MinConfidence
	p.RotationFallback = c.RotationFallback
	p.EarlyExitConfidence = c.EarlyExitConfidence
	p.DetectorThresholds = append([]float64(nil), c.DetectorThresholds...)
	p.DetectorWeight = c.DetectorWeight
	p.OCRWeight = c.OCRWeight
	p.MaxImageWidth = c.MaxImageWidth
	p.Rules = c.Rules()
	p.CorrectConfusions = c.CorrectConfusions
	p.Timeout = c.DetectionTimeout
	return p
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	valueStr := getEnvOrDefault(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: %s=%q is not an integer, using %d", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	valueStr := getEnvOrDefault(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: %s=%q is not a number, using %g", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if v := getEnvAsOptionalBool(key); v != nil {
		return *v
	}
	return defaultValue
}

// getEnvAsOptionalBool returns nil when key is unset or unparsable.
func getEnvAsOptionalBool(key string) *bool {
	valueStr := getEnvOrDefault(key, "")
	if valueStr == "" {
		return nil
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: %s=%q is not a boolean, ignoring", key, valueStr)
		return nil
	}
	return &value
}

// getEnvAsDurationOrDefault accepts Go durations ("30s") and bare seconds.
func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnvOrDefault(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("Warning: %s=%q is not a duration, using %v", key, valueStr, defaultValue)
	return defaultValue
}

// getEnvAsListOrDefault splits a comma-separated value. Patterns may
// contain commas inside braces, so splitting only happens at top level.
func getEnvAsListOrDefault(key string, defaultValue []string) []string {
	valueStr := getEnvOrDefault(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var (
		items []string
		depth int
		start int
	)
	for i, r := range valueStr {
		switch r {
		case '{', '[', '(':
			depth++
		case '}', ']', ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				items = appendTrimmed(items, valueStr[start:i])
				start = i + 1
			}
		}
	}
	return appendTrimmed(items, valueStr[start:])
}

func appendTrimmed(items []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		items = append(items, s)
	}
	return items
}

func getEnvAsFloatListOrDefault(key string, defaultValue []float64) []float64 {
	items := getEnvAsListOrDefault(key, nil)
	if len(items) == 0 {
		return append([]float64(nil), defaultValue...)
	}
	out := make([]float64, 0, len(items))
	for _, s := range items {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			log.Printf("Warning: %s contains %q which is not a number, using defaults", key, s)
			return append([]float64(nil), defaultValue...)
		}
		out = append(out, f)
	}
	return out
}
