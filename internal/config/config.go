package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	DecoderFFmpeg = "ffmpeg"
	DecoderGoCV   = "gocv"

	DetectorPython    = "python"
	DetectorWebSocket = "websocket"
)

type Config struct {
	Host           string        `validate:"required"`
	Port           string        `validate:"required,numeric"`
	FrontendOrigin string        `validate:"required,url"`
	DevOrigins     []string      `validate:"dive,url"`
	ReadTimeout    time.Duration `validate:"gt=0"`
	MaxUploadSize  int64         `validate:"gt=0"`
	TempDir        string

	Decoder     string `validate:"oneof=ffmpeg gocv"`
	FFmpegPath  string
	FFprobePath string

	Detector         string `validate:"oneof=python websocket"`
	PythonPath       string
	DetectorScript   string `validate:"required_if=Detector python"`
	DetectorURL      string `validate:"required_if=Detector websocket"`
	DetectorMaxFaces int    `validate:"min=2"`

	RateLimitRPS   float64 `validate:"gte=0"`
	RateLimitBurst int     `validate:"gte=1"`

	LogLevel  string `validate:"oneof=trace debug info warn error"`
	LogFormat string `validate:"oneof=json text"`
	LogFile   string
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// AllowedOrigins is the frontend origin followed by the development origins
func (c *Config) AllowedOrigins() []string {
	origins := make([]string, 0, len(c.DevOrigins)+1)
	origins = append(origins, c.FrontendOrigin)
	for _, o := range c.DevOrigins {
		if o != c.FrontendOrigin {
			origins = append(origins, o)
		}
	}
	return origins
}

// Load reads env files into the environment, without overriding variables already set,
// then builds the config. Missing env files are ignored.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}
	return LoadFromEnv()
}

func LoadFromEnv() (*Config, error) {
	// Set defaults
	cfg := &Config{
		Host:           getEnvOrDefault("HOST", "0.0.0.0"),
		Port:           getEnvOrDefault("PORT", "8000"),
		FrontendOrigin: getEnvOrDefault("FRONTEND_ORIGIN", "https://ai-career-hub-v1.onrender.com"),
		DevOrigins:     parseListOrDefault("DEV_ORIGINS", []string{"http://localhost:3000", "http://127.0.0.1:3000"}),
		ReadTimeout:    parseDurationOrDefault("READ_TIMEOUT", 60*time.Second),
		MaxUploadSize:  parseIntOrDefault("MAX_UPLOAD_SIZE", 512*1024*1024), // 512MB
		TempDir:        getEnvOrDefault("TEMP_DIR", os.TempDir()),

		Decoder:     strings.ToLower(getEnvOrDefault("DECODER", DecoderFFmpeg)),
		FFmpegPath:  getEnvOrDefault("FFMPEG_PATH", "ffmpeg"),
		FFprobePath: getEnvOrDefault("FFPROBE_PATH", "ffprobe"),

		Detector:         strings.ToLower(getEnvOrDefault("DETECTOR", DetectorPython)),
		PythonPath:       getEnvOrDefault("PYTHON_PATH", "python3"),
		DetectorScript:   getEnvOrDefault("DETECTOR_SCRIPT", "python/face_mesh_worker.py"),
		DetectorURL:      os.Getenv("DETECTOR_URL"),
		DetectorMaxFaces: int(parseIntOrDefault("DETECTOR_MAX_FACES", 4)),

		RateLimitRPS:   parseFloatOrDefault("RATE_LIMIT_RPS", 1),
		RateLimitBurst: int(parseIntOrDefault("RATE_LIMIT_BURST", 5)),

		LogLevel:  strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnvOrDefault("LOG_FORMAT", "json")),
		LogFile:   os.Getenv("LOG_FILE"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and the port range
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s failed %q (got %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func parseListOrDefault(key string, defaultValue []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	var list []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}
