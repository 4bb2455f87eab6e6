package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/rendis/drawio-mcp/internal/janitor"
)

// Config holds all drawio-mcp server configuration.
// Priority: env vars > settings.json > defaults.
type Config struct {
	Transport         string `json:"transport" validate:"oneof=stdio http"`
	ListenAddr        string `json:"listen_addr" validate:"required_if=Transport http"`
	DBPath            string `json:"db_path"`
	LogLevel          string `json:"log_level" validate:"oneof=debug info warn error"`
	SaveDir           string `json:"save_dir" validate:"required"`
	TempDir           string `json:"temp_dir" validate:"required"`
	OpenViewer        bool   `json:"open_viewer"`
	StrictConnections bool   `json:"strict_connections"`
	DiagramTTL        string `json:"diagram_ttl" validate:"required,duration"`
	ReapSchedule      string `json:"reap_schedule" validate:"required,cron"`
	ResourceScheme    string `json:"resource_scheme" validate:"required,scheme"`
}

func defaultConfig() Config {
	return Config{
		Transport:      "stdio",
		ListenAddr:     ":4100",
		DBPath:         filepath.Join(drawioDir(), "drawio.db"),
		LogLevel:       "info",
		SaveDir:        downloadsDir(),
		TempDir:        filepath.Join(os.TempDir(), "drawio-mcp"),
		OpenViewer:     true,
		DiagramTTL:     "1h",
		ReapSchedule:   janitor.DefaultSchedule,
		ResourceScheme: "drawio",
	}
}

func drawioDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".drawio-mcp"
	}
	return filepath.Join(home, ".drawio-mcp")
}

func downloadsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Downloads")
}

func settingsPath() string {
	return filepath.Join(drawioDir(), "settings.json")
}

// TTL returns the parsed diagram TTL. Call after validation.
func (c Config) TTL() time.Duration {
	d, _ := time.ParseDuration(c.DiagramTTL)
	return d
}

func loadConfig() (Config, error) {
	// Layer 0: .env in the working directory (ignore if missing).
	_ = godotenv.Load()
	return loadConfigFrom(settingsPath())
}

func loadConfigFrom(path string) (Config, error) {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	// Layer 3: env vars override.
	applyEnv(&cfg)

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	strs := map[string]*string{
		"DRAWIO_TRANSPORT":       &cfg.Transport,
		"DRAWIO_LISTEN_ADDR":     &cfg.ListenAddr,
		"DRAWIO_LOG_LEVEL":       &cfg.LogLevel,
		"DRAWIO_SAVE_DIR":        &cfg.SaveDir,
		"DRAWIO_TEMP_DIR":        &cfg.TempDir,
		"DRAWIO_DIAGRAM_TTL":     &cfg.DiagramTTL,
		"DRAWIO_REAP_SCHEDULE":   &cfg.ReapSchedule,
		"DRAWIO_RESOURCE_SCHEME": &cfg.ResourceScheme,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	// An explicitly empty db path disables the save log.
	if v, ok := os.LookupEnv("DRAWIO_DB_PATH"); ok {
		cfg.DBPath = v
	}

	bools := map[string]*bool{
		"DRAWIO_OPEN_VIEWER":        &cfg.OpenViewer,
		"DRAWIO_STRICT_CONNECTIONS": &cfg.StrictConnections,
	}
	for key, dst := range bools {
		if v := os.Getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}
}

var configValidator = newConfigValidator()

func newConfigValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		d, err := time.ParseDuration(fl.Field().String())
		return err == nil && d > 0
	})
	_ = v.RegisterValidation("cron", func(fl validator.FieldLevel) bool {
		_, err := janitor.ParseSchedule(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("scheme", func(fl validator.FieldLevel) bool {
		return schemePattern.MatchString(fl.Field().String())
	})
	return v
}

var schemePattern = regexp.MustCompile(`^[a-z][a-z0-9+.-]*$`)

// validateConfig reports every invalid field by its settings.json name.
func validateConfig(cfg Config) error {
	err := configValidator.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, configErrorMessage(fe))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func configErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return fe.Field() + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value())
	case "duration":
		return fmt.Sprintf("%s must be a positive duration, got %q", fe.Field(), fe.Value())
	case "cron":
		return fmt.Sprintf("%s is not a valid cron schedule: %q", fe.Field(), fe.Value())
	case "scheme":
		return fmt.Sprintf("%s is not a valid URI scheme: %q", fe.Field(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}
