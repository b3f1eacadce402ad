// config/config.go
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/whoopclone/backend/internal/logger"
)

var (
	ErrMissingRequired = errors.New("required setting is missing")
	ErrSecretTooShort  = errors.New("SECRET_KEY must be at least 32 characters")
	ErrInvalidSetting  = errors.New("invalid setting")

	customLog = logger.NewLogger()
)

// MinSecretKeyLength is the shortest SECRET_KEY accepted at load time.
const MinSecretKeyLength = 32

// Settings holds the application configuration. It is built once by Load
// and must be treated as read-only afterwards.
type Settings struct {
	AppName     string `env:"APP_NAME" validate:"required"`
	Debug       bool   `env:"DEBUG"`
	APIV1Prefix string `env:"API_V1_PREFIX" validate:"required,startswith=/"`
	ServerPort  int    `env:"SERVER_PORT" validate:"min=1,max=65535"`

	SecretKey                string `env:"SECRET_KEY" validate:"required,min=32"`
	Algorithm                string `env:"ALGORITHM" validate:"oneof=HS256 HS384 HS512"`
	AccessTokenExpireMinutes int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES" validate:"gt=0"`

	DatabaseURL string `env:"DATABASE_URL" validate:"required"`
	RedisURL    string `env:"REDIS_URL" validate:"required"`

	CORSOrigins []string `env:"CORS_ORIGINS" validate:"dive,eq=*|http_url"`

	// Optional third-party credentials; empty means unset.
	OpenAIAPIKey     string `env:"OPENAI_API_KEY"`
	HuggingFaceToken string `env:"HUGGINGFACE_TOKEN"`
	ModelName        string `env:"MODEL_NAME" validate:"required"`

	CeleryBrokerURL     string `env:"CELERY_BROKER_URL"`
	CeleryResultBackend string `env:"CELERY_RESULT_BACKEND"`

	// Requests per minute per client IP on login/signup. 0 disables the limiter.
	RateLimitPerMinute int `env:"AUTH_RATE_LIMIT_PER_MINUTE" validate:"gte=0"`
}

// Defaults applied when the corresponding variable is not set.
const (
	DefaultAppName                  = "WHOOP Clone"
	DefaultAPIV1Prefix              = "/api/v1"
	DefaultServerPort               = 8080
	DefaultAlgorithm                = "HS256"
	DefaultAccessTokenExpireMinutes = 30
	DefaultModelName                = "meta-llama/Llama-2-7b-chat-hf"
	DefaultRateLimitPerMinute       = 5
)

var requiredKeys = []string{"SECRET_KEY", "DATABASE_URL", "REDIS_URL"}

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load reads an optional environment file (".env" unless paths are given)
// and then builds Settings from the process environment. Variables already
// present in the environment take precedence over the file.
func Load(envFiles ...string) (*Settings, error) {
	customLog.Println("Loading configuration from environment variables...")

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				customLog.Debugf("No environment file at %s, skipping", f)
				continue
			}
			return nil, fmt.Errorf("%w: reading %s: %v", ErrInvalidSetting, f, err)
		}
	}

	cfg, err := LoadFrom(os.LookupEnv)
	if err != nil {
		return nil, err
	}

	customLog.Printf("Configuration loaded successfully. App: %s, Port: %d, Algorithm: %s, Token TTL: %v",
		cfg.AppName, cfg.ServerPort, cfg.Algorithm, cfg.AccessTokenTTL())
	return cfg, nil
}

// LoadFrom builds and validates Settings using lookup to read variables.
func LoadFrom(lookup LookupFunc) (*Settings, error) {
	var missing []string
	for _, key := range requiredKeys {
		if _, ok := lookup(key); !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, strings.Join(missing, ", "))
	}

	r := reader{lookup: lookup}
	cfg := &Settings{
		AppName:     r.str("APP_NAME", DefaultAppName),
		Debug:       r.boolean("DEBUG", false),
		APIV1Prefix: r.str("API_V1_PREFIX", DefaultAPIV1Prefix),
		ServerPort:  r.integer("SERVER_PORT", DefaultServerPort),

		SecretKey:                r.str("SECRET_KEY", ""),
		Algorithm:                r.str("ALGORITHM", DefaultAlgorithm),
		AccessTokenExpireMinutes: r.integer("ACCESS_TOKEN_EXPIRE_MINUTES", DefaultAccessTokenExpireMinutes),

		DatabaseURL: r.str("DATABASE_URL", ""),
		RedisURL:    r.str("REDIS_URL", ""),

		CORSOrigins: r.list("CORS_ORIGINS"),

		OpenAIAPIKey:     r.str("OPENAI_API_KEY", ""),
		HuggingFaceToken: r.str("HUGGINGFACE_TOKEN", ""),
		ModelName:        r.str("MODEL_NAME", DefaultModelName),

		CeleryBrokerURL:     r.str("CELERY_BROKER_URL", ""),
		CeleryResultBackend: r.str("CELERY_RESULT_BACKEND", ""),

		RateLimitPerMinute: r.integer("AUTH_RATE_LIMIT_PER_MINUTE", DefaultRateLimitPerMinute),
	}
	if r.err != nil {
		return nil, r.err
	}

	if err := validateSettings(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// AccessTokenTTL is the default lifetime of issued access tokens.
func (s *Settings) AccessTokenTTL() time.Duration {
	return time.Duration(s.AccessTokenExpireMinutes) * time.Minute
}

// Addr is the listen address for the HTTP server.
func (s *Settings) Addr() string {
	return ":" + strconv.Itoa(s.ServerPort)
}

// OptionalKeys reports which optional third-party credentials are configured,
// without exposing their values.
func (s *Settings) OptionalKeys() map[string]bool {
	return map[string]bool{
		"OPENAI_API_KEY":        s.OpenAIAPIKey != "",
		"HUGGINGFACE_TOKEN":     s.HuggingFaceToken != "",
		"CELERY_BROKER_URL":     s.CeleryBrokerURL != "",
		"CELERY_RESULT_BACKEND": s.CeleryResultBackend != "",
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report env variable names instead of Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

func validateSettings(cfg *Settings) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidSetting, err)
	}

	var secretTooShort, missing bool
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed '%s' check", fe.Field(), fe.Tag()))
		switch {
		case fe.Field() == "SECRET_KEY" && fe.Tag() == "min":
			secretTooShort = true
		case fe.Tag() == "required":
			missing = true
		}
	}
	switch {
	case secretTooShort:
		return fmt.Errorf("%w (got %d, need %d)", ErrSecretTooShort, len([]rune(cfg.SecretKey)), MinSecretKeyLength)
	case missing:
		return fmt.Errorf("%w: %s", ErrMissingRequired, strings.Join(msgs, "; "))
	default:
		return fmt.Errorf("%w: %s", ErrInvalidSetting, strings.Join(msgs, "; "))
	}
}

// reader keeps the first parse error so LoadFrom can read every field in one pass.
type reader struct {
	lookup LookupFunc
	err    error
}

func (r *reader) str(key, fallback string) string {
	if v, ok := r.lookup(key); ok {
		return v
	}
	return fallback
}

func (r *reader) boolean(key string, fallback bool) bool {
	v, ok := r.lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	b, err := parseBool(v)
	if err != nil {
		r.fail(key, v, err)
		return fallback
	}
	return b
}

// parseBool accepts the strconv spellings plus yes/no, y/n and on/off.
func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "y", "on":
		return true, nil
	case "no", "n", "off":
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(v))
}

func (r *reader) integer(key string, fallback int) int {
	v, ok := r.lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		r.fail(key, v, err)
		return fallback
	}
	return n
}

// list accepts either a JSON array (["a","b"]) or a comma-separated string.
func (r *reader) list(key string) []string {
	v, ok := r.lookup(key)
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		return []string{}
	}
	if strings.HasPrefix(v, "[") {
		var out []string
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			r.fail(key, v, err)
			return []string{}
		}
		return out
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (r *reader) fail(key, value string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s=%q: %v", ErrInvalidSetting, key, value, err)
	}
}
