package pagou

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment selects which Pagou deployment the client talks to.
type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentSandbox    Environment = "sandbox"
	EnvironmentTest       Environment = "test"
)

const (
	productionBaseURL = "https://api.pagou.ai"
	sandboxBaseURL    = "https://api.sandbox.pagou.ai"
)

// BaseURL returns the default base URL for the environment. An explicit
// WithBaseURL option always wins over this.
func (e Environment) BaseURL() string {
	switch e {
	case EnvironmentSandbox, EnvironmentTest:
		return sandboxBaseURL
	default:
		return productionBaseURL
	}
}

func (e Environment) valid() bool {
	switch e {
	case EnvironmentProduction, EnvironmentSandbox, EnvironmentTest:
		return true
	}
	return false
}

// Environment variables read by OptionsFromEnv.
const (
	envAPIKey      = "PAGOU_API_KEY"
	envEnvironment = "PAGOU_ENVIRONMENT"
	envBaseURL     = "PAGOU_BASE_URL"
	envAuthScheme  = "PAGOU_AUTH_SCHEME"
	envTimeoutMs   = "PAGOU_TIMEOUT_MS"
	envMaxRetries  = "PAGOU_MAX_RETRIES"
)

// OptionsFromEnv derives client options from the process environment.
// A .env file in the working directory is loaded first when present; real
// environment variables take precedence over it. PAGOU_API_KEY is required,
// everything else is optional.
func OptionsFromEnv() ([]Option, error) {
	if _, err := os.Stat(".env"); err == nil {
		// godotenv never overrides variables already set in the environment.
		_ = godotenv.Load()
	}

	key := os.Getenv(envAPIKey)
	if key == "" {
		return nil, fmt.Errorf("pagou: %s is not set", envAPIKey)
	}
	options := []Option{WithAPIKey(key)}

	if v := os.Getenv(envEnvironment); v != "" {
		env := Environment(v)
		if !env.valid() {
			return nil, fmt.Errorf("pagou: invalid %s %q", envEnvironment, v)
		}
		options = append(options, WithEnvironment(env))
	}
	if v := os.Getenv(envBaseURL); v != "" {
		options = append(options, WithBaseURL(v))
	}
	if v := os.Getenv(envAuthScheme); v != "" {
		options = append(options, WithAuthStrategy(AuthStrategy{Scheme: AuthScheme(v)}))
	}
	if v := os.Getenv(envTimeoutMs); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return nil, fmt.Errorf("pagou: invalid %s %q", envTimeoutMs, v)
		}
		options = append(options, WithTimeout(time.Duration(ms)*time.Millisecond))
	}
	if v := os.Getenv(envMaxRetries); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("pagou: invalid %s %q", envMaxRetries, v)
		}
		options = append(options, WithMaxRetries(n))
	}

	return options, nil
}

// NewFromEnv constructs a client from the process environment, applying any
// extra options on top of the environment-derived ones.
func NewFromEnv(extra ...Option) (*Client, error) {
	options, err := OptionsFromEnv()
	if err != nil {
		return nil, err
	}
	client := New(append(options, extra...)...)
	if err := client.ValidationError(); err != nil {
		return nil, err
	}
	return client, nil
}
