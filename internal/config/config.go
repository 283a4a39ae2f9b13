package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config contains runtime configuration required by the service.
//
// Integration credentials (Twilio, Stripe, Google, Resend) are not part of
// Config; handlers resolve them per request through Secrets.
type Config struct {
	DBURL   string
	APIKeys map[string]string // apiKey -> tenantID

	Port      string
	LogLevel  string
	LogFormat string // "json" | "console"

	// AppURL is the browser-facing application, target of OAuth and
	// checkout redirects.
	AppURL string

	// SendRatePerMinute bounds outbound message and email sends.
	SendRatePerMinute int
}

// Load reads required values from environment variables. A .env file in the
// working directory is loaded first when present; real environment
// variables win over it.
// API_KEYS format: "tenant1:key1,tenant2:key2"
func Load() (Config, error) {
	_ = godotenv.Load()

	dbURL := strings.TrimSpace(os.Getenv("DB_URL"))
	if dbURL == "" {
		return Config{}, errors.New("DB_URL required")
	}

	apiKeys, err := parseAPIKeys(os.Getenv("API_KEYS"))
	if err != nil {
		return Config{}, err
	}

	// Local dev fallback so the service runs out-of-the-box.
	if len(apiKeys) == 0 {
		apiKeys["tenant-key-123"] = "tenant1"
	}

	rate := 60
	if v := strings.TrimSpace(os.Getenv("SEND_RATE_PER_MIN")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, errors.New("SEND_RATE_PER_MIN must be a positive integer")
		}
		rate = n
	}

	return Config{
		DBURL:             dbURL,
		APIKeys:           apiKeys,
		Port:              getEnv("PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
		AppURL:            strings.TrimRight(getEnv("APP_URL", "http://localhost:5173"), "/"),
		SendRatePerMinute: rate,
	}, nil
}

func parseAPIKeys(raw string) (map[string]string, error) {
	apiKeys := map[string]string{}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return apiKeys, nil
	}

	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		parts := strings.SplitN(p, ":", 2)
		if len(parts) != 2 {
			return nil, errors.New(`API_KEYS must be "tenant:key,tenant:key"`)
		}
		tenant := strings.TrimSpace(parts[0])
		key := strings.TrimSpace(parts[1])
		if tenant == "" || key == "" {
			return nil, errors.New(`API_KEYS must be "tenant:key,tenant:key"`)
		}
		apiKeys[key] = tenant
	}
	return apiKeys, nil
}

// getEnv gets an environment variable with a fallback default value.
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}
