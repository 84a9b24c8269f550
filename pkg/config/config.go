package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type RateLimitBucketConfig struct {
	RequestsPerMinute int `yaml:"requestsPerMinute"`
	BurstSize         int `yaml:"burstSize"`
}

type RateLimitConfig struct {
	Submit RateLimitBucketConfig `yaml:"submit"`
}

type AuthConfig struct {
	// Provider selects the bearer-token validator: "" (open access),
	// "static", or "hs256".
	Provider string `yaml:"provider"`
	Token    string `yaml:"token"`
	Secret   string `yaml:"secret"`
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`
}

type WebhookConfig struct {
	HmacSecret         string `yaml:"hmacSecret"`
	MaxAttempts        int    `yaml:"maxAttempts"`
	BaseBackoffSeconds int    `yaml:"baseBackoffSeconds"`
	MaxBackoffSeconds  int    `yaml:"maxBackoffSeconds"`
	BackoffPolicy      string `yaml:"backoffPolicy"`
}

type ToolsConfig struct {
	// Enabled mounts the built-in tool service under /v1/tools.
	Enabled       bool   `yaml:"enabled"`
	SearchBaseURL string `yaml:"searchBaseUrl"`
	OllamaBaseURL string `yaml:"ollamaBaseUrl"`
	OllamaModel   string `yaml:"ollamaModel"`
	UserAgent     string `yaml:"userAgent"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"serviceName"`
	OTLPEndpoint string  `yaml:"otlpEndpoint"`
	OTLPInsecure bool    `yaml:"otlpInsecure"`
	SampleRatio  float64 `yaml:"sampleRatio"`
}

type Config struct {
	Port      int    `yaml:"port"`
	Env       string `yaml:"env"`
	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`

	StoreProvider string `yaml:"storeProvider"`

	// ToolBaseURL is where the agent reaches the search/scrape/extract
	// tools. Empty means the service's own address (the built-in tools).
	ToolBaseURL        string `yaml:"toolBaseUrl"`
	ToolTimeoutSeconds int    `yaml:"toolTimeoutSeconds"`
	SearchMaxResults   int    `yaml:"searchMaxResults"`
	ScrapeMaxChars     int    `yaml:"scrapeMaxChars"`

	// RedisAddr enables the redis-backed rate limiter when set. Task state
	// is never stored in redis.
	RedisAddr     string          `yaml:"redisAddr"`
	RedisPassword string          `yaml:"redisPassword"`
	RateLimit     RateLimitConfig `yaml:"rateLimit"`

	Auth    AuthConfig    `yaml:"auth"`
	Webhook WebhookConfig `yaml:"webhook"`
	Tools   ToolsConfig   `yaml:"tools"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoadConfigOptional loads the config file when filePath is set, otherwise
// starts from defaults. Env vars override in both cases.
func LoadConfigOptional(filePath string) (*Config, error) {
	filePath = strings.TrimSpace(filePath)
	if filePath == "" {
		c := &Config{Tools: ToolsConfig{Enabled: true}}
		c.applyEnv()
		c.applyDefaults()
		return c, nil
	}
	return LoadConfig(filePath)
}

func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	c := Config{Tools: ToolsConfig{Enabled: true}}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	c.applyEnv()
	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	if v := os.Getenv("OSINTQ_ENV"); v != "" {
		c.Env = v
	}
	if v := os.Getenv("OSINTQ_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("OSINTQ_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("OSINTQ_STORE_PROVIDER"); v != "" {
		c.StoreProvider = v
	}
	if v := os.Getenv("OSINTQ_TOOL_BASE_URL"); v != "" {
		c.ToolBaseURL = v
	}
	if v := os.Getenv("OSINTQ_TOOL_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ToolTimeoutSeconds = n
		}
	}
	if v := os.Getenv("OSINTQ_SEARCH_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.SearchMaxResults = n
		}
	}
	if v := os.Getenv("OSINTQ_SCRAPE_MAX_CHARS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ScrapeMaxChars = n
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}
	if v := os.Getenv("OSINTQ_AUTH_PROVIDER"); v != "" {
		c.Auth.Provider = v
	}
	if v := os.Getenv("OSINTQ_AUTH_TOKEN"); v != "" {
		c.Auth.Token = v
	}
	if v := os.Getenv("OSINTQ_AUTH_SECRET"); v != "" {
		c.Auth.Secret = v
	}
	if v := os.Getenv("OSINTQ_WEBHOOK_HMAC_SECRET"); v != "" {
		c.Webhook.HmacSecret = v
	}
	if v := os.Getenv("OSINTQ_OLLAMA_BASE_URL"); v != "" {
		c.Tools.OllamaBaseURL = v
	}
	if v := os.Getenv("OSINTQ_OLLAMA_MODEL"); v != "" {
		c.Tools.OllamaModel = v
	}
	if v := os.Getenv("OSINTQ_SEARCH_BASE_URL"); v != "" {
		c.Tools.SearchBaseURL = v
	}
	if v := os.Getenv("OTEL_TRACES_ENABLED"); v != "" {
		c.Tracing.Enabled = v == "true" || v == "1"
	}
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.Env == "" {
		c.Env = "dev"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
	if c.StoreProvider == "" {
		c.StoreProvider = "memory"
	}
	if c.ToolBaseURL == "" {
		c.ToolBaseURL = fmt.Sprintf("http://localhost:%d", c.Port)
	}
	if c.ToolTimeoutSeconds <= 0 {
		c.ToolTimeoutSeconds = 60
	}
	if c.SearchMaxResults <= 0 {
		c.SearchMaxResults = 5
	}
	if c.ScrapeMaxChars <= 0 {
		c.ScrapeMaxChars = 6000
	}
	if c.Webhook.MaxAttempts <= 0 {
		c.Webhook.MaxAttempts = 5
	}
	if c.Webhook.BaseBackoffSeconds <= 0 {
		c.Webhook.BaseBackoffSeconds = 2
	}
	if c.Webhook.MaxBackoffSeconds <= 0 {
		c.Webhook.MaxBackoffSeconds = 60
	}
	if c.Webhook.BackoffPolicy == "" {
		c.Webhook.BackoffPolicy = "exponential"
	}
	if c.Tools.SearchBaseURL == "" {
		c.Tools.SearchBaseURL = "https://duckduckgo.com/html"
	}
	if c.Tools.OllamaBaseURL == "" {
		c.Tools.OllamaBaseURL = "http://localhost:11434"
	}
	if c.Tools.OllamaModel == "" {
		c.Tools.OllamaModel = "llama3"
	}
	if c.Tools.UserAgent == "" {
		c.Tools.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "osintq"
	}
}

func (c *Config) Validate() error {
	var errs []string
	env := strings.ToLower(strings.TrimSpace(c.Env))
	dev := env == "dev"

	if c.ToolBaseURL != "" {
		u, err := url.Parse(c.ToolBaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, "toolBaseUrl must be a valid http(s) URL")
		}
	}
	switch c.Auth.Provider {
	case "", "static", "hs256":
	default:
		errs = append(errs, "auth.provider must be one of: static, hs256")
	}
	if c.Auth.Provider == "static" && strings.TrimSpace(c.Auth.Token) == "" {
		errs = append(errs, "auth.token is required for the static provider")
	}
	if c.Auth.Provider == "hs256" && strings.TrimSpace(c.Auth.Secret) == "" {
		errs = append(errs, "auth.secret is required for the hs256 provider")
	}
	if c.Auth.Provider == "" && !dev {
		errs = append(errs, "auth.provider is required in non-dev")
	}
	if strings.TrimSpace(c.Webhook.HmacSecret) == "" && !dev {
		errs = append(errs, "webhook.hmacSecret is required in non-dev")
	}
	if c.RateLimit.Submit.Enabled() && c.RedisAddr == "" {
		errs = append(errs, "redisAddr is required when rate limiting is configured")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Enabled reports whether the bucket has a usable rate and burst.
func (b RateLimitBucketConfig) Enabled() bool {
	return b.RequestsPerMinute > 0 && b.BurstSize > 0
}
