package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Claims represents authentication token claims
type Claims struct {
	Subject   string
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// Validator validates authentication tokens
type Validator interface {
	Validate(token string) (*Claims, error)
}

// Config contains validator configuration
type Config struct {
	// Token is the exact bearer token expected by the static validator.
	Token string

	// Secret is the HMAC signing secret for the hs256 validator.
	Secret string

	Issuer    string
	Audience  string
	ClockSkew time.Duration
}

// Factory creates a validator instance
type Factory func(Config) (Validator, error)

var (
	registry = make(map[string]Factory)
	mu       sync.RWMutex
)

// RegisterProvider registers a validator factory for a provider type.
func RegisterProvider(providerType string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[providerType] = factory
}

// NewValidator creates a validator for the given provider type.
func NewValidator(providerType string, cfg Config) (Validator, error) {
	mu.RLock()
	factory, ok := registry[providerType]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown auth provider type: %s", providerType)
	}
	return factory(cfg)
}

var errInvalidToken = errors.New("invalid token")

type staticValidator struct {
	token   string
	subject string
}

func newStaticValidator(cfg Config) (Validator, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("static auth: token is required")
	}
	return &staticValidator{token: token, subject: "static"}, nil
}

func (v *staticValidator) Validate(token string) (*Claims, error) {
	if strings.TrimSpace(token) != v.token {
		return nil, errInvalidToken
	}
	return &Claims{Subject: v.subject}, nil
}

func init() {
	RegisterProvider("static", newStaticValidator)
}
