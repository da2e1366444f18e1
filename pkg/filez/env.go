package filez

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

const (
	modeAuto = "auto"
	modeHTTP = "http"
	modeMock = "mock"
)

// Config carries the connection settings for a Filez deployment. It is
// populated from FILEZ_* environment variables by LoadConfig.
type Config struct {
	AppKey    string `envconfig:"FILEZ_APP_KEY"`
	AppSecret string `envconfig:"FILEZ_APP_SECRET"`
	Host      string `envconfig:"FILEZ_HOST"` // host[:port], no scheme
	HTTPS     bool   `envconfig:"FILEZ_HTTPS" default:"false"`
	Version   string `envconfig:"FILEZ_VERSION" default:"v2"`
	Mode      string `envconfig:"FILEZ_MODE" default:"auto"` // auto|http|mock
	SeedPath  string `envconfig:"FILEZ_MOCK_SEED"`
}

// BaseURL yields the versioned API root, e.g. https://filez.example.com:3333/v2.
func (c Config) BaseURL() string {
	scheme := "http"
	if c.HTTPS {
		scheme = "https"
	}
	version := c.Version
	if version == "" {
		version = "v2"
	}
	return scheme + "://" + c.Host + "/" + version
}

func (c Config) validate() error {
	if strings.TrimSpace(c.AppKey) == "" || strings.TrimSpace(c.AppSecret) == "" {
		return errors.New("filez: app key and app secret are required")
	}
	if strings.TrimSpace(c.Host) == "" {
		return errors.New("filez: host is required")
	}
	return nil
}

// LoadConfig reads the FILEZ_* environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("filez: load config: %w", err)
	}
	return cfg, nil
}

// NewFromEnv initialises a Client from FILEZ_* environment variables and
// returns the resolved mode ("http" or "mock").
func NewFromEnv() (client *Client, mode string, err error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, "", err
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Mode)) {
	case "", modeAuto:
		if cfg.Host != "" {
			return newHTTPFromConfig(cfg)
		}
		return newMockClient(cfg)
	case modeHTTP:
		if cfg.Host == "" {
			return nil, "", errors.New("filez: HTTP mode requires FILEZ_HOST")
		}
		return newHTTPFromConfig(cfg)
	case modeMock:
		return newMockClient(cfg)
	default:
		return nil, "", fmt.Errorf("filez: unsupported FILEZ_MODE value %q", cfg.Mode)
	}
}

func newHTTPFromConfig(cfg Config) (*Client, string, error) {
	client, err := New(cfg)
	if err != nil {
		return nil, "", fmt.Errorf("filez: init HTTP client: %w", err)
	}
	return client, modeHTTP, nil
}

func newMockClient(cfg Config) (*Client, string, error) {
	backend := NewMockBackend()
	if path := strings.TrimSpace(cfg.SeedPath); path != "" {
		if err := backend.SeedFromFile(path); err != nil {
			return nil, "", fmt.Errorf("filez: seed mock backend: %w", err)
		}
	}
	return NewWithBackend(backend), modeMock, nil
}
