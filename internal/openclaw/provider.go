// Package openclaw implements llm.LanguageModel on top of the OpenClaw
// Responses API.
package openclaw

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/young1lin/openclaw-responses/internal/converter"
	"github.com/young1lin/openclaw-responses/pkg/logger"
)

const (
	defaultTimeout      = 300 * time.Second
	maxResponseBodySize = 10 * 1024 * 1024 // 10MB
	userAgent           = "openclaw-responses/0.1"
)

// Config holds the connection settings of a Provider.
type Config struct {
	BaseURL string
	APIKey  string

	// Name is reported by LanguageModel.Provider. Defaults to "openclaw".
	Name string

	// Headers are sent with every request. Per-call headers override them.
	Headers map[string]string

	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Provider creates language models that share one HTTP client and base
// configuration.
type Provider struct {
	name    string
	baseURL string
	headers map[string]string
	client  *http.Client
	logger  *zap.Logger
}

// New creates a Provider
func New(cfg Config) (*Provider, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		return nil, errors.New("openclaw: base url must not be empty")
	}

	name := cfg.Name
	if name == "" {
		name = converter.ProviderKey
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Named("openclaw")
	}

	base := make(map[string]string, len(cfg.Headers)+1)
	if cfg.APIKey != "" {
		base["Authorization"] = "Bearer " + cfg.APIKey
	}
	for k, v := range cfg.Headers {
		base[k] = v
	}

	return &Provider{
		name:    name,
		baseURL: baseURL,
		headers: base,
		client:  client,
		logger:  log,
	}, nil
}

// Name returns the provider name
func (p *Provider) Name() string {
	return p.name
}

// LanguageModel returns the model with the given vendor id
func (p *Provider) LanguageModel(modelID string) *ResponsesLanguageModel {
	return &ResponsesLanguageModel{
		provider: p,
		modelID:  modelID,
		logger:   p.logger.With(zap.String("model", modelID)),
	}
}

// Close releases idle connections
func (p *Provider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
