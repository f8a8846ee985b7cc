package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spigell/job-alerter/internal/metrics"
)

const (
	Provider = "huggingface"

	defaultAPIURL  = "https://api-inference.huggingface.co/models"
	defaultTimeout = 30 * time.Second
	contentType    = "application/json"
	userAgent      = "spigell/job-alerter"

	DefaultZeroShotModel = "facebook/bart-large-mnli"
	DefaultNERModel      = "dslim/bert-base-NER"
)

// Config configures access to the Hugging Face inference API.
type Config struct {
	APIKey            string
	APIURL            string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Client performs inference requests. Every request is bound by the http
// client timeout and shares one rate limiter.
type Client struct {
	token      string
	logger     *zap.Logger
	metrics    *metrics.Metrics
	limiter    *rate.Limiter
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

func New(cfg Config, logger *zap.Logger, m *metrics.Metrics) (*Client, error) {
	token := strings.TrimSpace(cfg.APIKey)
	if token == "" {
		return nil, errors.New("hugging face api key is required")
	}

	apiURL := strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		token:      token,
		logger:     logger,
		metrics:    m,
		limiter:    rate.NewLimiter(limit, 1),
		HTTPClient: &http.Client{Timeout: timeout},
		UserAgent:  userAgent,
		APIURL:     apiURL,
	}, nil
}

type options struct {
	WaitForModel bool `json:"wait_for_model"`
}

type request struct {
	Inputs     string  `json:"inputs"`
	Parameters any     `json:"parameters"`
	Options    options `json:"options"`
}

// infer posts the payload to the model endpoint and returns the raw body.
// Any status >= 400 is an error.
func (c *Client) infer(ctx context.Context, model, text string, params any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for rate limiter: %w", err)
	}

	body, err := json.Marshal(request{
		Inputs:     text,
		Parameters: params,
		Options:    options{WaitForModel: true},
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s", c.APIURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req = c.setHeaders(req)

	c.logger.Debug("make request", zap.String("url", url))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	return data, nil
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Content-Type", contentType)

	return req
}
