package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/c360studio/ontogenia/llm"
	"github.com/c360studio/ontogenia/source"
)

const (
	// DefaultLlamaParseURL is the hosted LlamaParse API.
	DefaultLlamaParseURL = "https://api.cloud.llamaindex.ai"

	// LlamaParseKeyEnv holds the LlamaParse API key.
	LlamaParseKeyEnv = "LLAMA_CLOUD_API_KEY"

	maxResultSize = 50 * 1024 * 1024
)

// Job states reported by the parsing service.
const (
	jobPending = "PENDING"
	jobSuccess = "SUCCESS"
	jobError   = "ERROR"
	jobCancel  = "CANCELED"
)

// LlamaParseConfig configures the remote parsing client.
type LlamaParseConfig struct {
	// BaseURL defaults to DefaultLlamaParseURL.
	BaseURL string

	// APIKey authenticates requests. Never read from config files.
	APIKey string

	// Language is the OCR language hint.
	Language string

	// ResultType selects page text ("text") or page markdown ("markdown").
	ResultType string

	// PollInterval is the delay between job status checks.
	PollInterval time.Duration

	// Timeout bounds a whole parse including polling.
	Timeout time.Duration

	// Retry governs transient upload, poll and result failures.
	Retry llm.RetryConfig
}

// DefaultLlamaParseConfig returns the settings the pipeline was tuned with.
func DefaultLlamaParseConfig() LlamaParseConfig {
	return LlamaParseConfig{
		BaseURL:      DefaultLlamaParseURL,
		Language:     "en",
		ResultType:   "text",
		PollInterval: 2 * time.Second,
		Timeout:      10 * time.Minute,
		Retry:        llm.DefaultRetryConfig(),
	}
}

// LlamaParse parses documents through the LlamaParse REST API: upload,
// poll the job, then fetch per-page results.
type LlamaParse struct {
	cfg        LlamaParseConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// LlamaParseOption configures a LlamaParse client.
type LlamaParseOption func(*LlamaParse)

// WithParseHTTPClient sets a custom HTTP client.
func WithParseHTTPClient(c *http.Client) LlamaParseOption {
	return func(p *LlamaParse) { p.httpClient = c }
}

// WithParseLogger sets the logger.
func WithParseLogger(l *slog.Logger) LlamaParseOption {
	return func(p *LlamaParse) { p.logger = l }
}

// NewLlamaParse creates a client. Zero config fields take their defaults.
func NewLlamaParse(cfg LlamaParseConfig, opts ...LlamaParseOption) *LlamaParse {
	def := DefaultLlamaParseConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Language == "" {
		cfg.Language = def.Language
	}
	if cfg.ResultType == "" {
		cfg.ResultType = def.ResultType
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = def.Retry
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	p := &LlamaParse{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "llamaparse")
	return p
}

type jobResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error_message,omitempty"`
}

type pageResult struct {
	Page int    `json:"page"`
	Text string `json:"text"`
	MD   string `json:"md"`
}

type jsonResult struct {
	Pages []pageResult `json:"pages"`
}

// Parse uploads content and returns one segment per parsed page.
func (p *LlamaParse) Parse(ctx context.Context, filename string, content []byte) (*source.Document, error) {
	if p.cfg.APIKey == "" {
		return nil, llm.NewFatalError(fmt.Errorf("llamaparse: API key not set (export %s)", LlamaParseKeyEnv))
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	name := filepath.Base(filename)
	started := time.Now()

	jobID, err := p.upload(ctx, name, content)
	if err != nil {
		return nil, fmt.Errorf("llamaparse upload %s: %w", name, err)
	}
	p.logger.Info("Parsing job started", "file", name, "job_id", jobID)

	if err := p.wait(ctx, jobID); err != nil {
		return nil, fmt.Errorf("llamaparse job %s: %w", jobID, err)
	}

	result, err := p.result(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("llamaparse result %s: %w", jobID, err)
	}
	if len(result.Pages) == 0 {
		return nil, llm.NewMalformedResponseError("content-extractor", "parsing service returned no pages", "")
	}

	doc := &source.Document{
		ID:       generateID(filename, content),
		Filename: name,
		MimeType: MimeTypeFromExtension(filepath.Ext(name)),
	}
	for i, page := range result.Pages {
		text := page.Text
		if p.cfg.ResultType == "markdown" && page.MD != "" {
			text = page.MD
		}
		doc.Segments = append(doc.Segments, source.Segment{Index: i, Text: text, Source: name})
	}

	p.logger.Info("Parsing job complete",
		"file", name,
		"job_id", jobID,
		"pages", len(doc.Segments),
		"duration", time.Since(started).Round(time.Millisecond))
	return doc, nil
}

// CanParse reports the formats the hosted service accepts that matter here.
func (p *LlamaParse) CanParse(mimeType string) bool {
	switch mimeType {
	case "application/pdf", "text/html", "text/plain", "text/markdown":
		return true
	default:
		return false
	}
}

// MimeType returns the primary MIME type for this parser.
func (p *LlamaParse) MimeType() string {
	return "application/pdf"
}

func (p *LlamaParse) upload(ctx context.Context, name string, content []byte) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("language", p.cfg.Language); err != nil {
		return "", llm.NewFatalError(err)
	}
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return "", llm.NewFatalError(err)
	}
	if _, err := part.Write(content); err != nil {
		return "", llm.NewFatalError(err)
	}
	if err := w.Close(); err != nil {
		return "", llm.NewFatalError(err)
	}
	body := buf.Bytes()
	contentType := w.FormDataContentType()

	data, err := p.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/api/parsing/upload", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		return req, nil
	})
	if err != nil {
		return "", err
	}

	var job jobResponse
	if err := json.Unmarshal(data, &job); err != nil || job.ID == "" {
		return "", llm.NewMalformedResponseError("content-extractor", "upload response has no job id", string(data))
	}
	return job.ID, nil
}

// wait polls the job until it leaves the pending state.
func (p *LlamaParse) wait(ctx context.Context, jobID string) error {
	for {
		data, err := p.do(ctx, func() (*http.Request, error) {
			return http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/api/parsing/job/"+jobID, nil)
		})
		if err != nil {
			return err
		}

		var job jobResponse
		if err := json.Unmarshal(data, &job); err != nil {
			return llm.NewMalformedResponseError("content-extractor", "invalid job status", string(data))
		}

		switch job.Status {
		case jobSuccess:
			return nil
		case jobError, jobCancel:
			return llm.NewFatalError(fmt.Errorf("job %s: %s", strings.ToLower(job.Status), job.Error))
		case jobPending, "":
			p.logger.Debug("Parsing job pending", "job_id", jobID)
		default:
			p.logger.Debug("Parsing job status", "job_id", jobID, "status", job.Status)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.cfg.PollInterval):
		}
	}
}

func (p *LlamaParse) result(ctx context.Context, jobID string) (*jsonResult, error) {
	data, err := p.do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/api/parsing/job/"+jobID+"/result/json", nil)
	})
	if err != nil {
		return nil, err
	}

	var result jsonResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, llm.NewMalformedResponseError("content-extractor", fmt.Sprintf("invalid result JSON: %v", err), string(data))
	}
	return &result, nil
}

// do sends the request built by build, retrying transient failures.
func (p *LlamaParse) do(ctx context.Context, build func() (*http.Request, error)) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= p.cfg.Retry.MaxAttempts; attempt++ {
		data, err := p.once(ctx, build)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !llm.IsTransient(err) || ctx.Err() != nil {
			return nil, err
		}
		if attempt == p.cfg.Retry.MaxAttempts {
			break
		}

		backoff := p.cfg.Retry.Backoff(attempt)
		p.logger.Debug("Parsing request failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, lastErr
}

func (p *LlamaParse) once(ctx context.Context, build func() (*http.Request, error)) ([]byte, error) {
	req, err := build()
	if err != nil {
		return nil, llm.NewFatalError(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, llm.NewTransientError(fmt.Errorf("HTTP request failed: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResultSize))
	if err != nil {
		return nil, llm.NewTransientError(fmt.Errorf("read response body: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, llm.ClassifyHTTPError(resp.StatusCode, data)
	}
	return data, nil
}
