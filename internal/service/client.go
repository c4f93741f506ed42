package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/dshills/codecheck/internal/analysis"
)

// DefaultURL is the analysis service address used when none is configured.
const DefaultURL = "http://localhost:8513"

// APIKeyEnv names the environment variable holding an optional bearer token.
const APIKeyEnv = "CODECHECK_API_KEY"

// Upload is one file sent to the service.
type Upload struct {
	Name    string
	Content []byte
}

// Response is a raw service reply. Body is left for the normalizer.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Analyzer is the remote analysis service, one method per endpoint.
type Analyzer interface {
	Format(ctx context.Context, up Upload, opts analysis.FormatOptions) (Response, error)
	GPTFormat(ctx context.Context, up Upload, language, model string) (Response, error)
	Review(ctx context.Context, up Upload, model string, summaryOnly bool) (Response, error)
	StaticAnalyze(ctx context.Context, up Upload, gptFeedback bool, model string) (Response, error)
}

// Submit sends up to the endpoint selected by cfg.Mode.
func Submit(ctx context.Context, a Analyzer, up Upload, cfg analysis.RunConfig) (Response, error) {
	switch cfg.Mode {
	case analysis.ModeFormat:
		return a.Format(ctx, up, cfg.Format)
	case analysis.ModeGPTFormat:
		lang := cfg.Language
		if lang == "" {
			lang = analysis.LanguageFor(analysis.Ext(up.Name))
		}
		return a.GPTFormat(ctx, up, lang, cfg.Model)
	case analysis.ModeReview:
		return a.Review(ctx, up, cfg.Model, cfg.SummaryOnly)
	case analysis.ModeScan:
		return a.StaticAnalyze(ctx, up, cfg.GPTFeedback, cfg.Model)
	default:
		return Response{}, fmt.Errorf("unknown mode: %s", cfg.Mode)
	}
}

// Options configures a Client.
type Options struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerSecond float64
}

// Client implements Analyzer over HTTP multipart uploads.
type Client struct {
	baseURL    string
	apiKey     string
	maxRetries int
	client     *http.Client
	limiter    *rate.Limiter
}

// New creates a Client. An empty APIKey falls back to CODECHECK_API_KEY.
func New(opts Options) (*Client, error) {
	base := opts.BaseURL
	if base == "" {
		base = DefaultURL
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid service url: %q", base)
	}
	key := opts.APIKey
	if key == "" {
		key = os.Getenv(APIKeyEnv)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(base, "/"),
		apiKey:     key,
		maxRetries: opts.MaxRetries,
		client:     &http.Client{Timeout: timeout},
	}
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return c, nil
}

// BaseURL returns the service address.
func (c *Client) BaseURL() string { return c.baseURL }

// Format calls the rule-based formatter.
func (c *Client) Format(ctx context.Context, up Upload, opts analysis.FormatOptions) (Response, error) {
	return c.post(ctx, "/format/", up, map[string]string{
		"indent": opts.Indent,
		"brace":  opts.Brace,
		"comma":  opts.Comma,
	})
}

// GPTFormat calls the GPT formatter.
func (c *Client) GPTFormat(ctx context.Context, up Upload, language, model string) (Response, error) {
	return c.post(ctx, "/gpt_format/", up, map[string]string{
		"language": language,
		"model":    model,
	})
}

// Review calls the chunked reviewer.
func (c *Client) Review(ctx context.Context, up Upload, model string, summaryOnly bool) (Response, error) {
	return c.post(ctx, "/review/", up, map[string]string{
		"model":        model,
		"summary_only": strconv.FormatBool(summaryOnly),
	})
}

// StaticAnalyze calls the static-analysis scanner.
func (c *Client) StaticAnalyze(ctx context.Context, up Upload, gptFeedback bool, model string) (Response, error) {
	return c.post(ctx, "/sast/", up, map[string]string{
		"use_gpt_feedback": strconv.FormatBool(gptFeedback),
		"gpt_model":        model,
	})
}

// Ping checks that the service answers. Any HTTP status below 500 other
// than 401 and 403 counts as reachable.
func (c *Client) Ping(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	c.authorize(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return resp.StatusCode, &authError{message: resp.Status}
	}
	if resp.StatusCode >= 500 {
		return resp.StatusCode, &StatusError{StatusCode: resp.StatusCode, Endpoint: "/"}
	}
	return resp.StatusCode, nil
}

func (c *Client) post(ctx context.Context, endpoint string, up Upload, fields map[string]string) (Response, error) {
	body, contentType, err := encodeMultipart(up, fields)
	if err != nil {
		return Response{}, err
	}

	var resp Response
	err = retryWithBackoff(ctx, c.maxRetries, func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		httpReq.Header.Set("Content-Type", contentType)
		c.authorize(httpReq)

		httpResp, err := c.client.Do(httpReq)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer httpResp.Body.Close()

		respBody, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		switch {
		case httpResp.StatusCode == http.StatusTooManyRequests:
			return &rateLimitError{body: snippet(respBody)}
		case httpResp.StatusCode == http.StatusUnauthorized || httpResp.StatusCode == http.StatusForbidden:
			return &authError{message: snippet(respBody)}
		case httpResp.StatusCode < 200 || httpResp.StatusCode > 299:
			return &StatusError{StatusCode: httpResp.StatusCode, Endpoint: endpoint, Body: snippet(respBody)}
		}

		resp = Response{
			StatusCode:  httpResp.StatusCode,
			ContentType: httpResp.Header.Get("Content-Type"),
			Body:        respBody,
		}
		return nil
	})
	return resp, err
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func encodeMultipart(up Upload, fields map[string]string) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", path.Base(strings.ReplaceAll(up.Name, "\\", "/")))
	if err != nil {
		return nil, "", fmt.Errorf("creating file part: %w", err)
	}
	if _, err := part.Write(up.Content); err != nil {
		return nil, "", fmt.Errorf("writing file part: %w", err)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}

func snippet(b []byte) string {
	const limit = 300
	s := strings.TrimSpace(string(b))
	if r := []rune(s); len(r) > limit {
		return string(r[:limit]) + "..."
	}
	return s
}
