package prober

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/raysh454/kakunin/internal/logging"
)

const probeUserAgent = "kakunin-verifyd/0.1"

// net/http backed probe. Cheap and dependency-free at runtime; it sees the
// raw document without executing scripts.
type NetHTTPProber struct {
	client *http.Client
	logger logging.Logger
}

func NewNetHTTPProber(cfg *Config, logger logging.Logger, httpClient *http.Client) (Prober, error) {
	componentLogger := logger.With(logging.Field{Key: "backend", Value: "nethttp"})

	if httpClient == nil {
		timeout := 20 * time.Second
		if cfg != nil && cfg.Timeout > 0 {
			timeout = cfg.Timeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	componentLogger.Info("created nethttp prober",
		logging.Field{Key: "timeout", Value: httpClient.Timeout.String()})

	return &NetHTTPProber{
		client: httpClient,
		logger: componentLogger,
	}, nil
}

// Probe fetches the target once and inspects the returned document.
func (p *NetHTTPProber) Probe(ctx context.Context, target string) (*Result, error) {
	if target == "" {
		return nil, fmt.Errorf("empty target")
	}

	p.logger.Debug("probing target", logging.Field{Key: "url", Value: target})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", probeUserAgent)

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn("probe failed",
			logging.Field{Key: "url", Value: target},
			logging.Field{Key: "error", Value: err.Error()})
		return nil, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	elapsed := time.Since(start)

	res := &Result{
		URL:          target,
		StatusCode:   resp.StatusCode,
		ResponseTime: elapsed,
		BodyBytes:    len(body),
	}

	if isHTML(resp.Header.Get("Content-Type")) {
		if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body)); err == nil {
			res.Title = strings.TrimSpace(doc.Find("title").First().Text())
			res.HasViewportMeta = doc.Find(`meta[name="viewport"]`).Length() > 0
		}
	}

	p.logger.Debug("probe finished",
		logging.Field{Key: "url", Value: target},
		logging.Field{Key: "status", Value: res.StatusCode},
		logging.Field{Key: "elapsed", Value: elapsed.String()})

	return res, nil
}

func (p *NetHTTPProber) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// isHTML treats a missing Content-Type as HTML, matching how browsers sniff
// bare responses from small servers.
func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}
