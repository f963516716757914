package col

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/datallboy/gocol/internal/domain"
	"github.com/datallboy/gocol/internal/infra/logger"
)

// UserAgent is what the console's own transfer service sends.
const UserAgent = "CopyOnLanSvc"

// Client talks to one console's content server. Every method issues exactly
// one request; retrying is the caller's decision.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

// NewClient builds a client for baseURL ("http://host:port").
func NewClient(baseURL string, log *logger.Logger) *Client {
	transport := &http.Transport{
		MaxIdleConnsPerHost: 1,
		IdleConnTimeout:     90 * time.Second,
		DisableCompression:  true, // raw bytes for range requests
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Transport: transport},
		log:     log,
	}
}

// ForConsole builds a client for a discovered console.
func ForConsole(c domain.Console, log *logger.Logger) *Client {
	return NewClient(c.BaseURL(), log)
}

func (c *Client) newRequest(ctx context.Context, path string, r *domain.Range) (*http.Request, error) {
	// path is already escaped; concatenation keeps %23 from turning into a fragment
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	if r != nil {
		req.Header.Set("Range", r.Header())
	}
	return req, nil
}

// GetMetadata fetches and decodes the console manifest.
func (c *Client) GetMetadata(ctx context.Context) (*domain.Metadata, error) {
	req, err := c.newRequest(ctx, domain.MetadataPath, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s for %s", domain.ErrUnexpectedStatus, resp.Status, domain.MetadataPath)
	}

	var md domain.Metadata
	if err := json.NewDecoder(resp.Body).Decode(&md); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}

	c.log.Debug("Fetched metadata: %d items", len(md.Items))
	return &md, nil
}

// GetItemFilesize probes item with a single-byte range and returns the
// total length advertised in Content-Range.
func (c *Client) GetItemFilesize(ctx context.Context, item domain.MetadataItem) (int64, error) {
	resp, err := c.DownloadChunk(ctx, item.Path, domain.ProbeRange)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	// one byte; drain so the connection is reused
	_, _ = io.Copy(io.Discard, resp.Body)

	header := resp.Header.Get("Content-Range")
	if header == "" {
		return 0, domain.ErrMissingContentRange
	}

	total, err := ParseContentRangeTotal(header)
	if err != nil {
		return 0, err
	}

	c.log.Debug("Probed %s: %d bytes", item.Path, total)
	return total, nil
}

// DownloadChunk requests exactly [r.First, r.Last] of path. On success the
// caller owns resp.Body.
func (c *Client) DownloadChunk(ctx context.Context, path string, r domain.Range) (*http.Response, error) {
	req, err := c.newRequest(ctx, path, &r)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("range request %s: %w", r.Header(), err)
	}

	if resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s for %s", domain.ErrUnexpectedStatus, resp.Status, r.Header())
	}

	return resp, nil
}

// ParseContentRangeTotal returns the total after '/' in a Content-Range
// value such as "bytes 0-0/105205760".
func ParseContentRangeTotal(header string) (int64, error) {
	_, suffix, ok := strings.Cut(header, "/")
	if !ok {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidContentRange, header)
	}

	total, err := strconv.ParseInt(strings.TrimSpace(suffix), 10, 64)
	if err != nil || total < 0 {
		return 0, fmt.Errorf("%w: total %q", domain.ErrInvalidContentRange, suffix)
	}

	return total, nil
}
