package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
)

const DefaultMaxAttachmentBytes = 10 << 20

type FetcherOption func(*Fetcher)

func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

func WithMaxBytes(n int64) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// Fetcher downloads URL attachments of the current turn.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:   &http.Client{Timeout: 15 * time.Second},
		maxBytes: DefaultMaxAttachmentBytes,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// FetchAttachment downloads rawURL and returns it as inline base64 media plus the raw bytes.
func (f *Fetcher) FetchAttachment(ctx context.Context, rawURL string) (contractx.Media, []byte, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return contractx.Media{}, nil, fmt.Errorf("%w: invalid attachment url", contractx.ErrAttachmentFetch)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return contractx.Media{}, nil, fmt.Errorf("%w: build request: %v", contractx.ErrAttachmentFetch, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return contractx.Media{}, nil, fmt.Errorf("%w: %v", contractx.ErrAttachmentFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return contractx.Media{}, nil, fmt.Errorf("%w: status %d", contractx.ErrAttachmentFetch, resp.StatusCode)
	}
	if resp.ContentLength > f.maxBytes {
		return contractx.Media{}, nil, fmt.Errorf("%w: %d bytes", contractx.ErrAttachmentTooLarge, resp.ContentLength)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return contractx.Media{}, nil, fmt.Errorf("%w: read body: %v", contractx.ErrAttachmentFetch, err)
	}
	if int64(len(data)) > f.maxBytes {
		return contractx.Media{}, nil, fmt.Errorf("%w: more than %d bytes", contractx.ErrAttachmentTooLarge, f.maxBytes)
	}

	mimeType := contentType(resp.Header.Get("Content-Type"), data)
	m := contractx.Media{
		Type:     string(contractx.MediaKindFor("", mimeType)),
		MIMEType: mimeType,
		Base64:   base64.StdEncoding.EncodeToString(data),
	}
	return m, data, nil
}

func contentType(header string, data []byte) string {
	if mt, _, err := mime.ParseMediaType(header); err == nil && mt != "" && mt != "application/octet-stream" {
		return mt
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return mt
}
