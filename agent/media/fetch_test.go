package media

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
)

func TestFetchAttachment(t *testing.T) {
	t.Parallel()

	png := []byte("\x89PNG\r\n\x1a\n0000")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(png)
		case "/big":
			_, _ = w.Write([]byte(strings.Repeat("x", 64)))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	f := NewFetcher(WithHTTPClient(server.Client()), WithMaxBytes(32))

	m, data, err := f.FetchAttachment(context.Background(), server.URL+"/ok.png")
	if err != nil {
		t.Fatalf("FetchAttachment() error = %v", err)
	}
	if m.MIMEType != "image/png" || m.Kind() != contractx.MediaImage {
		t.Fatalf("unexpected media: %#v", m)
	}
	if m.Base64 != base64.StdEncoding.EncodeToString(png) || string(data) != string(png) {
		t.Fatal("unexpected payload")
	}

	if _, _, err := f.FetchAttachment(context.Background(), server.URL+"/big"); !errors.Is(err, contractx.ErrAttachmentTooLarge) {
		t.Fatalf("expected ErrAttachmentTooLarge, got %v", err)
	}
	if _, _, err := f.FetchAttachment(context.Background(), server.URL+"/missing"); !errors.Is(err, contractx.ErrAttachmentFetch) {
		t.Fatalf("expected ErrAttachmentFetch, got %v", err)
	}
	if _, _, err := f.FetchAttachment(context.Background(), "file:///etc/passwd"); !errors.Is(err, contractx.ErrAttachmentFetch) {
		t.Fatalf("expected scheme rejection, got %v", err)
	}
}
