package embedclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/opennote/semindex/internal/pkg/apperr"
)

func TestNewLocalRequiresBaseURLAndModel(t *testing.T) {
	if _, err := NewLocal(LocalConfig{Model: "m"}); !errors.Is(err, apperr.ErrConfig) {
		t.Errorf("expected ErrConfig for missing base url, got %v", err)
	}
	if _, err := NewLocal(LocalConfig{BaseURL: "http://localhost:1234"}); !errors.Is(err, apperr.ErrConfig) {
		t.Errorf("expected ErrConfig for missing model, got %v", err)
	}
}

func TestNewCompatibleRequiresKeyURLAndModel(t *testing.T) {
	if _, err := NewCompatible(CompatibleConfig{BaseURL: "http://x", Model: "m"}); !errors.Is(err, apperr.ErrConfig) {
		t.Errorf("expected ErrConfig for missing api key, got %v", err)
	}
}

func TestHTTPClientEmbedSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer srv.Close()

	c, err := NewLocal(LocalConfig{BaseURL: srv.URL, Model: "local-model", Dimension: 3})
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	vec, err := c.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 3 {
		t.Errorf("expected 3-dim vector, got %v", vec)
	}
	if c.Dimension() != 3 {
		t.Errorf("expected observed dimension 3, got %d", c.Dimension())
	}
}

func TestHTTPClientEmbedClassifiesRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"slow down"}`))
	}))
	defer srv.Close()

	c, err := NewLocal(LocalConfig{BaseURL: srv.URL, Model: "local-model"})
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	_, err = c.Embed(context.Background(), "hello")
	if !errors.Is(err, apperr.ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}

func TestHTTPClientEmbedSendsBearerTokenForCompatible(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"data":[{"embedding":[1]}]}`))
	}))
	defer srv.Close()

	c, err := NewCompatible(CompatibleConfig{APIKey: "secret-key", BaseURL: srv.URL, Model: "m"})
	if err != nil {
		t.Fatalf("NewCompatible: %v", err)
	}
	if _, err := c.Embed(context.Background(), "hi"); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if gotAuth != "Bearer secret-key" {
		t.Errorf("expected bearer token header, got %q", gotAuth)
	}
}

func TestHTTPClientEmbedRejectsEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c, err := NewLocal(LocalConfig{BaseURL: srv.URL, Model: "m"})
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	if _, err := c.Embed(context.Background(), "hi"); !errors.Is(err, apperr.ErrTransport) {
		t.Errorf("expected ErrTransport for empty data, got %v", err)
	}
}
