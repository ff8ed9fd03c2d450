package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/nerrad567/roomcast/internal/infrastructure/config"
)

func TestSetLevelPostsJSON(t *testing.T) {
	var (
		mu        sync.Mutex
		gotMethod string
		gotPath   string
		gotCT     string
		gotBody   map[string]any
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotCT = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDimmer(config.DimmerConfig{BaseURL: srv.URL, Timeout: 5})

	if err := d.SetLevel(context.Background(), "2", 75); err != nil {
		t.Fatalf("SetLevel() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if gotMethod != http.MethodPost {
		t.Errorf("method = %q, want POST", gotMethod)
	}
	if gotPath != "/dimmer/set_level" {
		t.Errorf("path = %q, want /dimmer/set_level", gotPath)
	}
	if gotCT != "application/json" {
		t.Errorf("content type = %q, want application/json", gotCT)
	}
	if got, ok := gotBody["node_id"].(float64); !ok || got != 2 {
		t.Errorf("node_id = %v, want 2", gotBody["node_id"])
	}
	// The level is a string on the wire; the backend parses it itself.
	if got, ok := gotBody["value"].(string); !ok || got != "75" {
		t.Errorf("value = %v (%T), want \"75\"", gotBody["value"], gotBody["value"])
	}
}

func TestSetLevelBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "node unreachable", http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewDimmer(config.DimmerConfig{BaseURL: srv.URL, Timeout: 5})

	err := d.SetLevel(context.Background(), "2", 75)
	if !errors.Is(err, ErrDimmerRequest) {
		t.Fatalf("SetLevel() error = %v, want ErrDimmerRequest", err)
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error %q does not carry the backend status", err)
	}
}

func TestSetLevelNonNumericNode(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDimmer(config.DimmerConfig{BaseURL: srv.URL, Timeout: 5})

	if err := d.SetLevel(context.Background(), "kitchen", 50); !errors.Is(err, ErrDimmerRequest) {
		t.Fatalf("SetLevel() error = %v, want ErrDimmerRequest", err)
	}
	if n := atomic.LoadInt32(&requests); n != 0 {
		t.Errorf("backend requests = %d, want 0", n)
	}
}

func TestSetLevelUnreachableBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	url := srv.URL
	srv.Close()

	d := NewDimmer(config.DimmerConfig{BaseURL: url, Timeout: 5})

	if err := d.SetLevel(context.Background(), "2", 75); !errors.Is(err, ErrDimmerRequest) {
		t.Errorf("SetLevel() error = %v, want ErrDimmerRequest", err)
	}
}

func TestSetLevelTrimsTrailingSlash(t *testing.T) {
	var gotPath string
	var mu sync.Mutex

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotPath = r.URL.Path
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDimmer(config.DimmerConfig{BaseURL: srv.URL + "/", Timeout: 5})

	if err := d.SetLevel(context.Background(), "2", 75); err != nil {
		t.Fatalf("SetLevel() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if gotPath != "/dimmer/set_level" {
		t.Errorf("path = %q, want /dimmer/set_level", gotPath)
	}
}
