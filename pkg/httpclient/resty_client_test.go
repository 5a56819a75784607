package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRestyClientGetSendsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method %s", r.Method)
		}
		if got := r.Header.Get("User-Agent"); got != "miner-test" {
			t.Errorf("unexpected user agent %q", got)
		}
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client := NewRestyClient(2 * time.Second)
	resp, err := client.Get(context.Background(), srv.URL, map[string]string{"User-Agent": "miner-test"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.StatusCode() != http.StatusTeapot || string(resp.Body()) != "ok" {
		t.Fatalf("unexpected response %d %q", resp.StatusCode(), resp.Body())
	}
}

func TestRestyClientPostEncodesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		raw, _ := io.ReadAll(r.Body)
		var payload map[string]string
		if err := json.Unmarshal(raw, &payload); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if payload["videoId"] != "abc" {
			t.Errorf("unexpected payload %v", payload)
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewRestyClient(2 * time.Second)
	resp, err := client.Post(context.Background(), srv.URL, nil, map[string]string{"videoId": "abc"})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if resp.StatusCode() != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode())
	}
}

func TestRestyClientResponseBodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(make([]byte, 2048))
	}))
	defer srv.Close()

	limited := NewRestyClient(2*time.Second, WithResponseBodyLimit(1024))
	if _, err := limited.Get(context.Background(), srv.URL, nil); !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("expected ErrBodyTooLarge, got %v", err)
	}

	roomy := NewRestyClient(2*time.Second, WithResponseBodyLimit(4096))
	resp, err := roomy.Get(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("get under limit: %v", err)
	}
	if len(resp.Body()) != 2048 {
		t.Fatalf("unexpected body length %d", len(resp.Body()))
	}
}
