package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetchSendsBrowserHeaders(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "Mozilla") {
			t.Errorf("unexpected user agent %q", ua)
		}
		if accept := r.Header.Get("Accept"); !strings.Contains(accept, "text/html") {
			t.Errorf("unexpected accept header %q", accept)
		}
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	client := NewClient(2*time.Second, 5)
	body, status, err := client.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if status != http.StatusOK || body != "<html>ok</html>" {
		t.Fatalf("unexpected result: %d %q", status, body)
	}
}

func TestFetchReturnsStatusWithoutError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(2*time.Second, 5)
	_, status, err := client.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("non-2xx status must not be a transport error: %v", err)
	}
	if status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
}

func TestFetchStopsFollowingRedirectsAtCap(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	for i := 0; i < 10; i++ {
		hop := i
		mux.HandleFunc(fmt.Sprintf("/hop/%d", hop), func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, fmt.Sprintf("/hop/%d", hop+1), http.StatusFound)
		})
	}
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(2*time.Second, 3)
	_, status, err := client.Fetch(context.Background(), server.URL+"/hop/0")
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if status != http.StatusFound {
		t.Fatalf("expected the last redirect response, got %d", status)
	}
}

func TestFetchHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	client := NewClient(2*time.Second, 5)
	if _, _, err := client.Fetch(ctx, server.URL); err == nil {
		t.Fatalf("expected cancellation error")
	}
}
