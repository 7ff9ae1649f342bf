package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newStaticForTest(t *testing.T) *StaticFetcher {
	t.Helper()
	f, err := NewStatic(StaticConfig{
		PoolSize:       2,
		AcquireTimeout: time.Second,
		BackoffInitial: time.Millisecond,
		BackoffMax:     5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewStatic() error = %v", err)
	}
	t.Cleanup(f.Close)
	return f
}

func testRequest(url string) Request {
	return Request{
		URL:        url,
		Mode:       ModeStatic,
		Timeout:    5 * time.Second,
		MaxRetries: 2,
	}
}

func TestStaticFetcher_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><head><title>Example</title></head><body><p>Hello world</p></body></html>"))
	}))
	defer srv.Close()

	f := newStaticForTest(t)
	doc, err := f.Fetch(context.Background(), testRequest(srv.URL))
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if doc.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", doc.StatusCode)
	}
	if !strings.Contains(string(doc.Body), "Hello world") {
		t.Errorf("Body missing expected content: %q", doc.Body)
	}
	if doc.ModeUsed != ModeStatic {
		t.Errorf("ModeUsed = %q, want static", doc.ModeUsed)
	}
	if doc.ContentType != "text/html; charset=utf-8" {
		t.Errorf("ContentType = %q", doc.ContentType)
	}
	if doc.Elapsed <= 0 {
		t.Error("Elapsed not recorded")
	}
}

func TestStaticFetcher_404IsDataNotFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("<html><body><h1>Not Found</h1></body></html>"))
	}))
	defer srv.Close()

	f := newStaticForTest(t)
	doc, err := f.Fetch(context.Background(), testRequest(srv.URL))
	if err != nil {
		t.Fatalf("Fetch() of a 404 must not fail, got error = %v", err)
	}
	if doc.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", doc.StatusCode)
	}
	if !strings.Contains(string(doc.Body), "Not Found") {
		t.Errorf("404 body not surfaced: %q", doc.Body)
	}
}

func TestStaticFetcher_ServerErrorIsData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := newStaticForTest(t)
	doc, err := f.Fetch(context.Background(), testRequest(srv.URL))
	if err != nil {
		t.Fatalf("Fetch() of a 500 must not fail, got error = %v", err)
	}
	if doc.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", doc.StatusCode)
	}
}

func TestStaticFetcher_RotatesUserAgentOn403(t *testing.T) {
	var agents []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents = append(agents, r.UserAgent())
		if len(agents) < 3 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte("<html><body>welcome</body></html>"))
	}))
	defer srv.Close()

	f := newStaticForTest(t)
	doc, err := f.Fetch(context.Background(), testRequest(srv.URL))
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if doc.StatusCode != http.StatusOK {
		t.Fatalf("StatusCode = %d, want 200 after rotation", doc.StatusCode)
	}

	if len(agents) != 3 {
		t.Fatalf("server saw %d attempts, want 3", len(agents))
	}
	if agents[0] == agents[1] || agents[1] == agents[2] {
		t.Errorf("user agent did not rotate across 403 retries: %v", agents)
	}
}

func TestStaticFetcher_PersistentForbiddenSurfacedAsData(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := newStaticForTest(t)
	doc, err := f.Fetch(context.Background(), testRequest(srv.URL))
	if err != nil {
		t.Fatalf("Fetch() of a persistent 403 must not fail, got error = %v", err)
	}
	if doc.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want 403", doc.StatusCode)
	}
	if got := hits.Load(); got != 3 {
		t.Errorf("server saw %d attempts, want 3 (1 + 2 retries)", got)
	}
}

func TestStaticFetcher_RetriesNetworkErrors(t *testing.T) {
	// A closed server yields connection-refused for every attempt.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	f := newStaticForTest(t)
	_, err := f.Fetch(context.Background(), testRequest(url))
	if err == nil {
		t.Fatal("Fetch() against closed server should fail")
	}

	kind, ok := KindOf(err)
	if !ok {
		t.Fatalf("error %v is not a fetch.Error", err)
	}
	if kind != KindNetwork {
		t.Errorf("Kind = %v, want KindNetwork", kind)
	}

	var fe *Error
	if !errors.As(err, &fe) {
		t.Fatal("expected *Error")
	}
	if fe.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3 (1 + 2 retries)", fe.Attempts)
	}
}

func TestStaticFetcher_FollowsRedirects(t *testing.T) {
	var finalPath = "/final"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != finalPath {
			http.Redirect(w, r, finalPath, http.StatusMovedPermanently)
			return
		}
		w.Write([]byte("<html><body>landed</body></html>"))
	}))
	defer srv.Close()

	f := newStaticForTest(t)
	doc, err := f.Fetch(context.Background(), testRequest(srv.URL+"/start"))
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if doc.FinalURL != srv.URL+finalPath {
		t.Errorf("FinalURL = %q, want %q", doc.FinalURL, srv.URL+finalPath)
	}
	if doc.SourceURL != srv.URL+"/start" {
		t.Errorf("SourceURL = %q, want the requested URL", doc.SourceURL)
	}
}

func TestStaticFetcher_SendsCustomHeaders(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := newStaticForTest(t)
	req := testRequest(srv.URL)
	req.Headers = map[string]string{"Authorization": "Bearer token123"}

	if _, err := f.Fetch(context.Background(), req); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if gotAuth != "Bearer token123" {
		t.Errorf("Authorization header = %q, want %q", gotAuth, "Bearer token123")
	}
}

func TestStaticFetcher_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	f := newStaticForTest(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := f.Fetch(ctx, testRequest(srv.URL))
	if err == nil {
		t.Fatal("Fetch() with expired context should fail")
	}
	if kind, _ := KindOf(err); kind != KindTimeout {
		t.Errorf("Kind = %v, want KindTimeout", kind)
	}

	// The borrowed client must be back in the pool.
	if stats := f.Pool().Stats(); stats.InUse != 0 {
		t.Errorf("pool InUse after cancelled fetch = %d, want 0", stats.InUse)
	}
}
