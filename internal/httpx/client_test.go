package httpx_test

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/filez-io/filez_sdk_go/internal/httpx"
)

func TestDoRetriesTransientStatuses(t *testing.T) {
	var calls int32
	srv := newLocalHTTPServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	client, err := httpx.NewClient(srv.URL, httpx.WithRetryPolicy(httpx.RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
	}))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	resp, err := client.Do(context.Background(), &httpx.Request{Method: http.MethodGet, Path: "ping"})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	body, err := httpx.ReadAllAndClose(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != "ok" {
		t.Fatalf("unexpected body: %q", body)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestDoDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := newLocalHTTPServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	client, err := httpx.NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = client.Do(context.Background(), &httpx.Request{Method: http.MethodGet, Path: "ping"})
	var httpErr *httpx.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", httpErr.StatusCode)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
}

func TestDoDisableRetry(t *testing.T) {
	var calls int32
	srv := newLocalHTTPServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, err := httpx.NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = client.Do(context.Background(), &httpx.Request{
		Method:       http.MethodGet,
		Path:         "ping",
		DisableRetry: true,
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
}

func TestDoKeepsBasePathPrefix(t *testing.T) {
	var gotPath, gotQuery string
	srv := newLocalHTTPServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	client, err := httpx.NewClient(srv.URL + "/v2")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = client.Do(context.Background(), &httpx.Request{
		Method: http.MethodGet,
		Path:   "api/file/888/",
		Query:  url.Values{"nsid": {"1"}},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if gotPath != "/v2/api/file/888/" {
		t.Fatalf("unexpected path: %q", gotPath)
	}
	if gotQuery != "nsid=1" {
		t.Fatalf("unexpected query: %q", gotQuery)
	}
}

func TestNewClientRejectsBadBaseURL(t *testing.T) {
	if _, err := httpx.NewClient(""); err == nil {
		t.Fatalf("expected error for empty base URL")
	}
	if _, err := httpx.NewClient("not-a-url"); err == nil {
		t.Fatalf("expected error for URL without scheme")
	}
}

func TestErrorCarriesVendorEnvelope(t *testing.T) {
	srv := newLocalHTTPServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, `{"errcode":50301,"errmsg":"maintenance window"}`)
	}))
	defer srv.Close()

	client, err := httpx.NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = client.Do(context.Background(), &httpx.Request{
		Method:       http.MethodGet,
		Path:         "ping",
		DisableRetry: true,
	})
	var httpErr *httpx.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.VendorCode != 50301 || httpErr.VendorMessage != "maintenance window" {
		t.Fatalf("vendor envelope not extracted: %#v", httpErr)
	}
	if httpErr.RetryAfter != 7*time.Second {
		t.Fatalf("unexpected Retry-After: %v", httpErr.RetryAfter)
	}
	if !strings.Contains(httpErr.Error(), "maintenance window") {
		t.Fatalf("error text should carry the vendor message: %q", httpErr.Error())
	}
	if !httpErr.Retryable() {
		t.Fatalf("503 should be retryable")
	}
}

func TestErrorWithoutEnvelope(t *testing.T) {
	srv := newLocalHTTPServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "plain text failure", http.StatusForbidden)
	}))
	defer srv.Close()

	client, err := httpx.NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = client.Do(context.Background(), &httpx.Request{Method: http.MethodGet, Path: "ping"})
	var httpErr *httpx.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.VendorCode != 0 || httpErr.VendorMessage != "" {
		t.Fatalf("no envelope expected: %#v", httpErr)
	}
	if httpErr.RetryAfter != 0 {
		t.Fatalf("no Retry-After expected: %v", httpErr.RetryAfter)
	}
	if httpErr.Retryable() {
		t.Fatalf("403 must not be retryable")
	}
}

type testServer struct {
	URL      string
	listener net.Listener
	server   *http.Server
}

func (s *testServer) Close() {
	_ = s.server.Shutdown(context.Background())
	_ = s.listener.Close()
}

func newLocalHTTPServer(t *testing.T, handler http.Handler) *testServer {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("network disabled for tests: %v", err)
	}
	srv := &http.Server{Handler: handler}
	ts := &testServer{
		URL:      "http://" + ln.Addr().String(),
		listener: ln,
		server:   srv,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			t.Logf("test server serve error: %v", err)
		}
	}()
	return ts
}
