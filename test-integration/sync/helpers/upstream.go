// Package helpers provides upstream servers, Git repositories and registry
// wiring for the sync integration tests.
package helpers

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
)

// UpstreamServer serves a mime.types document with an ETag version token
type UpstreamServer struct {
	*httptest.Server

	mu     sync.Mutex
	etag   string
	body   string
	status int

	heads atomic.Int32
	gets  atomic.Int32
}

// NewUpstreamServer starts a server publishing body under etag
func NewUpstreamServer(etag, body string) *UpstreamServer {
	u := &UpstreamServer{etag: etag, body: body, status: http.StatusOK}
	u.Server = httptest.NewServer(http.HandlerFunc(u.serve))
	u.Config.SetKeepAlivesEnabled(false)
	return u
}

// Publish replaces the served document and its version token
func (u *UpstreamServer) Publish(etag, body string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.etag = etag
	u.body = body
}

// Fail makes every request answer with status. http.StatusOK restores service.
func (u *UpstreamServer) Fail(status int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.status = status
}

// Heads returns how many probes the server answered
func (u *UpstreamServer) Heads() int {
	return int(u.heads.Load())
}

// Gets returns how many fetches the server answered
func (u *UpstreamServer) Gets() int {
	return int(u.gets.Load())
}

func (u *UpstreamServer) serve(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	etag, body, status := u.etag, u.body, u.status
	u.mu.Unlock()

	switch r.Method {
	case http.MethodHead:
		u.heads.Add(1)
	case http.MethodGet:
		u.gets.Add(1)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if status != http.StatusOK {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = w.Write([]byte(body))
	}
}
