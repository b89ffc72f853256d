package router

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ribana-b/webserv/internal/config"
	"github.com/ribana-b/webserv/internal/httpcodec"
)

func serverWithRoot(root string) *config.VirtualServer {
	return &config.VirtualServer{
		Listens:    []config.ListenEndpoint{{IP: 0, Port: 8080}},
		Root:       root,
		Index:      []string{"index.html"},
		ErrorPages: map[int]string{},
	}
}

func TestHandleGETServesStaticFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("hi there"), 0o644); err != nil {
		t.Fatal(err)
	}

	rt := New(&config.Model{Servers: []config.VirtualServer{*serverWithRoot(dir)}}, testLogger())
	resp := rt.handleGET(&httpcodec.Request{Method: "GET", Path: "/hello.txt"}, &rt.model.Servers[0])

	if resp.StatusCode != httpcodec.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if string(resp.Body) != "hi there" {
		t.Fatalf("body = %q", resp.Body)
	}
}

func TestHandleGETMissingFileReturns404(t *testing.T) {
	dir := t.TempDir()
	rt := New(&config.Model{Servers: []config.VirtualServer{*serverWithRoot(dir)}}, testLogger())
	resp := rt.handleGET(&httpcodec.Request{Method: "GET", Path: "/missing.txt"}, &rt.model.Servers[0])

	if resp.StatusCode != httpcodec.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestHandleGETRejectsUnsafePath(t *testing.T) {
	dir := t.TempDir()
	rt := New(&config.Model{Servers: []config.VirtualServer{*serverWithRoot(dir)}}, testLogger())
	resp := rt.handleGET(&httpcodec.Request{Method: "GET", Path: "/../etc/passwd"}, &rt.model.Servers[0])

	if resp.StatusCode != httpcodec.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
}

func TestHandleHEADOmitsBody(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("hi there"), 0o644); err != nil {
		t.Fatal(err)
	}

	rt := New(&config.Model{Servers: []config.VirtualServer{*serverWithRoot(dir)}}, testLogger())
	resp := rt.handleHEAD(&httpcodec.Request{Method: "HEAD", Path: "/hello.txt"}, &rt.model.Servers[0])

	if resp.StatusCode != httpcodec.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if len(resp.Body) != 0 {
		t.Fatalf("expected empty body for HEAD, got %q", resp.Body)
	}
	if resp.Headers["Content-Length"] != "8" {
		t.Fatalf("Content-Length = %q, want 8", resp.Headers["Content-Length"])
	}
}

func TestHandleHEADRejectsTooLongPath(t *testing.T) {
	dir := t.TempDir()
	rt := New(&config.Model{Servers: []config.VirtualServer{*serverWithRoot(dir)}}, testLogger())

	longPath := "/" + string(make([]byte, 900))
	resp := rt.handleHEAD(&httpcodec.Request{Method: "HEAD", Path: longPath}, &rt.model.Servers[0])

	if resp.StatusCode != httpcodec.StatusURITooLong {
		t.Fatalf("status = %d, want 414", resp.StatusCode)
	}
}
