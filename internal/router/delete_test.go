package router

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ribana-b/webserv/internal/config"
	"github.com/ribana-b/webserv/internal/httpcodec"
)

func TestHandleDELETERemovesFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "doomed.txt")
	os.WriteFile(target, []byte("x"), 0o644)

	rt := New(&config.Model{Servers: []config.VirtualServer{*serverWithRoot(dir)}}, testLogger())
	resp := rt.handleDELETE(&httpcodec.Request{Method: "DELETE", Path: "/doomed.txt"}, &rt.model.Servers[0])

	if resp.StatusCode != httpcodec.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Fatal("expected file to be removed")
	}
}

func TestHandleDELETEMissingFileReturns404(t *testing.T) {
	dir := t.TempDir()
	rt := New(&config.Model{Servers: []config.VirtualServer{*serverWithRoot(dir)}}, testLogger())
	resp := rt.handleDELETE(&httpcodec.Request{Method: "DELETE", Path: "/missing.txt"}, &rt.model.Servers[0])

	if resp.StatusCode != httpcodec.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestHandleDELETERefusesDirectory(t *testing.T) {
	dir := t.TempDir()
	os.Mkdir(filepath.Join(dir, "sub"), 0o755)

	rt := New(&config.Model{Servers: []config.VirtualServer{*serverWithRoot(dir)}}, testLogger())
	resp := rt.handleDELETE(&httpcodec.Request{Method: "DELETE", Path: "/sub"}, &rt.model.Servers[0])

	if resp.StatusCode != httpcodec.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
}
