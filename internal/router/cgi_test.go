package router

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ribana-b/webserv/internal/config"
	"github.com/ribana-b/webserv/internal/httpcodec"
)

func writeCGIScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestHandleCGIReturnsScriptOutput(t *testing.T) {
	dir := t.TempDir()
	path := writeCGIScript(t, dir, "ok.cgi", "#!/bin/sh\necho hello from cgi\n")

	rt := New(&config.Model{Servers: []config.VirtualServer{*serverWithRoot(dir)}}, testLogger())
	resp := rt.handleCGI(&httpcodec.Request{Method: "GET", Path: "/ok.cgi"}, &rt.model.Servers[0], path)

	if resp.StatusCode != httpcodec.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if string(resp.Body) != "hello from cgi\n" {
		t.Fatalf("body = %q", resp.Body)
	}
}

// A script that outruns any short fixed timeout still completes: handleCGI
// blocks on cmd.Wait with no deadline, matching the original's handleCGI.
func TestHandleCGIBlocksUntilSlowScriptExits(t *testing.T) {
	dir := t.TempDir()
	path := writeCGIScript(t, dir, "slow.cgi", "#!/bin/sh\nsleep 0.3\necho done\n")

	rt := New(&config.Model{Servers: []config.VirtualServer{*serverWithRoot(dir)}}, testLogger())
	resp := rt.handleCGI(&httpcodec.Request{Method: "GET", Path: "/slow.cgi"}, &rt.model.Servers[0], path)

	if resp.StatusCode != httpcodec.StatusOK {
		t.Fatalf("status = %d, want 200 (slow script should still complete, not be killed)", resp.StatusCode)
	}
	if string(resp.Body) != "done\n" {
		t.Fatalf("body = %q", resp.Body)
	}
}

func TestHandleCGIScriptExitNonZeroReturns500(t *testing.T) {
	dir := t.TempDir()
	path := writeCGIScript(t, dir, "fail.cgi", "#!/bin/sh\nexit 1\n")

	rt := New(&config.Model{Servers: []config.VirtualServer{*serverWithRoot(dir)}}, testLogger())
	resp := rt.handleCGI(&httpcodec.Request{Method: "GET", Path: "/fail.cgi"}, &rt.model.Servers[0], path)

	if resp.StatusCode != httpcodec.StatusInternalError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
}

func TestHandleCGIPostBodyIsPipedToStdin(t *testing.T) {
	dir := t.TempDir()
	path := writeCGIScript(t, dir, "echo.cgi", "#!/bin/sh\ncat\n")

	rt := New(&config.Model{Servers: []config.VirtualServer{*serverWithRoot(dir)}}, testLogger())
	req := &httpcodec.Request{Method: "POST", Path: "/echo.cgi", Body: []byte("payload")}
	resp := rt.handleCGI(req, &rt.model.Servers[0], path)

	if resp.StatusCode != httpcodec.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if string(resp.Body) != "payload" {
		t.Fatalf("body = %q, want echoed stdin", resp.Body)
	}
}

func TestHandleCGIUnsupportedExtensionReturns403(t *testing.T) {
	dir := t.TempDir()
	path := writeCGIScript(t, dir, "plain.txt", "not a script")

	rt := New(&config.Model{Servers: []config.VirtualServer{*serverWithRoot(dir)}}, testLogger())
	resp := rt.handleCGI(&httpcodec.Request{Method: "GET", Path: "/plain.txt"}, &rt.model.Servers[0], path)

	if resp.StatusCode != httpcodec.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
}

func TestInterpreterForDispatchTable(t *testing.T) {
	cases := []struct {
		path        string
		interpreter string
		ok          bool
	}{
		{"/a.php", "php-cgi", true},
		{"/a.py", "python3", true},
		{"/a.pl", "perl", true},
		{"/a.cgi", "", true},
		{"/a.txt", "", false},
		{"/noext", "", false},
	}
	for _, c := range cases {
		interpreter, ok := interpreterFor(c.path)
		if interpreter != c.interpreter || ok != c.ok {
			t.Errorf("interpreterFor(%q) = (%q, %v), want (%q, %v)",
				c.path, interpreter, ok, c.interpreter, c.ok)
		}
	}
}

func TestCGIEnvironIncludesRequestMetadata(t *testing.T) {
	req := &httpcodec.Request{
		Method: "GET",
		Path:   "/cgi-bin/a.py?x=1",
		Headers: map[string]string{
			"host": "example.com",
		},
	}
	env := cgiEnviron(req, "/cgi-bin/a.py")

	want := map[string]bool{
		"REQUEST_METHOD=GET":         false,
		"QUERY_STRING=x=1":           false,
		"PATH_INFO=/cgi-bin/a.py":    false,
		"HTTP_HOST=example.com":      false,
		"GATEWAY_INTERFACE=CGI/1.1":  false,
	}
	for _, kv := range env {
		if _, ok := want[kv]; ok {
			want[kv] = true
		}
	}
	for kv, found := range want {
		if !found {
			t.Errorf("expected env entry %q, env = %v", kv, env)
		}
	}
}
