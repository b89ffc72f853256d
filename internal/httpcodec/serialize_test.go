package httpcodec

import (
	"strings"
	"testing"
)

func TestSerializeRoundTrip(t *testing.T) {
	resp := NewResponse(StatusOK)
	resp.SetHeader("Content-Type", "text/plain; charset=utf-8")
	resp.SetBodyString("hello world")

	out := string(Serialize(resp))

	if !strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n") {
		t.Fatalf("unexpected status line in: %q", out)
	}
	if !strings.Contains(out, "Content-Length: 11\r\n") {
		t.Fatalf("expected Content-Length: 11, got: %q", out)
	}
	if !strings.HasSuffix(out, "\r\n\r\nhello world") {
		t.Fatalf("expected body after blank line, got: %q", out)
	}
}

func TestNewResponseSetsDefaultHeaders(t *testing.T) {
	resp := NewResponse(StatusOK)

	if resp.Headers["Server"] != "webserv/1.0" {
		t.Errorf("Server = %q, want webserv/1.0", resp.Headers["Server"])
	}
	if resp.Headers["Connection"] != "close" {
		t.Errorf("Connection = %q, want close", resp.Headers["Connection"])
	}
	if resp.Headers["Date"] != "Mon, 27 Jan 2025 12:00:00 GMT" {
		t.Errorf("Date = %q, want the fixed default date", resp.Headers["Date"])
	}
}

func TestContentTypeForPath(t *testing.T) {
	cases := map[string]string{
		"/a.html":       "text/html; charset=utf-8",
		"/a.PNG":        "image/png",
		"/a.unknownext": "application/octet-stream",
		"/noext":        "application/octet-stream",
	}
	for path, want := range cases {
		if got := ContentTypeForPath(path); got != want {
			t.Errorf("ContentTypeForPath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestStatusPhraseUnknown(t *testing.T) {
	if StatusPhrase(999) != "Unknown" {
		t.Fatal("expected Unknown phrase for unrecognized status code")
	}
}
