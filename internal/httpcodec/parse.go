package httpcodec

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// ErrHeadersIncomplete is returned by ParseHeaders when buf does not yet
// contain a full "\r\n\r\n" terminated header section — the multiplexer
// should keep reading and retry once more bytes arrive.
var ErrHeadersIncomplete = errors.New("httpcodec: header section incomplete")

var validMethods = map[string]struct{}{
	"GET": {}, "POST": {}, "DELETE": {}, "HEAD": {}, "PUT": {}, "OPTIONS": {},
}

var validVersions = map[string]struct{}{
	"HTTP/1.0": {}, "HTTP/1.1": {},
}

// FindHeaderEnd locates the first "\r\n\r\n" in buf, returning the index of
// its first byte. The header section is buf[:idx]; the body (if any) begins
// at idx+4.
func FindHeaderEnd(buf []byte) (int, bool) {
	idx := bytes.Index(buf, []byte("\r\n\r\n"))
	if idx < 0 {
		return 0, false
	}
	return idx, true
}

// ParseHeaders parses the request line and headers out of buf, matching
// original_source/src/HttpRequest.cpp::parse/parseRequestLine/parseHeaders.
// It returns the parsed Request (with Body left nil — callers attach the
// body separately via AttachBody or by streaming to a Sink) and the byte
// offset where the body begins.
func ParseHeaders(buf []byte) (*Request, int, error) {
	headerEnd, found := FindHeaderEnd(buf)
	if !found {
		return nil, 0, ErrHeadersIncomplete
	}

	headerSection := string(buf[:headerEnd])
	lines := strings.Split(headerSection, "\r\n")
	if len(lines) == 0 || lines[0] == "" {
		return nil, 0, fmt.Errorf("httpcodec: failed to read request line")
	}

	req := &Request{Headers: make(map[string]string)}
	if err := parseRequestLine(req, lines[0]); err != nil {
		return nil, 0, err
	}

	for _, line := range lines[1:] {
		if line == "" {
			break
		}
		parseHeaderLine(req, line)
	}

	return req, headerEnd + 4, nil
}

func parseRequestLine(req *Request, line string) error {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return fmt.Errorf("httpcodec: invalid request line format: %q", line)
	}
	method, path, version := fields[0], fields[1], fields[2]

	if _, ok := validMethods[method]; !ok {
		return fmt.Errorf("httpcodec: invalid HTTP method: %q", method)
	}
	if path == "" || path[0] != '/' {
		return fmt.Errorf("httpcodec: invalid path: %q", path)
	}
	if _, ok := validVersions[version]; !ok {
		return fmt.Errorf("httpcodec: invalid HTTP version: %q", version)
	}

	req.Method = method
	req.Path = path
	req.Version = version
	return nil
}

func parseHeaderLine(req *Request, line string) {
	colon := strings.IndexByte(line, ':')
	if colon < 0 {
		return
	}
	key := strings.TrimSpace(line[:colon])
	value := strings.TrimSpace(line[colon+1:])
	if key == "" {
		return
	}
	req.Headers[lowerASCII(key)] = value
}

// AttachBody copies buf[bodyStart:] into the request body, tolerating a
// short read: if fewer bytes are available than Content-Length promises,
// whatever is present is stored and no error is raised — the request is
// then routed with the partial body, matching HttpRequest::parseBody's
// "continuing with partial data" behavior.
func (r *Request) AttachBody(buf []byte, bodyStart int) {
	contentLength := r.ContentLength()
	if contentLength == 0 || r.HasLargeUpload() {
		return
	}
	available := 0
	if len(buf) > bodyStart {
		available = len(buf) - bodyStart
	}
	n := available
	if int64(n) > contentLength {
		n = int(contentLength)
	}
	if n <= 0 {
		return
	}
	r.Body = append([]byte(nil), buf[bodyStart:bodyStart+n]...)
}

// BodyComplete reports whether enough bytes have been attached to satisfy
// Content-Length (or there was never a body to begin with).
func (r *Request) BodyComplete() bool {
	return int64(len(r.Body)) >= r.ContentLength()
}
