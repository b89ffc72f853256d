// Package config holds the immutable in-memory representation of virtual
// servers, listen endpoints, locations, error pages, method allow-lists and
// body-size caps that the router and multiplexer consume.
//
// A Model is built once at startup by Load and never mutated afterward; the
// router and multiplexer only ever read through pointers into it.
package config

import "fmt"

// DefaultDocumentRoot is substituted whenever a server or location leaves
// its root empty.
const DefaultDocumentRoot = "./html"

// DefaultIndexFile is substituted when no usable index file name survives
// validation.
const DefaultIndexFile = "index.html"

// maxIndexNameLength is the longest an index file name may be before it is
// rejected and DefaultIndexFile is substituted instead (spec.md §3).
const maxIndexNameLength = 100

// ListenEndpoint is an IPv4 address (host byte order) and TCP port a
// VirtualServer advertises.
type ListenEndpoint struct {
	IP   uint32 // host byte order, e.g. 0x00000000 for 0.0.0.0
	Port uint16
}

func (l ListenEndpoint) String() string {
	return fmt.Sprintf("%d.%d.%d.%d:%d",
		(l.IP>>24)&0xFF, (l.IP>>16)&0xFF, (l.IP>>8)&0xFF, l.IP&0xFF, l.Port)
}

// Location is a URL-path-prefix configuration block overriding a server's
// defaults for matching requests.
type Location struct {
	Path          string
	Root          string
	Index         []string
	Autoindex     bool
	AllowMethods  map[string]struct{} // empty/nil means all methods allowed
	MaxBodySize   int64               // bytes, 0 = unbounded
}

// MethodAllowed reports whether method is permitted by this location's
// allow-list. A nil location or an empty allow-list permits every method.
func (l *Location) MethodAllowed(method string) bool {
	if l == nil || len(l.AllowMethods) == 0 {
		return true
	}
	_, ok := l.AllowMethods[method]
	return ok
}

// EffectiveRoot returns l.Root, falling back to server's root and finally
// DefaultDocumentRoot.
func (l *Location) EffectiveRoot(server *VirtualServer) string {
	if l != nil && l.Root != "" {
		return l.Root
	}
	if server.Root != "" {
		return server.Root
	}
	return DefaultDocumentRoot
}

// EffectiveIndex returns l.Index, falling back to server's index list and
// finally []string{DefaultIndexFile}.
func (l *Location) EffectiveIndex(server *VirtualServer) []string {
	if l != nil && len(l.Index) > 0 {
		return l.Index
	}
	if len(server.Index) > 0 {
		return server.Index
	}
	return []string{DefaultIndexFile}
}

// VirtualServer is a configuration group handling requests for one or more
// listen endpoints.
type VirtualServer struct {
	Listens    []ListenEndpoint
	Root       string
	Index      []string
	Locations  []Location
	ErrorPages map[int]string // status code -> file path
}

// ListensOnPort reports whether this server has a ListenEndpoint on port.
func (s *VirtualServer) ListensOnPort(port uint16) bool {
	for _, l := range s.Listens {
		if l.Port == port {
			return true
		}
	}
	return false
}

// Model is the immutable, fully-parsed configuration: the ordered list of
// virtual servers exactly as declared in the config file.
type Model struct {
	Servers []VirtualServer
}

// sanitizeIndexList rejects any entry containing ".." or longer than
// maxIndexNameLength, substituting DefaultIndexFile for the whole list if
// every candidate is empty after filtering (spec.md §3 invariant).
func sanitizeIndexList(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if len(n) > maxIndexNameLength || containsDotDot(n) {
			continue
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return []string{DefaultIndexFile}
	}
	return out
}

func containsDotDot(s string) bool {
	for i := 0; i+1 < len(s); i++ {
		if s[i] == '.' && s[i+1] == '.' {
			return true
		}
	}
	return false
}
