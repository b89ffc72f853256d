package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ParseError carries the offending token from a malformed directive,
// replacing the exceptions thrown by the original parser's
// parseListen/parseClientMaxBodySize/handleAutoindex.
type ParseError struct {
	Directive string
	Token     string
	Reason    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("config: invalid %s directive (token %q): %s", e.Directive, e.Token, e.Reason)
}

// WarnFunc receives a warning message for a condition the parser tolerates
// (an unknown directive or context) rather than rejects.
type WarnFunc func(format string, args ...any)

func noopWarn(string, ...any) {}

// parseListen parses "A.B.C.D:PORT" or "PORT" (implying 0.0.0.0), matching
// original_source/src/Config.cpp::parseListen.
func parseListen(value string) (ListenEndpoint, error) {
	if strings.Contains(value, "-") {
		return ListenEndpoint{}, &ParseError{"listen", value, "ranges are not supported"}
	}

	colon := strings.IndexByte(value, ':')
	if colon < 0 {
		port, err := strconv.ParseUint(value, 10, 16)
		if err != nil {
			return ListenEndpoint{}, &ParseError{"listen", value, "invalid port"}
		}
		return ListenEndpoint{IP: 0, Port: uint16(port)}, nil
	}

	ipStr, portStr := value[:colon], value[colon+1:]
	ip, err := parseIPv4(ipStr)
	if err != nil {
		return ListenEndpoint{}, &ParseError{"listen", value, err.Error()}
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return ListenEndpoint{}, &ParseError{"listen", value, "invalid port"}
	}
	return ListenEndpoint{IP: ip, Port: uint16(port)}, nil
}

func parseIPv4(s string) (uint32, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return 0, fmt.Errorf("invalid IPv4 address %q", s)
	}
	var ip uint32
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v > 255 {
			return 0, fmt.Errorf("invalid octet %q in %q", p, s)
		}
		ip |= uint32(v) << uint(24-8*i)
	}
	return ip, nil
}

// parseClientMaxBodySize parses "N[m|M]" megabytes; a missing unit is an
// error (spec.md §6), matching Config.cpp::parseClientMaxBodySize.
func parseClientMaxBodySize(value string) (int64, error) {
	if value == "" {
		return 0, nil
	}
	if len(value) < 2 {
		return 0, &ParseError{"client_max_body_size", value, "missing unit"}
	}
	unit := value[len(value)-1]
	if unit != 'm' && unit != 'M' {
		return 0, &ParseError{"client_max_body_size", value, "missing or invalid unit (expected m/M)"}
	}
	n, err := strconv.ParseInt(value[:len(value)-1], 10, 64)
	if err != nil {
		return 0, &ParseError{"client_max_body_size", value, "invalid number"}
	}
	return n * 1024 * 1024, nil
}

// parserState tracks the (at most one level deep) server/location nesting,
// matching the original's single inLocation bool rather than a general
// block stack.
type parserState struct {
	model       Model
	server      VirtualServer
	location    Location
	inLocation  bool
	warn        WarnFunc
}

func (p *parserState) closeContext() {
	if p.inLocation {
		p.location.Index = sanitizeIndexList(p.location.Index)
		p.server.Locations = append(p.server.Locations, p.location)
		p.location = Location{}
		p.inLocation = false
		return
	}
	p.server.Index = sanitizeIndexList(p.server.Index)
	p.model.Servers = append(p.model.Servers, p.server)
	p.server = VirtualServer{}
}

func (p *parserState) handleListen(fields []string) error {
	if len(fields) < 2 {
		return &ParseError{"listen", "", "missing value"}
	}
	l, err := parseListen(strings.TrimSuffix(fields[1], ";"))
	if err != nil {
		return err
	}
	p.server.Listens = append(p.server.Listens, l)
	return nil
}

func (p *parserState) handleRoot(fields []string) error {
	if len(fields) < 2 {
		return &ParseError{"root", "", "missing value"}
	}
	root := strings.TrimSuffix(fields[1], ";")
	if p.inLocation {
		p.location.Root = root
	} else {
		p.server.Root = root
	}
	return nil
}

func (p *parserState) handleErrorPage(fields []string) error {
	if len(fields) < 3 {
		return &ParseError{"error_page", strings.Join(fields, " "), "expected CODE PATH"}
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil {
		return &ParseError{"error_page", fields[1], "invalid status code"}
	}
	if p.server.ErrorPages == nil {
		p.server.ErrorPages = make(map[int]string)
	}
	p.server.ErrorPages[code] = strings.TrimSuffix(fields[2], ";")
	return nil
}

func (p *parserState) handleLocation(fields []string) error {
	if len(fields) < 2 {
		return &ParseError{"location", "", "missing path"}
	}
	p.inLocation = true
	p.location = Location{Path: fields[1]}
	return nil
}

func (p *parserState) handleIndex(fields []string) {
	values := trimTrailingSemicolon(fields[1:])
	if p.inLocation {
		p.location.Index = values
	} else {
		p.server.Index = values
	}
}

func (p *parserState) handleAutoindex(fields []string) error {
	if len(fields) < 2 {
		return &ParseError{"autoindex", "", "missing value"}
	}
	value := strings.TrimSuffix(fields[1], ";")
	switch value {
	case "on":
		p.location.Autoindex = true
	case "off":
		p.location.Autoindex = false
	default:
		return &ParseError{"autoindex", value, "expected on/off"}
	}
	return nil
}

func (p *parserState) handleAllowMethods(fields []string) {
	values := trimTrailingSemicolon(fields[1:])
	if p.location.AllowMethods == nil {
		p.location.AllowMethods = make(map[string]struct{}, len(values))
	}
	for _, v := range values {
		p.location.AllowMethods[v] = struct{}{}
	}
}

func (p *parserState) handleClientMaxBodySize(fields []string) error {
	if len(fields) < 2 {
		return &ParseError{"client_max_body_size", "", "missing value"}
	}
	size, err := parseClientMaxBodySize(strings.TrimSuffix(fields[1], ";"))
	if err != nil {
		return err
	}
	p.location.MaxBodySize = size
	return nil
}

func trimTrailingSemicolon(fields []string) []string {
	out := make([]string, len(fields))
	copy(out, fields)
	if n := len(out); n > 0 {
		out[n-1] = strings.TrimSuffix(out[n-1], ";")
	}
	return out
}

// parseLine dispatches a single directive line, matching
// original_source/src/Config.cpp::parseLine.
func (p *parserState) parseLine(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	key := fields[0]

	switch key {
	case "server", "{":
		return nil
	case "}":
		p.closeContext()
		return nil
	case "listen":
		return p.handleListen(fields)
	case "root":
		return p.handleRoot(fields)
	case "error_page":
		return p.handleErrorPage(fields)
	case "location":
		return p.handleLocation(fields)
	case "index":
		p.handleIndex(fields)
		return nil
	case "autoindex":
		return p.handleAutoindex(fields)
	case "allow_methods":
		p.handleAllowMethods(fields)
		return nil
	case "client_max_body_size":
		return p.handleClientMaxBodySize(fields)
	default:
		p.warn("config: unknown directive/context %q", key)
		return nil
	}
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		return line[:i]
	}
	return line
}

// Parse reads the directive grammar from r, matching Config.cpp::load.
func Parse(r io.Reader, warn WarnFunc) (*Model, error) {
	if warn == nil {
		warn = noopWarn
	}
	state := &parserState{warn: warn}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(stripComment(scanner.Text()))
		if line == "" {
			continue
		}
		if err := state.parseLine(line); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return &state.model, nil
}

// Load reads and parses the config file at path.
func Load(path string, warn WarnFunc) (*Model, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("config: cannot stat %q: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config: %q is not a valid config file", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: cannot open %q: %w", path, err)
	}
	defer f.Close()

	return Parse(f, warn)
}

// defaultConfigFilename matches Config::defaultConfigFilename.
const defaultConfigFilename = "default.conf"

// searchPaths matches Config::searchConfigFile's candidate directories,
// relative to the directory containing the running binary.
var searchPaths = []string{"config", "config/valid"}

// SearchConfigFile reproduces original_source/src/Config.cpp::searchConfigFile:
// the executable's own path must contain the substring "webserv" (everything
// before its first occurrence is treated as the project base directory), under
// which ./config/ and ./config/valid/ are searched for default.conf.
func SearchConfigFile(programPath string) (string, error) {
	idx := strings.Index(programPath, "webserv")
	if idx < 0 {
		return "", fmt.Errorf("config: %q does not contain \"webserv\"", programPath)
	}
	base := programPath[:idx]

	for _, dir := range searchPaths {
		candidate := filepath.Join(base, dir, defaultConfigFilename)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("config: no %s found under %v relative to %q", defaultConfigFilename, searchPaths, base)
}
