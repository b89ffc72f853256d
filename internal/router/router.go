// Package router implements request routing: virtual-server/location
// selection, static file serving, directory listing, uploads, deletes and
// CGI invocation. It is grounded throughout on
// original_source/src/HttpServer.cpp, generalizing its C++ class into a
// stateless-per-request Go type plus the process-wide upload counter
// spec.md §9 calls for ("global state via in-process singletons").
package router

import (
	"strings"
	"sync/atomic"

	"github.com/ribana-b/webserv/internal/config"
	"github.com/ribana-b/webserv/internal/httpcodec"
	"github.com/ribana-b/webserv/internal/logging"
)

// Router dispatches parsed requests to the handler for their method,
// matching HttpServer::processRequest.
type Router struct {
	model         *config.Model
	logger        *logging.Logger
	uploadCounter uint64
}

// New builds a Router over an immutable ConfigModel.
func New(model *config.Model, logger *logging.Logger) *Router {
	return &Router{model: model, logger: logger}
}

// Route processes one request arriving on serverPort, matching
// HttpServer::processRequest's method dispatch.
func (rt *Router) Route(req *httpcodec.Request, serverPort int) *httpcodec.Response {
	rt.logger.Info().
		Str("method", req.Method).
		Str("path", req.Path).
		Int("port", serverPort).
		Msg("processing request")

	server := rt.findMatchingServer(serverPort)
	if server == nil {
		rt.logger.Error().Int("port", serverPort).Msg("no server configuration found for port")
		return errorResponseWithoutServer(httpcodec.StatusInternalError, "Server configuration error")
	}

	switch req.Method {
	case "GET":
		return rt.handleGET(req, server)
	case "POST":
		return rt.handlePOST(req, server)
	case "DELETE":
		return rt.handleDELETE(req, server)
	case "HEAD":
		return rt.handleHEAD(req, server)
	}

	rt.logger.Warn().Str("method", req.Method).Msg("method not allowed")
	return rt.errorResponse(httpcodec.StatusMethodNotAllowed, server)
}

// findMatchingServer selects the VirtualServer listening on port, matching
// HttpServer::findMatchingServer.
func (rt *Router) findMatchingServer(port int) *config.VirtualServer {
	for i := range rt.model.Servers {
		if rt.model.Servers[i].ListensOnPort(uint16(port)) {
			return &rt.model.Servers[i]
		}
	}
	rt.logger.Warn().Int("port", port).Msg("findMatchingServer: no server found")
	return nil
}

// findMatchingLocation picks the longest-prefix-matching Location, matching
// HttpServer::findMatchingLocation.
func findMatchingLocation(server *config.VirtualServer, path string) *config.Location {
	var best *config.Location
	bestLen := 0

	for i := range server.Locations {
		loc := &server.Locations[i]
		if loc.Path == "" {
			continue
		}
		if strings.HasPrefix(path, loc.Path) && len(loc.Path) > bestLen {
			best = loc
			bestLen = len(loc.Path)
		}
	}
	return best
}

// isPathSafe rejects any target containing ".." or not starting with "/",
// matching HttpServer::isPathSafe.
func isPathSafe(path string) bool {
	if strings.Contains(path, "..") {
		return false
	}
	return path != "" && path[0] == '/'
}

// isCGIFile reports whether filePath's extension routes to the CGI
// handler, matching HttpServer::isCGIFile.
func isCGIFile(filePath string) bool {
	dot := strings.LastIndexByte(filePath, '.')
	if dot < 0 {
		return false
	}
	switch filePath[dot:] {
	case ".php", ".py", ".cgi", ".pl":
		return true
	}
	return false
}

// stripQuery removes everything from the first '?' onward.
func stripQuery(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}

// effectiveRootAndIndex resolves root/index-file[0] the way
// HttpServer::handleGET and determineHEADDocumentRoot do: prefer the
// location's own root/index, falling back to the server's, with
// "./html"/"index.html" as the last resort.
func effectiveRootAndIndex(location *config.Location, server *config.VirtualServer) (string, string) {
	root := location.EffectiveRoot(server)
	index := location.EffectiveIndex(server)
	first := config.DefaultIndexFile
	if len(index) > 0 {
		first = index[0]
	}
	return root, first
}

func nextUploadCounter(rt *Router) uint64 {
	return atomic.AddUint64(&rt.uploadCounter, 1)
}
