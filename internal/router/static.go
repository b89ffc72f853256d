package router

import (
	"os"

	"github.com/ribana-b/webserv/internal/config"
	"github.com/ribana-b/webserv/internal/httpcodec"
)

// maxStaticFileSize is the "basic limit of 100MB for safety" from
// HttpServer::serveStaticFile.
const maxStaticFileSize = 100 * 1024 * 1024

// headPathRootTargetLimit / headPathFinalLimit are the HEAD-only
// path-length gates from HttpServer.cpp::determineHEADDocumentRoot /
// constructHEADFilePath (spec.md §4.4).
const (
	headPathRootTargetLimit = 800
	headPathFinalLimit      = 1000
)

// handleGET implements HttpServer::handleGET.
func (rt *Router) handleGET(req *httpcodec.Request, server *config.VirtualServer) *httpcodec.Response {
	requestPath := req.Path

	if !isPathSafe(requestPath) {
		rt.logger.Warn().Str("path", requestPath).Msg("unsafe path detected")
		return rt.errorResponse(httpcodec.StatusForbidden, server)
	}

	location := findMatchingLocation(server, requestPath)
	if !location.MethodAllowed("GET") {
		rt.logger.Warn().Str("path", requestPath).Msg("GET method not allowed for path")
		return rt.errorResponse(httpcodec.StatusMethodNotAllowed, server)
	}

	root, indexFile := effectiveRootAndIndex(location, server)
	cleanPath := stripQuery(requestPath)

	var filePath string
	if cleanPath == "/" {
		filePath = root + "/" + indexFile
	} else {
		filePath = root + cleanPath
	}

	info, err := os.Lstat(filePath)
	if err != nil {
		return rt.errorResponse(httpcodec.StatusNotFound, server)
	}

	switch {
	case info.Mode()&os.ModeSymlink != 0:
		rt.logger.Warn().Str("path", filePath).Msg("symbolic link rejected for security reasons")
		return rt.errorResponse(httpcodec.StatusForbidden, server)
	case info.Mode().IsRegular():
		if isCGIFile(filePath) {
			return rt.handleCGI(req, server, filePath)
		}
		return rt.serveStaticFile(filePath, server)
	case info.IsDir():
		return rt.generateDirectoryListing(filePath, requestPath, server)
	default:
		return rt.errorResponse(httpcodec.StatusForbidden, server)
	}
}

// serveStaticFile reads filePath whole and returns it as the response body,
// matching HttpServer::serveStaticFile's symlink/permission/size checks
// (the symlink check here is redundant with handleGET's Lstat but kept for
// parity with the original's independent re-check, and to cover callers
// that reach serveStaticFile directly).
func (rt *Router) serveStaticFile(filePath string, server *config.VirtualServer) *httpcodec.Response {
	linkInfo, err := os.Lstat(filePath)
	if err != nil {
		return rt.errorResponse(httpcodec.StatusNotFound, server)
	}
	if linkInfo.Mode()&os.ModeSymlink != 0 {
		rt.logger.Warn().Str("path", filePath).Msg("symbolic link rejected for security reasons")
		return rt.errorResponse(httpcodec.StatusForbidden, server)
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return rt.errorResponse(httpcodec.StatusNotFound, server)
	}
	if !info.Mode().IsRegular() {
		rt.logger.Warn().Str("path", filePath).Msg("not a regular file")
		return rt.errorResponse(httpcodec.StatusForbidden, server)
	}

	f, err := os.Open(filePath)
	if err != nil {
		rt.logger.Warn().Str("path", filePath).Msg("no read permission for file")
		return rt.errorResponse(httpcodec.StatusForbidden, server)
	}
	defer f.Close()

	if info.Size() > maxStaticFileSize {
		rt.logger.Warn().Str("path", filePath).Int64("size", info.Size()).Msg("file too large")
		return rt.errorResponse(httpcodec.StatusPayloadTooLarge, server)
	}

	body := make([]byte, info.Size())
	if _, err := readFull(f, body); err != nil {
		rt.logger.Error().Str("path", filePath).Msg("failed to load file content")
		return rt.errorResponse(httpcodec.StatusInternalError, server)
	}

	resp := httpcodec.NewResponse(httpcodec.StatusOK)
	resp.SetHeader("Content-Type", httpcodec.ContentTypeForPath(filePath))
	resp.SetBody(body)

	rt.logger.Info().Str("path", filePath).Int("bytes", len(body)).Msg("served file")
	return resp
}

func readFull(f *os.File, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := f.Read(buf[total:])
		total += n
		if err != nil {
			if total == len(buf) {
				return total, nil
			}
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}

// handleHEAD implements HttpServer::handleHEAD, including its extra
// path-length gates and symlink-check skip.
func (rt *Router) handleHEAD(req *httpcodec.Request, server *config.VirtualServer) *httpcodec.Response {
	requestPath := req.Path

	if !isPathSafe(requestPath) {
		rt.logger.Warn().Str("path", requestPath).Msg("unsafe path detected")
		return rt.errorResponse(httpcodec.StatusForbidden, server)
	}

	location := findMatchingLocation(server, requestPath)
	if !location.MethodAllowed("HEAD") {
		rt.logger.Warn().Str("path", requestPath).Msg("HEAD method not allowed for path")
		return rt.errorResponse(httpcodec.StatusMethodNotAllowed, server)
	}

	root, indexFile := effectiveRootAndIndex(location, server)
	if root == "" {
		root = config.DefaultDocumentRoot
	}

	if len(root)+len(requestPath) > headPathRootTargetLimit {
		rt.logger.Error().Msg("HEAD: combined path would be too long")
		return rt.errorResponse(httpcodec.StatusURITooLong, server)
	}

	var filePath string
	if requestPath == "/" {
		filePath = root + "/" + indexFile
	} else {
		filePath = root + requestPath
	}

	if len(filePath) > headPathFinalLimit {
		rt.logger.Error().Int("length", len(filePath)).Msg("HEAD: final filePath too long")
		return rt.errorResponse(httpcodec.StatusURITooLong, server)
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return rt.errorResponse(httpcodec.StatusNotFound, server)
	}

	switch {
	case info.Mode().IsRegular():
		resp := httpcodec.NewResponse(httpcodec.StatusOK)
		resp.SetHeader("Content-Type", httpcodec.ContentTypeForPath(filePath))
		resp.SetHeader("Content-Length", itoa64(info.Size()))
		return resp
	case info.IsDir():
		resp := httpcodec.NewResponse(httpcodec.StatusOK)
		resp.SetHeader("Content-Type", "text/html")
		return resp
	default:
		return rt.errorResponse(httpcodec.StatusForbidden, server)
	}
}
