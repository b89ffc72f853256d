package router

import (
	"os"

	"github.com/ribana-b/webserv/internal/config"
	"github.com/ribana-b/webserv/internal/httpcodec"
)

// handleDELETE implements HttpServer::handleDELETE.
func (rt *Router) handleDELETE(req *httpcodec.Request, server *config.VirtualServer) *httpcodec.Response {
	requestPath := stripQuery(req.Path)

	if !isPathSafe(requestPath) {
		rt.logger.Warn().Str("path", req.Path).Msg("unsafe path detected")
		return rt.errorResponse(httpcodec.StatusForbidden, server)
	}

	location := findMatchingLocation(server, requestPath)
	if !location.MethodAllowed("DELETE") {
		rt.logger.Warn().Str("path", requestPath).Msg("DELETE method not allowed for path")
		return rt.errorResponse(httpcodec.StatusMethodNotAllowed, server)
	}

	root, _ := effectiveRootAndIndex(location, server)
	filePath := root + requestPath

	info, err := os.Lstat(filePath)
	if err != nil {
		return rt.errorResponse(httpcodec.StatusNotFound, server)
	}
	if info.Mode()&os.ModeSymlink != 0 || info.IsDir() {
		rt.logger.Warn().Str("path", filePath).Msg("refusing to delete symlink or directory")
		return rt.errorResponse(httpcodec.StatusForbidden, server)
	}

	if err := os.Remove(filePath); err != nil {
		rt.logger.Error().Err(err).Str("path", filePath).Msg("failed to delete file")
		return rt.errorResponse(httpcodec.StatusInternalError, server)
	}

	rt.logger.Info().Str("path", filePath).Msg("file deleted")

	resp := httpcodec.NewResponse(httpcodec.StatusOK)
	resp.SetHeader("Content-Type", "text/html; charset=utf-8")
	resp.SetBodyString("<!DOCTYPE html><html><head><title>File Deleted</title></head>" +
		"<body><h1>File Deleted</h1><p>" + filePath + " was removed.</p></body></html>")
	return resp
}
