package router

import (
	"os"
	"strings"

	"github.com/ribana-b/webserv/internal/config"
	"github.com/ribana-b/webserv/internal/httpcodec"
	"github.com/ribana-b/webserv/internal/upload"
)

// uploadRoute is the literal path HttpServer::handleFileUpload compares
// against the raw, still-possibly-query-suffixed requestPath. "/upload?x=1"
// deliberately does NOT match, falling through to the generic POST
// acknowledgement below — preserved faithfully from the original.
const uploadRoute = "/upload"

// handlePOST implements HttpServer::handleFileUpload /
// HttpServer::validatePOSTRequest.
func (rt *Router) handlePOST(req *httpcodec.Request, server *config.VirtualServer) *httpcodec.Response {
	requestPath := stripQuery(req.Path)

	if !isPathSafe(requestPath) {
		rt.logger.Warn().Str("path", req.Path).Msg("unsafe path detected")
		return rt.errorResponse(httpcodec.StatusForbidden, server)
	}

	location := findMatchingLocation(server, requestPath)
	if !location.MethodAllowed("POST") {
		rt.logger.Warn().Str("path", requestPath).Msg("POST method not allowed for path")
		return rt.errorResponse(httpcodec.StatusMethodNotAllowed, server)
	}

	var limit int64 // no matching location: no body-size cap applies
	if location != nil {
		limit = location.MaxBodySize
	}
	if limit > 0 && req.ContentLength() > limit {
		rt.logger.Warn().Int64("limit", limit).Int64("length", req.ContentLength()).
			Msg("request body exceeds configured limit")
		return rt.errorResponse(httpcodec.StatusPayloadTooLarge, server)
	}

	root, _ := effectiveRootAndIndex(location, server)
	if isCGIFile(root + requestPath) {
		return rt.handleCGI(req, server, root+requestPath)
	}

	if req.Path != uploadRoute {
		return genericPOSTAcknowledgement()
	}

	return rt.processUpload(req, server)
}

// processUpload implements HttpServer::processLargeFileUpload /
// processRegularFileUpload, dispatching on whether the multiplexer already
// streamed the body to a temp file.
func (rt *Router) processUpload(req *httpcodec.Request, server *config.VirtualServer) *httpcodec.Response {
	if req.HasLargeUpload() {
		return rt.finalizeLargeUpload(req, server)
	}
	return rt.finalizeRegularUpload(req, server)
}

func (rt *Router) finalizeLargeUpload(req *httpcodec.Request, server *config.VirtualServer) *httpcodec.Response {
	counter := nextUploadCounter(rt)
	destination := uploadDestination(counter, true)

	if err := upload.MoveFile(req.TempFilePath, destination); err != nil {
		rt.logger.Error().Err(err).Str("temp", req.TempFilePath).Msg("failed to finalize large upload")
		return rt.errorResponse(httpcodec.StatusInternalError, server)
	}

	rt.logger.Info().Str("destination", destination).Int64("bytes", req.ContentLength()).
		Msg("large upload finalized")
	return uploadSuccessResponse(destination, req.ContentLength())
}

func (rt *Router) finalizeRegularUpload(req *httpcodec.Request, server *config.VirtualServer) *httpcodec.Response {
	if len(req.Body) == 0 {
		rt.logger.Warn().Msg("upload request had an empty body")
		return rt.errorResponse(httpcodec.StatusBadRequest, server)
	}

	counter := nextUploadCounter(rt)
	destination := uploadDestination(counter, false)

	if err := os.WriteFile(destination, req.Body, 0o644); err != nil {
		rt.logger.Error().Err(err).Str("destination", destination).Msg("failed to write uploaded file")
		return rt.errorResponse(httpcodec.StatusInternalError, server)
	}

	rt.logger.Info().Str("destination", destination).Int("bytes", len(req.Body)).Msg("upload saved")
	return uploadSuccessResponse(destination, int64(len(req.Body)))
}

// uploadDestination builds "./html/uploaded_<counter>[_large].{bin,txt}",
// choosing the extension the way HttpServer::handleFileUpload does: ".bin"
// for streamed large uploads, ".txt" for inline bodies.
func uploadDestination(counter uint64, large bool) string {
	var b strings.Builder
	b.WriteString(config.DefaultDocumentRoot)
	b.WriteString("/uploaded_")
	b.WriteString(itoa64(int64(counter)))
	if large {
		b.WriteString("_large.bin")
	} else {
		b.WriteString(".txt")
	}
	return b.String()
}

func uploadSuccessResponse(destination string, size int64) *httpcodec.Response {
	resp := httpcodec.NewResponse(httpcodec.StatusOK)
	resp.SetHeader("Content-Type", "text/html; charset=utf-8")
	resp.SetBodyString("<!DOCTYPE html><html><head><title>Upload Successful</title></head>" +
		"<body><h1>Upload Successful</h1><p>Saved " + itoa64(size) + " bytes to " + destination +
		"</p></body></html>")
	return resp
}

// genericPOSTAcknowledgement matches HttpServer's fallback plaintext
// response for POST requests outside /upload.
func genericPOSTAcknowledgement() *httpcodec.Response {
	resp := httpcodec.NewResponse(httpcodec.StatusOK)
	resp.SetHeader("Content-Type", "text/plain")
	resp.SetBodyString("POST request processed successfully\n")
	return resp
}
