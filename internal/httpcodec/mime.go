package httpcodec

import "strings"

// mimeTypes is the single MIME table shared by GET and HEAD, matching
// original_source/src/HttpResponse.cpp::getContentType. spec.md §4.3 calls
// for one unified table; the original's separate, abbreviated HEAD table is
// not reproduced (see SPEC_FULL.md §3).
var mimeTypes = map[string]string{
	".html": "text/html; charset=utf-8",
	".htm":  "text/html; charset=utf-8",
	".css":  "text/css",
	".js":   "application/javascript",
	".json": "application/json",
	".xml":  "application/xml",
	".txt":  "text/plain; charset=utf-8",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".pdf":  "application/pdf",
	".zip":  "application/zip",
}

// ContentTypeForPath returns the MIME type for path's extension, or
// "application/octet-stream" if unknown or absent.
func ContentTypeForPath(path string) string {
	dot := strings.LastIndexByte(path, '.')
	if dot < 0 {
		return "application/octet-stream"
	}
	ext := strings.ToLower(path[dot:])
	if ct, ok := mimeTypes[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}
