package router

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/valyala/fasttemplate"

	"github.com/ribana-b/webserv/internal/config"
	"github.com/ribana-b/webserv/internal/httpcodec"
)

const (
	bytesPerKB = 1024
)

// directoryPageTemplate mirrors generateHTMLHeader/generateDirectoryHTML's
// fixed layout from HttpServer.cpp.
const directoryPageTemplate = `<!DOCTYPE html>
<html><head>
<title>Directory listing for {{path}}</title>
<style>
  body { font-family: monospace; margin: 40px; }
  h1 { color: #333; border-bottom: 1px solid #ccc; padding-bottom: 10px; }
  .directory { color: #0066cc; font-weight: bold; }
  .file { color: #000; }
  a { text-decoration: none; display: block; padding: 2px 0; }
  a:hover { background-color: #f0f0f0; }
  .size { color: #666; float: right; }
</style>
</head><body>
<h1>Directory listing for {{path}}</h1>
{{parent}}{{entries}}</body></html>`

// generateDirectoryListing implements HttpServer::generateDirectoryListing.
func (rt *Router) generateDirectoryListing(dirPath, requestPath string, server *config.VirtualServer) *httpcodec.Response {
	dirs, files, err := collectDirectoryEntries(dirPath)
	if err != nil {
		rt.logger.Warn().Str("path", dirPath).Msg("cannot open directory")
		return rt.errorResponse(httpcodec.StatusForbidden, server)
	}

	html := fasttemplate.ExecuteString(directoryPageTemplate, "{{", "}}", map[string]interface{}{
		"path":    requestPath,
		"parent":  parentDirectoryLink(requestPath),
		"entries": directoryEntries(requestPath, dirPath, dirs) + fileEntries(requestPath, dirPath, files),
	})

	resp := httpcodec.NewResponse(httpcodec.StatusOK)
	resp.SetHeader("Content-Type", "text/html; charset=utf-8")
	resp.SetBodyString(html)

	rt.logger.Info().Str("path", requestPath).Int("dirs", len(dirs)).Int("files", len(files)).
		Msg("generated directory listing")
	return resp
}

// collectDirectoryEntries matches HttpServer::collectDirectoryEntries:
// classify by stat, excluding "." and "..", sorted alphabetically.
func collectDirectoryEntries(dirPath string) (dirs, files []string, err error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, nil, err
	}
	for _, e := range entries {
		name := e.Name()
		if name == "." || name == ".." {
			continue
		}
		if info, serr := os.Stat(filepath.Join(dirPath, name)); serr == nil && info.IsDir() {
			dirs = append(dirs, name)
		} else {
			files = append(files, name)
		}
	}
	sort.Strings(dirs)
	sort.Strings(files)
	return dirs, files, nil
}

func parentDirectoryLink(requestPath string) string {
	if requestPath == "/" {
		return ""
	}
	parent := strings.TrimSuffix(requestPath, "/")
	if i := strings.LastIndexByte(parent, '/'); i >= 0 {
		parent = parent[:i]
	}
	if parent == "" {
		parent = "/"
	}
	return `<a href="` + parent + `" class="directory">[Parent Directory]</a>` + "\n"
}

func directoryEntries(requestPath, dirPath string, dirs []string) string {
	var b strings.Builder
	for _, name := range dirs {
		link := requestPath
		if !strings.HasSuffix(link, "/") {
			link += "/"
		}
		link += name
		b.WriteString(`<a href="` + link + `/" class="directory">` + name + `/<span class="size">[DIR]</span></a>` + "\n")
	}
	return b.String()
}

func fileEntries(requestPath, dirPath string, files []string) string {
	var b strings.Builder
	for _, name := range files {
		link := requestPath
		if !strings.HasSuffix(link, "/") {
			link += "/"
		}
		link += name

		size := ""
		if info, err := os.Stat(filepath.Join(dirPath, name)); err == nil {
			size = `<span class="size">` + formatFileSize(info.Size()) + `</span>`
		}
		b.WriteString(`<a href="` + link + `" class="file">` + name + size + `</a>` + "\n")
	}
	return b.String()
}

// formatFileSize matches HttpServer::formatFileSize.
func formatFileSize(size int64) string {
	switch {
	case size < bytesPerKB:
		return itoa64(size) + "B"
	case size < bytesPerKB*bytesPerKB:
		return itoa64(size/bytesPerKB) + "KB"
	default:
		return itoa64(size/(bytesPerKB*bytesPerKB)) + "MB"
	}
}
