package router

import (
	"bytes"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/ribana-b/webserv/internal/config"
	"github.com/ribana-b/webserv/internal/httpcodec"
)

// interpreterFor picks the external interpreter for filePath's extension,
// matching HttpServer::handleCGI's dispatch table. ".cgi" scripts are
// executed directly.
func interpreterFor(filePath string) (string, bool) {
	dot := strings.LastIndexByte(filePath, '.')
	if dot < 0 {
		return "", false
	}
	switch filePath[dot:] {
	case ".php":
		return "php-cgi", true
	case ".py":
		return "python3", true
	case ".pl":
		return "perl", true
	case ".cgi":
		return "", true
	}
	return "", false
}

// handleCGI invokes filePath as a CGI script with the standard CGI/1.1
// environment, piping the request body to stdin for POST requests and
// draining stdout directly as the response body. cmd.Wait blocks the event
// loop for as long as the subprocess runs: HttpServer::handleCGI has no
// timeout either, and spec.md's Design Notes call this blocking a deliberate
// simplification a faithful rewrite should preserve rather than patch over
// with a kill-on-timeout that the original never had. Response-header
// parsing (the CGI convention of a script emitting its own
// "Status:"/"Content-Type:" header block) is likewise deliberately NOT
// implemented: the original treats CGI output as an opaque body and always
// returns 200 on a clean exit, 500 otherwise, matching HttpServer::handleCGI.
func (rt *Router) handleCGI(req *httpcodec.Request, server *config.VirtualServer, filePath string) *httpcodec.Response {
	interpreter, ok := interpreterFor(filePath)
	if !ok {
		rt.logger.Warn().Str("path", filePath).Msg("unsupported CGI extension")
		return rt.errorResponse(httpcodec.StatusForbidden, server)
	}

	var cmd *exec.Cmd
	if interpreter != "" {
		cmd = exec.Command(interpreter, filePath)
	} else {
		cmd = exec.Command(filePath)
	}
	cmd.Env = cgiEnviron(req, filePath)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		rt.logger.Error().Err(err).Msg("failed to open CGI stdin pipe")
		return rt.errorResponse(httpcodec.StatusInternalError, server)
	}
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Start(); err != nil {
		rt.logger.Error().Err(err).Str("interpreter", interpreter).Msg("failed to start CGI process")
		return rt.errorResponse(httpcodec.StatusInternalError, server)
	}

	if req.Method == "POST" && len(req.Body) > 0 {
		go func() {
			io.Copy(stdin, bytes.NewReader(req.Body))
			stdin.Close()
		}()
	} else {
		stdin.Close()
	}

	if err := cmd.Wait(); err != nil {
		rt.logger.Error().Err(err).Str("path", filePath).Msg("CGI script exited with error")
		return rt.errorResponse(httpcodec.StatusInternalError, server)
	}

	resp := httpcodec.NewResponse(httpcodec.StatusOK)
	resp.SetHeader("Content-Type", "text/html")
	resp.SetBody(stdout.Bytes())

	rt.logger.Info().Str("path", filePath).Int("bytes", stdout.Len()).Msg("CGI script executed")
	return resp
}

// cgiEnviron builds the CGI/1.1 environment variables HttpServer::handleCGI
// sets before exec'ing the interpreter.
func cgiEnviron(req *httpcodec.Request, filePath string) []string {
	env := []string{
		"REQUEST_METHOD=" + req.Method,
		"QUERY_STRING=" + queryString(req.Path),
		"PATH_INFO=" + stripQuery(req.Path),
		"CONTENT_LENGTH=" + strconv.FormatInt(req.ContentLength(), 10),
		"CONTENT_TYPE=" + req.Header("Content-Type"),
		"SCRIPT_NAME=" + filePath,
		"SERVER_SOFTWARE=webserv/1.0",
		"SERVER_NAME=localhost",
		"SERVER_PORT=8080",
		"HTTP_HOST=" + req.Header("Host"),
		"HTTP_USER_AGENT=" + req.Header("User-Agent"),
		"GATEWAY_INTERFACE=CGI/1.1",
		"SERVER_PROTOCOL=" + req.Version,
	}
	return env
}

func queryString(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[i+1:]
	}
	return ""
}
