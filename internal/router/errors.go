package router

import (
	"os"
	"strconv"

	"github.com/valyala/fasttemplate"

	"github.com/ribana-b/webserv/internal/config"
	"github.com/ribana-b/webserv/internal/httpcodec"
)

// builtinErrorTemplate is the fallback page for a status code, matching the
// fixed templates in HttpResponse::createNotFound/createInternalError/
// createBadRequest/createMethodNotAllowed and their implied 413 sibling.
// {{code}} and {{message}} are substituted via fasttemplate.
const builtinErrorTemplate = `<!DOCTYPE html><html><head><title>{{code}} {{message}}</title></head>` +
	`<body><h1>{{code}} {{message}}</h1><p>{{detail}}</p></body></html>`

var errorDetails = map[int]string{
	httpcodec.StatusBadRequest:       "The request was malformed.",
	httpcodec.StatusForbidden:        "Access to this resource is forbidden.",
	httpcodec.StatusNotFound:         "The requested resource was not found.",
	httpcodec.StatusMethodNotAllowed: "The requested method is not allowed.",
	httpcodec.StatusPayloadTooLarge:  "The request body exceeds the configured limit.",
	httpcodec.StatusURITooLong:       "The request path is too long.",
	httpcodec.StatusInternalError:    "The server encountered an error.",
}

// errorResponse resolves statusCode against server's custom error pages,
// falling back to a built-in template, matching
// HttpServer::createErrorResponse.
func (rt *Router) errorResponse(statusCode int, server *config.VirtualServer) *httpcodec.Response {
	if server != nil {
		if path, ok := server.ErrorPages[statusCode]; ok {
			if resp, ok := rt.tryCustomErrorPage(statusCode, path); ok {
				return resp
			}
			rt.logger.Warn().Int("status", statusCode).Str("path", path).
				Msg("custom error page not accessible")
		}
	}
	return builtinErrorResponse(statusCode)
}

// BadRequestResponse builds the built-in 400 response for requests the
// codec could not parse at all (malformed request line, unknown method,
// unsupported version) — failures the multiplexer detects before a Router
// even has bytes worth routing, matching spec.md §7's "Parse errors in the
// Codec ... Router responds 400".
func (rt *Router) BadRequestResponse() *httpcodec.Response {
	return builtinErrorResponse(httpcodec.StatusBadRequest)
}

// errorResponseWithoutServer builds a built-in error response for failures
// that occur before a VirtualServer has even been selected (e.g. no server
// configured for the connecting port).
func errorResponseWithoutServer(statusCode int, detail string) *httpcodec.Response {
	resp := builtinErrorResponse(statusCode)
	if detail != "" {
		resp.SetBodyString(renderErrorPage(statusCode, detail))
	}
	return resp
}

func (rt *Router) tryCustomErrorPage(statusCode int, path string) (*httpcodec.Response, bool) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, false
	}
	body, err := os.ReadFile(path)
	if err != nil || len(body) == 0 {
		return nil, false
	}

	resp := httpcodec.NewResponse(statusCode)
	resp.SetHeader("Content-Type", httpcodec.ContentTypeForPath(path))
	resp.SetBody(body)
	return resp, true
}

func builtinErrorResponse(statusCode int) *httpcodec.Response {
	resp := httpcodec.NewResponse(statusCode)
	resp.SetHeader("Content-Type", "text/html; charset=utf-8")
	resp.SetBodyString(renderErrorPage(statusCode, errorDetails[statusCode]))
	return resp
}

func renderErrorPage(statusCode int, detail string) string {
	if detail == "" {
		detail = errorDetails[httpcodec.StatusInternalError]
	}
	return fasttemplate.ExecuteString(builtinErrorTemplate, "{{", "}}", map[string]interface{}{
		"code":    strconv.Itoa(statusCode),
		"message": httpcodec.StatusPhrase(statusCode),
		"detail":  detail,
	})
}
