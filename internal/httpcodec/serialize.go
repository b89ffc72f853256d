package httpcodec

import (
	"sort"
	"strconv"

	"github.com/valyala/bytebufferpool"
)

// Serialize renders resp to wire bytes, matching HttpResponse::toString:
// status line, headers in a stable order, blank line, body.
//
// Headers are sorted by key before being written. The original iterates a
// std::map (lexicographically ordered); sorting here reproduces the same
// deterministic order instead of Go's randomized map iteration.
func Serialize(resp *Response) []byte {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteString("HTTP/1.1 ")
	buf.WriteString(strconv.Itoa(resp.StatusCode))
	buf.WriteByte(' ')
	buf.WriteString(resp.Phrase)
	buf.WriteString("\r\n")

	keys := make([]string, 0, len(resp.Headers))
	for k := range resp.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		buf.WriteString(k)
		buf.WriteString(": ")
		buf.WriteString(resp.Headers[k])
		buf.WriteString("\r\n")
	}

	buf.WriteString("\r\n")
	buf.Write(resp.Body)

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out
}
