package mux

import (
	"github.com/ribana-b/webserv/internal/upload"
)

// connState is the per-connection finite-state machine spec.md §4.9 calls
// for in place of the original's implicit state carried across
// eventExecRequest invocations.
type connState int

const (
	stateReadingHeaders connState = iota
	stateStreamingUpload
	stateClosed
)

// uploadState tracks an in-flight large upload for one connection, matching
// spec.md §3's UploadState: the sink doing the writing, how many bytes are
// expected and received so far, and the header bytes already parsed before
// the large-upload threshold was crossed (kept so the codec can attach the
// finished temp file to the original request once streaming completes).
type uploadState struct {
	sink         *upload.Sink
	expected     int64
	received     int64
	headerBytes  []byte
	retriesLeft  int
}

// connectionSlot is one entry in the multiplexer's descriptor table,
// matching spec.md §3's ConnectionSlot: the descriptor, the listen port it
// was accepted on (so the router can find the right VirtualServer), any
// bytes read so far toward the header terminator, and an optional
// in-progress upload.
type connectionSlot struct {
	fd      int
	port    int
	state   connState
	inbound []byte
	upload  *uploadState
}

// uploadRetryBudget bounds how many consecutive empty reads an upload
// continuation tolerates before the connection is abandoned, matching
// spec.md §4.5's "retry counter on upload reads bounds spinning".
const uploadRetryBudget = 5
