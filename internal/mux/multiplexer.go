// Package mux implements the single-threaded, readiness-based event loop
// that owns every listening and connection socket, grounded on
// original_source/src/Monitor.cpp, MonitorInit.cpp and MonitorEvent.cpp.
// There are no worker goroutines: one call to unix.Poll drives accept,
// read, upload-continuation and write for every descriptor in the table.
package mux

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/ribana-b/webserv/internal/config"
	"github.com/ribana-b/webserv/internal/httpcodec"
	"github.com/ribana-b/webserv/internal/logging"
	"github.com/ribana-b/webserv/internal/router"
	"github.com/ribana-b/webserv/internal/sockopt"
	"github.com/ribana-b/webserv/internal/upload"
)

// Tuning constants matching POLLFD_SIZE, POLL_WAIT and BUFFER_SIZE from
// original_source/include/Monitor.hpp, plus the 8 KiB upload-continuation
// read size from spec.md §4.5.
const (
	maxDescriptors  = 10
	pollWaitMillis  = 30000
	readBufferSize  = 500
	uploadChunkSize = 8192
)

// Multiplexer owns the descriptor table and drives the event loop,
// matching original_source's Monitor class.
type Multiplexer struct {
	router *router.Router
	logger *logging.Logger
	model  *config.Model

	fds         []unix.PollFd
	listenPorts []int // parallel to fds[:listenCount]
	listenCount int
	slots       []*connectionSlot // parallel to fds[listenCount:]
}

// New builds a Multiplexer over an immutable ConfigModel and Router; call
// Init then Run.
func New(model *config.Model, rt *router.Router, logger *logging.Logger) *Multiplexer {
	return &Multiplexer{router: rt, logger: logger, model: model}
}

// Init creates one non-blocking listening socket per (server, endpoint)
// pair, matching Monitor::initData's unconditional per-pair socket
// creation (no dedup across servers sharing an endpoint — VirtualServer
// selection at request time is what makes the first declared server win,
// per spec.md §4.4).
func (mx *Multiplexer) Init() error {
	for i := range mx.model.Servers {
		server := &mx.model.Servers[i]
		for _, endpoint := range server.Listens {
			fd, err := sockopt.Listen(endpoint.IP, endpoint.Port)
			if err != nil {
				return fmt.Errorf("mux: failed to listen on %s: %w", endpoint, err)
			}
			mx.fds = append(mx.fds, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN})
			mx.listenPorts = append(mx.listenPorts, int(endpoint.Port))
			mx.logger.Info().Str("endpoint", endpoint.String()).Msg("listening")
		}
	}
	mx.listenCount = len(mx.fds)
	if mx.listenCount == 0 {
		return fmt.Errorf("mux: no listen endpoints configured")
	}
	return nil
}

// Run enters the poll loop, matching Monitor::beginLoop. It returns once
// the readiness primitive reports a fatal error, closing every descriptor
// and releasing any in-flight uploads on the way out.
func (mx *Multiplexer) Run() {
	for {
		ready, err := unix.Poll(mx.fds, pollWaitMillis)
		if err != nil {
			mx.logger.Error().Err(err).Msg("poll failed, shutting down")
			break
		}
		if ready == 0 {
			continue
		}
		mx.dispatchReady()
	}
	mx.shutdown()
}

// dispatchReady handles every descriptor with pending input from one
// readiness batch, matching Monitor::eventInit/eventExec/eventExecType.
// Descriptors are collected up front since accepting or closing
// connections mutates mx.fds/mx.slots mid-batch.
func (mx *Multiplexer) dispatchReady() {
	type readyEntry struct {
		fd         int
		isListener bool
		port       int
	}

	var ready []readyEntry
	for i, pfd := range mx.fds {
		if pfd.Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) == 0 {
			continue
		}
		if i < mx.listenCount {
			ready = append(ready, readyEntry{fd: int(pfd.Fd), isListener: true, port: mx.listenPorts[i]})
		} else {
			ready = append(ready, readyEntry{fd: int(pfd.Fd)})
		}
	}

	for _, r := range ready {
		if r.isListener {
			mx.acceptConnections(r.fd, r.port)
			continue
		}
		idx := mx.connectionIndex(r.fd)
		if idx < 0 {
			continue // closed earlier in this same batch
		}
		slot := mx.slots[idx]
		if slot.state == stateStreamingUpload {
			mx.continueUpload(slot)
		} else {
			mx.readHeaders(slot)
		}
	}
}

// acceptConnections drains accept(2) on a ready listening descriptor until
// it would block, matching Monitor::eventExecConnection.
func (mx *Multiplexer) acceptConnections(listenerFd, port int) {
	for {
		nfd, _, err := unix.Accept(listenerFd)
		if err != nil {
			if err != unix.EAGAIN && err != unix.EWOULDBLOCK {
				mx.logger.Warn().Err(err).Msg("accept failed")
			}
			return
		}

		if err := sockopt.SetNonblocking(nfd); err != nil {
			mx.logger.Error().Err(err).Msg("failed to set accepted connection non-blocking")
			unix.Close(nfd)
			continue
		}

		if len(mx.fds) >= maxDescriptors {
			mx.logger.Warn().Msg("descriptor table full, rejecting connection")
			unix.Close(nfd)
			continue
		}

		mx.fds = append(mx.fds, unix.PollFd{Fd: int32(nfd), Events: unix.POLLIN})
		mx.slots = append(mx.slots, &connectionSlot{fd: nfd, port: port, state: stateReadingHeaders})
	}
}

func (mx *Multiplexer) connectionIndex(fd int) int {
	for i := mx.listenCount; i < len(mx.fds); i++ {
		if int(mx.fds[i].Fd) == fd {
			return i - mx.listenCount
		}
	}
	return -1
}

// readHeaders accumulates inbound bytes in 500-byte reads until the header
// terminator is found, the peer closes, or the kernel would block,
// matching Monitor::eventExecRequest generalized with HttpCodec's header
// detection (spec.md §4.5's read path steps 1-2).
func (mx *Multiplexer) readHeaders(slot *connectionSlot) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := unix.Read(slot.fd, buf)
		if n > 0 {
			slot.inbound = append(slot.inbound, buf[:n]...)
			req, bodyStart, perr := httpcodec.ParseHeaders(slot.inbound)
			if perr == nil {
				mx.onHeadersComplete(slot, req, bodyStart)
				return
			}
			if perr == httpcodec.ErrHeadersIncomplete {
				continue
			}
			mx.respondAndClose(slot, mx.router.BadRequestResponse())
			return
		}
		if n == 0 {
			mx.closeConnection(slot)
			return
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return
		}
		mx.closeConnection(slot)
		return
	}
}

// onHeadersComplete dispatches to the large-upload streaming path or the
// synchronous small-body path, matching spec.md §4.5 steps 3-5.
func (mx *Multiplexer) onHeadersComplete(slot *connectionSlot, req *httpcodec.Request, bodyStart int) {
	contentLength := req.ContentLength()

	if contentLength <= 0 {
		mx.finishRequest(slot, req)
		return
	}

	if upload.IsLargeFile(contentLength) {
		mx.startUploadStreaming(slot, req, bodyStart, contentLength)
		return
	}

	mx.readSmallBodySynchronously(slot, req, bodyStart, contentLength)
}

func (mx *Multiplexer) readSmallBodySynchronously(slot *connectionSlot, req *httpcodec.Request, bodyStart int, contentLength int64) {
	buf := make([]byte, readBufferSize)
	target := bodyStart + int(contentLength)
	for len(slot.inbound) < target {
		n, err := unix.Read(slot.fd, buf)
		if n > 0 {
			slot.inbound = append(slot.inbound, buf[:n]...)
			continue
		}
		if n == 0 {
			break // peer closed, proceed with the partial body we have
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			break // would block: proceed with the partial body we have
		}
		break
	}

	req.AttachBody(slot.inbound, bodyStart)
	mx.finishRequest(slot, req)
}

// startUploadStreaming spins up an UploadSink seeded with whatever body
// bytes already arrived in the same read as the header terminator,
// matching spec.md §4.5 step 4.
func (mx *Multiplexer) startUploadStreaming(slot *connectionSlot, req *httpcodec.Request, bodyStart int, contentLength int64) {
	sink, err := upload.Start(contentLength)
	if err != nil {
		mx.logger.Error().Err(err).Msg("failed to start upload sink")
		mx.closeConnection(slot)
		return
	}

	already := slot.inbound[bodyStart:]
	if len(already) > 0 {
		if len(already) > int(contentLength) {
			already = already[:contentLength]
		}
		if werr := sink.WriteChunk(already); werr != nil {
			mx.logger.Error().Err(werr).Msg("failed to seed upload sink")
			sink.Cleanup()
			mx.closeConnection(slot)
			return
		}
	}

	headerBytes := append([]byte(nil), slot.inbound[:bodyStart]...)
	us := &uploadState{
		sink:        sink,
		expected:    contentLength,
		received:    int64(len(already)),
		headerBytes: headerBytes,
		retriesLeft: uploadRetryBudget,
	}
	slot.upload = us
	slot.state = stateStreamingUpload
	slot.inbound = nil

	if us.received >= us.expected {
		mx.finalizeUpload(slot)
	}
}

// continueUpload drains one readiness event's worth of upload bytes (up to
// 8 KiB), matching spec.md §4.5's "Upload continuation" paragraph.
func (mx *Multiplexer) continueUpload(slot *connectionSlot) {
	us := slot.upload
	buf := make([]byte, uploadChunkSize)

	n, err := unix.Read(slot.fd, buf)
	if n > 0 {
		us.retriesLeft = uploadRetryBudget
		chunk := buf[:n]
		remaining := us.expected - us.received
		if int64(len(chunk)) > remaining {
			chunk = chunk[:remaining]
		}
		if werr := us.sink.WriteChunk(chunk); werr != nil {
			mx.abandonUpload(slot)
			return
		}
		us.received += int64(len(chunk))
		if us.received >= us.expected {
			mx.finalizeUpload(slot)
		}
		return
	}
	if n == 0 {
		mx.abandonUpload(slot)
		return
	}
	if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
		us.retriesLeft--
		if us.retriesLeft <= 0 {
			mx.abandonUpload(slot)
		}
		return
	}
	mx.abandonUpload(slot)
}

// finalizeUpload completes the sink and re-parses the original header
// bytes with the temp-file path attached, matching spec.md §4.5's
// "finalize the sink, detach auto-delete, parse the original header bytes
// with the temp-file path attached".
func (mx *Multiplexer) finalizeUpload(slot *connectionSlot) {
	us := slot.upload
	if err := us.sink.Finish(); err != nil {
		mx.logger.Error().Err(err).Msg("failed to finish upload")
		mx.abandonUpload(slot)
		return
	}

	req, _, err := httpcodec.ParseHeaders(us.headerBytes)
	if err != nil {
		mx.logger.Error().Err(err).Msg("failed to reparse headers after upload completion")
		us.sink.Cleanup()
		slot.upload = nil
		mx.closeConnection(slot)
		return
	}
	req.TempFilePath = us.sink.Path()

	slot.upload = nil
	slot.state = stateReadingHeaders
	mx.finishRequest(slot, req)
}

// abandonUpload releases the sink's temp file and closes the connection,
// matching "On peer-close before completion or unrecoverable read error:
// release the sink (temp file deleted), close the connection."
func (mx *Multiplexer) abandonUpload(slot *connectionSlot) {
	if slot.upload != nil {
		slot.upload.sink.Cleanup()
		slot.upload = nil
	}
	mx.closeConnection(slot)
}

func (mx *Multiplexer) finishRequest(slot *connectionSlot, req *httpcodec.Request) {
	resp := mx.router.Route(req, slot.port)
	mx.respondAndClose(slot, resp)
}

// respondAndClose serializes and writes a response with a single send,
// then closes the connection, matching spec.md §4.5's write path ("no
// keep-alive").
func (mx *Multiplexer) respondAndClose(slot *connectionSlot, resp *httpcodec.Response) {
	data := httpcodec.Serialize(resp)
	if len(data) > 0 {
		unix.Write(slot.fd, data)
	}
	mx.closeConnection(slot)
}

// closeConnection releases any in-flight upload, closes the descriptor and
// removes it from the table, matching Monitor::closePollFd.
func (mx *Multiplexer) closeConnection(slot *connectionSlot) {
	if slot.state == stateClosed {
		return
	}
	slot.state = stateClosed
	if slot.upload != nil {
		slot.upload.sink.Cleanup()
		slot.upload = nil
	}
	unix.Close(slot.fd)

	for i := mx.listenCount; i < len(mx.fds); i++ {
		if int(mx.fds[i].Fd) == slot.fd {
			mx.fds = append(mx.fds[:i], mx.fds[i+1:]...)
			slotIdx := i - mx.listenCount
			mx.slots = append(mx.slots[:slotIdx], mx.slots[slotIdx+1:]...)
			return
		}
	}
}

// shutdown closes every remaining descriptor and releases any in-flight
// uploads, matching Monitor::cleanPollFds and ~Monitor's upload cleanup.
func (mx *Multiplexer) shutdown() {
	for _, slot := range mx.slots {
		if slot.upload != nil {
			slot.upload.sink.Cleanup()
		}
	}
	for _, pfd := range mx.fds {
		unix.Close(int(pfd.Fd))
	}
	mx.fds = nil
	mx.slots = nil
}
