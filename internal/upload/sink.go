// Package upload streams large request bodies to disk instead of buffering
// them in memory, matching original_source/src/UploadManager.cpp.
package upload

import (
	"fmt"
	"io"
	"os"

	"github.com/google/renameio/v2"
)

// LargeFileThreshold is the Content-Length at or above which a body is
// streamed to disk rather than held inline, matching
// UploadManager.hpp's LARGE_FILE_THRESHOLD (1 MiB).
const LargeFileThreshold = 1 << 20

// IsLargeFile reports whether contentLength requires streaming.
func IsLargeFile(contentLength int64) bool {
	return contentLength >= LargeFileThreshold
}

// Sink streams one upload's bytes to a temp file; moving the finished file
// into the document tree is done by MoveFile. One Sink instance is created
// per streaming upload connection state (internal/mux's UploadState), not
// shared.
type Sink struct {
	tempFile     *os.File
	tempPath     string
	expectedSize int64
	bytesWritten int64
	active       bool
	complete     bool
}

// Start creates the backing temp file and begins tracking a stream of
// expectedSize bytes, matching UploadManager::startLargeUpload +
// generateTempFilePath/createTempFile (mkstemp equivalent via
// os.CreateTemp, same "/tmp/webserv_upload_*" naming convention).
func Start(expectedSize int64) (*Sink, error) {
	f, err := os.CreateTemp("", "webserv_upload_*")
	if err != nil {
		return nil, fmt.Errorf("upload: failed to create temp file: %w", err)
	}
	if err := f.Chmod(0o600); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("upload: failed to set temp file mode: %w", err)
	}

	return &Sink{
		tempFile:     f,
		tempPath:     f.Name(),
		expectedSize: expectedSize,
		active:       true,
	}, nil
}

// WriteChunk appends data to the temp file, refusing to write past
// expectedSize, matching UploadManager::writeChunk.
func (s *Sink) WriteChunk(data []byte) error {
	if !s.active {
		return fmt.Errorf("upload: cannot write chunk, upload not active")
	}
	if s.bytesWritten+int64(len(data)) > s.expectedSize {
		return fmt.Errorf("upload: chunk would exceed expected size (%d > %d)",
			s.bytesWritten+int64(len(data)), s.expectedSize)
	}

	n, err := s.tempFile.Write(data)
	if err != nil {
		return fmt.Errorf("upload: failed to write chunk: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("upload: partial write (%d/%d bytes)", n, len(data))
	}

	s.bytesWritten += int64(n)
	return nil
}

// Finish closes the temp file once exactly expectedSize bytes have been
// written, matching UploadManager::finishUpload.
func (s *Sink) Finish() error {
	if !s.active {
		return fmt.Errorf("upload: cannot finish, upload not active")
	}
	if s.bytesWritten != s.expectedSize {
		return fmt.Errorf("upload: upload incomplete (%d/%d bytes)", s.bytesWritten, s.expectedSize)
	}

	if err := s.tempFile.Close(); err != nil {
		return fmt.Errorf("upload: failed to close temp file: %w", err)
	}
	s.active = false
	s.complete = true
	return nil
}

// Cleanup closes (if still open) and removes the temp file, matching
// UploadManager::cleanup. Safe to call more than once.
func (s *Sink) Cleanup() {
	if s.tempFile != nil {
		s.tempFile.Close()
		s.tempFile = nil
	}
	if s.tempPath != "" {
		os.Remove(s.tempPath)
		s.tempPath = ""
	}
	s.active = false
	s.complete = false
	s.bytesWritten = 0
	s.expectedSize = 0
}

// Path returns the temp file path.
func (s *Sink) Path() string { return s.tempPath }

// BytesWritten returns the number of bytes written so far.
func (s *Sink) BytesWritten() int64 { return s.bytesWritten }

// ExpectedSize returns the declared upload size.
func (s *Sink) ExpectedSize() int64 { return s.expectedSize }

// Complete reports whether Finish succeeded.
func (s *Sink) Complete() bool { return s.complete }

// ReadAll reads the finished temp file's full contents, matching
// UploadManager::readFromTempFile.
func (s *Sink) ReadAll() ([]byte, error) {
	if !s.complete || s.tempPath == "" {
		return nil, fmt.Errorf("upload: cannot read, upload not complete")
	}
	return os.ReadFile(s.tempPath)
}

// MoveFile renames src to dst, falling back to copy-then-delete when the
// rename fails (e.g. a cross-device destination), matching
// UploadManager::moveTempFile / HttpServer.cpp::processLargeFileUpload's
// rename-or-copy fallback. Exported so internal/router can finalize a
// completed streamed upload given only its temp path.
func MoveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyThenDelete(src, dst); err != nil {
		return fmt.Errorf("upload: failed to move %s to %s: %w", src, dst, err)
	}
	return nil
}

func copyThenDelete(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	w, err := renameio.TempFile("", dst)
	if err != nil {
		return err
	}
	defer w.Cleanup()

	if _, err := io.Copy(w, in); err != nil {
		return err
	}
	if err := w.CloseAtomicallyReplace(); err != nil {
		return err
	}

	in.Close()
	return os.Remove(src)
}
