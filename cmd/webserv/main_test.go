package main

import (
	"os"
	"testing"
)

func TestRunRejectsTooManyArguments(t *testing.T) {
	code := run([]string{"webserv", "a.conf", "b.conf"})
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
}

func TestRunFailsOnMissingConfigFile(t *testing.T) {
	t.Cleanup(func() { os.Remove(logFileName) })

	code := run([]string{"webserv", "/nonexistent/path/to/config.conf"})
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
}
