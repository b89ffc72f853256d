package sockopt

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestListenEphemeralPort(t *testing.T) {
	fd, err := Listen(0, 0)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer unix.Close(fd)

	sa, err := unix.Getsockname(fd)
	if err != nil {
		t.Fatalf("Getsockname: %v", err)
	}
	addr, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		t.Fatalf("unexpected sockaddr type: %T", sa)
	}
	if addr.Port == 0 {
		t.Fatal("expected kernel to assign a non-zero ephemeral port")
	}
}

func TestIpv4Bytes(t *testing.T) {
	got := ipv4Bytes(0x7F000001)
	want := [4]byte{127, 0, 0, 1}
	if got != want {
		t.Fatalf("ipv4Bytes(0x7F000001) = %v, want %v", got, want)
	}
}
