package bus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSockPath(t *testing.T) {
	sp, err := SockPath()
	if err != nil {
		t.Fatalf("SockPath() error: %v", err)
	}
	if !strings.HasSuffix(sp, filepath.Join("railscan", sockName)) {
		t.Errorf("socket path = %q", sp)
	}
}

func TestPidPath(t *testing.T) {
	pp, err := PidPath()
	if err != nil {
		t.Fatalf("PidPath() error: %v", err)
	}
	if !strings.HasSuffix(pp, filepath.Join("railscan", pidName)) {
		t.Errorf("pid path = %q", pp)
	}
}

func TestPidFileLifecycle(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	// no pid file yet: no daemon
	if err := CheckExistingDaemon(); err != nil {
		t.Fatalf("CheckExistingDaemon() with no pid file: %v", err)
	}

	if err := WritePidFile(); err != nil {
		t.Fatalf("WritePidFile() error: %v", err)
	}

	// our own pid is alive, so a second daemon must be refused
	if err := CheckExistingDaemon(); err == nil {
		t.Errorf("CheckExistingDaemon() ignored a live pid file")
	}

	if err := RemovePidFile(); err != nil {
		t.Fatalf("RemovePidFile() error: %v", err)
	}
	if err := CheckExistingDaemon(); err != nil {
		t.Errorf("CheckExistingDaemon() after removal: %v", err)
	}
}

func TestStalePidFileIgnored(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	if err := WritePidFile(); err != nil {
		t.Fatalf("WritePidFile() error: %v", err)
	}
	pp, err := PidPath()
	if err != nil {
		t.Fatal(err)
	}
	// replace with a pid that cannot be alive
	if err := os.WriteFile(pp, []byte("999999999"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := CheckExistingDaemon(); err != nil {
		t.Errorf("CheckExistingDaemon() refused on a stale pid: %v", err)
	}
}

func TestSendRoundTrip(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	ln, err := Listen()
	if err != nil {
		t.Fatalf("Listen() error: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 2)
		conn.Read(buf)
		if Command(buf[0]) == CmdVersion {
			conn.Write([]byte("STATUS proto=" + ProtoVer + "\n"))
		}
	}()

	resp, err := Send(CmdVersion)
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if !strings.Contains(resp, ProtoVer) {
		t.Errorf("response = %q", resp)
	}
}

func TestSendWithoutDaemon(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	if _, err := Send(CmdStatus); err == nil {
		t.Errorf("Send() succeeded with no daemon listening")
	}
}
