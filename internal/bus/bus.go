// Package bus is the control surface between the railscan CLI and the daemon:
// single-byte commands over a unix socket in the user's cache directory, plus
// a pid file guarding against a second daemon instance.
package bus

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

const ProtoVer = "0.1"

// Command is one control request. The wire format is the byte itself followed
// by a newline; the reply is a single line.
type Command byte

const (
	CmdToggle  Command = 't' // start or stop the detection session
	CmdCancel  Command = 'c' // stop the session if one is running
	CmdStatus  Command = 's' // report session state and last result
	CmdVersion Command = 'v' // report protocol version
	CmdQuit    Command = 'q' // shut the daemon down
)

const (
	sockName = "control.sock"
	pidName  = "railscan.pid"
)

func runtimeDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "railscan"), nil
}

func SockPath() (string, error) {
	dir, err := runtimeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, sockName), nil
}

func PidPath() (string, error) {
	dir, err := runtimeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, pidName), nil
}

func Listen() (net.Listener, error) {
	sp, err := SockPath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(sp), 0o700); err != nil {
		return nil, err
	}
	_ = os.Remove(sp) // stale socket from last run
	return net.Listen("unix", sp)
}

// Send dials the daemon, writes one command and returns its reply line.
func Send(cmd Command) (string, error) {
	sp, err := SockPath()
	if err != nil {
		return "", err
	}
	conn, err := net.Dial("unix", sp)
	if err != nil {
		return "", fmt.Errorf("daemon not reachable: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte{byte(cmd), '\n'}); err != nil {
		return "", err
	}
	return bufio.NewReader(conn).ReadString('\n')
}

// livePid reports the pid recorded in the pid file when that process is still
// alive. A missing, malformed or stale file counts as no daemon.
func livePid() (int, bool) {
	pp, err := PidPath()
	if err != nil {
		return 0, false
	}
	data, err := os.ReadFile(pp)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, false
	}
	// signal 0 probes liveness without delivering anything
	return pid, proc.Signal(syscall.Signal(0)) == nil
}

func CheckExistingDaemon() error {
	if pid, alive := livePid(); alive {
		return fmt.Errorf("daemon already running with PID %d", pid)
	}
	return nil
}

func WritePidFile() error {
	pp, err := PidPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(pp), 0o700); err != nil {
		return err
	}
	return os.WriteFile(pp, []byte(strconv.Itoa(os.Getpid())), 0o600)
}

func RemovePidFile() error {
	pp, err := PidPath()
	if err != nil {
		return err
	}
	return os.Remove(pp)
}
