package bus

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const (
	SockName = "control.sock"
	PidName  = "livesub.pid"
	ProtoVer = "0.2"
)

// Single-byte commands understood by the daemon, each followed by '\n'.
const (
	CmdToggle  byte = 't'
	CmdStatus  byte = 's'
	CmdCaption byte = 'c'
	CmdVersion byte = 'v'
	CmdQuit    byte = 'q'
)

const replyTimeout = 5 * time.Second

// ~/.cache/livesub
func runtimeDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "livesub"), nil
}

// ~/.cache/livesub/control.sock
func SockPath() (string, error) {
	dir, err := runtimeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SockName), nil
}

// ~/.cache/livesub/livesub.pid
func PidPath() (string, error) {
	dir, err := runtimeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, PidName), nil
}

type socketManager struct {
	path string
}

func defaultSocketManager() (*socketManager, error) {
	sp, err := SockPath()
	if err != nil {
		return nil, err
	}
	return &socketManager{path: sp}, nil
}

func (m *socketManager) listen() (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o700); err != nil {
		return nil, err
	}
	_ = os.Remove(m.path) // stale socket from last run
	return net.Listen("unix", m.path)
}

func (m *socketManager) dial() (net.Conn, error) {
	return net.Dial("unix", m.path)
}

func (m *socketManager) send(cmd byte) (string, error) {
	c, err := m.dial()
	if err != nil {
		return "", err
	}
	defer c.Close()

	_ = c.SetDeadline(time.Now().Add(replyTimeout))
	if _, err := c.Write([]byte{cmd, '\n'}); err != nil {
		return "", err
	}

	resp, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(resp, "\n"), nil
}

func Listen() (net.Listener, error) {
	m, err := defaultSocketManager()
	if err != nil {
		return nil, err
	}
	return m.listen()
}

func Dial() (net.Conn, error) {
	m, err := defaultSocketManager()
	if err != nil {
		return nil, err
	}
	return m.dial()
}

// SendCommand sends one command to the running daemon and returns its
// single-line reply without the trailing newline.
func SendCommand(cmd byte) (string, error) {
	m, err := defaultSocketManager()
	if err != nil {
		return "", err
	}
	return m.send(cmd)
}

// ReadCommand reads one command line from a client connection.
func ReadCommand(r *bufio.Reader) (byte, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return 0, err
	}
	line = strings.TrimSpace(line)
	if len(line) != 1 {
		return 0, fmt.Errorf("malformed command %q", line)
	}
	return line[0], nil
}

// OK and Err format daemon replies.
func OK(payload string) string {
	if payload == "" {
		return "OK\n"
	}
	return "OK " + payload + "\n"
}

func Err(msg string) string {
	return "ERR " + msg + "\n"
}

// ParseReply splits a reply into its payload, turning ERR replies into errors.
func ParseReply(resp string) (string, error) {
	switch {
	case resp == "OK":
		return "", nil
	case strings.HasPrefix(resp, "OK "):
		return strings.TrimPrefix(resp, "OK "), nil
	case strings.HasPrefix(resp, "ERR "):
		return "", errors.New(strings.TrimPrefix(resp, "ERR "))
	case strings.HasPrefix(resp, "STATUS "):
		return resp, nil
	}
	return "", fmt.Errorf("unexpected reply %q", resp)
}

type pidManager struct {
	path string
}

func defaultPidManager() (*pidManager, error) {
	pp, err := PidPath()
	if err != nil {
		return nil, err
	}
	return &pidManager{path: pp}, nil
}

func (m *pidManager) create() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(m.path, []byte(strconv.Itoa(os.Getpid())), 0o600)
}

func (m *pidManager) remove() error {
	return os.Remove(m.path)
}

// checkExisting fails when the pid file names a live process and removes
// stale or unreadable pid files.
func (m *pidManager) checkExisting() error {
	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || !m.isProcessAlive(pid) {
		_ = os.Remove(m.path)
		return nil
	}
	return fmt.Errorf("daemon already running with PID %d", pid)
}

func (m *pidManager) isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

func CheckExistingDaemon() error {
	m, err := defaultPidManager()
	if err != nil {
		return err
	}
	return m.checkExisting()
}

func CreatePidFile() error {
	m, err := defaultPidManager()
	if err != nil {
		return err
	}
	return m.create()
}

func RemovePidFile() error {
	m, err := defaultPidManager()
	if err != nil {
		return err
	}
	return m.remove()
}
