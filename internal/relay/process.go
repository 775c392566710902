package relay

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/google/uuid"

	"github.com/hpungsan/ideashelf/internal/logger"
	"github.com/hpungsan/ideashelf/internal/nativemsg"
)

// ProcessDialer opens channels by launching the host executable and speaking
// native messaging framing over its stdin and stdout.
type ProcessDialer struct {
	// Hosts maps a host name to the command line that starts it.
	Hosts map[string][]string

	// MaxMessage caps each host reply. Zero means nativemsg.MaxInbound.
	MaxMessage int

	// Stderr receives the host's stderr. Nil discards it.
	Stderr io.Writer

	Log logger.Logger
}

// NewProcessDialer returns a dialer that knows a single host.
func NewProcessDialer(name, path string, log logger.Logger) *ProcessDialer {
	if log == nil {
		log = logger.NewNop()
	}
	return &ProcessDialer{
		Hosts: map[string][]string{name: {path}},
		Log:   log,
	}
}

// Dial starts the host process for name.
func (d *ProcessDialer) Dial(name string, ev Events) (Channel, error) {
	argv, ok := d.Hosts[name]
	if !ok || len(argv) == 0 {
		return nil, fmt.Errorf("specified native messaging host not found: %s", name)
	}
	path, err := exec.LookPath(argv[0])
	if err != nil {
		return nil, fmt.Errorf("specified native messaging host not found: %s", name)
	}

	cmd := exec.Command(path, argv[1:]...)
	cmd.Stderr = d.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("open host stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open host stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start native messaging host: %w", err)
	}

	log := d.Log
	if log == nil {
		log = logger.NewNop()
	}
	pc := &processChannel{
		id:    uuid.NewString(),
		cmd:   cmd,
		stdin: stdin,
		limit: d.MaxMessage,
		ev:    ev,
	}
	pc.log = log.With(logger.String("channel_id", pc.id), logger.String("host", name))
	pc.log.Debug("host started", logger.Int("pid", cmd.Process.Pid))

	go pc.readLoop(stdout)
	return pc, nil
}

type processChannel struct {
	id    string
	cmd   *exec.Cmd
	limit int
	ev    Events
	log   logger.Logger

	writeMu sync.Mutex
	stdin   io.WriteCloser

	closeOnce sync.Once
}

func (c *processChannel) ID() string { return c.id }

func (c *processChannel) Post(msg []byte) error {
	if len(msg) > nativemsg.MaxInbound {
		return fmt.Errorf("message exceeds %d bytes", nativemsg.MaxInbound)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return nativemsg.Write(c.stdin, msg)
}

// Close ends the host's input and kills the process if it is still running.
func (c *processChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		err = c.stdin.Close()
		c.writeMu.Unlock()
		if kerr := c.cmd.Process.Kill(); kerr != nil && !stderrors.Is(kerr, os.ErrProcessDone) {
			err = kerr
		}
	})
	return err
}

func (c *processChannel) readLoop(stdout io.Reader) {
	var readErr error
	for {
		msg, err := nativemsg.Read(stdout, c.limit)
		if err != nil {
			readErr = err
			break
		}
		if c.ev.OnMessage != nil {
			c.ev.OnMessage(msg)
		}
	}

	// Wait closes stdout; every read has finished by now.
	waitErr := c.cmd.Wait()
	c.log.Debug("host exited", logger.Error(waitErr))

	var reason error
	switch {
	case waitErr != nil:
		reason = fmt.Errorf("native host has exited: %w", waitErr)
	case !stderrors.Is(readErr, nativemsg.ErrNoMessage):
		reason = readErr
	}
	if c.ev.OnDisconnect != nil {
		c.ev.OnDisconnect(reason)
	}
}
