package twinax

/*------------------------------------------------------------------
 *
 * Purpose:   	One attached terminal: its display model, keyboard
 *		state, translation tables, and the PTY-backed child
 *		shell behind it.
 *
 * Description: A Session exists only while its station is attached.
 *		It carries the station address as a plain index back
 *		into the scheduler's table; the scheduler owns both.
 *
 *		The child runs with the PTY slave as its controlling
 *		terminal and TERM set to our terminfo entry when the
 *		bundled database is present, plain vt52 otherwise.
 *
 *		Teardown is polite first: SIGHUP, then SIGKILL after a
 *		grace period.  Only the process is touched off the main
 *		loop; all session state stays loop-owned.
 *
 *---------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

const TERM_NAME = "ibm5250conv"
const TERM_FALLBACK = "vt52"

const TEARDOWN_GRACE = 2 * time.Second

type Session struct {
	Addr byte

	Display  *Display
	Keyboard *KeyboardState
	Codepage *Codepage
	Override map[byte]byte // per-session ASCII->EBCDIC overrides

	Clicker bool

	master *os.File
	child  *exec.Cmd

	transcript *os.File // shell output copy, when PTY logging is on

	keyOut []byte // decoded keyboard bytes awaiting delivery to the PTY

	Eof bool // master read saw child exit
}

func NewSession(addr byte, dict *ScancodeDict, cp *Codepage, clicker bool) *Session {
	return &Session{
		Addr:     addr,
		Display:  NewDisplay(),
		Keyboard: NewKeyboardState(dict),
		Codepage: cp,
		Clicker:  clicker,
	}
}

func termValue() string {
	/* TERMINFO is published by the packaging; trust it if the entry
	   compiled there. */
	var ti = os.Getenv("TERMINFO")
	if ti != "" {
		if _, err := os.Stat(ti + "/i/" + TERM_NAME); err == nil {
			return TERM_NAME
		}
	}
	return TERM_FALLBACK
}

/*-------------------------------------------------------------------
 *
 * Name:        Spawn
 *
 * Purpose:     Open the PTY pair and start the child shell on it.
 *
 * Inputs:	login - true to start a login shell (-l run mode).
 *
 *--------------------------------------------------------------------*/

func (s *Session) Spawn(login bool) error {
	var shell = os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}

	var cmd *exec.Cmd
	if login {
		cmd = exec.Command(shell, "-l")
	} else {
		cmd = exec.Command(shell)
	}
	cmd.Env = append(os.Environ(), "TERM="+termValue())

	var master, err = pty.StartWithSize(cmd, &pty.Winsize{Rows: SCREEN_ROWS, Cols: SCREEN_COLS})
	if err != nil {
		return fmt.Errorf("pty for station %d: %w", s.Addr, err)
	}

	/* The main loop never blocks on a session. */
	if err := unix.SetNonblock(int(master.Fd()), true); err != nil {
		master.Close()
		cmd.Process.Kill()
		return fmt.Errorf("nonblocking pty: %w", err)
	}

	s.master = master
	s.child = cmd

	if logPTY {
		if name, terr := TranscriptName(s.Addr); terr == nil {
			if f, ferr := os.Create(name); ferr == nil {
				s.transcript = f
				logger.Info("transcript", "station", s.Addr, "file", name)
			}
		}
	}

	logger.Info("session started", "station", s.Addr, "pid", cmd.Process.Pid, "shell", shell)
	return nil
}

func (s *Session) Pid() int {
	if s.child == nil || s.child.Process == nil {
		return 0
	}
	return s.child.Process.Pid
}

/*-------------------------------------------------------------------
 *
 * Name:        ReadShell
 *
 * Purpose:     Non-blocking read of pending shell output.
 *
 * Returns:	Bytes read (possibly none).  Sets s.Eof once the child
 *		side is gone; on Linux a dead slave reads as EIO.
 *
 *--------------------------------------------------------------------*/

func (s *Session) ReadShell(buf []byte) []byte {
	if s.master == nil || s.Eof {
		return nil
	}
	var n, err = s.master.Read(buf)
	if n > 0 {
		iolog("station %d shell -> %d bytes", s.Addr, n)
		if s.transcript != nil {
			s.transcript.Write(buf[:n])
		}
		return buf[:n]
	}
	if err != nil && !isWouldBlock(err) {
		s.Eof = true
	}
	return nil
}

// WriteShell delivers decoded keyboard bytes to the child.  An EPIPE
// or EIO here means the child is gone; the caller detaches.
func (s *Session) WriteShell(p []byte) error {
	if s.master == nil || len(p) == 0 {
		return nil
	}
	var _, err = s.master.Write(p)
	if err != nil && !isWouldBlock(err) {
		return fmt.Errorf("pty write station %d: %w", s.Addr, err)
	}
	iolog("station %d kbd -> %d bytes", s.Addr, len(p))
	return nil
}

func isWouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}

// QueueKeys appends decoded keyboard output for the next PTY pump.
func (s *Session) QueueKeys(p []byte) {
	s.keyOut = append(s.keyOut, p...)
}

// TakeKeys consumes the pending keyboard bytes.
func (s *Session) TakeKeys() []byte {
	var out = s.keyOut
	s.keyOut = nil
	return out
}

/*-------------------------------------------------------------------
 *
 * Name:        Teardown
 *
 * Purpose:     Close the PTY and dispose of the child.
 *
 * Description:	SIGHUP first so the shell can die the way it expects
 *		to; the hard kill and the reap happen off-loop after the
 *		grace period.  Nothing but the process handle escapes
 *		the main loop.
 *
 *--------------------------------------------------------------------*/

func (s *Session) Teardown() {
	if s.master != nil {
		s.master.Close()
		s.master = nil
	}
	if s.transcript != nil {
		s.transcript.Close()
		s.transcript = nil
	}
	if s.child == nil || s.child.Process == nil {
		return
	}

	var cmd = s.child
	s.child = nil
	logger.Info("session teardown", "station", s.Addr, "pid", cmd.Process.Pid)

	cmd.Process.Signal(unix.SIGHUP)
	go func() {
		var done = make(chan struct{})
		go func() {
			cmd.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(TEARDOWN_GRACE):
			cmd.Process.Kill()
			<-done
		}
	}()
}
