package twinax

/*------------------------------------------------------------------
 *
 * Purpose:   	The session multiplexer: one cooperative loop driving
 *		every station over the shared serial link.
 *
 * Description: All protocol work is single-threaded.  Each tick:
 *
 *		  1. Drain the admin command queue.
 *		  2. Round-robin to the next configured station and ask
 *		     its engine for at most one action; put it on the
 *		     wire as one record.
 *		  3. Read whatever the firmware sent (bounded) and
 *		     dispatch events to the station that owns the
 *		     outstanding transaction.
 *		  4. Pump every session's PTY both ways, non-blocking.
 *
 *		The only blocking point is the timed serial read; its
 *		timeout is the tick budget, so no station can starve
 *		another.  Auxiliary goroutines exist solely to accept
 *		admin connections, to answer DNS-SD queries and to reap
 *		children; only the admin ones reach the loop, and only
 *		through the admin queue.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// SerialLink is the converter's serial device.  *term.Term satisfies
// it; tests substitute an in-memory loopback.
type SerialLink interface {
	io.ReadWriteCloser
	SetReadTimeout(d time.Duration) error
}

const TICK_BUDGET = 2 * time.Millisecond

/* Bytes read from the serial link per tick, at most.  Keeps one noisy
   station from starving the rest. */

const READ_BUDGET = 256

type stationSlot struct {
	cfg     StationConfig
	engine  *Engine
	enabled bool
}

type Scheduler struct {
	cfg  Config
	link SerialLink

	codec *SerialCodec

	slots [MAX_STATIONS]*stationSlot
	order []byte // configured addresses in round-robin order
	rr    int

	/* Station owning the latest request/response on the link, or -1
	   before any transmission.  Inbound events are dispatched to it;
	   the strict request/response discipline is what makes that
	   correct.  It keeps pointing at the last owner after the
	   transaction closes so that trailing words of the same
	   response (type-ahead) still find their station. */
	current int

	adminQ chan adminReq

	readBuf [READ_BUDGET]byte
	ptyBuf  [2048]byte

	quit bool
}

func NewScheduler(cfg Config, link SerialLink) (*Scheduler, error) {
	var s = &Scheduler{
		cfg:     cfg,
		link:    link,
		codec:   NewSerialCodec(),
		current: -1,
		adminQ:  make(chan adminReq, 16),
	}

	for _, sc := range cfg.Stations {
		var hooks = EngineHooks{
			OnActive: func(addr byte) *Session { return s.attachSession(addr) },
			OnGone:   func(addr byte) { s.dropSession(addr) },
		}
		s.slots[sc.Addr] = &stationSlot{
			cfg:     sc,
			engine:  NewEngine(sc.Addr, sc.Rate, hooks),
			enabled: true,
		}
		s.order = append(s.order, sc.Addr)
	}
	if len(s.order) == 0 {
		return nil, fmt.Errorf("no stations configured")
	}
	return s, nil
}

// AdminQueue is the single entry point for the admin goroutines.
func (s *Scheduler) AdminQueue() chan<- adminReq {
	return s.adminQ
}

/*-------------------------------------------------------------------
 *
 * Name:        attachSession
 *
 * Purpose:     Engine hook: a terminal answered at addr, build its
 *		session and start the shell.
 *
 *--------------------------------------------------------------------*/

func (s *Scheduler) attachSession(addr byte) *Session {
	var slot = s.slots[addr]
	if slot == nil || !slot.enabled {
		return nil
	}

	var dict, err = LookupDict(slot.cfg.Dict)
	if err != nil {
		logger.Error("attach failed", "station", addr, "err", err)
		return nil
	}
	cp, err := LookupCodepage(slot.cfg.Codepage)
	if err != nil {
		logger.Error("attach failed", "station", addr, "err", err)
		return nil
	}

	var sess = NewSession(addr, dict, cp, !s.cfg.ClickerSilent)
	sess.Override = slot.cfg.Override

	if err := sess.Spawn(s.cfg.Login); err != nil {
		logger.Error("shell spawn failed", "station", addr, "err", err)
		return nil
	}
	return sess
}

func (s *Scheduler) dropSession(addr byte) {
	var slot = s.slots[addr]
	if slot == nil {
		return
	}
	var sess = slot.engine.Session()
	if sess != nil {
		sess.Teardown()
	}
	if s.current == int(addr) {
		s.current = -1
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        Step
 *
 * Purpose:     One non-blocking tick of the whole multiplexer.
 *
 * Description:	Split from Run so the protocol machinery can be driven
 *		with a synthetic clock and an in-memory link.
 *
 *--------------------------------------------------------------------*/

func (s *Scheduler) Step(now time.Time) error {
	s.drainAdmin()

	/* 1: one action from the next station in rotation, unless a
	   transaction is still in flight on the link. */
	if s.current >= 0 && s.slots[s.current].engine.outstanding {
		/* The owner still needs ticks to notice its deadline. */
		s.slots[s.current].engine.Tick(now)
	} else {
		var addr = s.order[s.rr%len(s.order)]
		s.rr++
		var slot = s.slots[addr]
		if action := slot.engine.Tick(now); action != nil {
			if err := s.transmit(addr, action); err != nil {
				return err
			}
		}
	}

	/* 2: inbound serial, bounded. */
	var n, err = s.link.Read(s.readBuf[:])
	if n > 0 {
		s.codec.Feed(s.readBuf[:n], func(ev SerialEvent) { s.dispatch(ev, now) })
	}
	if err != nil && err != io.EOF && !isWouldBlock(err) {
		return fmt.Errorf("serial read: %w", err)
	}

	/* 3+4: PTY pumps. */
	for _, addr := range s.order {
		s.pumpSession(s.slots[addr])
	}

	return nil
}

func (s *Scheduler) transmit(addr byte, action *Action) error {
	var rec = EncodeRecord(action.Words)
	framelog("station %d -> %d words", addr, len(action.Words))
	if _, err := s.link.Write(rec); err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	s.current = int(addr)
	return nil
}

func (s *Scheduler) dispatch(ev SerialEvent, now time.Time) {
	switch ev.Kind {
	case EventDebugLine:
		logger.Debug("firmware", "msg", ev.Line)
		return
	case EventMalformedFrame:
		logger.Warn("malformed frame", "line", ev.Line)
		return
	}

	if s.current < 0 {
		framelog("unsolicited event dropped")
		return
	}
	s.slots[s.current].engine.HandleEvent(ev, now)
}

/*-------------------------------------------------------------------
 *
 * Name:        pumpSession
 *
 * Purpose:     Move bytes between one session's PTY and its display /
 *		keyboard queues.  Non-blocking in both directions.
 *
 *--------------------------------------------------------------------*/

func (s *Scheduler) pumpSession(slot *stationSlot) {
	var sess = slot.engine.Session()
	if sess == nil {
		return
	}

	if out := sess.ReadShell(s.ptyBuf[:]); len(out) > 0 {
		sess.Display.Feed(out)
	}

	if sess.Eof {
		s.childExited(slot)
		return
	}

	var keys = append(sess.TakeKeys(), sess.Display.TakeReply()...)
	if len(keys) > 0 {
		if err := sess.WriteShell(keys); err != nil {
			logger.Warn("pty write failed, detaching", "station", slot.cfg.Addr, "err", err)
			s.childExited(slot)
		}
	}
}

// childExited handles EOF/EPIPE on the PTY master: detach, or cycle
// the session straight back in login mode.
func (s *Scheduler) childExited(slot *stationSlot) {
	logger.Info("child gone", "station", slot.cfg.Addr)
	if !s.cfg.Login {
		slot.enabled = false
	}
	slot.engine.Detach()
}

/*-------------------------------------------------------------------
 *
 * Name:        Run
 *
 * Purpose:     The real-time loop.  Blocks only on the timed serial
 *		read inside Step.
 *
 *--------------------------------------------------------------------*/

func (s *Scheduler) Run() error {
	if err := s.link.SetReadTimeout(TICK_BUDGET); err != nil {
		return fmt.Errorf("serial timeout: %w", err)
	}

	for !s.quit {
		if err := s.Step(time.Now()); err != nil {
			return err
		}
	}

	for _, addr := range s.order {
		s.dropSession(addr)
	}
	return nil
}

/* Admin surface.  Commands arrive from the socket goroutines on the
   queue and are executed here, on the loop. */

type adminReq struct {
	line  string
	reply chan string
}

func (s *Scheduler) drainAdmin() {
	for {
		select {
		case req := <-s.adminQ:
			req.reply <- s.adminExec(req.line)
		default:
			return
		}
	}
}

func (s *Scheduler) adminExec(line string) string {
	var cmd, arg = splitCommand(line)

	switch cmd {
	case "status":
		return s.statusText()

	case "attach":
		var slot = s.slotArg(arg)
		if slot == nil {
			return "no such station"
		}
		slot.enabled = true
		return "ok"

	case "detach":
		var slot = s.slotArg(arg)
		if slot == nil {
			return "no such station"
		}
		slot.enabled = false
		slot.engine.Detach()
		return "ok"

	case "restart":
		var slot = s.slotArg(arg)
		if slot == nil {
			return "no such station"
		}
		slot.enabled = true
		slot.engine.Detach()
		return "ok"

	case "clicker":
		var fields = strings.Fields(arg)
		if len(fields) != 2 {
			return "usage: clicker STATION on|off"
		}
		var slot = s.slotArg(fields[0])
		if slot == nil {
			return "no such station"
		}
		slot.engine.SetClicker(fields[1] == "on")
		return "ok"

	case "quit":
		s.quit = true
		return "bye"
	}

	return "commands: status attach detach restart clicker quit"
}

func (s *Scheduler) slotArg(arg string) *stationSlot {
	if len(arg) != 1 || arg[0] < '0' || arg[0] > '6' {
		return nil
	}
	return s.slots[arg[0]-'0']
}

func (s *Scheduler) statusText() string {
	var out = ""
	for _, addr := range s.order {
		var slot = s.slots[addr]
		var e = slot.engine
		out += fmt.Sprintf("station %d: %s", addr, e.State().String())
		if sess := e.Session(); sess != nil {
			out += fmt.Sprintf(" pid %d", sess.Pid())
		}
		if !slot.enabled {
			out += " (disabled)"
		}
		out += "\n"
	}
	return out
}

func splitCommand(line string) (string, string) {
	var fields = strings.Fields(line)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))
}
