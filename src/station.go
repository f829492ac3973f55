package twinax

/*------------------------------------------------------------------
 *
 * Purpose:   	Per-station 5250 protocol state machine.
 *
 * Description: One engine per configured station address.  The engine
 *		never blocks and never touches the serial link itself:
 *		each Tick returns at most one Action (a poll, an
 *		initialization step, a control command, or a complete
 *		write burst) and the scheduler puts it on the wire.
 *		Inbound traffic comes back through HandleEvent.
 *
 *		States:
 *
 *		  Unattached    polling for a terminal at normal cadence
 *		  Initializing  running the power-on command sequence
 *		  Ready         steady state, polls and drains queues
 *		  Writing       a burst is on the wire, waiting [EOTX]
 *		  Draining      detach requested, final clear going out
 *
 *		Exactly one poll or burst is outstanding per station.
 *		Expired polls count as misses; enough consecutive misses
 *		mean the terminal was unplugged and the station drops
 *		back to Unattached.
 *
 *---------------------------------------------------------------*/

import (
	"time"
)

type StationState int

const (
	StateUnattached StationState = iota
	StateInitializing
	StateReady
	StateWriting
	StateDraining
)

func (s StationState) String() string {
	switch s {
	case StateUnattached:
		return "unattached"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateWriting:
		return "writing"
	case StateDraining:
		return "draining"
	}
	return "?"
}

type PollRate int

const (
	PollNormal PollRate = iota
	PollSlow
	PollVerySlow
)

func (r PollRate) Interval() time.Duration {
	switch r {
	case PollSlow:
		return 50 * time.Millisecond
	case PollVerySlow:
		return 500 * time.Millisecond
	}
	return 5 * time.Millisecond
}

func ParsePollRate(s string) (PollRate, error) {
	switch s {
	case "", "normal":
		return PollNormal, nil
	case "slow":
		return PollSlow, nil
	case "veryslow", "debug":
		return PollVerySlow, nil
	}
	return PollNormal, errBadPollRate(s)
}

type errBadPollRate string

func (e errBadPollRate) Error() string { return "unknown poll rate \"" + string(e) + "\"" }

type ActionKind int

const (
	ActionPoll ActionKind = iota
	ActionInit
	ActionWrite
	ActionControl
)

// Action is one unit of outbound work.  Words go on the wire as a
// single record, which is what keeps a burst atomic per station.
type Action struct {
	Kind  ActionKind
	Words []uint16
}

// EngineHooks connect an engine back to its scheduler without the
// engine holding the scheduler.
type EngineHooks struct {
	// OnActive is called when a quiet address answers for the first
	// time; it returns the freshly attached session.
	OnActive func(addr byte) *Session
	// OnGone is called when the station fell back to Unattached and
	// any session should be torn down.
	OnGone func(addr byte)
}

/* Power-on sequence.  Identical across the supported models; keyboard
   differences are entirely dictionary-driven. */

var initSequence = []struct {
	op     byte
	expect byte // status bit that advances the step
}{
	{CMD_RESET, STATUS_ACK},
	{CMD_QUERY_KBD_ID, STATUS_KBD_ID},
	{CMD_ENABLE_KBD, STATUS_ACK},
	{CMD_CLEAR, STATUS_ACK},
}

type Engine struct {
	addr  byte
	state StationState
	rate  PollRate
	hooks EngineHooks

	sess *Session

	lastPoll    time.Time
	outstanding bool
	deadline    time.Time

	initStep int
	retries  int

	misses    int
	parityRun int

	pending [][]uint16 // queued control commands

	draining bool // explicit detach in progress

	/* Attribute register the terminal currently holds, tracked so a
	   burst only re-sends it on change. */
	termAttr      Attr
	termAttrKnown bool
}

func NewEngine(addr byte, rate PollRate, hooks EngineHooks) *Engine {
	return &Engine{addr: addr, rate: rate, hooks: hooks}
}

func (e *Engine) Addr() byte          { return e.addr }
func (e *Engine) State() StationState { return e.state }
func (e *Engine) Rate() PollRate      { return e.rate }
func (e *Engine) Session() *Session   { return e.sess }

// Reset puts the engine back to its power-on state.  Runs on every
// (re)attach.
func (e *Engine) Reset() {
	e.state = StateUnattached
	e.outstanding = false
	e.initStep = 0
	e.retries = 0
	e.misses = 0
	e.parityRun = 0
	e.pending = nil
	e.draining = false
	e.termAttrKnown = false
	e.sess = nil
}

// SetClicker queues the keyboard clicker command.
func (e *Engine) SetClicker(on bool) {
	var op byte = CMD_CLICKER_OFF
	if on {
		op = CMD_CLICKER_ON
	}
	e.pending = append(e.pending, []uint16{CommandWord(e.addr, op)})
	if e.sess != nil {
		e.sess.Clicker = on
	}
}

// Detach starts a graceful teardown: one final clear goes out, then
// the session is released.
func (e *Engine) Detach() {
	if e.state == StateUnattached || e.state == StateDraining {
		return
	}
	e.state = StateDraining
	e.draining = true
	e.outstanding = false
}

/*-------------------------------------------------------------------
 *
 * Name:        Tick
 *
 * Purpose:     Advance the state machine; maybe produce one action.
 *
 * Description:	Never blocks.  An engine with an outstanding
 *		transaction only checks its deadline.  Priorities in
 *		Ready: queued control commands, then display bursts,
 *		then the periodic poll.
 *
 *--------------------------------------------------------------------*/

func (e *Engine) Tick(now time.Time) *Action {
	if e.outstanding {
		if now.After(e.deadline) {
			e.expire(now)
		}
		return nil
	}

	switch e.state {
	case StateUnattached:
		if now.Sub(e.lastPoll) >= PollNormal.Interval() {
			return e.poll(now)
		}

	case StateInitializing:
		var step = initSequence[e.initStep]
		e.begin(now)
		framelog("station %d init step %d op 0x%02X", e.addr, e.initStep, step.op)
		return &Action{Kind: ActionInit, Words: []uint16{CommandWord(e.addr, step.op)}}

	case StateReady:
		if len(e.pending) > 0 {
			var words = e.pending[0]
			e.pending = e.pending[1:]
			e.begin(now)
			e.state = StateWriting
			return &Action{Kind: ActionControl, Words: words}
		}
		if e.sess != nil && e.sess.Display.HasDirty() {
			var words = e.buildBurst()
			e.begin(now)
			e.state = StateWriting
			return &Action{Kind: ActionWrite, Words: words}
		}
		if now.Sub(e.lastPoll) >= e.rate.Interval() {
			return e.poll(now)
		}

	case StateWriting:
		/* Waiting for [EOTX]; deadline handled above. */

	case StateDraining:
		e.begin(now)
		e.state = StateWriting
		return &Action{Kind: ActionControl, Words: []uint16{CommandWord(e.addr, CMD_CLEAR)}}
	}

	return nil
}

func (e *Engine) poll(now time.Time) *Action {
	e.begin(now)
	e.lastPoll = now
	return &Action{Kind: ActionPoll, Words: []uint16{CommandWord(e.addr, CMD_POLL)}}
}

func (e *Engine) begin(now time.Time) {
	e.outstanding = true
	e.deadline = now.Add(e.rate.Interval() * POLL_DEADLINE_FACTOR)
}

func (e *Engine) expire(now time.Time) {
	e.outstanding = false

	switch e.state {
	case StateUnattached:
		/* Quiet address, nothing plugged in.  Keep polling. */

	case StateDraining:
		/* Terminal gone before the goodbye finished.  So be it. */
		e.finishDetach()

	case StateWriting:
		if e.draining {
			e.finishDetach()
			return
		}
		/* Burst never completed.  Treat as a miss and drop back to
		   Ready; the dirty extents were already consumed, so the
		   whole screen is marked for repaint by the next burst. */
		e.misses++
		e.state = StateReady
		if e.sess != nil {
			e.sess.Display.markAll()
		}
		e.checkMisses()

	default:
		e.misses++
		e.checkMisses()
	}
}

func (e *Engine) checkMisses() {
	if e.misses >= POLL_MISS_THRESHOLD {
		logger.Warn("station lost", "station", e.addr, "misses", e.misses)
		e.goUnattached()
	}
}

func (e *Engine) goUnattached() {
	var had = e.sess != nil
	/* The hook runs before Reset so it still sees the session. */
	if had && e.hooks.OnGone != nil {
		e.hooks.OnGone(e.addr)
	}
	e.Reset()
}

func (e *Engine) finishDetach() {
	e.goUnattached()
}

/*-------------------------------------------------------------------
 *
 * Name:        HandleEvent
 *
 * Purpose:     Process one inbound serial event for this station.
 *
 *--------------------------------------------------------------------*/

func (e *Engine) HandleEvent(ev SerialEvent, now time.Time) {
	switch ev.Kind {
	case EventDebugLine:
		logger.Debug("firmware", "msg", ev.Line)
	case EventMalformedFrame:
		logger.Warn("malformed frame", "line", ev.Line)
	case EventEndOfTransmission:
		e.handleEOTX()
	case EventDataWord:
		framelog("station %d <- %04X", e.addr, ev.Word)
		e.handleResponse(ClassifyResponse(ev.Word), now)
	}
}

func (e *Engine) handleEOTX() {
	if e.state != StateWriting {
		return
	}
	e.outstanding = false
	if e.draining {
		e.finishDetach()
		return
	}
	e.state = StateReady
}

func (e *Engine) handleResponse(r Response, now time.Time) {
	if r.Kind == RespParityError {
		e.parityRun++
		logger.Warn("parity error", "station", e.addr, "run", e.parityRun)
		if e.parityRun > PARITY_ERROR_THRESHOLD {
			e.goUnattached()
		}
		return
	}
	e.parityRun = 0

	switch r.Kind {
	case RespNull:
		e.outstanding = false
		e.misses = 0
		/* A null still proves something answered the poll. */
		e.onActivity()

	case RespScancode:
		e.outstanding = false
		e.misses = 0
		e.onActivity()
		if e.sess == nil {
			return
		}
		keylog("station %d scancode 0x%02X", e.addr, r.Scancode)
		var out = e.sess.Keyboard.Translate(r.Scancode)
		if len(out) > 0 {
			e.sess.QueueKeys(out)
		}

	case RespStatus:
		e.outstanding = false
		e.misses = 0
		e.handleStatus(r.Status, now)
	}
}

// onActivity promotes a quiet station the moment a terminal answers.
func (e *Engine) onActivity() {
	if e.state != StateUnattached {
		return
	}
	if e.hooks.OnActive != nil {
		e.sess = e.hooks.OnActive(e.addr)
	}
	if e.sess == nil {
		return
	}
	e.state = StateInitializing
	e.initStep = 0
	e.retries = 0
	logger.Info("terminal detected", "station", e.addr)
}

func (e *Engine) handleStatus(status byte, now time.Time) {
	if e.state == StateUnattached {
		e.onActivity()
		return
	}

	if status&STATUS_BUSY != 0 {
		e.retry()
		return
	}

	switch e.state {
	case StateInitializing:
		var step = initSequence[e.initStep]
		if status&step.expect == 0 {
			logger.Warn("unexpected init response", "station", e.addr,
				"step", e.initStep, "status", status)
			e.retry()
			return
		}
		e.retries = 0
		e.initStep++
		if e.initStep >= len(initSequence) {
			e.becomeReady()
		}

	case StateReady, StateWriting:
		e.retries = 0
		if e.sess != nil {
			e.sess.Display.SetStatus(e.addr,
				status&STATUS_INHIBITED != 0,
				status&STATUS_SYS_AVAIL != 0,
				status&STATUS_MSG_WAITING != 0)
		}
	}
}

func (e *Engine) becomeReady() {
	e.state = StateReady
	e.termAttrKnown = false
	logger.Info("station ready", "station", e.addr)

	if e.sess != nil && !e.sess.Clicker {
		e.pending = append(e.pending, []uint16{CommandWord(e.addr, CMD_CLICKER_OFF)})
	}
}

// retry re-issues the current step up to the limit, then gives up on
// the terminal.
func (e *Engine) retry() {
	e.retries++
	if e.retries > STEP_RETRY_LIMIT {
		logger.Warn("giving up on station", "station", e.addr, "state", e.state.String())
		e.goUnattached()
		return
	}
	/* Next Tick re-sends the step. */
	e.outstanding = false
}

/*-------------------------------------------------------------------
 *
 * Name:        buildBurst
 *
 * Purpose:     Turn the session's dirty extents into one write burst.
 *
 * Description:	Start Write, then per extent a position and the cells,
 *		with the attribute register re-sent only when it
 *		changes, then End Write.  ASCII cells become EBCDIC
 *		here, on their way to the wire.
 *
 *--------------------------------------------------------------------*/

func (e *Engine) buildBurst() []uint16 {
	var d = e.sess.Display
	var cp = e.sess.Codepage

	var words = []uint16{CommandWord(e.addr, CMD_START_WRITE)}

	for _, ext := range d.TakeDirty() {
		words = append(words, RowWord(ext.Row), ColWord(ext.C0))
		for col := ext.C0; col <= ext.C1; col++ {
			words = e.appendCell(words, d.CellAt(ext.Row, col), cp)
		}
	}

	if d.TakeStatusDirty() {
		var status = d.StatusRow()
		words = append(words, RowWord(SCREEN_ROWS), ColWord(0))
		for col := range status {
			words = e.appendCell(words, status[col], cp)
		}
	}

	words = append(words, CommandWord(e.addr, CMD_END_WRITE))
	return words
}

func (e *Engine) appendCell(words []uint16, c Cell, cp *Codepage) []uint16 {
	if !e.termAttrKnown || e.termAttr != c.Attr {
		words = append(words, AttrWord(byte(c.Attr)))
		e.termAttr = c.Attr
		e.termAttrKnown = true
	}
	return append(words, CharWord(cp.ASCIIToEBCDIC(c.Ch, e.sess.Override)))
}
