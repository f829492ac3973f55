package twinax

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

/* In-memory stand-in for the firmware serial link. */

type fakeLink struct {
	in   []byte   // what the firmware "sent"
	recs [][]byte // records the host wrote, one per Write
}

func (l *fakeLink) Read(p []byte) (int, error) {
	var n = copy(p, l.in)
	l.in = l.in[n:]
	return n, nil
}

func (l *fakeLink) Write(p []byte) (int, error) {
	var rec = make([]byte, len(p))
	copy(rec, p)
	l.recs = append(l.recs, rec)
	return len(p), nil
}

func (l *fakeLink) Close() error                       { return nil }
func (l *fakeLink) SetReadTimeout(time.Duration) error { return nil }

func (l *fakeLink) push(words ...uint16) {
	l.in = append(l.in, EncodeRecord(words)...)
}

func (l *fakeLink) pushEOTX() {
	l.in = append(l.in, []byte("[EOTX]\n")...)
}

// lastWords decodes the most recent record the host wrote.
func (l *fakeLink) lastWords(t *testing.T) []uint16 {
	require.NotEmpty(t, l.recs)
	var rec = l.recs[len(l.recs)-1]
	require.Equal(t, byte(0x0A), rec[len(rec)-1])
	var payload = rec[:len(rec)-1]
	require.Zero(t, len(payload)%2)
	var words []uint16
	for i := 0; i+1 < len(payload); i += 2 {
		words = append(words, DecodeWord(payload[i], payload[i+1]))
	}
	return words
}

func testScheduler(t *testing.T, addrs ...byte) (*Scheduler, *fakeLink) {
	var cfg = Config{}
	for _, a := range addrs {
		cfg.Stations = append(cfg.Stations, StationConfig{Addr: a})
	}
	var link = &fakeLink{}
	var s, err = NewScheduler(cfg, link)
	require.NoError(t, err)
	return s, link
}

/* A session on a socketpair instead of a real PTY, so both ends can
   be exercised without forking shells. */

func pipeSession(t *testing.T, addr byte) (*Session, *os.File) {
	var fds, err = unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)

	var dict, _ = LookupDict("enh")
	var cp, _ = LookupCodepage("cp037")
	var sess = NewSession(addr, dict, cp, true)
	/* Wrap the fd while it is still blocking so os does not hand it
	   to the poller; only then make it non-blocking, so an empty read
	   returns EAGAIN instead of waiting. */
	sess.master = os.NewFile(uintptr(fds[0]), "ptmaster")
	require.NoError(t, unix.SetNonblock(fds[0], true))
	var peer = os.NewFile(uintptr(fds[1]), "ptpeer")
	t.Cleanup(func() {
		sess.master.Close()
		peer.Close()
	})
	return sess, peer
}

// plugIn wires a live session into a slot as if the terminal had just
// finished initializing.
func plugIn(s *Scheduler, sess *Session) {
	var slot = s.slots[sess.Addr]
	slot.engine.sess = sess
	slot.engine.state = StateReady
}

func Test_Scheduler_RoundRobinPolls(t *testing.T) {
	var s, link = testScheduler(t, 0, 1)
	/* Quiet addresses; keep them unattached. */
	s.slots[0].enabled = false
	s.slots[1].enabled = false

	var now = t0
	require.NoError(t, s.Step(now))
	assert.Equal(t, []uint16{CommandWord(0, CMD_POLL)}, link.lastWords(t))

	/* Station 0 owns the link until its response arrives. */
	link.push(0)
	require.NoError(t, s.Step(now))

	require.NoError(t, s.Step(now))
	assert.Equal(t, []uint16{CommandWord(1, CMD_POLL)}, link.lastWords(t))
}

func Test_Scheduler_OneTransactionOnTheLink(t *testing.T) {
	var s, link = testScheduler(t, 0, 1)
	s.slots[0].enabled = false
	s.slots[1].enabled = false

	require.NoError(t, s.Step(t0))
	var before = len(link.recs)

	/* No response: nothing else may transmit. */
	require.NoError(t, s.Step(t0.Add(time.Millisecond)))
	require.NoError(t, s.Step(t0.Add(2*time.Millisecond)))
	assert.Equal(t, before, len(link.recs))
}

func Test_Scheduler_ScancodesReachThePty(t *testing.T) {
	var s, link = testScheduler(t, 3)
	var sess, peer = pipeSession(t, 3)
	plugIn(s, sess)

	var now = t0
	require.NoError(t, s.Step(now)) // poll goes out
	link.push(ScancodeResponse(SC_SHIFT_L))
	link.push(ScancodeResponse(0x23))
	link.push(ScancodeResponse(SC_SHIFT_L | SC_BREAK))
	link.push(ScancodeResponse(0x28))
	require.NoError(t, s.Step(now))

	/* Decoded bytes land on the PTY in scancode order. */
	var buf [16]byte
	var n, err = peer.Read(buf[:])
	require.NoError(t, err)
	assert.Equal(t, "Ei", string(buf[:n]))
}

func Test_Scheduler_ShellOutputBecomesBurst(t *testing.T) {
	var s, link = testScheduler(t, 3)
	var sess, peer = pipeSession(t, 3)
	plugIn(s, sess)

	var _, err = peer.Write([]byte("$ "))
	require.NoError(t, err)

	var now = t0
	require.NoError(t, s.Step(now)) // poll + pump reads "$ "
	link.push(0)
	require.NoError(t, s.Step(now)) // response closes the poll

	now = now.Add(time.Millisecond)
	require.NoError(t, s.Step(now)) // burst goes out

	var words = link.lastWords(t)
	require.Greater(t, len(words), 2)
	assert.Equal(t, CommandWord(3, CMD_START_WRITE), words[0])
	assert.Equal(t, CommandWord(3, CMD_END_WRITE), words[len(words)-1])
	assert.Contains(t, words, CharWord(0x5B)) // '$' in cp037

	/* Whole burst in one record: nothing else interleaved. */
	link.pushEOTX()
	require.NoError(t, s.Step(now))
	assert.Equal(t, StateReady, s.slots[3].engine.State())
}

func Test_Scheduler_IdentifyAnswerFlowsBack(t *testing.T) {
	var s, _ = testScheduler(t, 0)
	var sess, peer = pipeSession(t, 0)
	plugIn(s, sess)

	peer.Write([]byte{0x1B, 'Z'})
	require.NoError(t, s.Step(t0))

	var buf [8]byte
	var n, err = peer.Read(buf[:])
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1B, '/', 'K'}, buf[:n])
}

func Test_Scheduler_ChildExitDetaches(t *testing.T) {
	var s, _ = testScheduler(t, 0)
	var sess, peer = pipeSession(t, 0)
	plugIn(s, sess)

	peer.Close()
	require.NoError(t, s.Step(t0))

	assert.Equal(t, StateDraining, s.slots[0].engine.State())
	assert.False(t, s.slots[0].enabled, "needs explicit attach afterwards")
}

func Test_Scheduler_ChildExitRespawnsInLoginMode(t *testing.T) {
	var s, _ = testScheduler(t, 0)
	s.cfg.Login = true
	var sess, peer = pipeSession(t, 0)
	plugIn(s, sess)

	peer.Close()
	require.NoError(t, s.Step(t0))

	assert.Equal(t, StateDraining, s.slots[0].engine.State())
	assert.True(t, s.slots[0].enabled, "login mode reattaches on its own")
}

func Test_Scheduler_AdminStatus(t *testing.T) {
	var s, _ = testScheduler(t, 0, 4)
	s.slots[0].enabled = false
	s.slots[4].enabled = false

	var req = adminReq{line: "status", reply: make(chan string, 1)}
	s.adminQ <- req
	require.NoError(t, s.Step(t0))

	var reply = <-req.reply
	assert.Contains(t, reply, "station 0: unattached")
	assert.Contains(t, reply, "station 4: unattached")
	assert.Contains(t, reply, "(disabled)")
}

func Test_Scheduler_AdminClicker(t *testing.T) {
	var s, link = testScheduler(t, 2)
	var sess, _ = pipeSession(t, 2)
	plugIn(s, sess)

	var req = adminReq{line: "clicker 2 off", reply: make(chan string, 1)}
	s.adminQ <- req
	require.NoError(t, s.Step(t0))
	assert.Equal(t, "ok", <-req.reply)
	assert.False(t, sess.Clicker)

	assert.Equal(t, []uint16{CommandWord(2, CMD_CLICKER_OFF)}, link.lastWords(t))
}

func Test_Scheduler_AdminQuit(t *testing.T) {
	var s, _ = testScheduler(t, 0)
	var req = adminReq{line: "quit", reply: make(chan string, 1)}
	s.adminQ <- req
	require.NoError(t, s.Step(t0))
	<-req.reply
	assert.True(t, s.quit)
}

func Test_Scheduler_DebugLinesAreNotDispatched(t *testing.T) {
	var s, link = testScheduler(t, 0)
	s.slots[0].enabled = false

	link.in = append(link.in, []byte("[DEBUG] carrier ok\n")...)
	require.NoError(t, s.Step(t0))
	/* The debug line was logged, not handed to a station; the only
	   transmission is this tick's own poll. */
	require.Len(t, link.recs, 1)
	assert.Equal(t, []uint16{CommandWord(0, CMD_POLL)}, link.lastWords(t))
}
