package twinax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func Test_EncodeWord(t *testing.T) {
	var b1, b2 = EncodeWord(0x7FF0)
	assert.Equal(t, byte(0x7F), b1)
	assert.Equal(t, byte(0x5F), b2)

	b1, b2 = EncodeWord(0x0000)
	assert.Equal(t, byte(0x40), b1)
	assert.Equal(t, byte(0x40), b2)

	/* Both bytes always land in the printable range. */
	for w := 0; w <= 0xFFFF; w += 0x31 {
		b1, b2 = EncodeWord(uint16(w))
		assert.GreaterOrEqual(t, b1, byte(0x40))
		assert.GreaterOrEqual(t, b2, byte(0x40))
	}
}

func Test_DecodeWord_Inverse(t *testing.T) {
	var w = CommandWord(3, CMD_POLL)
	var b1, b2 = EncodeWord(w)
	assert.Equal(t, w, DecodeWord(b1, b2))
}

func Test_WordRoundTrip_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var w = rapid.Uint16().Draw(t, "w") & 0x3FF0 // unused bits clear
		var b1, b2 = EncodeWord(w)
		if DecodeWord(b1, b2) != w {
			t.Fatalf("round trip broke: %04X", w)
		}
	})
}

func Test_EncodeRecord(t *testing.T) {
	var rec = EncodeRecord([]uint16{0x0000, 0x7FF0})
	require.Len(t, rec, 5)
	assert.Equal(t, byte(0x0A), rec[4])
	assert.Equal(t, []byte{0x40, 0x40, 0x7F, 0x5F}, rec[:4])
}

func feedAll(c *SerialCodec, p []byte) []SerialEvent {
	var evs []SerialEvent
	c.Feed(p, func(ev SerialEvent) { evs = append(evs, ev) })
	return evs
}

func Test_Codec_DataRecord(t *testing.T) {
	var c = NewSerialCodec()
	var rec = EncodeRecord([]uint16{CommandWord(0, CMD_POLL), CharWord(0xC5)})

	var evs = feedAll(c, rec)
	require.Len(t, evs, 2)
	assert.Equal(t, EventDataWord, evs[0].Kind)
	assert.Equal(t, CommandWord(0, CMD_POLL), evs[0].Word)
	assert.Equal(t, CharWord(0xC5), evs[1].Word)
}

func Test_Codec_Tokens(t *testing.T) {
	var c = NewSerialCodec()

	var evs = feedAll(c, []byte("[DEBUG] poll loop running\n[EOTX]\n"))
	require.Len(t, evs, 2)
	assert.Equal(t, EventDebugLine, evs[0].Kind)
	assert.Equal(t, "poll loop running", evs[0].Line)
	assert.Equal(t, EventEndOfTransmission, evs[1].Kind)
}

func Test_Codec_Malformed(t *testing.T) {
	var c = NewSerialCodec()

	/* Three payload bytes cannot be word pairs. */
	var evs = feedAll(c, []byte{0x41, 0x42, 0x43, 0x0A})
	require.Len(t, evs, 1)
	assert.Equal(t, EventMalformedFrame, evs[0].Kind)
	assert.Equal(t, 1, c.BadFrames)

	/* The stream keeps going afterwards. */
	evs = feedAll(c, EncodeRecord([]uint16{0x1230}))
	require.Len(t, evs, 1)
	assert.Equal(t, EventDataWord, evs[0].Kind)
}

func Test_Codec_PartialFeeds(t *testing.T) {
	var c = NewSerialCodec()
	var rec = EncodeRecord([]uint16{0x2340, 0x0050})

	var evs = feedAll(c, rec[:1])
	assert.Empty(t, evs)
	evs = feedAll(c, rec[1:3])
	assert.Empty(t, evs)
	evs = feedAll(c, rec[3:])
	require.Len(t, evs, 2)
	assert.Equal(t, uint16(0x2340), evs[0].Word)
	assert.Equal(t, uint16(0x0050), evs[1].Word)
}

func Test_Codec_BlankRecordIgnored(t *testing.T) {
	var c = NewSerialCodec()
	assert.Empty(t, feedAll(c, []byte{0x0A, 0x0A}))
	assert.Zero(t, c.BadFrames)
}
