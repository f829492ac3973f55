package twinax

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_CommandWord_Fields(t *testing.T) {
	var w = CommandWord(5, CMD_START_WRITE)

	assert.Equal(t, uint16(1), w>>14&1)
	assert.Equal(t, uint16(5), w>>11&0x7)
	assert.Equal(t, uint16(CMD_START_WRITE), w>>4&0x7F)

	/* Only transported bits may be set. */
	assert.Zero(t, w&^uint16(0x7FF0))
}

func Test_DataWords_Fields(t *testing.T) {
	assert.Equal(t, uint16(0x0C50), CharWord(0xC5))
	assert.Equal(t, uint16(0x1030), AttrWord(byte(ATTR_BRIGHT|ATTR_REVERSE)))
	assert.Equal(t, uint16(0x2170), RowWord(23))
	assert.Equal(t, uint16(0x34F0), ColWord(79))

	for _, w := range []uint16{CharWord(0xFF), AttrWord(0x3F), RowWord(24), ColWord(79)} {
		assert.Zero(t, w&(1<<14), "data words carry a clear discriminator")
		assert.Zero(t, w&^uint16(0x7FF0))
	}
}

func Test_EvenParity16(t *testing.T) {
	assert.False(t, EvenParity16(0x0000))
	assert.True(t, EvenParity16(0x0001))
	assert.True(t, EvenParity16(0x8000))
	assert.False(t, EvenParity16(0x8001)) // one bit in each byte cancels out
	assert.False(t, EvenParity16(0x0003))
}

func Test_Classify_Null(t *testing.T) {
	var r = ClassifyResponse(0)
	assert.Equal(t, RespNull, r.Kind)
}

func Test_Classify_Scancode(t *testing.T) {
	var r = ClassifyResponse(ScancodeResponse(0x23))
	assert.Equal(t, RespScancode, r.Kind)
	assert.Equal(t, byte(0x23), r.Scancode)

	r = ClassifyResponse(ScancodeResponse(0x00))
	assert.Equal(t, RespScancode, r.Kind)
	assert.Equal(t, byte(0x00), r.Scancode)
}

func Test_Classify_Status(t *testing.T) {
	var r = ClassifyResponse(StatusResponse(STATUS_ACK | STATUS_SYS_AVAIL))
	assert.Equal(t, RespStatus, r.Kind)
	assert.Equal(t, byte(STATUS_ACK|STATUS_SYS_AVAIL), r.Status)
}

func Test_Classify_ParityError(t *testing.T) {
	/* Flip one payload bit; the parity bit no longer matches. */
	var w = ScancodeResponse(0x23) ^ 0x0040
	assert.Equal(t, RespParityError, ClassifyResponse(w).Kind)

	w = StatusResponse(STATUS_ACK) ^ 0x0080
	assert.Equal(t, RespParityError, ClassifyResponse(w).Kind)
}

func Test_Responses_RoundTrip_Words(t *testing.T) {
	/* Inbound words must survive the serial encoding like any other. */
	for _, w := range []uint16{ScancodeResponse(0xA7), StatusResponse(STATUS_BUSY)} {
		var b1, b2 = EncodeWord(w)
		assert.Equal(t, w, DecodeWord(b1, b2))
	}
}
