package twinax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Codepage_Lookup(t *testing.T) {
	var cp, err = LookupCodepage("")
	require.NoError(t, err)
	assert.Equal(t, "cp037", cp.Name)

	_, err = LookupCodepage("cp500")
	assert.NoError(t, err)

	_, err = LookupCodepage("cp1047")
	assert.Error(t, err)
}

func Test_Codepage_KnownCells(t *testing.T) {
	var cp, _ = LookupCodepage("cp037")

	assert.Equal(t, byte(' '), cp.EBCDICToASCII(0x40))
	assert.Equal(t, byte('A'), cp.EBCDICToASCII(0xC1))
	assert.Equal(t, byte('z'), cp.EBCDICToASCII(0xA9))
	assert.Equal(t, byte('0'), cp.EBCDICToASCII(0xF0))
	assert.Equal(t, byte('$'), cp.EBCDICToASCII(0x5B))

	assert.Equal(t, byte(0xC5), cp.ASCIIToEBCDIC('E', nil))
	assert.Equal(t, byte(0x40), cp.ASCIIToEBCDIC(' ', nil))
}

func Test_Codepage_PrintableRoundTrip(t *testing.T) {
	for _, name := range []string{"cp037", "cp500"} {
		var cp, _ = LookupCodepage(name)
		for a := byte(0x20); a < 0x7F; a++ {
			var e = cp.ASCIIToEBCDIC(a, nil)
			require.Equal(t, a, cp.EBCDICToASCII(e),
				"%s: ascii %q via ebcdic 0x%02X", name, a, e)
		}
	}
}

func Test_Codepage_UnmappedRendersQuestionMark(t *testing.T) {
	var cp, _ = LookupCodepage("cp037")

	/* 0x4A is the cent sign; there is no ASCII for it. */
	assert.False(t, cp.Mapped(0x4A))
	assert.Equal(t, byte('?'), cp.EBCDICToASCII(0x4A))
}

func Test_Codepage_Cp500Specials(t *testing.T) {
	var cp, _ = LookupCodepage("cp500")

	assert.Equal(t, byte('['), cp.EBCDICToASCII(0x4A))
	assert.Equal(t, byte('!'), cp.EBCDICToASCII(0x4F))
	assert.Equal(t, byte(']'), cp.EBCDICToASCII(0x5A))
	assert.Equal(t, byte('?'), cp.EBCDICToASCII(0xBA))
}

func Test_Codepage_OverrideWins(t *testing.T) {
	var cp, _ = LookupCodepage("cp037")
	var ov = map[byte]byte{'#': 0x4A}

	assert.Equal(t, byte(0x4A), cp.ASCIIToEBCDIC('#', ov))
	assert.Equal(t, byte(0x7B), cp.ASCIIToEBCDIC('#', nil))
	/* Other characters unaffected. */
	assert.Equal(t, byte(0xC1), cp.ASCIIToEBCDIC('A', ov))
}

func Test_Codepage_UnknownAsciiBecomesSub(t *testing.T) {
	var cp, _ = LookupCodepage("cp037")
	assert.Equal(t, byte(EBCDIC_SUB), cp.ASCIIToEBCDIC(0x80, nil))
}
