package twinax

/*------------------------------------------------------------------
 *
 * Purpose:   	EBCDIC <-> ASCII translation.
 *
 * Description: One codepage is a pair of 256-entry tables, immutable
 *		after load.  The default is cp037 (US/Canada); cp500
 *		(international) differs in the bracket, bang, caret and
 *		vertical bar positions.  EBCDIC characters with no ASCII counterpart
 *		translate to the UNMAPPED sentinel and are rendered '?'.
 *
 *		A session may carry an override map for the ASCII to
 *		EBCDIC direction, consulted before the table, for
 *		keyboards with odd national replacements.
 *
 *---------------------------------------------------------------*/

import "fmt"

const UNMAPPED = 0xFF

// EBCDIC SUB, used when an ASCII byte has no EBCDIC home.
const EBCDIC_SUB = 0x3F

type Codepage struct {
	Name string
	e2a  [256]byte
	a2e  [256]byte
}

/* cp037, printable and control range.  Entries not listed are UNMAPPED. */

var cp037Defined = map[byte]byte{
	0x00: 0x00, /* NUL */
	0x05: 0x09, /* HT */
	0x0B: 0x0B, /* VT */
	0x0C: 0x0C, /* FF */
	0x0D: 0x0D, /* CR */
	0x15: 0x0A, /* NL, folded onto LF */
	0x16: 0x08, /* BS */
	0x25: 0x0A, /* LF */
	0x27: 0x1B, /* ESC */
	0x2D: 0x05, /* ENQ */
	0x2F: 0x07, /* BEL */
	0x3F: 0x1A, /* SUB */

	0x40: ' ',
	0x4B: '.', 0x4C: '<', 0x4D: '(', 0x4E: '+', 0x4F: '|',
	0x50: '&',
	0x5A: '!', 0x5B: '$', 0x5C: '*', 0x5D: ')', 0x5E: ';',
	0x60: '-', 0x61: '/',
	0x6B: ',', 0x6C: '%', 0x6D: '_', 0x6E: '>', 0x6F: '?',
	0x79: '`', 0x7A: ':', 0x7B: '#', 0x7C: '@', 0x7D: '\'', 0x7E: '=', 0x7F: '"',

	0x81: 'a', 0x82: 'b', 0x83: 'c', 0x84: 'd', 0x85: 'e',
	0x86: 'f', 0x87: 'g', 0x88: 'h', 0x89: 'i',
	0x91: 'j', 0x92: 'k', 0x93: 'l', 0x94: 'm', 0x95: 'n',
	0x96: 'o', 0x97: 'p', 0x98: 'q', 0x99: 'r',
	0xA1: '~',
	0xA2: 's', 0xA3: 't', 0xA4: 'u', 0xA5: 'v', 0xA6: 'w',
	0xA7: 'x', 0xA8: 'y', 0xA9: 'z',

	0xB0: '^',
	0xBA: '[', 0xBB: ']',

	0xC0: '{',
	0xC1: 'A', 0xC2: 'B', 0xC3: 'C', 0xC4: 'D', 0xC5: 'E',
	0xC6: 'F', 0xC7: 'G', 0xC8: 'H', 0xC9: 'I',
	0xD0: '}',
	0xD1: 'J', 0xD2: 'K', 0xD3: 'L', 0xD4: 'M', 0xD5: 'N',
	0xD6: 'O', 0xD7: 'P', 0xD8: 'Q', 0xD9: 'R',
	0xE0: '\\',
	0xE2: 'S', 0xE3: 'T', 0xE4: 'U', 0xE5: 'V', 0xE6: 'W',
	0xE7: 'X', 0xE8: 'Y', 0xE9: 'Z',

	0xF0: '0', 0xF1: '1', 0xF2: '2', 0xF3: '3', 0xF4: '4',
	0xF5: '5', 0xF6: '6', 0xF7: '7', 0xF8: '8', 0xF9: '9',
}

/* cp500 is cp037 with the specials shuffled. */

var cp500Delta = map[byte]byte{
	0x4A: '[',
	0x4F: '!',
	0x5A: ']',
	0x5F: '^',
	0xBA: UNMAPPED,
	0xBB: '|',
	0xB0: UNMAPPED,
}

var codepages = map[string]*Codepage{}

func init() {
	var cp037 = buildCodepage("cp037", cp037Defined, nil)
	codepages["cp037"] = cp037
	codepages["cp500"] = buildCodepage("cp500", cp037Defined, cp500Delta)
}

func buildCodepage(name string, base map[byte]byte, delta map[byte]byte) *Codepage {
	var cp = &Codepage{Name: name}

	for i := range cp.e2a {
		cp.e2a[i] = UNMAPPED
	}
	for e, a := range base {
		cp.e2a[e] = a
	}
	for e, a := range delta {
		cp.e2a[e] = a
	}

	/* Invert for the keyboard direction.  Anything ASCII that has no
	   EBCDIC cell becomes SUB.  Where two EBCDIC codes render the
	   same ASCII byte (NL and LF both give 0x0A) the lower EBCDIC
	   code wins, which keeps LF mapping onto NL for typed input. */

	for i := range cp.a2e {
		cp.a2e[i] = EBCDIC_SUB
	}
	for e := 255; e >= 0; e-- {
		var a = cp.e2a[e]
		if a != UNMAPPED {
			cp.a2e[a] = byte(e)
		}
	}

	return cp
}

// LookupCodepage resolves a codepage by name; the empty name yields
// the default cp037.
func LookupCodepage(name string) (*Codepage, error) {
	if name == "" {
		name = "cp037"
	}
	var cp = codepages[name]
	if cp == nil {
		return nil, fmt.Errorf("unknown codepage %q", name)
	}
	return cp, nil
}

// EBCDICToASCII translates one display character.  Unmapped characters
// render as '?'.
func (cp *Codepage) EBCDICToASCII(e byte) byte {
	var a = cp.e2a[e]
	if a == UNMAPPED {
		return '?'
	}
	return a
}

// ASCIIToEBCDIC translates one typed character, consulting the session
// override map first.
func (cp *Codepage) ASCIIToEBCDIC(a byte, override map[byte]byte) byte {
	if override != nil {
		if e, ok := override[a]; ok {
			return e
		}
	}
	return cp.a2e[a]
}

// Mapped reports whether an EBCDIC code has an ASCII counterpart.
func (cp *Codepage) Mapped(e byte) bool {
	return cp.e2a[e] != UNMAPPED
}
