package twinax

/*------------------------------------------------------------------
 *
 * Purpose:   	Built-in scancode dictionaries.
 *
 * Description: "enh" is the enhanced keyboard layout shared by the
 *		later terminals (3180, 3476, 3477, 3488) and is the
 *		default.  "typewriter" is the old 5251/5291 typewriter
 *		keyboard, which has no shift-release reporting, so shift
 *		behaves as a one-shot there.
 *
 *		Custom dictionaries can be loaded from YAML next to
 *		these, see config.go.
 *
 *---------------------------------------------------------------*/

import "fmt"

const ESC = 0x1B

/* Modifier scancodes common to both built-in layouts.  Break codes
   are make codes with the top bit set. */

const (
	SC_SHIFT_L  = 0x54
	SC_SHIFT_R  = 0x56
	SC_CTRL     = 0x58
	SC_ALT      = 0x5B
	SC_CAPS     = 0x7C
	SC_BREAK    = 0x80 /* OR'ed onto the make code on release */
	SC_UP       = 0x60
	SC_DOWN     = 0x61
	SC_LEFT     = 0x62
	SC_RIGHT    = 0x63
	SC_PF1      = 0x70
	SC_PF2      = 0x71
	SC_PF3      = 0x72
	SC_ENTER    = 0x51
	SC_BACKSPC  = 0x52
	SC_TAB      = 0x53
	SC_SPACE    = 0x50
	SC_FIELDEXT = 0x55 /* Field Exit, sent as CR like Enter */
)

func ctrlOf(letter byte) byte {
	return letter - 0x60
}

func letterSlot(letter byte) ScancodeSlot {
	return ScancodeSlot{
		Base:       letter,
		Shifted:    letter - 0x20,
		Controlled: ctrlOf(letter),
	}
}

func pairSlot(base, shifted byte) ScancodeSlot {
	return ScancodeSlot{Base: base, Shifted: shifted}
}

func escSlot(tail byte) ScancodeSlot {
	return ScancodeSlot{Base: ESC, Shifted: ESC, Alted: ESC, EscapeTail: tail}
}

func baseLayout() [256]ScancodeSlot {
	var m [256]ScancodeSlot

	/* Digit row. */
	var digitShift = []byte{'!', '@', '#', '$', '%', '^', '&', '*', '('}
	for i := range 9 {
		m[0x11+i] = pairSlot(byte('1'+i), digitShift[i])
	}
	m[0x1A] = pairSlot('0', ')')
	m[0x1B] = pairSlot('-', '_')
	m[0x1C] = pairSlot('=', '+')

	/* Letter rows, laid out the way the key matrix scans. */
	var qwerty = "qwertyuiop"
	for i := range len(qwerty) {
		m[0x21+i] = letterSlot(qwerty[i])
	}
	m[0x2B] = pairSlot('[', '{')
	m[0x2C] = pairSlot(']', '}')
	var home = "asdfghjkl"
	for i := range len(home) {
		m[0x31+i] = letterSlot(home[i])
	}
	m[0x3A] = pairSlot(';', ':')
	m[0x3B] = pairSlot('\'', '"')
	m[0x3C] = pairSlot('`', '~')
	m[0x3D] = ScancodeSlot{Base: '\\', Shifted: '|', Controlled: 0x1C}
	var bottom = "zxcvbnm"
	for i := range len(bottom) {
		m[0x41+i] = letterSlot(bottom[i])
	}
	m[0x48] = pairSlot(',', '<')
	m[0x49] = pairSlot('.', '>')
	m[0x4A] = pairSlot('/', '?')

	m[SC_SPACE] = ScancodeSlot{Base: ' ', Shifted: ' '}
	m[SC_ENTER] = ScancodeSlot{Base: 0x0D, Shifted: 0x0D, Controlled: 0x0A}
	m[SC_FIELDEXT] = ScancodeSlot{Base: 0x0D, Shifted: 0x0D}
	m[SC_BACKSPC] = ScancodeSlot{Base: 0x08, Shifted: 0x08}
	m[SC_TAB] = ScancodeSlot{Base: 0x09, Shifted: 0x09}

	/* Cursor keys and the first PF keys produce VT52 sequences. */
	m[SC_UP] = escSlot('A')
	m[SC_DOWN] = escSlot('B')
	m[SC_RIGHT] = escSlot('C')
	m[SC_LEFT] = escSlot('D')
	m[SC_PF1] = escSlot('P')
	m[SC_PF2] = escSlot('Q')
	m[SC_PF3] = escSlot('R')

	return m
}

var dictEnhanced = &ScancodeDict{
	Name:         "enh",
	Slots:        baseLayout(),
	ShiftPress:   []byte{SC_SHIFT_L, SC_SHIFT_R},
	ShiftRelease: []byte{SC_SHIFT_L | SC_BREAK, SC_SHIFT_R | SC_BREAK},
	CtrlPress:    []byte{SC_CTRL},
	CtrlRelease:  []byte{SC_CTRL | SC_BREAK},
	AltPress:     []byte{SC_ALT},
	AltRelease:   []byte{SC_ALT | SC_BREAK},
	CapsLock:     SC_CAPS,
}

/* The typewriter keyboards never report shift break, so shift is a
   one-shot there.  Ctrl/alt do not exist on them at all. */

var dictTypewriter = &ScancodeDict{
	Name:       "typewriter",
	Slots:      baseLayout(),
	ShiftPress: []byte{SC_SHIFT_L, SC_SHIFT_R},
	CapsLock:   SC_CAPS,
}

var dictionaries = map[string]*ScancodeDict{
	"enh":        dictEnhanced,
	"typewriter": dictTypewriter,
}

// LookupDict resolves a dictionary by name; the empty name yields the
// enhanced layout.
func LookupDict(name string) (*ScancodeDict, error) {
	if name == "" {
		name = "enh"
	}
	var d = dictionaries[name]
	if d == nil {
		return nil, fmt.Errorf("unknown scancode dictionary %q", name)
	}
	return d, nil
}

// RegisterDict makes a loaded dictionary selectable by station specs.
func RegisterDict(d *ScancodeDict) {
	dictionaries[d.Name] = d
}
