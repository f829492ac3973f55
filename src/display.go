package twinax

/*------------------------------------------------------------------
 *
 * Purpose:   	Per-session display model: the 24x80 regen buffer the
 *		terminal shows, driven by VT52 output from the shell.
 *
 * Description: The shell's output never goes to the wire directly.
 *		The parser here mutates an in-memory cell grid and marks
 *		dirty extents; the station engine later turns the dirty
 *		extents into a 5250 write burst.  That decoupling is what
 *		lets one serial link serve seven terminals without any
 *		session stalling the others.
 *
 *		The parser is a pure (state, byte) transition machine.
 *		States: ground, just seen ESC, and the two bytes of the
 *		ESC Y direct cursor address.
 *
 *		The one-row status line is separate from the application
 *		buffer; VT52 output can never touch it.
 *
 *---------------------------------------------------------------*/

import "fmt"

/* Cell attribute flags. */

type Attr byte

const (
	ATTR_BRIGHT Attr = 1 << iota
	ATTR_REVERSE
	ATTR_UNDERLINE
	ATTR_BLINK
	ATTR_NONDISPLAY
	ATTR_COLSEP
)

// Cell is one screen position: an ASCII character plus attributes.
// Translation to the terminal's EBCDIC happens at burst-encoding time.
type Cell struct {
	Ch   byte
	Attr Attr
}

var blankCell = Cell{Ch: ' '}

// Extent is a dirty span on a single row, columns C0..C1 inclusive.
type Extent struct {
	Row, C0, C1 int
}

type parseState int

const (
	psGround parseState = iota
	psEsc
	psEscYRow
	psEscYCol
)

type Display struct {
	cells [SCREEN_ROWS][SCREEN_COLS]Cell

	row, col           int
	savedRow, savedCol int
	attr               Attr

	state  parseState
	escRow int // pending row byte of ESC Y

	altKeypad bool

	dirty []Extent

	status      [SCREEN_COLS]Cell
	statusDirty bool

	reply []byte // bytes owed to the application (ESC Z answer)
}

func NewDisplay() *Display {
	var d = &Display{}
	d.clearScreen()
	d.dirty = nil // a fresh display owes the terminal nothing yet
	return d
}

func (d *Display) Cursor() (int, int) { return d.row, d.col }

func (d *Display) CellAt(row, col int) Cell { return d.cells[row][col] }

func (d *Display) AltKeypad() bool { return d.altKeypad }

// Feed runs shell output through the VT52 parser.
func (d *Display) Feed(p []byte) {
	for _, b := range p {
		d.step(b)
	}
}

func (d *Display) step(b byte) {
	switch d.state {
	case psEsc:
		d.state = psGround
		d.escape(b)
	case psEscYRow:
		d.escRow = clamp(int(b)-0x20, 0, SCREEN_ROWS-1)
		d.state = psEscYCol
	case psEscYCol:
		d.row = d.escRow
		d.col = clamp(int(b)-0x20, 0, SCREEN_COLS-1)
		d.state = psGround
	default:
		d.ground(b)
	}
}

func (d *Display) ground(b byte) {
	switch b {
	case 0x1B:
		d.state = psEsc
	case 0x0A:
		d.lineFeed()
	case 0x0D:
		d.col = 0
	case 0x08:
		if d.col > 0 {
			d.col--
		}
	case 0x09:
		d.col = clamp((d.col/8+1)*8, 0, SCREEN_COLS-1)
	case 0x07:
		/* BEL.  The 5250 clicker is driven per keystroke by the
		   terminal itself, nothing to do here. */
	default:
		if b >= 0x20 && b < 0x7F {
			d.put(b)
		}
		/* Other controls are dropped. */
	}
}

func (d *Display) escape(b byte) {
	switch b {
	case 'A':
		if d.row > 0 {
			d.row--
		}
	case 'B':
		if d.row < SCREEN_ROWS-1 {
			d.row++
		}
	case 'C':
		if d.col < SCREEN_COLS-1 {
			d.col++
		}
	case 'D':
		if d.col > 0 {
			d.col--
		}
	case 'H':
		d.row, d.col = 0, 0
	case 'I':
		d.reverseLineFeed()
	case 'J':
		d.eraseToEndOfScreen()
	case 'K':
		d.eraseToEndOfLine()
	case 'Y':
		d.state = psEscYRow
	case 'E':
		d.clearScreen()
	case 'Z':
		d.reply = append(d.reply, 0x1B, '/', 'K')
	case '=':
		d.altKeypad = true
	case '>':
		d.altKeypad = false
	case 'p':
		d.attr |= ATTR_REVERSE
	case 'q':
		d.attr &^= ATTR_REVERSE
	case 'j':
		d.savedRow, d.savedCol = d.row, d.col
	case 'k':
		d.row, d.col = d.savedRow, d.savedCol
	default:
		iolog("unrecognized escape ESC %q", b)
	}
}

func (d *Display) put(b byte) {
	d.cells[d.row][d.col] = Cell{Ch: b, Attr: d.attr}
	d.markDirty(d.row, d.col, d.col)
	if d.col < SCREEN_COLS-1 {
		d.col++
	}
	/* At column 79 the cursor holds; the next printable overwrites.
	   Wrapping is the application's job, same as a real VT52. */
}

func (d *Display) lineFeed() {
	if d.row < SCREEN_ROWS-1 {
		d.row++
		return
	}
	/* Scroll up, top row discarded. */
	copy(d.cells[0:], d.cells[1:])
	d.fillRow(SCREEN_ROWS-1, blankCellWith(d.attr))
	d.markAll()
}

func (d *Display) reverseLineFeed() {
	if d.row > 0 {
		d.row--
		return
	}
	copy(d.cells[1:], d.cells[0:SCREEN_ROWS-1])
	d.fillRow(0, blankCellWith(d.attr))
	d.markAll()
}

func blankCellWith(a Attr) Cell {
	return Cell{Ch: ' ', Attr: a}
}

func (d *Display) fillRow(row int, c Cell) {
	for col := range d.cells[row] {
		d.cells[row][col] = c
	}
}

func (d *Display) eraseToEndOfLine() {
	for col := d.col; col < SCREEN_COLS; col++ {
		d.cells[d.row][col] = blankCellWith(d.attr)
	}
	d.markDirty(d.row, d.col, SCREEN_COLS-1)
}

func (d *Display) eraseToEndOfScreen() {
	d.eraseToEndOfLine()
	for row := d.row + 1; row < SCREEN_ROWS; row++ {
		d.fillRow(row, blankCellWith(d.attr))
		d.markDirty(row, 0, SCREEN_COLS-1)
	}
}

func (d *Display) clearScreen() {
	for row := range d.cells {
		d.fillRow(row, blankCell)
	}
	d.row, d.col = 0, 0
	d.attr = 0
	d.markAll()
}

/*-------------------------------------------------------------------
 *
 * Name:        markDirty
 *
 * Purpose:     Record a span of changed cells for the next burst.
 *
 * Description:	Two pending extents on the same row whose column spans
 *		touch or overlap are combined, so a shell repainting a
 *		line cell by cell still goes out as one burst.
 *
 *--------------------------------------------------------------------*/

func (d *Display) markDirty(row, c0, c1 int) {
	for i := range d.dirty {
		var e = &d.dirty[i]
		if e.Row == row && c0 <= e.C1+1 && e.C0 <= c1+1 {
			e.C0 = min(e.C0, c0)
			e.C1 = max(e.C1, c1)
			return
		}
	}
	d.dirty = append(d.dirty, Extent{Row: row, C0: c0, C1: c1})
}

func (d *Display) markAll() {
	d.dirty = d.dirty[:0]
	for row := 0; row < SCREEN_ROWS; row++ {
		d.dirty = append(d.dirty, Extent{Row: row, C0: 0, C1: SCREEN_COLS - 1})
	}
}

// HasDirty reports whether a burst is owed to the terminal.
func (d *Display) HasDirty() bool {
	return len(d.dirty) > 0 || d.statusDirty
}

// TakeDirty atomically consumes the pending extents.
func (d *Display) TakeDirty() []Extent {
	var out = d.dirty
	d.dirty = nil
	return out
}

// TakeReply consumes bytes owed back to the application, such as the
// ESC Z identify answer.
func (d *Display) TakeReply() []byte {
	var out = d.reply
	d.reply = nil
	return out
}

/*-------------------------------------------------------------------
 *
 * Name:        SetStatus
 *
 * Purpose:     Format the operator status row from terminal indicator
 *		bits.  Rendered in reverse video, 5250 style.
 *
 *--------------------------------------------------------------------*/

func (d *Display) SetStatus(addr byte, inhibited, sysAvail, msgWaiting bool) {
	var text = fmt.Sprintf(" STATION %d ", addr)
	if sysAvail {
		text += " SA"
	}
	if inhibited {
		text += " II"
	}
	if msgWaiting {
		text += " MW"
	}

	for col := range d.status {
		var c = Cell{Ch: ' ', Attr: ATTR_REVERSE}
		if col < len(text) {
			c.Ch = text[col]
		}
		d.status[col] = c
	}
	d.statusDirty = true
}

// StatusRow returns the status cells; TakeStatusDirty consumes the
// pending-repaint flag.
func (d *Display) StatusRow() [SCREEN_COLS]Cell { return d.status }

func (d *Display) TakeStatusDirty() bool {
	var was = d.statusDirty
	d.statusDirty = false
	return was
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
