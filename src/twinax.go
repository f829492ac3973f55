// Package twinax is the host-side protocol core of the 5250 twinax
// converter.  A microcontroller on the other end of a serial link does
// the Manchester coding on the physical twinax wire and exchanges one
// framed 16-bit word per terminal transaction with us; everything above
// that lives here: the polling discipline, station addressing, the 5250
// keyboard and display command encoding, a VT52 interpreter driving a
// display regen buffer, scancode decoding, EBCDIC translation, and the
// multiplexing of up to seven stations onto PTY-backed shell sessions.
package twinax

/*------------------------------------------------------------------
 *
 * Purpose:   	Shared constants for the twinax protocol core.
 *
 * Description: Stations are addressed 0..6 on the twinax bus; address
 *		7 is the broadcast/idle pattern and never carries a
 *		session.  The display model is the classic 5251 model 11
 *		geometry, 24 rows of 80 columns plus one status row.
 *
 *---------------------------------------------------------------*/

const MAX_STATIONS = 7 /* Legal station addresses 0..6. */

const BROADCAST_ADDR = 7

const SCREEN_ROWS = 24
const SCREEN_COLS = 80

/* Serial link to the converter firmware. */

const SERIAL_BAUD = 57600

/* Consecutive poll misses before a station is considered gone. */

const POLL_MISS_THRESHOLD = 8

/* Consecutive inbound parity errors before a station reset. */

const PARITY_ERROR_THRESHOLD = 4

/* Retries for a NAKed (busy) or unexpectedly answered protocol step.
   An unanswered step counts as a poll miss instead. */

const STEP_RETRY_LIMIT = 3

/* Poll deadline factor: a poll expires after pollInterval * this. */

const POLL_DEADLINE_FACTOR = 8
