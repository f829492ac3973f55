package twinax

/*------------------------------------------------------------------
 *
 * Purpose:   	Interface to the converter's serial port, hiding the
 *		termios details.
 *
 * Description:	The firmware talks 57600 baud, 8N1, raw.  Reads are
 *		timed rather than blocking so the multiplexer loop can
 *		use the serial read as its tick.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"

	"github.com/pkg/term"
)

// OpenSerial opens and configures the converter device.  The returned
// value satisfies SerialLink.
func OpenSerial(devicename string) (*term.Term, error) {
	var t, err = term.Open(devicename, term.RawMode, term.Speed(SERIAL_BAUD))
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", devicename, err)
	}

	if err := t.Flush(); err != nil {
		t.Close()
		return nil, fmt.Errorf("flush serial port %s: %w", devicename, err)
	}

	logger.Info("serial port open", "device", devicename, "baud", SERIAL_BAUD)
	return t, nil
}
