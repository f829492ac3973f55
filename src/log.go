package twinax

/*------------------------------------------------------------------
 *
 * Purpose:   	Logging for the converter.
 *
 * Description: Everything goes through one charmbracelet logger.
 *		Foreground runs write debug.log in the working
 *		directory; a daemonized run writes /tmp/debug.log.
 *
 *		Three chatty categories are gated by their own flags
 *		because each can flood the log at line rate:
 *
 *			frames    - every word on the serial link (-c)
 *			scancodes - keyboard traffic (-k)
 *			pty I/O   - shell input/output (-i)
 *
 *		Session transcripts, when enabled, get a timestamped
 *		file name built with a strftime pattern so consecutive
 *		runs never clobber each other.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
)

var logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	TimeFormat:      "15:04:05.000",
	Prefix:          "go5250",
})

var logFrames bool
var logScancodes bool
var logPTY bool

const LOG_FILE_FOREGROUND = "debug.log"
const LOG_FILE_DAEMON = "/tmp/debug.log"

// LogInit points the logger at its file and arms the category gates.
func LogInit(daemon, frames, scancodes, ptyIO bool) error {
	logFrames = frames
	logScancodes = scancodes
	logPTY = ptyIO

	var path = LOG_FILE_FOREGROUND
	if daemon {
		path = LOG_FILE_DAEMON
	}

	var f, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	logger.SetOutput(f)
	return nil
}

// TranscriptName builds a per-session transcript file name like
// /tmp/5250_station2_20260802_153000.log.
func TranscriptName(addr byte) (string, error) {
	var pattern = fmt.Sprintf("/tmp/5250_station%d_%%Y%%m%%d_%%H%%M%%S.log", addr)
	var f, err = strftime.New(pattern)
	if err != nil {
		return "", fmt.Errorf("transcript pattern: %w", err)
	}
	return f.FormatString(time.Now()), nil
}

func framelog(format string, args ...any) {
	if logFrames {
		logger.Debugf("frame: "+format, args...)
	}
}

func keylog(format string, args ...any) {
	if logScancodes {
		logger.Debugf("kbd: "+format, args...)
	}
}

func iolog(format string, args ...any) {
	if logPTY {
		logger.Debugf("pty: "+format, args...)
	}
}
