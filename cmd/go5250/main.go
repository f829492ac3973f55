package main

/*------------------------------------------------------------------
 *
 * Purpose:   	Main program for the 5250 twinax converter host.
 *
 * Description:	Bridges IBM 5250 twinax terminals to login shells.
 *		The physical layer lives in the converter firmware on
 *		the other end of a serial link; this program runs the
 *		polling discipline and presents each terminal as a
 *		VT52-like device backed by a pseudo terminal.
 *
 * Usage:	go5250 [options] addr[:dict[:poll[:codepage]]] ...
 *
 * Exit codes:	0 clean shutdown
 *		1 configuration error
 *		2 serial port failure
 *		3 PTY allocation failure
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/creack/pty"
	"github.com/spf13/pflag"

	twinax "github.com/inmbolmie/go5250/src"
)

func main() {
	os.Exit(run())
}

func run() int {
	var device = pflag.StringP("tty", "t", "", "Serial device of the converter (default: autodetect).")
	var silent = pflag.BoolP("silent", "s", false, "Start with the keyboard clicker off.")
	var logFrames = pflag.BoolP("log-frames", "c", false, "Log every word on the serial link.")
	var logKeys = pflag.BoolP("log-scancodes", "k", false, "Log keyboard scancode traffic.")
	var logIO = pflag.BoolP("log-pty", "i", false, "Log PTY input/output.")
	var daemon = pflag.BoolP("daemon", "d", false, "Daemon mode: log to /tmp/debug.log and ignore SIGHUP.")
	var adminTCP = pflag.BoolP("admin-tcp", "p", false, fmt.Sprintf("Admin shell on TCP port %d.", twinax.ADMIN_TCP_PORT))
	var adminUnix = pflag.BoolP("admin-unix", "u", false, "Admin shell on "+twinax.ADMIN_UNIX_SOCKET+".")
	var login = pflag.BoolP("login", "l", false, "Run login shells; respawn on exit.")
	var dictFile = pflag.String("dict-file", "", "Load a custom scancode dictionary (YAML).")
	var overrideFile = pflag.String("override-file", "", "Load ASCII to EBCDIC overrides for all stations (YAML).")
	var help = pflag.BoolP("help", "h", false, "Show this help.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: go5250 [options] addr[:dict[:poll[:codepage]]] ...\n\n")
		fmt.Fprintf(os.Stderr, "Each positional argument configures one twinax station (0..6).\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		return 0
	}

	if err := twinax.LogInit(*daemon, *logFrames, *logKeys, *logIO); err != nil {
		fmt.Fprintf(os.Stderr, "go5250: %v\n", err)
		return 1
	}

	var cfg = twinax.Config{
		Device:        *device,
		Login:         *login,
		ClickerSilent: *silent,
		Daemon:        *daemon,
		LogFrames:     *logFrames,
		LogScancodes:  *logKeys,
		LogPTY:        *logIO,
		AdminTCP:      *adminTCP,
		AdminUnix:     *adminUnix,
	}

	if *dictFile != "" {
		if _, err := twinax.LoadDictFile(*dictFile); err != nil {
			fmt.Fprintf(os.Stderr, "go5250: %v\n", err)
			return 1
		}
	}

	var overrides map[byte]byte
	if *overrideFile != "" {
		var ov, err = twinax.LoadOverrideFile(*overrideFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "go5250: %v\n", err)
			return 1
		}
		overrides = ov
	}

	for _, spec := range pflag.Args() {
		var sc, err = twinax.ParseStationSpec(spec)
		if err != nil {
			fmt.Fprintf(os.Stderr, "go5250: %v\n", err)
			return 1
		}
		sc.Override = overrides
		cfg.Stations = append(cfg.Stations, sc)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "go5250: %v\n", err)
		pflag.Usage()
		return 1
	}

	/* Make sure PTY allocation works at all before touching the
	   hardware; better to fail now than at first attach. */
	if m, sl, err := pty.Open(); err != nil {
		fmt.Fprintf(os.Stderr, "go5250: pty allocation: %v\n", err)
		return 3
	} else {
		m.Close()
		sl.Close()
	}

	if cfg.Device == "" {
		var dev, err = twinax.FindSerialDevice()
		if err != nil {
			fmt.Fprintf(os.Stderr, "go5250: %v (use -t DEVICE)\n", err)
			return 2
		}
		cfg.Device = dev
	}

	var link, err = twinax.OpenSerial(cfg.Device)
	if err != nil {
		fmt.Fprintf(os.Stderr, "go5250: %v\n", err)
		return 2
	}
	defer link.Close()

	sched, err := twinax.NewScheduler(cfg, link)
	if err != nil {
		fmt.Fprintf(os.Stderr, "go5250: %v\n", err)
		return 1
	}

	if cfg.AdminTCP {
		if err := twinax.ServeAdminTCP(sched.AdminQueue()); err != nil {
			fmt.Fprintf(os.Stderr, "go5250: %v\n", err)
			return 1
		}
	}
	if cfg.AdminUnix {
		if err := twinax.ServeAdminUnix(sched.AdminQueue()); err != nil {
			fmt.Fprintf(os.Stderr, "go5250: %v\n", err)
			return 1
		}
	}

	if cfg.Daemon {
		/* The service manager owns real daemonization these days;
		   we just stop caring about the controlling terminal. */
		signal.Ignore(syscall.SIGHUP)
	}

	if err := sched.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "go5250: %v\n", err)
		return 2
	}
	return 0
}
