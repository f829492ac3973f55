package twinax

/*------------------------------------------------------------------
 *
 * Purpose:   	Find the converter's USB serial adapter when no device
 *		path was given on the command line.
 *
 * Description: Walks the udev tty subsystem looking for USB serial
 *		devices.  The reference converter hardware is an FTDI
 *		adapter, so FTDI's vendor ID wins when several serial
 *		adapters are plugged in; otherwise the first USB tty
 *		found is used.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"

	"github.com/jochenvg/go-udev"
)

const FTDI_VENDOR_ID = "0403"

// FindSerialDevice scans udev for a plausible converter device node.
func FindSerialDevice() (string, error) {
	var u udev.Udev
	var e = u.NewEnumerate()

	if err := e.AddMatchSubsystem("tty"); err != nil {
		return "", fmt.Errorf("udev enumerate: %w", err)
	}

	var devices, err = e.Devices()
	if err != nil {
		return "", fmt.Errorf("udev scan: %w", err)
	}

	var fallback = ""
	for _, d := range devices {
		if d.PropertyValue("ID_BUS") != "usb" || d.Devnode() == "" {
			continue
		}
		if d.PropertyValue("ID_VENDOR_ID") == FTDI_VENDOR_ID {
			logger.Info("found FTDI adapter", "device", d.Devnode(),
				"model", d.PropertyValue("ID_MODEL"))
			return d.Devnode(), nil
		}
		if fallback == "" {
			fallback = d.Devnode()
		}
	}

	if fallback != "" {
		logger.Info("found USB serial adapter", "device", fallback)
		return fallback, nil
	}
	return "", fmt.Errorf("no USB serial adapter found")
}
