package twinax

/*------------------------------------------------------------------
 *
 * Purpose:   	Announce the admin TCP service with DNS-SD.
 *
 * Description: Anyone on the LAN who wants to poke the converter can
 *		find it by browsing instead of remembering which machine
 *		the twinax cable runs to.  Uses the pure-Go dnssd
 *		package, no system daemon needed.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"os"

	"github.com/brutella/dnssd"
)

const DNS_SD_SERVICE = "_5250-conv._tcp"

func announceAdminService(port int) {
	var name, _ = os.Hostname()
	if name == "" {
		name = "go5250"
	}

	var cfg = dnssd.Config{ //nolint:exhaustruct
		Name: name,
		Type: DNS_SD_SERVICE,
		Port: port,
	}

	var sv, svErr = dnssd.NewService(cfg)
	if svErr != nil {
		logger.Warn("DNS-SD service", "err", svErr)
		return
	}

	var rp, rpErr = dnssd.NewResponder()
	if rpErr != nil {
		logger.Warn("DNS-SD responder", "err", rpErr)
		return
	}

	if _, err := rp.Add(sv); err != nil {
		logger.Warn("DNS-SD add", "err", err)
		return
	}

	logger.Info("DNS-SD announcing", "service", DNS_SD_SERVICE, "port", port)

	go func() {
		if err := rp.Respond(context.Background()); err != nil {
			logger.Warn("DNS-SD responder stopped", "err", err)
		}
	}()
}
