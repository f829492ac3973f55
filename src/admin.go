package twinax

/*------------------------------------------------------------------
 *
 * Purpose:   	Administrative command shell over TCP or a Unix socket.
 *
 * Description: A tiny line protocol for poking at a running converter:
 *
 *			status
 *			attach N / detach N / restart N
 *			clicker N on|off
 *			quit
 *
 *		The accept loops run on their own goroutines but never
 *		touch scheduler state: every parsed line goes onto the
 *		admin queue and is executed by the main loop, which
 *		sends the reply back through the request's channel.
 *
 *---------------------------------------------------------------*/

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"
)

const ADMIN_TCP_PORT = 5251
const ADMIN_UNIX_SOCKET = "/tmp/5250_cmd_sock"

// ServeAdminTCP announces and serves the admin shell on TCP.
func ServeAdminTCP(q chan<- adminReq) error {
	var ln, err = net.Listen("tcp", fmt.Sprintf(":%d", ADMIN_TCP_PORT))
	if err != nil {
		return fmt.Errorf("admin listen: %w", err)
	}
	logger.Info("admin shell listening", "tcp", ADMIN_TCP_PORT)

	announceAdminService(ADMIN_TCP_PORT)

	go acceptLoop(ln, q)
	return nil
}

// ServeAdminUnix serves the admin shell on the well-known socket path.
func ServeAdminUnix(q chan<- adminReq) error {
	os.Remove(ADMIN_UNIX_SOCKET)
	var ln, err = net.Listen("unix", ADMIN_UNIX_SOCKET)
	if err != nil {
		return fmt.Errorf("admin listen: %w", err)
	}
	logger.Info("admin shell listening", "socket", ADMIN_UNIX_SOCKET)

	go acceptLoop(ln, q)
	return nil
}

func acceptLoop(ln net.Listener, q chan<- adminReq) {
	for {
		var conn, err = ln.Accept()
		if err != nil {
			logger.Warn("admin accept", "err", err)
			return
		}
		go serveConn(conn, q)
	}
}

func serveConn(conn net.Conn, q chan<- adminReq) {
	defer conn.Close()

	fmt.Fprintf(conn, "5250 converter admin\n")

	var sc = bufio.NewScanner(conn)
	for sc.Scan() {
		var line = strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		var req = adminReq{line: line, reply: make(chan string, 1)}
		q <- req
		var reply = <-req.reply
		fmt.Fprintf(conn, "%s\n", reply)

		if line == "quit" {
			return
		}
	}
}
