// Command hostosd runs a HostOS server standalone, listening on a unix
// socket and serving the same request/response frame codec the
// in-process server speaks — so a VM can run in one process while its
// file/socket descriptor table lives in another, the split transport
// the wire codec was designed to support.
package main

import (
	"flag"
	"log"
	"net"
	"os"

	"github.com/pkg/errors"

	"github.com/riscvcorn/rv32vm/go/hostos"
)

func main() {
	sockPath := flag.String("sock", "/tmp/hostosd.sock", "unix socket path to listen on")
	descriptorStart := flag.Int("descriptor-start", 3, "first descriptor number handed out")
	pipeQueue := flag.Int("pipe-queue-capacity", 64, "inbound datagram queue depth per pipe")
	flag.Parse()

	if err := os.Remove(*sockPath); err != nil && !os.IsNotExist(err) {
		log.Fatal(errors.Wrapf(err, "clearing stale socket %s", *sockPath))
	}
	listener, err := net.Listen("unix", *sockPath)
	if err != nil {
		log.Fatal(errors.Wrapf(err, "listening on %s", *sockPath))
	}
	defer listener.Close()
	log.Printf("hostosd listening on %s", *sockPath)

	server := hostos.NewServer(int32(*descriptorStart), *pipeQueue)
	for {
		conn, err := listener.Accept()
		if err != nil {
			log.Fatal(errors.Wrap(err, "accept"))
		}
		go serve(server, conn)
	}
}

func serve(server *hostos.Server, conn net.Conn) {
	defer conn.Close()
	for {
		req, err := hostos.ReadRequest(conn)
		if err != nil {
			return
		}
		resp := server.Handle(req)
		if err := hostos.WriteFrame(conn, &resp); err != nil {
			return
		}
	}
}
