package hostos

import (
	"net"
	"time"

	"github.com/pkg/errors"
)

// DefaultDeadline is the per-call timeout HostOS applies when the
// caller doesn't override it, per the spec's host-call deadline.
const DefaultDeadline = 5 * time.Second

// Client is how the ECALL dispatcher reaches a Server, whether it's
// linked into the same process or running behind cmd/hostosd. Both
// transports honor a deadline so a stuck host call can't wedge the VM
// step loop forever.
type Client interface {
	Call(req Request, deadline time.Duration) (Response, error)
}

// InProcessClient calls a Server directly with no marshalling, for the
// default cmd/rv32vm configuration where HostOS lives in the same
// process as the VM.
type InProcessClient struct {
	Server *Server
}

func (c *InProcessClient) Call(req Request, deadline time.Duration) (Response, error) {
	done := make(chan Response, 1)
	go func() { done <- c.Server.Handle(req) }()
	select {
	case resp := <-done:
		return resp, nil
	case <-time.After(deadline):
		return Response{}, errors.Errorf("hostos call %#x timed out after %s", req.Syscall, deadline)
	}
}

// NetClient speaks the length-prefixed frame codec over a net.Conn, for
// cmd/hostosd running as a separate process.
type NetClient struct {
	Conn net.Conn
}

func (c *NetClient) Call(req Request, deadline time.Duration) (Response, error) {
	if err := c.Conn.SetDeadline(time.Now().Add(deadline)); err != nil {
		return Response{}, errors.Wrap(err, "setting hostos call deadline")
	}
	if err := WriteFrame(c.Conn, &req); err != nil {
		return Response{}, errors.Wrap(err, "writing hostos request")
	}
	resp, err := ReadResponse(c.Conn)
	if err != nil {
		return Response{}, errors.Wrap(err, "reading hostos response")
	}
	return resp, nil
}

var _ Client = (*InProcessClient)(nil)
var _ Client = (*NetClient)(nil)
