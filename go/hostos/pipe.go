package hostos

import (
	"net"
	"sync"

	"golang.org/x/sys/unix"
)

// pipeDescriptor is a UDP "pipe": a background goroutine drains
// datagrams off the socket into a bounded channel, so Read never blocks
// the VM's step loop — it either returns a queued datagram or
// ErrWouldBlock, mirroring the EAGAIN contract a non-blocking POSIX fd
// would give a real socket (the socket itself is also switched
// non-blocking via golang.org/x/sys/unix, matching the per-OS socket
// file split in go/kernel/posix/socket_linux.go).
type pipeDescriptor struct {
	conn *net.UDPConn
	in   chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

// newPipeDescriptor starts draining conn into a queue of the given
// capacity. Datagrams arriving once the queue is full are dropped,
// since a pipe has no backpressure signal to give the sender.
func newPipeDescriptor(conn *net.UDPConn, capacity int) (*pipeDescriptor, error) {
	if err := setNonblocking(conn); err != nil {
		return nil, err
	}
	p := &pipeDescriptor{
		conn: conn,
		in:   make(chan []byte, capacity),
		done: make(chan struct{}),
	}
	go p.pump()
	return p, nil
}

func setNonblocking(conn *net.UDPConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var setErr error
	err = raw.Control(func(fd uintptr) {
		setErr = unix.SetNonblock(int(fd), true)
	})
	if err != nil {
		return err
	}
	return setErr
}

// pump blocks reading the socket in its own goroutine (the VM-facing
// Read call never touches the socket directly), pushing each datagram
// onto the bounded channel and dropping it silently if the queue is
// full.
func (p *pipeDescriptor) pump() {
	buf := make([]byte, 65507)
	for {
		n, _, err := p.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-p.done:
				return
			default:
			}
			continue
		}
		msg := make([]byte, n)
		copy(msg, buf[:n])
		select {
		case p.in <- msg:
		default:
			// queue full: drop, per the bounded inbound queue contract
		}
	}
}

// Read returns the next queued datagram, or ErrWouldBlock if none is
// queued yet.
func (p *pipeDescriptor) Read(dst []byte) (int, error) {
	select {
	case msg := <-p.in:
		n := copy(dst, msg)
		return n, nil
	default:
		return 0, ErrWouldBlock
	}
}

func (p *pipeDescriptor) Write(src []byte) (int, error) {
	return p.conn.Write(src)
}

func (p *pipeDescriptor) Seek(offset int64, whence int) (int64, error) {
	return 0, ErrPipeSeek
}

func (p *pipeDescriptor) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		err = p.conn.Close()
	})
	return err
}

var _ Descriptor = (*pipeDescriptor)(nil)
