package hostos

import (
	"net"
	"os"
	"sync"
	"syscall"

	"github.com/pkg/errors"
)

// Errno turns a Go error into the negated-errno wire status, exactly
// as go/kernel/posix.Errno does for syscall return values, defaulting
// to -1 when err isn't a syscall.Errno (an os.PathError from OPEN, say).
func Errno(err error) int32 {
	if err == nil {
		return 0
	}
	if errno, ok := errors.Cause(err).(syscall.Errno); ok {
		return -int32(errno)
	}
	return -1
}

// Server owns the file-descriptor table. Descriptor numbers start at
// DescriptorStart (3 by default, leaving 0-2 for the VM's own
// stdin/stdout/stderr conventions if it has any) and only ever
// increase within one Server lifetime, except across a RESET.
type Server struct {
	mu             sync.Mutex
	descs          map[int32]Descriptor
	nextFd         int32
	descriptorBase int32
	pipeQueueCap   int
}

// NewServer builds a Server with an empty descriptor table.
func NewServer(descriptorStart int32, pipeQueueCapacity int) *Server {
	s := &Server{
		descriptorBase: descriptorStart,
		pipeQueueCap:   pipeQueueCapacity,
	}
	s.reset()
	return s
}

func (s *Server) reset() {
	for _, d := range s.descs {
		d.Close()
	}
	s.descs = make(map[int32]Descriptor)
	s.nextFd = s.descriptorBase
}

func (s *Server) allocFd(d Descriptor) int32 {
	fd := s.nextFd
	s.nextFd++
	s.descs[fd] = d
	return fd
}

// Handle executes one Request against the descriptor table and returns
// the Response to send back over the wire.
func (s *Server) Handle(req Request) Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch req.Syscall {
	case SyscallReset:
		s.reset()
		return Response{Status: 0}
	case SyscallOpen:
		return s.open(req)
	case SyscallClose:
		return s.close(req)
	case SyscallSeek:
		return s.seek(req)
	case SyscallRead:
		return s.read(req)
	case SyscallWrite:
		return s.write(req)
	case SyscallSocket:
		return s.socket(req)
	default:
		return Response{Status: StatusFailed}
	}
}

// open treats Payload as the NUL-free path string and A0/A1 as
// (flags, mode), matching go/kernel/posix.Open's argument shape.
func (s *Server) open(req Request) Response {
	path := string(req.Payload)
	f, err := os.OpenFile(path, int(req.A0), os.FileMode(req.A1))
	if err != nil {
		return Response{Status: Errno(err)}
	}
	fd := s.allocFd(&fileDescriptor{f: f})
	return Response{Status: fd}
}

func (s *Server) close(req Request) Response {
	fd := int32(req.A0)
	d, ok := s.descs[fd]
	if !ok {
		return Response{Status: -int32(syscall.EBADF)}
	}
	delete(s.descs, fd)
	if err := d.Close(); err != nil {
		return Response{Status: Errno(err)}
	}
	return Response{Status: 0}
}

// seek maps A0=fd, A1=offset, A2=whence, matching go/kernel/posix.Lseek.
func (s *Server) seek(req Request) Response {
	d, ok := s.descs[int32(req.A0)]
	if !ok {
		return Response{Status: -int32(syscall.EBADF)}
	}
	off, err := d.Seek(int64(int32(req.A1)), int(req.A2))
	if err != nil {
		if err == ErrPipeSeek {
			return Response{Status: -int32(syscall.ESPIPE)}
		}
		return Response{Status: Errno(err)}
	}
	return Response{Status: int32(off)}
}

// read maps A0=fd, A1=requested size.
func (s *Server) read(req Request) Response {
	d, ok := s.descs[int32(req.A0)]
	if !ok {
		return Response{Status: -int32(syscall.EBADF)}
	}
	buf := make([]byte, req.A1)
	n, err := d.Read(buf)
	if err != nil {
		if err == ErrWouldBlock {
			return Response{Status: EAGAIN}
		}
		return Response{Status: Errno(err)}
	}
	return Response{Status: int32(n), Payload: buf[:n]}
}

// write maps A0=fd, Payload=data.
func (s *Server) write(req Request) Response {
	d, ok := s.descs[int32(req.A0)]
	if !ok {
		return Response{Status: -int32(syscall.EBADF)}
	}
	n, err := d.Write(req.Payload)
	if err != nil {
		return Response{Status: Errno(err)}
	}
	return Response{Status: int32(n)}
}

// socket opens a UDP pipe connected to the address carried in Payload
// ("host:port"); A0 is reserved for a future domain/type selector, but
// only UDP pipes are implemented, matching spec's "UDP pipe" design.
func (s *Server) socket(req Request) Response {
	addr := string(req.Payload)
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return Response{Status: -1}
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return Response{Status: Errno(err)}
	}
	pd, err := newPipeDescriptor(conn, s.pipeQueueCap)
	if err != nil {
		conn.Close()
		return Response{Status: Errno(err)}
	}
	fd := s.allocFd(pd)
	return Response{Status: fd}
}
