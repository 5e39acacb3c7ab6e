package hostos

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// EAGAIN is the negative status HostOS returns for a non-blocking READ
// that found nothing waiting. It is not the host's own EAGAIN errno
// (11 on Linux, and it differs by platform); this bridge fixes -64 as
// its own wire constant so VM code doesn't need to know the host OS.
const EAGAIN = -64

// Descriptor is anything the fd table can hold: a plain file or a
// pipe. Grounded on go/kernel/posix's File struct, generalized to an
// interface so pipe descriptors can share the table.
type Descriptor interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Seek(offset int64, whence int) (int64, error)
	Close() error
}

// fileDescriptor wraps a real *os.File opened on the host's filesystem.
type fileDescriptor struct {
	f *os.File
}

func (d *fileDescriptor) Read(p []byte) (int, error)  { return d.f.Read(p) }
func (d *fileDescriptor) Write(p []byte) (int, error) { return d.f.Write(p) }
func (d *fileDescriptor) Seek(offset int64, whence int) (int64, error) {
	return d.f.Seek(offset, whence)
}
func (d *fileDescriptor) Close() error { return d.f.Close() }

// ErrPipeSeek is returned by a pipe descriptor's Seek, since a UDP pipe
// has no concept of position.
var ErrPipeSeek = errors.New("seek not supported on a pipe descriptor")

// ErrWouldBlock marks a non-blocking pipe read that found no data
// queued; the server maps it to the EAGAIN wire status.
var ErrWouldBlock = errors.New("pipe read would block")

var _ Descriptor = (*fileDescriptor)(nil)
var _ io.ReadWriteCloser = (*fileDescriptor)(nil)
