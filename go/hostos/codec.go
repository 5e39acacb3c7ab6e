// Package hostos implements the wire-level bridge between the VM's
// ECALL dispatcher and a descriptor table of real files and pipes, in
// the style of the teacher's go/kernel/posix handlers and
// go/kernel/common's struc-tagged call marshalling, but speaking an
// explicit length-prefixed frame so the same server can sit in-process
// or behind a net.Conn.
package hostos

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

// Syscall numbers routed to HostOS. PRINT/DRAW are handled as VM-local
// built-ins upstream in go/ecall and never reach this package; RESET is
// forwarded here (when a HostOS client is present) to clear the
// descriptor table.
const (
	SyscallOpen   = 0x0A
	SyscallClose  = 0x0B
	SyscallSeek   = 0x0C
	SyscallRead   = 0x0D
	SyscallWrite  = 0x0E
	SyscallSocket = 0x0F
	SyscallReset  = 0x00
)

// StatusFailed is the sentinel status value a7=0xDEAD call type maps
// to: an always-fails request, used by callers probing whether the
// bridge is alive.
const StatusFailed = -0xDEAD

// Request is one host call: a syscall number, four raw argument words
// (register-width, meaning depends on the syscall), and an optional
// payload (write data, or the path string for OPEN).
type Request struct {
	Syscall uint32 `struc:"uint32,little"`
	A0      uint32 `struc:"uint32,little"`
	A1      uint32 `struc:"uint32,little"`
	A2      uint32 `struc:"uint32,little"`
	A3      uint32 `struc:"uint32,little"`
	PLen    uint32 `struc:"uint32,little,sizeof=Payload"`
	Payload []byte
}

// Response carries a result status (negative on error, using the same
// negated-errno convention as go/kernel/posix.Errno) and an optional
// payload (read data).
type Response struct {
	Status  int32  `struc:"int32,little"`
	PLen    uint32 `struc:"uint32,little,sizeof=Payload"`
	Payload []byte
}

func encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := struc.Pack(&buf, v); err != nil {
		return nil, errors.Wrap(err, "struc.Pack")
	}
	return buf.Bytes(), nil
}

// WriteFrame writes a length-prefixed Request or Response to w.
func WriteFrame(w io.Writer, v interface{}) error {
	body, err := encode(v)
	if err != nil {
		return err
	}
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return errors.Wrap(err, "writing frame length")
	}
	if _, err := w.Write(body); err != nil {
		return errors.Wrap(err, "writing frame body")
	}
	return nil
}

// ReadRequest reads one length-prefixed Request from r.
func ReadRequest(r io.Reader) (Request, error) {
	var req Request
	body, err := readFrame(r)
	if err != nil {
		return req, err
	}
	if err := struc.Unpack(bytes.NewReader(body), &req); err != nil {
		return req, errors.Wrap(err, "struc.Unpack request")
	}
	return req, nil
}

// ReadResponse reads one length-prefixed Response from r.
func ReadResponse(r io.Reader) (Response, error) {
	var resp Response
	body, err := readFrame(r)
	if err != nil {
		return resp, err
	}
	if err := struc.Unpack(bytes.NewReader(body), &resp); err != nil {
		return resp, errors.Wrap(err, "struc.Unpack response")
	}
	return resp, nil
}

func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, errors.Wrap(err, "reading frame length")
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, errors.Wrap(err, "reading frame body")
	}
	return body, nil
}
