package cpu

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// ErrOutOfBounds is returned by Memory when an access falls outside
// [0, size). There is exactly one backing region and no page table to
// consult, since memory protection and multiple mappings are out of
// scope for this machine.
var ErrOutOfBounds = errors.New("address out of bounds")

// Memory is a flat, byte-addressable store of fixed size, shared by the
// register-indifferent rest of this package. Every access not wholly
// contained in [0, len(data)) fails with ErrOutOfBounds, and multi-byte
// access is little-endian.
type Memory struct {
	data  []byte
	hooks *Hooks
}

// NewMemory allocates a zeroed region of the given size.
func NewMemory(size uint32) *Memory {
	return &Memory{data: make([]byte, size)}
}

// Size returns the backing region length.
func (m *Memory) Size() uint32 { return uint32(len(m.data)) }

func (m *Memory) bounds(addr uint32, width int) error {
	if uint64(addr)+uint64(width) > uint64(len(m.data)) {
		return errors.Wrapf(ErrOutOfBounds, "addr %#x width %d (size %#x)", addr, width, len(m.data))
	}
	return nil
}

// ReadRange returns a copy of length bytes starting at addr.
func (m *Memory) ReadRange(addr uint32, length uint32) ([]byte, error) {
	if err := m.bounds(addr, int(length)); err != nil {
		if m.hooks != nil {
			m.hooks.OnFault(AccessRead, addr, int(length), err)
		}
		return nil, err
	}
	out := make([]byte, length)
	copy(out, m.data[addr:addr+length])
	if m.hooks != nil {
		m.hooks.OnMem(AccessRead, addr, int(length))
	}
	return out, nil
}

// WriteRange copies p into memory starting at addr.
func (m *Memory) WriteRange(addr uint32, p []byte) error {
	if err := m.bounds(addr, len(p)); err != nil {
		if m.hooks != nil {
			m.hooks.OnFault(AccessWrite, addr, len(p), err)
		}
		return err
	}
	copy(m.data[addr:], p)
	if m.hooks != nil {
		m.hooks.OnMem(AccessWrite, addr, len(p))
	}
	return nil
}

// ReadUint reads a little-endian unsigned value of the given byte width
// (1, 2, or 4), dispatching an AccessFetch hook instead of AccessRead
// when fetch is true.
func (m *Memory) ReadUint(addr uint32, size int, fetch bool) (uint64, error) {
	if err := m.bounds(addr, size); err != nil {
		access := AccessRead
		if fetch {
			access = AccessFetch
		}
		if m.hooks != nil {
			m.hooks.OnFault(access, addr, size, err)
		}
		return 0, err
	}
	val, err := UnpackUint(binary.LittleEndian, size, m.data[addr:addr+uint32(size)])
	if err != nil {
		return 0, err
	}
	if m.hooks != nil {
		access := AccessRead
		if fetch {
			access = AccessFetch
		}
		m.hooks.OnMem(access, addr, size)
	}
	return val, nil
}

// WriteUint writes a little-endian unsigned value of the given byte
// width (1, 2, or 4).
func (m *Memory) WriteUint(addr uint32, size int, val uint64) error {
	var buf [8]byte
	packed, err := PackUint(binary.LittleEndian, size, buf[:], val)
	if err != nil {
		return err
	}
	if err := m.bounds(addr, size); err != nil {
		if m.hooks != nil {
			m.hooks.OnFault(AccessWrite, addr, size, err)
		}
		return err
	}
	copy(m.data[addr:addr+uint32(size)], packed)
	if m.hooks != nil {
		m.hooks.OnMem(AccessWrite, addr, size)
	}
	return nil
}

// ReadU8/ReadU32 read a value without touching hooks, for reads made
// outside instruction execution (go/ecall reads NUL-terminated strings
// with ReadU8).
func (m *Memory) ReadU8(addr uint32) (uint8, error) {
	if err := m.bounds(addr, 1); err != nil {
		return 0, err
	}
	return m.data[addr], nil
}

func (m *Memory) ReadU32(addr uint32) (uint32, error) {
	if err := m.bounds(addr, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(m.data[addr : addr+4]), nil
}

// SetHooks attaches trace hooks; nil disables tracing.
func (m *Memory) SetHooks(h *Hooks) { m.hooks = h }
