// Package bridge provides the register bank behind the console.
//
// Addresses are word indices in [0, MaxAddress] on both the read and
// the write path. Adapters for byte-addressed buses multiply by
// WordStride internally; callers never do.
package bridge

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync/atomic"
)

// Register bank geometry.
const (
	MaxAddress   = 64
	NumRegisters = MaxAddress + 1
	WordStride   = 4
)

var (
	// ErrAddress indicates an address outside [0, MaxAddress].
	ErrAddress = errors.New("bridge: address out of range")
)

// Bridge exposes addressable 32-bit registers. Accesses have no side
// effects beyond the addressed register.
type Bridge interface {
	ReadRegister(addr int) (uint32, error)
	WriteRegister(addr int, value uint32) error
}

// ValidAddress checks addr against the bank geometry.
func ValidAddress(addr int) bool {
	return addr >= 0 && addr <= MaxAddress
}

// SignExtend widens a 16-bit register value to the bridge word.
func SignExtend(v int16) uint32 {
	return uint32(int32(v))
}

// Low16 reinterprets the low 16 bits of a word as signed.
func Low16(w uint32) int16 {
	return int16(uint16(w))
}

// Memory is an in-process register bank.
type Memory struct {
	regs [NumRegisters]atomic.Uint32
}

// NewMemory creates a zeroed register bank.
func NewMemory() *Memory {
	return &Memory{}
}

// ReadRegister implements Bridge.
func (m *Memory) ReadRegister(addr int) (uint32, error) {
	if !ValidAddress(addr) {
		return 0, ErrAddress
	}
	return m.regs[addr].Load(), nil
}

// WriteRegister implements Bridge.
func (m *Memory) WriteRegister(addr int, value uint32) error {
	if !ValidAddress(addr) {
		return ErrAddress
	}
	m.regs[addr].Store(value)
	return nil
}

// Open creates a Bridge from URL:
//
//	mem:
//	modbus-tcp://host:502?slave=1&base=0&timeout=1s
//
// The returned io.Closer releases the underlying connection.
func Open(rawURL string) (Bridge, io.Closer, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid bridge URL: %v", err)
	}
	switch u.Scheme {
	case "", "mem":
		return NewMemory(), nopCloser{}, nil
	case "modbus-tcp":
		m, err := DialModbus(u)
		if err != nil {
			return nil, nil, err
		}
		return m, m, nil
	default:
		return nil, nil, fmt.Errorf("unknown bridge URL scheme: %q", u.Scheme)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
