package bridge

import (
	"encoding/binary"
	"testing"

	"github.com/goburrow/modbus"
	"github.com/stretchr/testify/require"
)

func TestMemoryRoundTrip(t *testing.T) {
	m := NewMemory()
	for addr := 0; addr <= MaxAddress; addr++ {
		for _, v := range []int16{-32768, -500, -1, 0, 1, 1234, 32767} {
			require.NoError(t, m.WriteRegister(addr, SignExtend(v)))
			w, err := m.ReadRegister(addr)
			require.NoError(t, err)
			require.Equal(t, v, Low16(w))
		}
	}
}

func TestMemoryAddressRange(t *testing.T) {
	m := NewMemory()
	_, err := m.ReadRegister(MaxAddress + 1)
	require.Equal(t, ErrAddress, err)
	require.Equal(t, ErrAddress, m.WriteRegister(-1, 0))
}

func TestSignExtend(t *testing.T) {
	require.Equal(t, uint32(0xfffffe0c), SignExtend(-500))
	require.Equal(t, uint32(0x7fff), SignExtend(32767))
	require.Equal(t, int16(-1), Low16(0x1234ffff))
}

func TestPreload(t *testing.T) {
	m := NewMemory()
	require.NoError(t, Preload(m, Coefficients[:]))
	for addr, v := range Coefficients {
		w, err := m.ReadRegister(addr)
		require.NoError(t, err)
		require.Equal(t, v, Low16(w))
	}
	w, err := m.ReadRegister(MaxAddress)
	require.NoError(t, err)
	require.Zero(t, w)
}

func TestOpen(t *testing.T) {
	b, closer, err := Open("mem:")
	require.NoError(t, err)
	require.IsType(t, &Memory{}, b)
	require.NoError(t, closer.Close())

	_, _, err = Open("ftp://x")
	require.Error(t, err)
}

// fakeModbus implements the subset of modbus.Client used by the bridge.
type fakeModbus struct {
	modbus.Client
	regs map[uint16]uint16
}

func (f *fakeModbus) ReadHoldingRegisters(address, quantity uint16) ([]byte, error) {
	data := make([]byte, 2*quantity)
	for i := uint16(0); i < quantity; i++ {
		binary.BigEndian.PutUint16(data[2*i:], f.regs[address+i])
	}
	return data, nil
}

func (f *fakeModbus) WriteSingleRegister(address, value uint16) ([]byte, error) {
	f.regs[address] = value
	return []byte{byte(value >> 8), byte(value)}, nil
}

func TestModbusBridge(t *testing.T) {
	fake := &fakeModbus{regs: make(map[uint16]uint16)}
	m := NewModbus(fake, 100)
	require.NoError(t, m.WriteRegister(10, SignExtend(-500)))
	require.Equal(t, uint16(0xfe0c), fake.regs[110])
	w, err := m.ReadRegister(10)
	require.NoError(t, err)
	require.Equal(t, SignExtend(-500), w)
	require.Equal(t, ErrAddress, m.WriteRegister(65, 0))
}
