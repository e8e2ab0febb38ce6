package bridge

import (
	"encoding/binary"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/goburrow/modbus"
	"github.com/golang/glog"
)

// DefaultModbusTimeout is the request timeout of Modbus bridges.
const DefaultModbusTimeout = time.Second

// Modbus maps the register bank onto holding registers of a remote
// Modbus TCP device, one holding register per word address starting
// at Base. Only the low 16 bits of a word are transported; reads are
// sign-extended back to 32 bits.
type Modbus struct {
	Base uint16

	handler *modbus.TCPClientHandler
	client  modbus.Client
}

// NewModbus wraps an existing client.
func NewModbus(client modbus.Client, base uint16) *Modbus {
	return &Modbus{Base: base, client: client}
}

// DialModbus connects to the device described by u.
func DialModbus(u *url.URL) (*Modbus, error) {
	q := u.Query()
	handler := modbus.NewTCPClientHandler(u.Host)
	handler.Timeout = DefaultModbusTimeout
	handler.SlaveId = 1
	if val := q.Get("slave"); val != "" {
		id, err := strconv.ParseUint(val, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid modbus slave %q: %v", val, err)
		}
		handler.SlaveId = byte(id)
	}
	if val := q.Get("timeout"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return nil, fmt.Errorf("invalid modbus timeout %q: %v", val, err)
		}
		handler.Timeout = d
	}
	var base uint16
	if val := q.Get("base"); val != "" {
		n, err := strconv.ParseUint(val, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid modbus base %q: %v", val, err)
		}
		if n+MaxAddress > 0xffff {
			return nil, fmt.Errorf("modbus base %d leaves no room for %d registers", n, NumRegisters)
		}
		base = uint16(n)
	}
	if err := handler.Connect(); err != nil {
		return nil, fmt.Errorf("modbus connect %s: %v", u.Host, err)
	}
	glog.Infof("modbus bridge connected: %s slave=%d base=%d", u.Host, handler.SlaveId, base)
	m := NewModbus(modbus.NewClient(handler), base)
	m.handler = handler
	return m, nil
}

// ReadRegister implements Bridge.
func (m *Modbus) ReadRegister(addr int) (uint32, error) {
	if !ValidAddress(addr) {
		return 0, ErrAddress
	}
	data, err := m.client.ReadHoldingRegisters(m.Base+uint16(addr), 1)
	if err != nil {
		return 0, err
	}
	if len(data) < 2 {
		return 0, fmt.Errorf("modbus: short read of register %d", addr)
	}
	return SignExtend(int16(binary.BigEndian.Uint16(data))), nil
}

// WriteRegister implements Bridge.
func (m *Modbus) WriteRegister(addr int, value uint32) error {
	if !ValidAddress(addr) {
		return ErrAddress
	}
	_, err := m.client.WriteSingleRegister(m.Base+uint16(addr), uint16(value))
	return err
}

// Close implements io.Closer.
func (m *Modbus) Close() error {
	if m.handler != nil {
		return m.handler.Close()
	}
	return nil
}
