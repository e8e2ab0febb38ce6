package link

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/jacobsa/go-serial/serial"
)

// DefaultBaudRate is the serial port speed when not specified.
const DefaultBaudRate = 115200

type serialLink struct {
	io.ReadWriteCloser
	desc string
}

func (l *serialLink) String() string {
	return l.desc
}

// SerialOptions converts the URL into port options. The format is
// always 8 data bits and 1 stop bit.
func SerialOptions(u *url.URL) (serial.OpenOptions, error) {
	opts := serial.OpenOptions{
		PortName:        u.Path,
		BaudRate:        DefaultBaudRate,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	}
	if u.Opaque != "" {
		opts.PortName = u.Opaque
	}
	if opts.PortName == "" {
		return opts, fmt.Errorf("serial port name is required")
	}
	q := u.Query()
	if val := q.Get("baud"); val != "" {
		baud, err := strconv.ParseUint(val, 10, 32)
		if err != nil || baud == 0 {
			return opts, fmt.Errorf("invalid baud rate %q", val)
		}
		opts.BaudRate = uint(baud)
	}
	switch strings.ToUpper(q.Get("parity")) {
	case "", "N":
	case "E":
		opts.ParityMode = serial.PARITY_EVEN
	case "O":
		opts.ParityMode = serial.PARITY_ODD
	default:
		return opts, fmt.Errorf("invalid parity %q", q.Get("parity"))
	}
	return opts, nil
}

// DescribeSerial formats options like "RS232 UART: 115200 baud, 8N1".
func DescribeSerial(opts serial.OpenOptions) string {
	parity := "N"
	switch opts.ParityMode {
	case serial.PARITY_EVEN:
		parity = "E"
	case serial.PARITY_ODD:
		parity = "O"
	}
	return fmt.Sprintf("RS232 UART: %d baud, %d%s%d", opts.BaudRate, opts.DataBits, parity, opts.StopBits)
}

// OpenSerial opens a serial port.
func OpenSerial(u *url.URL) (Link, error) {
	opts, err := SerialOptions(u)
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open %s: %v", opts.PortName, err)
	}
	return &serialLink{ReadWriteCloser: port, desc: DescribeSerial(opts)}, nil
}
