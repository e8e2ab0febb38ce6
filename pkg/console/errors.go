package console

import "fmt"

// ErrKind classifies a rejected command line.
type ErrKind int

// Rejection kinds.
const (
	ErrFormat ErrKind = iota + 1
	ErrInvalidAddress
	ErrAddressRange
	ErrInvalidValue
	ErrInvalidInterval
	ErrValueRange
	ErrUnknownCommand
	ErrBridge
)

// Fixed response texts of rejections.
const (
	MsgFormat          = "Invalid format. Use S<addr>$<value>"
	MsgInvalidAddress  = "Invalid address."
	MsgAddressRange    = "Address out of range (0-64)."
	MsgInvalidValue    = "Invalid value (must be signed 16-bit: -32768 to 32767)."
	MsgInvalidInterval = "Invalid integer value."
	MsgValueRange      = "Value out of range (100-5000)."
	MsgUnknownCommand  = "Unknown command. Use S<addr>$<value>, R<addr>, or T<interval>"
	MsgBridge          = "Bridge error."
)

var kindMessages = map[ErrKind]string{
	ErrFormat:          MsgFormat,
	ErrInvalidAddress:  MsgInvalidAddress,
	ErrAddressRange:    MsgAddressRange,
	ErrInvalidValue:    MsgInvalidValue,
	ErrInvalidInterval: MsgInvalidInterval,
	ErrValueRange:      MsgValueRange,
	ErrUnknownCommand:  MsgUnknownCommand,
	ErrBridge:          MsgBridge,
}

// Message returns the response text of the kind.
func (k ErrKind) Message() string {
	if msg, ok := kindMessages[k]; ok {
		return msg
	}
	return fmt.Sprintf("error %d", int(k))
}

// IsSyntax indicates malformed input (missing separator or bad integer).
func (k ErrKind) IsSyntax() bool {
	switch k {
	case ErrFormat, ErrInvalidAddress, ErrInvalidValue, ErrInvalidInterval:
		return true
	}
	return false
}

// IsRange indicates a well-formed number outside its bound.
func (k ErrKind) IsRange() bool {
	return k == ErrAddressRange || k == ErrValueRange
}

// KindOfMessage maps a response line back to its rejection kind.
func KindOfMessage(line string) (ErrKind, bool) {
	for kind, msg := range kindMessages {
		if msg == line {
			return kind, true
		}
	}
	return 0, false
}

// CommandError is a rejected command.
type CommandError struct {
	Kind ErrKind
	// Cause is set for ErrBridge.
	Cause error
}

// Error implements error.
func (e *CommandError) Error() string {
	if e.Cause != nil {
		return e.Kind.Message() + " " + e.Cause.Error()
	}
	return e.Kind.Message()
}

func reject(kind ErrKind) *CommandError {
	return &CommandError{Kind: kind}
}
