package console

// DefaultLineSize is the line buffer capacity including the logical
// terminator, so at most DefaultLineSize-1 characters are kept.
const DefaultLineSize = 32

// Echo receives echoed characters.
type Echo interface {
	PutByte(c byte) bool
}

// Assembler accumulates characters into a bounded line.
type Assembler struct {
	Echo Echo

	buf []byte
	n   int
}

// NewAssembler creates an Assembler with a size-byte buffer.
func NewAssembler(size int, echo Echo) *Assembler {
	if size < 2 {
		size = 2
	}
	return &Assembler{Echo: echo, buf: make([]byte, size)}
}

// Len returns number of buffered characters.
func (a *Assembler) Len() int {
	return a.n
}

// Feed consumes one character. When c terminates the line, the
// accumulated text is returned with ready set and the buffer is reset.
// Characters that do not fit are dropped without echo.
func (a *Assembler) Feed(c byte) (line string, ready bool) {
	if c == '\r' || c == '\n' {
		a.echo('\n')
		line = string(a.buf[:a.n])
		a.n = 0
		return line, true
	}
	if a.n < len(a.buf)-1 {
		a.echo(c)
		a.buf[a.n] = c
		a.n++
	}
	return "", false
}

// Reset drops any partial line.
func (a *Assembler) Reset() {
	a.n = 0
}

func (a *Assembler) echo(c byte) {
	if a.Echo != nil {
		a.Echo.PutByte(c)
	}
}
