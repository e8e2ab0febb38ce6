package console

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		line string
		cmd  Command
		kind ErrKind
	}{
		{line: "S10$-500", cmd: Command{Kind: CmdSet, Addr: 10, Value: -500}},
		{line: "s0$+7", cmd: Command{Kind: CmdSet, Addr: 0, Value: 7}},
		{line: "S64$32767", cmd: Command{Kind: CmdSet, Addr: 64, Value: 32767}},
		{line: "S 5$ -32768", cmd: Command{Kind: CmdSet, Addr: 5, Value: -32768}},
		{line: "S\t3$12xyz", cmd: Command{Kind: CmdSet, Addr: 3, Value: 12}},
		{line: "S3a$1", cmd: Command{Kind: CmdSet, Addr: 3, Value: 1}},
		{line: "R10", cmd: Command{Kind: CmdRead, Addr: 10}},
		{line: "r64", cmd: Command{Kind: CmdRead, Addr: 64}},
		{line: "T100", cmd: Command{Kind: CmdSetInterval, Value: 100}},
		{line: "t5000", cmd: Command{Kind: CmdSetInterval, Value: 5000}},
		{line: "T3000", cmd: Command{Kind: CmdSetInterval, Value: 3000}},

		{line: "S10", kind: ErrFormat},
		{line: "S1$2$3", kind: ErrFormat},
		{line: "S$5", kind: ErrInvalidAddress},
		{line: "Sx$5", kind: ErrInvalidAddress},
		{line: "S-1$5", kind: ErrInvalidAddress},
		{line: "S65$0", kind: ErrAddressRange},
		{line: "S70$1", kind: ErrAddressRange},
		{line: "S99999999999999999999$1", kind: ErrAddressRange},
		{line: "S1$", kind: ErrInvalidValue},
		{line: "S1$abc", kind: ErrInvalidValue},
		{line: "S1$-", kind: ErrInvalidValue},
		{line: "S1$32768", kind: ErrInvalidValue},
		{line: "S1$-32769", kind: ErrInvalidValue},
		{line: "S1$-99999999999999999999999", kind: ErrInvalidValue},
		{line: "R", kind: ErrInvalidAddress},
		{line: "R-1", kind: ErrInvalidAddress},
		{line: "R65", kind: ErrAddressRange},
		{line: "Tabc", kind: ErrInvalidInterval},
		{line: "T", kind: ErrInvalidInterval},
		{line: "T-100", kind: ErrInvalidInterval},
		{line: "T99", kind: ErrValueRange},
		{line: "T5001", kind: ErrValueRange},
		{line: "T4294967396", kind: ErrValueRange},
		{line: "", kind: ErrUnknownCommand},
		{line: "Xhello", kind: ErrUnknownCommand},
		{line: " S1$1", kind: ErrUnknownCommand},
	}
	for _, c := range cases {
		t.Run(c.line, func(t *testing.T) {
			cmd, err := Parse(c.line)
			if c.kind == 0 {
				require.NoError(t, err)
				require.Equal(t, c.cmd, cmd)
				return
			}
			require.Error(t, err)
			cerr, ok := err.(*CommandError)
			require.True(t, ok)
			require.Equal(t, c.kind, cerr.Kind)
		})
	}
}

func TestParseIntervalBounds(t *testing.T) {
	for v := 100; v <= 5000; v += 7 {
		cmd, err := Parse(Command{Kind: CmdSetInterval, Value: int32(v)}.String())
		require.NoError(t, err)
		require.EqualValues(t, v, cmd.Value)
	}
}

func TestErrKindClasses(t *testing.T) {
	require.True(t, ErrFormat.IsSyntax())
	require.True(t, ErrInvalidInterval.IsSyntax())
	require.False(t, ErrAddressRange.IsSyntax())
	require.True(t, ErrAddressRange.IsRange())
	require.True(t, ErrValueRange.IsRange())
	require.False(t, ErrUnknownCommand.IsRange())

	kind, ok := KindOfMessage(MsgAddressRange)
	require.True(t, ok)
	require.Equal(t, ErrAddressRange, kind)
	_, ok = KindOfMessage("Set reg[1] = 2")
	require.False(t, ok)
}
