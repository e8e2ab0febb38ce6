package bridge

// Coefficients is the 64-tap low-pass preload table written to
// addresses 0..63 at startup.
var Coefficients = [64]int16{
	0x0000, 0x0000,
	0x0000, 0x0001, 0x0005, 0x000C,
	0x0016, 0x0025, 0x0037, 0x004E,
	0x0069, 0x008B, 0x00B2, 0x00E0,
	0x0114, 0x014E, 0x018E, 0x01D3,
	0x021D, 0x026A, 0x02BA, 0x030B,
	0x035B, 0x03AA, 0x03F5, 0x043B,
	0x047B, 0x04B2, 0x04E0, 0x0504,
	0x051C, 0x0528, 0x0528, 0x051C,
	0x0504, 0x04E0, 0x04B2, 0x047B,
	0x043B, 0x03F5, 0x03AA, 0x035B,
	0x030B, 0x02BA, 0x026A, 0x021D,
	0x01D3, 0x018E, 0x014E, 0x0114,
	0x00E0, 0x00B2, 0x008B, 0x0069,
	0x004E, 0x0037, 0x0025, 0x0016,
	0x000C, 0x0005, 0x0001, 0x0000,
	0x0000, 0x0000,
}

// Preload copies table verbatim into addresses starting at 0.
func Preload(b Bridge, table []int16) error {
	for addr, v := range table {
		if err := b.WriteRegister(addr, SignExtend(v)); err != nil {
			return err
		}
	}
	return nil
}
