package peer

import (
	"io"
	"os"

	"github.com/marcinbor85/gohex"
)

// OptionBytesAddr is where STM32F1 class parts map the option bytes.
const OptionBytesAddr uint32 = 0x1ffff800

// DumpOptionBytes writes the option bytes as Intel HEX.
func DumpOptionBytes(w io.Writer, opt []byte) error {
	mem := gohex.NewMemory()
	if err := mem.AddBinary(OptionBytesAddr, opt); err != nil {
		return err
	}
	return mem.DumpIntelHex(w, 16)
}

// SaveOptionBytes writes the option bytes into an Intel HEX file.
func SaveOptionBytes(name string, opt []byte) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err = DumpOptionBytes(f, opt); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
