package loader

import (
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
)

// ErrOddLength is returned when a hex blob has an odd number of hex
// digits after whitespace is stripped, so it can't decode to whole
// bytes.
var ErrOddLength = errors.New("hex blob has odd digit count")

// LoadHex decodes a whitespace-tolerant hex string into a byte program
// image. Unlike an ELF/Mach-O/CGC loader, there's no header, segment
// table, or symbol information to recover —
// the input is just the instruction stream starting at offset 0, which
// the caller writes into memory at whatever base address it's using.
func LoadHex(s string) ([]byte, error) {
	stripped := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		default:
			return r
		}
	}, s)
	if len(stripped)%2 != 0 {
		return nil, errors.Wrapf(ErrOddLength, "%d hex digits", len(stripped))
	}
	buf, err := hex.DecodeString(stripped)
	if err != nil {
		return nil, errors.Wrap(err, "decoding hex blob")
	}
	return buf, nil
}
