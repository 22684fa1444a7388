package cart

import (
	"errors"
	"strings"
)

// The header proper spans 0x0100-0x014F; everything bank-controller
// selection needs lives in the 0x0134-0x014F tail.
const headerSize = 0x0150

// nintendoLogo is the bitmap at 0x0104 that the boot ROM compares on real
// hardware. The core never enforces it (homebrew and test ROMs routinely
// ship without one); tests use it to stamp out well-formed images.
var nintendoLogo = [48]byte{
	0xCE, 0xED, 0x66, 0x66, 0xCC, 0x0D, 0x00, 0x0B, 0x03, 0x73, 0x00, 0x83, 0x00, 0x0C, 0x00, 0x0D,
	0x00, 0x08, 0x11, 0x1F, 0x88, 0x89, 0x00, 0x0E, 0xDC, 0xCC, 0x6E, 0xE6, 0xDD, 0xDD, 0xD9, 0x99,
	0xBB, 0xBB, 0x67, 0x63, 0x6E, 0x0E, 0xEC, 0xCC, 0xDD, 0xDC, 0x99, 0x9F, 0xBB, 0xB9, 0x33, 0x3E,
}

// Header carries the decoded cartridge metadata the core and the host
// binaries care about: the MBC selector byte, the declared ROM/RAM
// geometry, and the title for logs.
type Header struct {
	Title       string
	CartType    byte // 0x0147, selects the bank controller
	ROMSizeCode byte // 0x0148
	RAMSizeCode byte // 0x0149

	ROMSizeBytes int
	ROMBanks     int
	RAMSizeBytes int
	CartTypeStr  string
}

// ParseHeader decodes the header fields out of a raw cartridge image.
// It only requires the image to be big enough to hold a header; MBC and
// size validation is New's job.
func ParseHeader(rom []byte) (*Header, error) {
	if len(rom) < headerSize {
		return nil, errors.New("image too small to hold a cartridge header")
	}
	h := &Header{
		Title:       strings.TrimRight(string(rom[0x0134:0x0144]), "\x00"),
		CartType:    rom[0x0147],
		ROMSizeCode: rom[0x0148],
		RAMSizeCode: rom[0x0149],
	}
	h.ROMBanks, h.ROMSizeBytes = decodeROMSize(h.ROMSizeCode)
	h.RAMSizeBytes = decodeRAMSize(h.RAMSizeCode)
	h.CartTypeStr = cartTypeString(h.CartType)
	return h, nil
}

// ChecksumOK recomputes the 8-bit header checksum over 0x0134-0x014C and
// compares it with the stored byte at 0x014D. Real hardware locks up on a
// mismatch; this core only reports it so hosts can warn.
func ChecksumOK(rom []byte) bool {
	if len(rom) < headerSize {
		return false
	}
	var sum byte
	for _, b := range rom[0x0134:0x014D] {
		sum -= b + 1
	}
	return sum == rom[0x014D]
}

// decodeROMSize expands the 0x0148 size code: each step doubles, starting
// from two 16KB banks.
func decodeROMSize(code byte) (banks, bytes int) {
	if code > 0x08 {
		return 0, 0
	}
	banks = 2 << code
	return banks, banks * 0x4000
}

// decodeRAMSize expands the 0x0149 size code. The codes are not ordered
// by size: 0x05 (64KB) sorts between 0x03 and 0x04 on real carts.
func decodeRAMSize(code byte) int {
	switch code {
	case 0x02:
		return 8 * 1024
	case 0x03:
		return 32 * 1024
	case 0x04:
		return 128 * 1024
	case 0x05:
		return 64 * 1024
	default:
		return 0
	}
}

func cartTypeString(code byte) string {
	switch code {
	case 0x00:
		return "ROM only"
	case 0x01, 0x02, 0x03:
		return "MBC1"
	case 0x05, 0x06:
		return "MBC2"
	default:
		return "unsupported"
	}
}
