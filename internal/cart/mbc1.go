package cart

// mbc1 implements the MBC1 controller: 5-bit ROM bank register plus a
// shared 2-bit register that feeds either the high ROM bank bits or the
// RAM bank, selected by romBankingMode.
//
// The 0x4000-0x5FFF write is stored unshifted and combined with the low
// 5 bits as-is (bank = romBank | (secondary&0x03)<<5), matching how the
// reference hardware's bank-select register is laid out rather than a
// pre-shifted two-bit value.
type mbc1 struct {
	rom []byte
	ram []byte

	romBank        byte // low 5 bits of the selected ROM bank, 0 coerced to 1
	secondary      byte // high 2 bits of ROM bank (mode 0) or RAM bank (mode 1)
	ramEnabled     bool
	romBankingMode bool // true: secondary feeds ROM high bits. false: secondary selects RAM bank
}

func newMBC1(rom []byte, ramSizeHint int) (*mbc1, error) {
	ramSize := ramSizeHint
	if min := minExternalRAMBanks * 0x2000; ramSize < min && ramSize > 0 {
		ramSize = min
	}
	m := &mbc1{
		rom:            rom,
		romBank:        1,
		romBankingMode: true,
	}
	if ramSize > 0 {
		m.ram = make([]byte, ramSize)
	}
	return m, nil
}

func (m *mbc1) Kind() Kind { return MBC1 }

func (m *mbc1) Read(addr uint16) byte {
	switch {
	case addr < 0x4000:
		bank := 0
		if !m.romBankingMode {
			bank = int(m.secondary&0x03) << 5
		}
		off := bank*0x4000 + int(addr)
		return m.romByte(off)
	case addr < 0x8000:
		off := int(m.effectiveROMBank())*0x4000 + int(addr-0x4000)
		return m.romByte(off)
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		off := m.ramOffset(addr)
		if off < len(m.ram) {
			return m.ram[off]
		}
		return 0xFF
	default:
		return 0xFF
	}
}

func (m *mbc1) Write(addr uint16, value byte) {
	switch {
	case addr < 0x2000:
		m.ramEnabled = value&0x0F == 0x0A
	case addr < 0x4000:
		m.romBank = value & 0x1F
		if m.romBank == 0 {
			m.romBank = 1
		}
	case addr < 0x6000:
		m.secondary = value & 0x03
	case addr < 0x8000:
		m.romBankingMode = value&0x01 == 0
		if m.romBankingMode {
			m.secondary = 0
		}
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return
		}
		off := m.ramOffset(addr)
		if off < len(m.ram) {
			m.ram[off] = value
		}
	}
}

func (m *mbc1) effectiveROMBank() byte {
	bank := m.romBank
	if m.romBankingMode {
		bank |= (m.secondary & 0x03) << 5
	}
	return bank
}

func (m *mbc1) ramOffset(addr uint16) int {
	bank := 0
	if !m.romBankingMode {
		bank = int(m.secondary & 0x03)
	}
	return bank*0x2000 + int(addr-0xA000)
}

func (m *mbc1) romByte(off int) byte {
	if off >= 0 && off < len(m.rom) {
		return m.rom[off]
	}
	return 0xFF
}
