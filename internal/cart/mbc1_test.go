package cart

import "testing"

func newMBC1ForTest(t *testing.T, romBanks int, ramSizeCode byte) Cartridge {
	t.Helper()
	rom := newTestROM(0x01, 0x00, ramSizeCode, romBanks*0x4000)
	c, err := New(rom)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestMBC1_DefaultBankIsOne(t *testing.T) {
	c := newMBC1ForTest(t, 8, 0x02)
	if got := c.Read(0x4000); got != 1 {
		t.Fatalf("Read(0x4000) = %d, want bank 1", got)
	}
}

func TestMBC1_BankSwitch(t *testing.T) {
	c := newMBC1ForTest(t, 8, 0x02)
	c.Write(0x2000, 0x05)
	if got := c.Read(0x4000); got != 5 {
		t.Fatalf("after selecting bank 5, Read(0x4000) = %d, want 5", got)
	}
	c.Write(0x2000, 0x00)
	if got := c.Read(0x4000); got != 1 {
		t.Fatalf("writing 0 coerces to bank 1, Read(0x4000) = %d, want 1", got)
	}
}

func TestMBC1_Bank0Fixed(t *testing.T) {
	c := newMBC1ForTest(t, 8, 0x02)
	c.Write(0x2000, 0x05)
	if got := c.Read(0x0000); got != 0 {
		t.Fatalf("Read(0x0000) = %d, want bank 0 fixed", got)
	}
}

func TestMBC1_RAMDisabledBySentinel(t *testing.T) {
	c := newMBC1ForTest(t, 8, 0x02)
	c.Write(0xA000, 0x42)
	if got := c.Read(0xA000); got != 0xFF {
		t.Fatalf("Read(0xA000) with RAM disabled = 0x%02X, want 0xFF", got)
	}
}

func TestMBC1_RAMReadWriteWhenEnabled(t *testing.T) {
	c := newMBC1ForTest(t, 8, 0x02)
	c.Write(0x0000, 0x0A)
	c.Write(0xA000, 0x42)
	if got := c.Read(0xA000); got != 0x42 {
		t.Fatalf("Read(0xA000) = 0x%02X, want 0x42", got)
	}
	c.Write(0x0000, 0x00)
	if got := c.Read(0xA000); got != 0xFF {
		t.Fatalf("after disabling RAM, Read(0xA000) = 0x%02X, want 0xFF", got)
	}
}

func TestMBC1_RAMBankingModeSwitchesRAMBank(t *testing.T) {
	c := newMBC1ForTest(t, 8, 0x02) // 32KB RAM: 4 banks of 0x2000
	c.Write(0x0000, 0x0A)           // enable RAM
	c.Write(0x6000, 0x01)           // RAM-banking mode
	c.Write(0x4000, 0x01)           // select RAM bank 1
	c.Write(0xA000, 0x11)
	c.Write(0x4000, 0x00) // back to RAM bank 0
	c.Write(0xA000, 0x22)
	c.Write(0x4000, 0x01) // RAM bank 1 again
	if got := c.Read(0xA000); got != 0x11 {
		t.Fatalf("RAM bank 1 byte = 0x%02X, want 0x11 (banks should be independent)", got)
	}
}

func TestMBC1_ROMBankingModeAppliesHighBitsToUpperBank(t *testing.T) {
	c := newMBC1ForTest(t, 128, 0x02) // 2MB, needs the high 2 bits
	c.Write(0x2000, 0x01)             // low 5 bits = 1
	c.Write(0x4000, 0x02)             // secondary = 2 -> bits 5-6 = 0b10
	want := byte(1 | (2 << 5))
	if got := c.Read(0x4000); got != want {
		t.Fatalf("Read(0x4000) = %d, want bank %d", got, want)
	}
}

func TestMBC1_EnteringROMModeResetsRAMBank(t *testing.T) {
	c := newMBC1ForTest(t, 8, 0x02)
	c.Write(0x0000, 0x0A)
	c.Write(0x6000, 0x01) // RAM-banking mode
	c.Write(0x4000, 0x01) // select RAM bank 1
	c.Write(0xA000, 0x99)
	c.Write(0x6000, 0x00) // ROM-banking mode: secondary (RAM bank) forced to 0
	c.Write(0x6000, 0x01) // back to RAM-banking mode without re-selecting a bank
	if got := c.Read(0xA000); got != 0x00 {
		t.Fatalf("Read(0xA000) = 0x%02X, want 0x00 (RAM bank selector was reset to 0, bank 1's 0x99 unreachable)", got)
	}
}
