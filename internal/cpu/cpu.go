// Package cpu implements the Sharp LR35902 instruction interpreter: the
// primary opcode table, the 0xCB-prefixed table, register/flag state, and
// the delayed-IME EI/DI semantics. The CPU touches memory only through
// the mmu.MMU it is constructed with.
package cpu

import (
	"log"

	"github.com/palenight/gbcore/internal/bitutil"
	"github.com/palenight/gbcore/internal/mmu"
)

// Flag bit positions within F (the low nibble always reads zero).
const (
	flagZ byte = 1 << 7
	flagN byte = 1 << 6
	flagH byte = 1 << 5
	flagC byte = 1 << 4
)

// Interrupt vectors, indexed by IF/IE bit number.
var vectors = [5]uint16{0x40, 0x48, 0x50, 0x58, 0x60}

// CPU holds the four register pairs, PC/SP, and the interrupt-related
// flags (IME plus its one-instruction-delayed EI/DI transitions).
type CPU struct {
	AF, BC, DE, HL bitutil.Pair
	SP, PC         uint16

	ime    bool
	halted bool

	// imeDelay counts down the instructions remaining before imeTarget
	// commits to ime; 0 means no transition is pending. EI/DI arm it to
	// 1, and the commit happens at the top of the next Step() call, so
	// the driver's between-step interrupt check still sees the old IME
	// right after EI/DI and the new IME once the following instruction
	// completes.
	imeDelay  int
	imeTarget bool

	m *mmu.MMU

	loggedUnknown map[byte]bool
}

// New attaches a CPU to m. Register/flag reset to canonical post-boot
// values is the caller's responsibility (emu.New calls Reset).
func New(m *mmu.MMU) *CPU {
	return &CPU{m: m, loggedUnknown: make(map[byte]bool)}
}

// Reset sets the documented post-boot register state.
func (c *CPU) Reset() {
	c.AF.SetWord(0x01B0)
	c.BC.SetWord(0x0013)
	c.DE.SetWord(0x00D8)
	c.HL.SetWord(0x014D)
	c.SP = 0xFFFE
	c.PC = 0x0100
	c.ime = true
	c.halted = false
	c.imeDelay = 0
}

// A, F, B, C, D, E, H, L expose the 8-bit halves for tests and tracing.
func (c *CPU) A() byte { return c.AF.Hi }
func (c *CPU) F() byte { return c.AF.Lo & 0xF0 }
func (c *CPU) B() byte { return c.BC.Hi }
func (c *CPU) C() byte { return c.BC.Lo }
func (c *CPU) D() byte { return c.DE.Hi }
func (c *CPU) E() byte { return c.DE.Lo }
func (c *CPU) H() byte { return c.HL.Hi }
func (c *CPU) L() byte { return c.HL.Lo }

// IsIME reports whether interrupts are currently enabled.
func (c *CPU) IsIME() bool { return c.ime }

// SetIME forces the master interrupt-enable flag, bypassing the delayed
// EI/DI mechanism. Used by RETI and by test setup.
func (c *CPU) SetIME(b bool) { c.ime = b; c.imeDelay = 0 }

// IsHalted reports whether the CPU is in the HALT low-power state.
func (c *CPU) IsHalted() bool { return c.halted }

// RequestInterrupt sets bit in IF via the MMU and wakes the CPU from
// HALT if the interrupt is also enabled in IE, regardless of IME.
func (c *CPU) RequestInterrupt(bit uint) {
	c.m.RequestInterrupt(bit)
	c.CheckHaltWake()
}

// CheckHaltWake clears halted if any IF bit is both requested and enabled
// in IE, regardless of IME. ppu/timer/mmu raise IF bits directly
// through the MMU rather than through RequestInterrupt above, so the
// driver calls this every step — independently of that hook — for HALT
// to ever wake up from a production interrupt source.
func (c *CPU) CheckHaltWake() {
	if c.halted && c.m.IF()&c.m.IE()&0x1F != 0 {
		c.halted = false
	}
}

// ServiceInterrupt runs the five-step interrupt-service routine for the
// given IF/IE bit: clear halted, clear IME, clear the IF bit, push PC,
// jump to the fixed vector. The driver calls this only when IME and the
// bit are both pending and enabled; the CPU never invokes it itself.
func (c *CPU) ServiceInterrupt(bit uint) {
	c.halted = false
	c.ime = false
	c.imeDelay = 0
	c.m.ClearInterrupt(bit)
	c.push16(c.PC)
	c.PC = vectors[bit]
}

func (c *CPU) read8(addr uint16) byte     { return c.m.Read(addr) }
func (c *CPU) write8(addr uint16, v byte) { c.m.Write(addr, v) }

func (c *CPU) fetch8() byte {
	b := c.read8(c.PC)
	c.PC++
	return b
}

func (c *CPU) fetch16() uint16 {
	lo := uint16(c.fetch8())
	hi := uint16(c.fetch8())
	return lo | hi<<8
}

func (c *CPU) read16(addr uint16) uint16 {
	lo := uint16(c.read8(addr))
	hi := uint16(c.read8(addr + 1))
	return lo | hi<<8
}

func (c *CPU) write16(addr uint16, v uint16) {
	c.write8(addr, byte(v))
	c.write8(addr+1, byte(v>>8))
}

func (c *CPU) push16(v uint16) {
	c.SP--
	c.write8(c.SP, byte(v>>8))
	c.SP--
	c.write8(c.SP, byte(v))
}

func (c *CPU) pop16() uint16 {
	lo := uint16(c.read8(c.SP))
	c.SP++
	hi := uint16(c.read8(c.SP))
	c.SP++
	return lo | hi<<8
}

func (c *CPU) setFlags(z, n, h, cy bool) {
	var f byte
	if z {
		f = bitutil.Set(f, 7)
	}
	if n {
		f = bitutil.Set(f, 6)
	}
	if h {
		f = bitutil.Set(f, 5)
	}
	if cy {
		f = bitutil.Set(f, 4)
	}
	c.AF.Lo = f
}

func (c *CPU) flagSet(mask byte) bool { return c.AF.Lo&mask != 0 }

// Step fetches and executes one instruction (or, while halted, consumes
// 4 cycles without fetching) and returns the cycle count consumed. It
// applies any EI/DI transition armed by the previous instruction before
// dispatch, and arms its own transition's countdown afterward.
func (c *CPU) Step() int {
	if c.imeDelay > 0 {
		c.imeDelay--
		if c.imeDelay == 0 {
			c.ime = c.imeTarget
		}
	}

	if c.halted {
		return 4
	}

	op := c.fetch8()
	if op == 0xCB {
		return c.stepCB()
	}
	return c.execute(op)
}

func (c *CPU) armIME(enable bool) {
	c.imeDelay = 1
	c.imeTarget = enable
}

func (c *CPU) unknownOpcode(op byte) int {
	if !c.loggedUnknown[op] {
		c.loggedUnknown[op] = true
		log.Printf("cpu: unknown opcode 0x%02X at PC=0x%04X, treating as NOP", op, c.PC-1)
	}
	return 4
}
