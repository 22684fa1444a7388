// Package emu wires the cartridge, MMU, CPU, timer, and PPU into a single
// Machine and drives the frame loop: step the CPU until
// the per-frame cycle budget is exhausted, ticking the timer and PPU with
// every instruction's cycle count and servicing the lowest-numbered
// pending, enabled interrupt between instructions.
package emu

import (
	"log"

	"github.com/palenight/gbcore/internal/cart"
	"github.com/palenight/gbcore/internal/cpu"
	"github.com/palenight/gbcore/internal/mmu"
	"github.com/palenight/gbcore/internal/ppu"
	"github.com/palenight/gbcore/internal/timer"
)

// MaxCyclesPerFrame is floor(4194304/59.73), the T-cycle budget for one
// frame at the Game Boy's native refresh rate.
const MaxCyclesPerFrame = 70221

// Buttons is the joypad state sampled by the host once per frame.
type Buttons struct {
	A, B, Start, Select   bool
	Up, Down, Left, Right bool
}

func (b Buttons) mask() byte {
	var v byte
	if b.Right {
		v |= mmu.JoypRight
	}
	if b.Left {
		v |= mmu.JoypLeft
	}
	if b.Up {
		v |= mmu.JoypUp
	}
	if b.Down {
		v |= mmu.JoypDown
	}
	if b.A {
		v |= mmu.JoypA
	}
	if b.B {
		v |= mmu.JoypB
	}
	if b.Select {
		v |= mmu.JoypSelectBtn
	}
	if b.Start {
		v |= mmu.JoypStart
	}
	return v
}

// Machine owns the whole address space, cartridge, and framebuffer, and
// drives CPU/timer/PPU together one frame at a time.
type Machine struct {
	cfg Config

	m *mmu.MMU
	c *cpu.CPU
	t *timer.Timer
	p *ppu.PPU
}

// New constructs a Machine from a cartridge image. Returns
// cart.FormatError if the header names an unsupported MBC or the image
// exceeds the 0x200000 size ceiling; reset is implicit.
func New(cfg Config, rom []byte) (*Machine, error) {
	ct, err := cart.New(rom)
	if err != nil {
		return nil, err
	}
	mm := mmu.New(ct)
	mach := &Machine{
		cfg: cfg,
		m:   mm,
		c:   cpu.New(mm),
		t:   timer.New(mm),
		p:   ppu.New(mm),
	}
	mach.c.Reset()
	return mach, nil
}

// Frame runs CPU/timer/PPU until the frame's cycle accumulator reaches
// MaxCyclesPerFrame, servicing at most one interrupt per step, then
// returns the freshly rendered framebuffer.
func (m *Machine) Frame() *ppu.Frame {
	accum := 0
	for accum < MaxCyclesPerFrame {
		pc := m.c.PC
		c := m.c.Step()
		if m.cfg.Trace {
			log.Printf("emu: PC=0x%04X cycles=%d", pc, c)
		}
		accum += c
		m.t.Tick(c)
		m.p.Tick(c)
		m.m.TickDMA(c)
		m.serviceInterrupt()
	}
	return m.p.Frame()
}

// serviceInterrupt wakes the CPU from HALT on any requested+enabled
// interrupt regardless of IME, then — only if IME is set — dispatches the
// lowest-numbered pending and enabled interrupt (fixed
// priority VBlank > LCD > Timer > Serial > Joypad). HALT's wake-without-
// servicing behaviour depends on this running every step, since
// ppu/timer/mmu raise IF bits directly through the MMU rather than
// through the CPU.
func (m *Machine) serviceInterrupt() {
	m.c.CheckHaltWake()
	if !m.c.IsIME() {
		return
	}
	pending := m.m.IF() & m.m.IE() & 0x1F
	if pending == 0 {
		return
	}
	for bit := uint(0); bit < 5; bit++ {
		if pending&(1<<bit) != 0 {
			m.c.ServiceInterrupt(bit)
			return
		}
	}
}

// WriteJoypad updates the pressed-button state that the next CPU reads
// of 0xFF00 report for the selected row, raising the joypad interrupt on any newly-pressed button
// while the corresponding row is selected. This is the host's half of
// the IF bit-4 plumbing; the core never samples input itself.
func (m *Machine) WriteJoypad(b Buttons) {
	m.m.SetJoypadState(b.mask())
}
