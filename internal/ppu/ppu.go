// Package ppu implements the scanline-driven picture-processing unit: a
// per-line cycle budget and mode state machine (OAM search, pixel
// transfer, H-Blank, V-Blank), LCDSTAT/LYC coincidence handling, and a
// background/window/sprite scanline renderer that fills a 160x144 RGB
// framebuffer one line at a time. All tile, map, and OAM bytes are read
// through the mmu.MMU the PPU is attached to; the PPU never keeps its
// own copy of VRAM or OAM.
package ppu

import "github.com/palenight/gbcore/internal/mmu"

// Per-line timing, in T-cycles.
const (
	CyclesPerLine  = 456
	OAMCycles      = 80
	TransferCycles = 172
	TotalLines     = 154
	VisibleLines   = 144
)

// LCD mode numbers, as stored in STAT bits 0-1.
const (
	ModeHBlank = 0
	ModeVBlank = 1
	ModeOAM    = 2
	ModeXfer   = 3
)

const (
	FrameWidth  = 160
	FrameHeight = 144
)

// Frame is a 160x144 RGB8 framebuffer, row-major, 3 bytes per pixel.
type Frame struct {
	Pix [FrameWidth * FrameHeight * 3]byte
}

func (f *Frame) set(x, y int, rgb [3]byte) {
	if x < 0 || x >= FrameWidth || y < 0 || y >= FrameHeight {
		return
	}
	i := (y*FrameWidth + x) * 3
	f.Pix[i], f.Pix[i+1], f.Pix[i+2] = rgb[0], rgb[1], rgb[2]
}

// shades maps a 2-bit colour id to its RGB8 shade.
var shades = [4][3]byte{
	{0xFF, 0xFF, 0xFF},
	{0xCC, 0xCC, 0xCC},
	{0x77, 0x77, 0x77},
	{0x00, 0x00, 0x00},
}

// PPU drives LCDC/STAT/LY against m and renders into a Frame it owns.
type PPU struct {
	m     *mmu.MMU
	dot   int // cycles elapsed within the current line, counts up to CyclesPerLine
	mode  byte
	frame Frame
	fifo  fifo
	bg    bgFetcher
}

// New attaches a PPU to m. LCDC/STAT/LY are whatever m already holds
// (the MMU's constructor applies the post-boot defaults).
func New(m *mmu.MMU) *PPU {
	p := &PPU{m: m}
	p.bg.mem = m
	p.bg.fifo = &p.fifo
	p.mode = p.m.Peek(0xFF41) & 0x03
	return p
}

// Frame returns the current framebuffer. Safe to read any time between
// Tick calls; a renderer should copy it before the next frame starts if
// it reads off the owning goroutine.
func (p *PPU) Frame() *Frame { return &p.frame }

func (p *PPU) lcdOn() bool { return p.m.Peek(0xFF40)&0x80 != 0 }

func (p *PPU) ly() byte      { return p.m.Peek(0xFF44) }
func (p *PPU) setLY(v byte)  { p.m.Poke(0xFF44, v) }
func (p *PPU) stat() byte    { return p.m.Peek(0xFF41) }
func (p *PPU) lyc() byte     { return p.m.Peek(0xFF45) }

func (p *PPU) setMode(mode byte) {
	st := p.stat()
	p.m.Poke(0xFF41, (st &^ 0x03) | mode)
	p.mode = mode
	switch mode {
	case ModeHBlank:
		if st&(1<<3) != 0 {
			p.m.RequestInterrupt(mmu.IntLCD)
		}
	case ModeVBlank:
		if st&(1<<4) != 0 {
			p.m.RequestInterrupt(mmu.IntLCD)
		}
	case ModeOAM:
		if st&(1<<5) != 0 {
			p.m.RequestInterrupt(mmu.IntLCD)
		}
	}
}

func (p *PPU) updateCoincidence() {
	st := p.stat()
	if p.ly() == p.lyc() {
		st |= 1 << 2
		if st&(1<<6) != 0 {
			p.m.RequestInterrupt(mmu.IntLCD)
		}
	} else {
		st &^= 1 << 2
	}
	p.m.Poke(0xFF41, st)
}

// Tick advances the PPU by cycles T-cycles, the amount the most recent
// CPU.Step() consumed. When LCDC bit 7 is clear, LY/mode/dot are held at
// their forced-off values and no rendering happens.
func (p *PPU) Tick(cycles int) {
	if !p.lcdOn() {
		p.setLY(0)
		p.dot = 0
		if p.mode != ModeVBlank {
			p.setMode(ModeVBlank)
		}
		return
	}

	for i := 0; i < cycles; i++ {
		p.tickOne()
	}
}

func (p *PPU) tickOne() {
	ly := p.ly()
	p.dot++

	var wantMode byte
	if ly >= VisibleLines {
		wantMode = ModeVBlank
	} else {
		switch {
		case p.dot < OAMCycles:
			wantMode = ModeOAM
		case p.dot < OAMCycles+TransferCycles:
			wantMode = ModeXfer
		default:
			wantMode = ModeHBlank
		}
	}
	if wantMode != p.mode {
		if wantMode == ModeHBlank && ly < VisibleLines {
			p.renderScanline(ly)
		}
		p.setMode(wantMode)
	}

	if p.dot >= CyclesPerLine {
		p.dot = 0
		ly++
		if ly >= TotalLines {
			ly = 0
		}
		p.setLY(ly)
		p.updateCoincidence()
		if ly == VisibleLines {
			p.m.RequestInterrupt(mmu.IntVBlank)
			p.setMode(ModeVBlank)
		} else if ly < VisibleLines {
			p.setMode(ModeOAM)
		}
	}
}
