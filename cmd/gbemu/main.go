// Command gbemu loads a cartridge image and either runs it headless
// (producing a checksummed/PNG-dumped framebuffer for automated checks)
// or opens an ebiten window that paces the core's frame() loop to the
// host's display refresh and forwards keyboard state to the joypad.
package main

import (
	"flag"
	"fmt"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"log"
	"os"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"github.com/palenight/gbcore/internal/cart"
	"github.com/palenight/gbcore/internal/emu"
	"github.com/palenight/gbcore/internal/ppu"
)

type cliFlags struct {
	ROMPath string
	Scale   int
	Title   string
	Trace   bool

	Headless bool
	Frames   int
	PNGOut   string
	Expect   string
}

func parseFlags() cliFlags {
	var f cliFlags
	flag.StringVar(&f.ROMPath, "rom", "", "path to ROM (.gb)")
	flag.IntVar(&f.Scale, "scale", 3, "window scale")
	flag.StringVar(&f.Title, "title", "gbemu", "window title")
	flag.BoolVar(&f.Trace, "trace", false, "CPU trace log")

	flag.BoolVar(&f.Headless, "headless", false, "run without a window")
	flag.IntVar(&f.Frames, "frames", 300, "frames to run in headless mode")
	flag.StringVar(&f.PNGOut, "outpng", "", "write last framebuffer to PNG at path")
	flag.StringVar(&f.Expect, "expect", "", "assert framebuffer CRC32 (hex)")
	flag.Parse()
	return f
}

func runHeadless(m *emu.Machine, frames int, pngPath, expectCRC string) error {
	if frames <= 0 {
		frames = 1
	}

	start := time.Now()
	var fr *ppu.Frame
	for i := 0; i < frames; i++ {
		fr = m.Frame()
	}
	dur := time.Since(start)

	crc := crc32.ChecksumIEEE(fr.Pix[:])
	fps := float64(frames) / dur.Seconds()
	log.Printf("headless: frames=%d elapsed=%s fps=%.2f fb_crc32=%08x",
		frames, dur.Truncate(time.Millisecond), fps, crc)

	if pngPath != "" {
		if err := saveFramePNG(fr, pngPath); err != nil {
			return fmt.Errorf("write PNG: %w", err)
		}
		log.Printf("wrote %s", pngPath)
	}

	if expectCRC != "" {
		want := strings.TrimPrefix(strings.ToLower(expectCRC), "0x")
		got := fmt.Sprintf("%08x", crc)
		if got != want {
			return fmt.Errorf("checksum mismatch: got %s, want %s", got, want)
		}
	}
	return nil
}

func saveFramePNG(fr *ppu.Frame, path string) error {
	img := image.NewRGBA(image.Rect(0, 0, ppu.FrameWidth, ppu.FrameHeight))
	for y := 0; y < ppu.FrameHeight; y++ {
		for x := 0; x < ppu.FrameWidth; x++ {
			i := (y*ppu.FrameWidth + x) * 3
			img.Set(x, y, color.RGBA{fr.Pix[i], fr.Pix[i+1], fr.Pix[i+2], 0xFF})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

// app is the windowed host: an ebiten.Game that steps one core frame per
// Update, samples the keyboard into joypad state, and blits the RGB8
// framebuffer into an ebiten.Image each Draw.
type app struct {
	m     *emu.Machine
	scale int
	img   *ebiten.Image
	rgba  []byte // scratch RGBA buffer reused across frames
}

func newApp(m *emu.Machine, scale int) *app {
	return &app{
		m:     m,
		scale: scale,
		img:   ebiten.NewImage(ppu.FrameWidth, ppu.FrameHeight),
		rgba:  make([]byte, ppu.FrameWidth*ppu.FrameHeight*4),
	}
}

func (a *app) Update() error {
	a.m.WriteJoypad(readButtons())
	fr := a.m.Frame()
	for i := 0; i < ppu.FrameWidth*ppu.FrameHeight; i++ {
		a.rgba[i*4+0] = fr.Pix[i*3+0]
		a.rgba[i*4+1] = fr.Pix[i*3+1]
		a.rgba[i*4+2] = fr.Pix[i*3+2]
		a.rgba[i*4+3] = 0xFF
	}
	a.img.WritePixels(a.rgba)
	return nil
}

func (a *app) Draw(screen *ebiten.Image) {
	opts := &ebiten.DrawImageOptions{}
	opts.GeoM.Scale(float64(a.scale), float64(a.scale))
	screen.DrawImage(a.img, opts)
	ebitenutil.DebugPrint(screen, fmt.Sprintf("%0.1f FPS", ebiten.ActualFPS()))
}

func (a *app) Layout(outsideWidth, outsideHeight int) (int, int) {
	return ppu.FrameWidth * a.scale, ppu.FrameHeight * a.scale
}

// readButtons samples the keyboard each Update: arrow keys for D-pad,
// Z/X for A/B, Enter/Backspace for Start/Select.
func readButtons() emu.Buttons {
	pressed := ebiten.IsKeyPressed
	return emu.Buttons{
		Up:     pressed(ebiten.KeyArrowUp),
		Down:   pressed(ebiten.KeyArrowDown),
		Left:   pressed(ebiten.KeyArrowLeft),
		Right:  pressed(ebiten.KeyArrowRight),
		A:      pressed(ebiten.KeyZ),
		B:      pressed(ebiten.KeyX),
		Start:  pressed(ebiten.KeyEnter),
		Select: pressed(ebiten.KeyBackspace),
	}
}

func main() {
	f := parseFlags()
	if f.ROMPath == "" {
		log.Fatal("-rom is required")
	}
	rom, err := os.ReadFile(f.ROMPath)
	if err != nil {
		log.Fatalf("read %s: %v", f.ROMPath, err)
	}

	if h, err := cart.ParseHeader(rom); err == nil {
		log.Printf("ROM: %q type=%s banks=%d ram=%dB", h.Title, h.CartTypeStr, h.ROMBanks, h.RAMSizeBytes)
		if !cart.ChecksumOK(rom) {
			log.Printf("ROM: header checksum mismatch (real hardware would refuse to boot)")
		}
	}

	m, err := emu.New(emu.Config{Trace: f.Trace}, rom)
	if err != nil {
		log.Fatalf("load cart: %v", err)
	}

	if f.Headless {
		if err := runHeadless(m, f.Frames, f.PNGOut, f.Expect); err != nil {
			log.Fatal(err)
		}
		return
	}

	ebiten.SetWindowSize(ppu.FrameWidth*f.Scale, ppu.FrameHeight*f.Scale)
	ebiten.SetWindowTitle(f.Title)
	a := newApp(m, f.Scale)
	if err := ebiten.RunGame(a); err != nil {
		log.Fatal(err)
	}
}
