package ppu

// renderScanline fills framebuffer row ly by compositing background,
// window, and sprites. Called once, on the transition into
// H-Blank for each visible line.
func (p *PPU) renderScanline(ly byte) {
	lcdc := p.m.Peek(0xFF40)
	var colorIDs [FrameWidth]byte

	if lcdc&0x01 != 0 {
		p.renderBackground(lcdc, ly, &colorIDs)
	}
	if lcdc&0x02 != 0 {
		p.renderSprites(lcdc, ly, &colorIDs)
	}
}

// renderBackground draws the background and, where active, the window
// layer into the framebuffer row for ly, applying BGP.
func (p *PPU) renderBackground(lcdc byte, ly byte, colorIDs *[FrameWidth]byte) {
	bgp := p.m.Peek(0xFF47)
	scy := p.m.Peek(0xFF42)
	scx := p.m.Peek(0xFF43)
	wy := p.m.Peek(0xFF4A)
	wx := p.m.Peek(0xFF4B)

	tileData8000 := lcdc&0x10 != 0
	windowEnabled := lcdc&0x20 != 0 && wy <= ly

	bgMapBase := uint16(0x9800)
	if lcdc&0x08 != 0 {
		bgMapBase = 0x9C00
	}
	winMapBase := uint16(0x9800)
	if lcdc&0x40 != 0 {
		winMapBase = 0x9C00
	}

	for x := 0; x < FrameWidth; x++ {
		usingWindow := windowEnabled && byte(x) >= wx
		var mapBase uint16
		var xPos, yPos uint16
		if usingWindow {
			mapBase = winMapBase
			xPos = uint16(x) - uint16(wx)
			yPos = uint16(ly) - uint16(wy)
		} else {
			mapBase = bgMapBase
			xPos = (uint16(x) + uint16(scx)) % 256
			yPos = (uint16(scy) + uint16(ly)) % 256
		}

		tileCol := xPos / 8
		tileRow := yPos / 8
		tileIndexAddr := mapBase + tileRow*32 + tileCol

		p.fifo.Clear()
		p.bg.FetchRow(tileIndexAddr, tileData8000, byte(yPos&7))
		// Discard pixels before the fine-X offset within the tile row.
		for i := uint16(0); i < xPos%8; i++ {
			p.fifo.Pop()
		}
		ci, _ := p.fifo.Pop()
		colorIDs[x] = ci
		p.frame.set(x, int(ly), shadeFromPalette(bgp, ci))
	}
}

// renderSprites composites the 40-entry OAM table onto the framebuffer
// row for ly, honouring x/y flip, 8x16 mode, OBP0/OBP1 selection, colour
// id 0 transparency, and background-priority bit 7.
func (p *PPU) renderSprites(lcdc byte, ly byte, bgColorIDs *[FrameWidth]byte) {
	height := 8
	if lcdc&0x04 != 0 {
		height = 16
	}
	obp0 := p.m.Peek(0xFF48)
	obp1 := p.m.Peek(0xFF49)

	for i := 0; i < 40; i++ {
		base := uint16(0xFE00 + i*4)
		spriteY := int(p.m.Read(base)) - 16
		spriteX := int(p.m.Read(base+1)) - 8
		tile := p.m.Read(base + 2)
		attr := p.m.Read(base + 3)

		if int(ly) < spriteY || int(ly) >= spriteY+height {
			continue
		}

		line := int(ly) - spriteY
		if attr&0x40 != 0 { // Y flip
			line = height - 1 - line
		}
		tileNum := tile
		if height == 16 {
			tileNum &^= 0x01
			if line >= 8 {
				tileNum |= 0x01
				line -= 8
			}
		}

		addr := 0x8000 + uint16(tileNum)*16 + uint16(line)*2
		lo := p.m.Read(addr)
		hi := p.m.Read(addr + 1)

		palette := obp0
		if attr&0x10 != 0 {
			palette = obp1
		}
		priority := attr&0x80 != 0

		for px := 0; px < 8; px++ {
			x := spriteX + px
			if x < 0 || x >= FrameWidth {
				continue
			}
			bit := byte(px)
			if attr&0x20 == 0 { // no X flip: bit 7 is leftmost pixel
				bit = 7 - byte(px)
			}
			ci := ((hi>>bit)&1)<<1 | (lo>>bit)&1
			if ci == 0 {
				continue
			}
			if priority && bgColorIDs[x] != 0 {
				continue
			}
			p.frame.set(x, int(ly), shadeFromPalette(palette, ci))
		}
	}
}

// shadeFromPalette maps a 2-bit colour id through a BGP/OBP0/OBP1-style
// palette byte (2 bits per shade, id 0 in bits 0-1) to its RGB8 shade.
func shadeFromPalette(palette byte, ci byte) [3]byte {
	shadeIdx := (palette >> (ci * 2)) & 0x03
	return shades[shadeIdx]
}
