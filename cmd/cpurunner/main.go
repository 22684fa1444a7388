// Command cpurunner steps the CPU/MMU/timer core directly, without PPU
// rendering or a host window, printing a per-instruction trace. It is a
// debugging aid for exercising ROMs against the decode table and
// interrupt/timer wiring in isolation.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/palenight/gbcore/internal/cart"
	"github.com/palenight/gbcore/internal/cpu"
	"github.com/palenight/gbcore/internal/mmu"
	"github.com/palenight/gbcore/internal/timer"
)

func main() {
	romPath := flag.String("rom", "", "path to ROM (.gb)")
	steps := flag.Int("steps", 5_000_000, "max CPU steps to run")
	trace := flag.Bool("trace", false, "print PC/registers per instruction")
	timeout := flag.Duration("timeout", 0, "optional wall-clock timeout (e.g. 30s, 2m); 0 disables")
	flag.Parse()

	if *romPath == "" {
		log.Fatal("-rom is required")
	}
	rom, err := os.ReadFile(*romPath)
	if err != nil {
		log.Fatalf("read rom: %v", err)
	}

	ct, err := cart.New(rom)
	if err != nil {
		log.Fatalf("cart.New: %v", err)
	}
	m := mmu.New(ct)
	c := cpu.New(m)
	c.Reset()
	t := timer.New(m)

	start := time.Now()
	var deadline time.Time
	if *timeout > 0 {
		deadline = start.Add(*timeout)
	}

	var cycles int
	for i := 0; i < *steps; i++ {
		pc := c.PC
		cyc := c.Step()
		t.Tick(cyc)
		cycles += cyc
		if *trace {
			fmt.Printf("PC=%04X cyc=%d A=%02X F=%02X B=%02X C=%02X D=%02X E=%02X H=%02X L=%02X SP=%04X IME=%t IF=%02X IE=%02X\n",
				pc, cyc, c.A(), c.F(), c.B(), c.C(), c.D(), c.E(), c.H(), c.L(), c.SP, c.IsIME(), m.IF(), m.IE())
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			fmt.Printf("\nTimeout after %s.\n", time.Since(start).Truncate(time.Millisecond))
			fmt.Printf("Done: steps=%d cycles~=%d\n", i+1, cycles)
			os.Exit(2)
		}
	}
	fmt.Printf("Done: steps=%d cycles~=%d elapsed=%s\n", *steps, cycles, time.Since(start).Truncate(time.Millisecond))
}
