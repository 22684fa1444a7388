// Package timer implements the divider and configurable TIMA/TMA/TAC
// timer, ticked once per CPU step with the cycle count that step
// consumed.
package timer

import "github.com/palenight/gbcore/internal/mmu"

const cpuHz = 4194304

// reloadPeriod maps TAC's bottom two bits to the CPU-cycle count between
// TIMA increments: 00->4096Hz, 01->262144Hz, 10->65536Hz, 11->16384Hz.
var reloadPeriod = [4]int{cpuHz / 4096, cpuHz / 262144, cpuHz / 65536, cpuHz / 16384}

// Timer is the divider/TIMA subsystem. It owns no registers itself;
// DIV/TIMA/TMA/TAC live in the MMU and are read/written through it.
type Timer struct {
	m *mmu.MMU

	divAcc        int // cycles accumulated toward the next DIV increment
	reloadCounter int // cycles remaining until the next TIMA increment
}

// New attaches a Timer to m, seeding the reload counter from the TAC
// value m holds when New is called.
func New(m *mmu.MMU) *Timer {
	t := &Timer{m: m}
	t.reloadCounter = reloadPeriod[m.Read(0xFF07)&0x03]
	return t
}

// Tick advances the divider and timer by cycles CPU cycles, the amount
// the most recent CPU.Step() consumed.
func (t *Timer) Tick(cycles int) {
	if t.m.ConsumeDividerReset() {
		t.divAcc = 0
	}
	if t.m.ConsumeTimerFreqChanged() {
		t.reloadCounter = reloadPeriod[t.m.Read(0xFF07)&0x03]
	}

	t.divAcc += cycles
	for t.divAcc >= 256 {
		t.divAcc -= 256
		t.m.Poke(0xFF04, t.m.Peek(0xFF04)+1)
	}

	tac := t.m.Read(0xFF07)
	if tac&0x04 == 0 {
		return
	}
	period := reloadPeriod[tac&0x03]
	t.reloadCounter -= cycles
	for t.reloadCounter <= 0 {
		t.reloadCounter += period
		t.incrementTIMA()
	}
}

func (t *Timer) incrementTIMA() {
	tima := t.m.Peek(0xFF05)
	if tima == 0xFF {
		t.m.Poke(0xFF05, t.m.Peek(0xFF06))
		t.m.RequestInterrupt(mmu.IntTimer)
		return
	}
	t.m.Poke(0xFF05, tima+1)
}
