package emu

// Config contains settings that affect emulation behavior. It is supplied
// once at Machine construction and does not change a running machine's
// semantics, only its observability.
type Config struct {
	Trace bool // log each instruction's PC and cycle count via log.Printf
}
