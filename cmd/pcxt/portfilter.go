package main

// nopFilter leaves every port to the synthesized behavior in emu/ports;
// COM-port traffic is carried through emu/hostops' serial subcode instead
// of the generic port filter (SPEC_FULL.md §4.10).
type nopFilter struct{}

func (nopFilter) In(port uint16) (value uint8, handled bool)  { return 0, false }
func (nopFilter) Out(port uint16, value uint8) (handled bool) { return false }
