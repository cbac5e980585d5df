package ports

import (
	"testing"

	"github.com/pcxt/pcxt/emu/memory"
)

type fakeSpeaker struct {
	enabled  bool
	divisor  uint16
	callCount int
}

func (f *fakeSpeaker) SetSpeaker(enabled bool, divisor uint16) {
	f.enabled, f.divisor, f.callCount = enabled, divisor, f.callCount+1
}

func TestSpeakerEnableRequiresBothBits(t *testing.T) {
	p := New()
	mem := memory.New()
	spk := &fakeSpeaker{}
	p.Out(mem, portSpeaker, 1, spk, nil)
	if spk.enabled {
		t.Error("speaker should not be enabled after setting only bit 0")
	}
	p.Out(mem, portSpeaker, 2, spk, nil)
	if !spk.enabled {
		t.Error("speaker should be enabled once both control bits are set")
	}
}

func TestHerculesResolutionReprogramming(t *testing.T) {
	p := New()
	mem := memory.New()
	p.SetByte(portHercIndex, 1)
	p.Out(mem, portHercData, 45, nil, nil)
	if p.GraphicsX != 45*16 {
		t.Errorf("GraphicsX = %d, want %d", p.GraphicsX, 45*16)
	}
}

func TestPICEndOfInterruptClearedOnRead(t *testing.T) {
	p := New()
	mem := memory.New()
	p.SetByte(portPIC0x20, 0xFF)
	p.In(mem, 0x00, nil)
	if p.Byte(portPIC0x20) != 0 {
		t.Error("reading any port should reset the PIC EOI byte")
	}
}

type fakeFilter struct {
	outPort  uint16
	outValue uint8
}

func (f *fakeFilter) In(port uint16) (uint8, bool) { return 0, false }
func (f *fakeFilter) Out(port uint16, value uint8) bool {
	f.outPort, f.outValue = port, value
	return true
}

func TestOutFallsThroughToFilter(t *testing.T) {
	p := New()
	mem := memory.New()
	f := &fakeFilter{}
	p.Out(mem, 0x300, 0x55, nil, f)
	if f.outPort != 0x300 || f.outValue != 0x55 {
		t.Errorf("filter did not observe Out: got port=%#x value=%#x", f.outPort, f.outValue)
	}
}
