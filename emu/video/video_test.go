package video

import (
	"testing"

	"github.com/pcxt/pcxt/emu/device"
	"github.com/pcxt/pcxt/emu/memory"
	"github.com/pcxt/pcxt/emu/ports"
)

type recordingVideo struct {
	initCalls int
	lastMode  device.VideoMode
	textCalls int
}

func (r *recordingVideo) GetKey() (device.Key, bool) { return device.Key{}, false }
func (r *recordingVideo) Initialize(mode device.VideoMode, w, h int) {
	r.initCalls++
	r.lastMode = mode
}
func (r *recordingVideo) Backbuffer(frame []byte, w, h int) {}
func (r *recordingVideo) TextMode(cells []byte, columns, rows, cursorRow, cursorCol int) {
	r.textCalls++
}

func TestRefreshInitializesOnceForTextMode(t *testing.T) {
	mem := memory.New()
	p := ports.New()
	r := New()
	v := &recordingVideo{}

	r.Refresh(mem, p, v)
	r.Refresh(mem, p, v)

	if v.initCalls != 1 {
		t.Errorf("Initialize called %d times, want 1 (mode unchanged)", v.initCalls)
	}
	if v.lastMode != device.ModeText {
		t.Errorf("mode = %v, want text", v.lastMode)
	}
	if v.textCalls != 2 {
		t.Errorf("TextMode called %d times, want 2", v.textCalls)
	}
}

func TestRefreshReinitializesOnModeChange(t *testing.T) {
	mem := memory.New()
	p := ports.New()
	r := New()
	v := &recordingVideo{}

	r.Refresh(mem, p, v)
	p.SetByte(0x3B8, 2) // switch into graphics mode
	p.GraphicsX, p.GraphicsY = 320, 200
	r.Refresh(mem, p, v)

	if v.initCalls != 2 {
		t.Errorf("Initialize called %d times, want 2 (mode changed)", v.initCalls)
	}
}
