// Package audio implements the PC speaker's square-wave synthesis: a
// stateless-per-call mixer fed by the live speaker-enable/divisor state,
// matching the original emulator's audio callback. The package is
// deliberately stdlib-only and lock-free: a host audio driver calls Fill
// from its own thread while the CPU goroutine keeps writing SetSpeaker
// from port 0x61/0x43 writes, and a torn read of enabled/divisor is
// tolerable (it costs at most one wrong sample), matching the
// concurrency model's lock-free audio requirement.
package audio

import "sync/atomic"

// Mixer synthesizes the PC speaker waveform: a divide-by-N square wave
// gated by the speaker enable bits, exactly like the original emulator's
// vxt_audio_callback.
type Mixer struct {
	enabled     atomic.Bool
	divisor     atomic.Uint32
	waveCounter uint32
	silence     uint8
}

func New(silence uint8) *Mixer {
	return &Mixer{silence: silence}
}

// SetSpeaker is called from the CPU goroutine on every port 0x61 or timer
// divisor write.
func (m *Mixer) SetSpeaker(enabled bool, divisor uint16) {
	m.enabled.Store(enabled)
	m.divisor.Store(uint32(divisor))
}

// Fill writes len(buf) unsigned 8-bit PCM samples, called from the host
// audio driver's own thread.
func (m *Mixer) Fill(buf []byte) {
	enabled := m.enabled.Load()
	divisor := m.divisor.Load()
	for i := range buf {
		if enabled && divisor != 0 {
			bit := (54 * m.waveCounter / divisor) & 1
			m.waveCounter++
			if bit != 0 {
				buf[i] = 0xFF
			} else {
				buf[i] = 0
			}
		} else {
			buf[i] = m.silence
		}
	}
}
