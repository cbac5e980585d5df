/*
 * pcxt - reference host, speaker playback via oto.
 *
 * Copyright (c) 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a
 * copy of this software and associated documentation files (the "Software"),
 * to deal in the Software without restriction, including without limitation
 * the rights to use, copy, modify, merge, publish, distribute, sublicense,
 * and/or sell copies of the Software, and to permit persons to whom the
 * Software is furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
 * ROBERT M SUPNIK BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
 * IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
 * CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 *
 */

package main

import (
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/pcxt/pcxt/emu/audio"
)

// speakerSampleRate matches the divide-by-N constant baked into
// audio.Mixer.Fill's square-wave synthesis.
const speakerSampleRate = 22050

// mixerReader adapts audio.Mixer.Fill to io.Reader, the shape oto.Player
// streams from.
type mixerReader struct{ mixer *audio.Mixer }

func (r mixerReader) Read(buf []byte) (int, error) {
	r.mixer.Fill(buf)
	return len(buf), nil
}

// speakerPlayer owns the oto context and player backing one audio.Mixer.
type speakerPlayer struct {
	player *oto.Player
}

// startSpeaker opens the default audio device and starts streaming mixer's
// output; the returned speakerPlayer must be closed at shutdown.
func startSpeaker(mixer *audio.Mixer) (*speakerPlayer, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   speakerSampleRate,
		ChannelCount: 1,
		Format:       oto.FormatUnsignedInt8,
	})
	if err != nil {
		return nil, err
	}
	<-ready

	player := ctx.NewPlayer(mixerReader{mixer: mixer})
	player.SetBufferSize(speakerSampleRate / 20) // 50ms, low enough latency for a square wave
	player.Play()
	return &speakerPlayer{player: player}, nil
}

func (s *speakerPlayer) Close() {
	_ = s.player.Close()
	time.Sleep(10 * time.Millisecond)
}
