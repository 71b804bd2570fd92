/*
GroovTube Core
Copyright (c) 2026 The GroovTube Core Contributors.
SPDX-License-Identifier: GPL-3.0-or-later

This file is part of GroovTube Core.

GroovTube Core is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

GroovTube Core is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with GroovTube Core.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package audio plays reward sounds on the host when the device asks for
// them at the end of a PEP exercise.
package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/GroovTube/groovtube-core/pkg/helpers/syncutil"
	"github.com/gen2brain/malgo"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
	"github.com/rs/zerolog/log"
)

const outputRate = beep.SampleRate(48000)

var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Player plays one sound at a time. PlayFile returns once the file is
// decoded; playback continues in the background.
type Player interface {
	PlayFile(path string) error
	Stop()
}

// MalgoPlayer outputs through the default playback device.
type MalgoPlayer struct {
	cancel context.CancelFunc
	gen    uint64
	mu     syncutil.Mutex
}

func NewMalgoPlayer() *MalgoPlayer {
	return &MalgoPlayer{}
}

// Decode picks a decoder from the file extension.
func Decode(path string, data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
		err      error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav":
		streamer, format, err = wav.Decode(bytes.NewReader(data))
	case ".mp3":
		streamer, format, err = mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	case ".ogg":
		streamer, format, err = vorbis.Decode(io.NopCloser(bytes.NewReader(data)))
	case ".flac":
		streamer, format, err = flac.Decode(bytes.NewReader(data))
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return streamer, format, nil
}

// PlayFile replaces whatever is playing with path.
func (p *MalgoPlayer) PlayFile(path string) error {
	//nolint:gosec // G304: reward paths are resolved inside the media dir
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read audio file: %w", err)
	}

	streamer, format, err := Decode(path, data)
	if err != nil {
		return err
	}
	resampled := beep.Resample(4, format.SampleRate, outputRate, streamer)

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.gen++
	gen := p.gen
	p.mu.Unlock()

	go func() {
		defer func() {
			if err := streamer.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close audio streamer")
			}
			p.mu.Lock()
			if p.gen == gen {
				p.cancel = nil
			}
			p.mu.Unlock()
			cancel()
		}()

		if err := output(ctx, resampled); err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Warn().Err(err).Str("path", path).Msg("failed to play audio")
			}
			return
		}
		log.Debug().Str("path", path).Msg("finished playing reward")
	}()

	return nil
}

// Stop cuts off the current sound, if any.
func (p *MalgoPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// output blocks until streamer is drained or ctx is cancelled.
func output(ctx context.Context, streamer beep.Streamer) error {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize audio context: %w", err)
	}
	if mctx == nil {
		return errors.New("audio context is nil after initialization")
	}
	defer func() {
		_ = mctx.Uninit()
		mctx.Free()
	}()

	// F32 avoids miniaudio's S16 to S32 conversion on PulseAudio
	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatF32
	cfg.Playback.Channels = 2
	cfg.SampleRate = uint32(outputRate)
	cfg.Alsa.NoMMap = 1

	done := make(chan struct{})
	var (
		mu       syncutil.Mutex
		finished bool
		buf      [][2]float64
	)
	finish := func() {
		if !finished {
			finished = true
			close(done)
		}
	}

	onSamples := func(out, _ []byte, frames uint32) {
		mu.Lock()
		defer mu.Unlock()
		if finished {
			return
		}
		if ctx.Err() != nil {
			finish()
			return
		}
		if len(buf) < int(frames) {
			buf = make([][2]float64, frames)
		}
		n, ok := streamer.Stream(buf[:frames])
		if !ok || n == 0 {
			finish()
			return
		}
		fillF32(out, buf[:n])
	}

	device, err := malgo.InitDevice(mctx.Context, cfg, malgo.DeviceCallbacks{Data: onSamples})
	if err != nil {
		return fmt.Errorf("failed to initialize audio device: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("failed to start audio device: %w", err)
	}

	select {
	case <-done:
	case <-ctx.Done():
		mu.Lock()
		finish()
		mu.Unlock()
	}

	if err := device.Stop(); err != nil {
		log.Warn().Err(err).Msg("failed to stop audio device")
	}
	return ctx.Err()
}

// fillF32 writes interleaved little-endian stereo floats and zeroes the rest
// of out.
func fillF32(out []byte, samples [][2]float64) {
	offset := 0
	for _, s := range samples {
		if offset+8 > len(out) {
			return
		}
		binary.LittleEndian.PutUint32(out[offset:], math.Float32bits(float32(s[0])))
		binary.LittleEndian.PutUint32(out[offset+4:], math.Float32bits(float32(s[1])))
		offset += 8
	}
	clear(out[offset:])
}
