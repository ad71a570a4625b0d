// Package audio is the sound facet of the host API (spec §6.3): an
// SDL-backed mixer, the Go analogue of the teacher's internal/apu.APU
// phase-accumulator channel model — except a Scratch sound is a
// decoded PCM clip, not a synthesized waveform, so "channels" here are
// concurrently playing Voices mixed down once per scheduler tick and
// queued to the output device, the same per-frame sample-buffer
// discipline as the teacher's Emulator.RunFrame (735 samples/frame at
// 44.1kHz/60fps), generalized to this VM's configurable tick rate.
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/veandco/go-sdl2/sdl"

	"scratchvm/internal/logging"
	"scratchvm/internal/vm"
)

const sampleRate = 44100

// Voice is one currently-playing sound.
type Voice struct {
	inst    *vm.Instance
	samples []float32 // decoded mono PCM, -1..1
	pos     int
	volume  float64
	done    func()
}

// SDLMixer is the default Audio implementation: an SDL audio device
// opened in queue mode, fed one mixed buffer per Tick call.
type SDLMixer struct {
	Logger *logging.Logger

	mu       sync.Mutex
	voices   []*Voice
	volumeOf map[*vm.Instance]float64

	deviceID sdl.AudioDeviceID
	opened   bool
}

var _ vm.Audio = (*SDLMixer)(nil)

// NewSDLMixer opens the default SDL audio output device in queue mode.
// A failure to open is logged, not fatal: PlaySound still tracks
// voices and fires waitDone on schedule so scripts never deadlock in
// a headless environment, they just play silently.
func NewSDLMixer(logger *logging.Logger) *SDLMixer {
	m := &SDLMixer{Logger: logger, volumeOf: make(map[*vm.Instance]float64)}
	spec := &sdl.AudioSpec{Freq: sampleRate, Format: sdl.AUDIO_F32SYS, Channels: 1, Samples: 1024}
	id, err := sdl.OpenAudioDevice("", false, spec, nil, 0)
	if err != nil {
		if logger != nil {
			logger.Warn(logging.ComponentAudio, "open audio device: %v", err)
		}
		return m
	}
	m.deviceID = id
	m.opened = true
	sdl.PauseAudioDevice(id, false)
	return m
}

// Tick mixes one tick's worth of samples (sampleRate*dt of them) from
// every live voice and queues them to the device; callers drive this
// from the same cadence as vm.VMUpdate so audio and script ticks stay
// in lockstep, exactly as the teacher's RunFrame interleaves CPU and
// APU stepping.
func (m *SDLMixer) Tick(dt float64) {
	n := int(sampleRate * dt)
	if n <= 0 {
		return
	}
	buf := make([]float32, n)
	m.mix(buf)
	if !m.opened {
		return
	}
	raw := make([]byte, 4*len(buf))
	for i, s := range buf {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(s))
	}
	if err := sdl.QueueAudio(m.deviceID, raw); err != nil && m.Logger != nil {
		m.Logger.Warn(logging.ComponentAudio, "queue audio: %v", err)
	}
}

// mix writes mixed samples into out, advancing every live voice and
// dropping it (firing its completion callback) once exhausted.
func (m *SDLMixer) mix(out []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	alive := m.voices[:0]
	for _, v := range m.voices {
		exhausted := false
		for i := range out {
			if v.pos >= len(v.samples) {
				exhausted = true
				break
			}
			out[i] += float32(v.volume) * v.samples[v.pos]
			v.pos++
		}
		if exhausted {
			if v.done != nil {
				v.done()
			}
			continue
		}
		alive = append(alive, v)
	}
	m.voices = alive
	for i := range out {
		if out[i] > 1 {
			out[i] = 1
		} else if out[i] < -1 {
			out[i] = -1
		}
	}
}

// PlaySound decodes data (WAV PCM; other formats log and complete
// immediately) and queues it as a new Voice.
func (m *SDLMixer) PlaySound(inst *vm.Instance, snd *vm.Sound, data []byte, waitDone func()) {
	samples, err := decodeWAV(data)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Warn(logging.ComponentAudio, "decode sound %q: %v", snd.Name, err)
		}
		if waitDone != nil {
			waitDone()
		}
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	vol := m.volumeOf[inst]
	if vol == 0 {
		vol = 1
	}
	m.voices = append(m.voices, &Voice{inst: inst, samples: samples, volume: vol, done: waitDone})
}

// StopSound halts every voice belonging to inst without firing
// waitDone, matching spec §4.G "stop sounds" not counting as
// completion.
func (m *SDLMixer) StopSound(inst *vm.Instance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.voices[:0]
	for _, v := range m.voices {
		if v.inst != inst {
			kept = append(kept, v)
		}
	}
	m.voices = kept
}

func (m *SDLMixer) StopAllSounds() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.voices = nil
}

func (m *SDLMixer) SetVolume(inst *vm.Instance, volume float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volumeOf[inst] = volume / 100
	for _, v := range m.voices {
		if v.inst == inst {
			v.volume = volume / 100
		}
	}
}

// Close stops playback and releases the SDL audio device.
func (m *SDLMixer) Close() {
	if m.opened {
		sdl.CloseAudioDevice(m.deviceID)
	}
}

// decodeWAV parses a canonical PCM WAVE file into mono float32 samples
// in [-1, 1], downmixing stereo by averaging channels.
func decodeWAV(data []byte) ([]float32, error) {
	if len(data) < 44 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("not a RIFF/WAVE file")
	}
	var (
		channels      uint16
		bitsPerSample uint16
		dataOff, dataLen int
	)
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		switch id {
		case "fmt ":
			channels = binary.LittleEndian.Uint16(data[body+2 : body+4])
			bitsPerSample = binary.LittleEndian.Uint16(data[body+14 : body+16])
		case "data":
			dataOff, dataLen = body, size
		}
		off = body + size
		if size%2 == 1 {
			off++
		}
	}
	if dataOff == 0 || channels == 0 || bitsPerSample != 16 {
		return nil, fmt.Errorf("unsupported WAVE encoding (channels=%d bits=%d)", channels, bitsPerSample)
	}
	frames := dataLen / (int(channels) * 2)
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum int32
		for c := 0; c < int(channels); c++ {
			o := dataOff + (i*int(channels)+c)*2
			if o+2 > len(data) {
				break
			}
			sum += int32(int16(binary.LittleEndian.Uint16(data[o : o+2])))
		}
		out[i] = float32(sum) / float32(int(channels)) / 32768
	}
	return out, nil
}
