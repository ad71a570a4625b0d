package audio

import (
	"bytes"
	"encoding/binary"
	"testing"

	"scratchvm/internal/vm"
)

// monoWAV16 builds a minimal canonical 16-bit PCM mono RIFF/WAVE file
// containing samples.
func monoWAV16(samples []int16) []byte {
	var buf bytes.Buffer
	dataSize := len(samples) * 2
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))  // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1))  // mono
	binary.Write(&buf, binary.LittleEndian, uint32(44100))
	binary.Write(&buf, binary.LittleEndian, uint32(44100*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	for _, s := range samples {
		binary.Write(&buf, binary.LittleEndian, s)
	}
	return buf.Bytes()
}

func TestDecodeWAVRoundTripsSamples(t *testing.T) {
	raw := monoWAV16([]int16{0, 16384, -16384, 32767})
	got, err := decodeWAV(raw)
	if err != nil {
		t.Fatalf("decodeWAV: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 samples, got %d", len(got))
	}
	if got[0] != 0 {
		t.Errorf("sample 0: want 0, got %v", got[0])
	}
	if got[1] <= 0 || got[1] >= 1 {
		t.Errorf("sample 1: want in (0,1), got %v", got[1])
	}
	if got[2] >= 0 {
		t.Errorf("sample 2: want negative, got %v", got[2])
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	if _, err := decodeWAV([]byte("not a wav file")); err == nil {
		t.Fatal("expected an error decoding a non-RIFF blob")
	}
}

func TestMixAddsVoicesAndClips(t *testing.T) {
	m := &SDLMixer{volumeOf: make(map[*vm.Instance]float64)}
	inst := &vm.Instance{}
	m.voices = []*Voice{
		{inst: inst, samples: []float32{0.8, 0.8}, volume: 1},
		{inst: inst, samples: []float32{0.8, 0.8}, volume: 1},
	}
	out := make([]float32, 2)
	m.mix(out)
	if out[0] != 1 {
		t.Errorf("expected mixed+clipped sample of 1, got %v", out[0])
	}
}

func TestMixFiresDoneOnExhaustedVoice(t *testing.T) {
	m := &SDLMixer{volumeOf: make(map[*vm.Instance]float64)}
	fired := false
	m.voices = []*Voice{
		{samples: []float32{0.5}, volume: 1, done: func() { fired = true }},
	}
	out := make([]float32, 4)
	m.mix(out)
	if !fired {
		t.Fatal("expected done callback to fire once the voice's samples are exhausted")
	}
	if len(m.voices) != 0 {
		t.Fatalf("expected exhausted voice removed from mixer, got %d remaining", len(m.voices))
	}
}

func TestStopSoundRemovesOnlyMatchingInstance(t *testing.T) {
	m := &SDLMixer{volumeOf: make(map[*vm.Instance]float64)}
	a, b := &vm.Instance{}, &vm.Instance{}
	m.voices = []*Voice{{inst: a, samples: []float32{0}}, {inst: b, samples: []float32{0}}}
	m.StopSound(a)
	if len(m.voices) != 1 || m.voices[0].inst != b {
		t.Fatalf("expected only b's voice to remain, got %+v", m.voices)
	}
}

func TestSetVolumeScalesLiveVoice(t *testing.T) {
	m := &SDLMixer{volumeOf: make(map[*vm.Instance]float64)}
	inst := &vm.Instance{}
	m.voices = []*Voice{{inst: inst, samples: []float32{1}, volume: 1}}
	m.SetVolume(inst, 50)
	if m.voices[0].volume != 0.5 {
		t.Errorf("expected live voice volume updated to 0.5, got %v", m.voices[0].volume)
	}
}
