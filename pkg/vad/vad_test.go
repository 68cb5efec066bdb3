package vad

import (
	"encoding/binary"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func testConfig() Config {
	return Config{
		Enabled:         true,
		SampleRate:      16000,
		FrameMs:         10,
		MinSpeechFrames: 3,
		MinSpeechRatio:  0.1,
	}
}

// makeChunk builds n frames of constant-amplitude PCM16 at the test config's
// frame size (160 samples).
func makeChunk(amplitude int16, frames int) []byte {
	const samplesPerFrame = 160
	buf := make([]byte, frames*samplesPerFrame*2)
	for i := 0; i < frames*samplesPerFrame; i++ {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(amplitude))
	}
	return buf
}

func TestGateForwardsLoudChunk(t *testing.T) {
	gate := NewGate(testConfig(), logrus.New())

	assert.True(t, gate.ShouldForward(makeChunk(10000, 5)))
}

func TestGateDropsSilentChunk(t *testing.T) {
	gate := NewGate(testConfig(), logrus.New())

	assert.False(t, gate.ShouldForward(makeChunk(0, 5)))
}

func TestGateDropsChunkShorterThanOneFrame(t *testing.T) {
	gate := NewGate(testConfig(), logrus.New())

	assert.False(t, gate.ShouldForward(make([]byte, 100)))
}

func TestGateRequiresMinimumSpeechFrames(t *testing.T) {
	gate := NewGate(testConfig(), logrus.New())

	// Two loud frames out of twenty clears the ratio threshold candidate
	// count but not the absolute frame minimum.
	chunk := append(makeChunk(10000, 2), makeChunk(0, 18)...)

	assert.False(t, gate.ShouldForward(chunk))
}

func TestGateRequiresMinimumSpeechRatio(t *testing.T) {
	cfg := testConfig()
	cfg.MinSpeechRatio = 0.5
	gate := NewGate(cfg, logrus.New())

	// Three loud frames clear the absolute minimum but only 3/20 of the
	// chunk is speech.
	chunk := append(makeChunk(10000, 3), makeChunk(0, 17)...)

	assert.False(t, gate.ShouldForward(chunk))
}

func TestDisabledGatePassesEverything(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	gate := NewGate(cfg, logrus.New())

	assert.True(t, gate.ShouldForward(makeChunk(0, 5)))
	// Chunks below the frame thresholds still pass when the gate is off.
	assert.True(t, gate.ShouldForward(makeChunk(0, 2)))
	assert.True(t, gate.ShouldForward(make([]byte, 100)))
	assert.True(t, gate.ShouldForward(nil))
}

func TestEnergyClassifierTracksNoiseFloorOnQuietFrames(t *testing.T) {
	c := newEnergyClassifier()

	quiet := make([]int16, 160)
	for i := range quiet {
		quiet[i] = 50
	}

	floorBefore := c.noiseFloor
	assert.False(t, c.IsSpeech(quiet))
	assert.NotEqual(t, floorBefore, c.noiseFloor)
}

func TestEnergyClassifierSpeechDoesNotRaiseFloor(t *testing.T) {
	c := newEnergyClassifier()

	loud := make([]int16, 160)
	for i := range loud {
		loud[i] = 10000
	}

	floorBefore := c.noiseFloor
	assert.True(t, c.IsSpeech(loud))
	assert.Equal(t, floorBefore, c.noiseFloor)
}

func TestDecodePCM16(t *testing.T) {
	buf := []byte{0x01, 0x00, 0xFF, 0xFF}
	samples := decodePCM16(buf)

	assert.Equal(t, []int16{1, -1}, samples)
}
