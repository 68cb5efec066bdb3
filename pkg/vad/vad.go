package vad

import (
	"encoding/binary"
	"math"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

// Classifier decides whether a single fixed-size PCM16 frame contains speech.
type Classifier interface {
	IsSpeech(frame []int16) bool
}

type Config struct {
	Enabled         bool
	SampleRate      int
	FrameMs         int
	MinSpeechFrames int
	MinSpeechRatio  float64
}

func ConfigFromEnv() Config {
	cfg := Config{
		Enabled:         true,
		SampleRate:      16000,
		FrameMs:         10,
		MinSpeechFrames: 3,
		MinSpeechRatio:  0.1,
	}

	if v := os.Getenv("VAD_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err == nil {
			cfg.Enabled = enabled
		}
	}
	if v := os.Getenv("VAD_SAMPLE_RATE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SampleRate = n
		}
	}
	if v := os.Getenv("VAD_MIN_SPEECH_FRAMES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MinSpeechFrames = n
		}
	}
	if v := os.Getenv("VAD_MIN_SPEECH_RATIO"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			cfg.MinSpeechRatio = f
		}
	}

	return cfg
}

// Gate decides per audio chunk whether it is forwarded upstream. Decisions
// are made chunk by chunk, not smoothed across chunks.
type Gate struct {
	classifier Classifier
	cfg        Config
	log        *logrus.Logger
}

func NewGate(cfg Config, log *logrus.Logger) *Gate {
	var classifier Classifier
	if cfg.Enabled {
		classifier = newEnergyClassifier()
	} else {
		classifier = passthroughClassifier{}
		log.Warn("VAD disabled, forwarding all audio chunks")
	}

	return &Gate{
		classifier: classifier,
		cfg:        cfg,
		log:        log,
	}
}

// ShouldForward splits the chunk into fixed frames and forwards only when
// both the absolute speech-frame count and the speech fraction clear their
// configured thresholds.
func (g *Gate) ShouldForward(pcm []byte) bool {
	// A disabled gate never withholds audio, whatever the chunk size.
	if !g.cfg.Enabled {
		return true
	}

	frames := g.splitFrames(pcm)
	if len(frames) == 0 {
		return false
	}

	speech := 0
	for _, frame := range frames {
		if g.classifier.IsSpeech(frame) {
			speech++
		}
	}

	ratio := float64(speech) / float64(len(frames))
	return speech >= g.cfg.MinSpeechFrames && ratio >= g.cfg.MinSpeechRatio
}

func (g *Gate) splitFrames(pcm []byte) [][]int16 {
	samplesPerFrame := g.cfg.SampleRate * g.cfg.FrameMs / 1000
	if samplesPerFrame <= 0 {
		return nil
	}

	samples := decodePCM16(pcm)

	var frames [][]int16
	for i := 0; i+samplesPerFrame <= len(samples); i += samplesPerFrame {
		frames = append(frames, samples[i:i+samplesPerFrame])
	}
	return frames
}

func decodePCM16(pcm []byte) []int16 {
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return samples
}

// energyClassifier tracks an adaptive noise floor and treats a frame as
// speech when its RMS energy rises well above it.
type energyClassifier struct {
	noiseFloor float64
	margin     float64
	minEnergy  float64
}

func newEnergyClassifier() *energyClassifier {
	return &energyClassifier{
		noiseFloor: 200,
		margin:     2.5,
		minEnergy:  350,
	}
}

func (c *energyClassifier) IsSpeech(frame []int16) bool {
	if len(frame) == 0 {
		return false
	}

	var sum float64
	for _, s := range frame {
		sum += float64(s) * float64(s)
	}
	rms := math.Sqrt(sum / float64(len(frame)))

	speech := rms > c.minEnergy && rms > c.noiseFloor*c.margin

	// The floor only tracks quiet frames so sustained speech cannot raise it.
	if !speech {
		c.noiseFloor = 0.95*c.noiseFloor + 0.05*rms
		if c.noiseFloor < 1 {
			c.noiseFloor = 1
		}
	}

	return speech
}

// passthroughClassifier degrades the gate to always-pass when the real
// classifier is unavailable. Audio must never be dropped for a missing
// optional dependency.
type passthroughClassifier struct{}

func (passthroughClassifier) IsSpeech([]int16) bool { return true }
