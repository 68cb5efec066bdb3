package realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnDetectionFromEnvDefaults(t *testing.T) {
	t.Setenv("REALTIME_TURN_DETECTION", "")

	td := TurnDetectionFromEnv()

	require.NotNil(t, td)
	assert.Equal(t, "server_vad", td.Type)
	assert.Equal(t, 0.5, td.Threshold)
	assert.Equal(t, 300, td.PrefixPaddingMs)
	assert.Equal(t, 500, td.SilenceDurationMs)
}

func TestTurnDetectionFromEnvOverrides(t *testing.T) {
	t.Setenv("REALTIME_TURN_DETECTION", "server_vad")
	t.Setenv("REALTIME_TURN_DETECTION_THRESHOLD", "0.8")
	t.Setenv("REALTIME_TURN_DETECTION_PREFIX_MS", "100")
	t.Setenv("REALTIME_TURN_DETECTION_SILENCE_MS", "800")

	td := TurnDetectionFromEnv()

	require.NotNil(t, td)
	assert.Equal(t, 0.8, td.Threshold)
	assert.Equal(t, 100, td.PrefixPaddingMs)
	assert.Equal(t, 800, td.SilenceDurationMs)
}

func TestTurnDetectionFromEnvDisabled(t *testing.T) {
	t.Setenv("REALTIME_TURN_DETECTION", "none")

	assert.Nil(t, TurnDetectionFromEnv())
}

func TestSessionConfigCarriesTurnDetection(t *testing.T) {
	payload, err := json.Marshal(SessionConfig{
		Modalities:    []string{"text", "audio"},
		TurnDetection: &TurnDetection{Type: "server_vad", Threshold: 0.5},
	})

	require.NoError(t, err)
	assert.Contains(t, string(payload), `"turn_detection"`)
	assert.Contains(t, string(payload), `"server_vad"`)
}
