package audio

import (
	"context"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

type ITranscriber interface {
	TranscribePCM16(ctx context.Context, pcm []byte, sampleRate int) (string, error)
}

type transcriptionService struct {
	client *openai.Client
}

func NewTranscriptionService() ITranscriber {
	return &transcriptionService{
		client: openai.NewClient(os.Getenv("OPENAI_API_KEY")),
	}
}

// TranscribePCM16 wraps the raw samples in a WAV container and sends them to
// the transcription endpoint. The caller keeps the raw PCM; the container
// exists only at this boundary.
func (t *transcriptionService) TranscribePCM16(ctx context.Context, pcm []byte, sampleRate int) (string, error) {
	tmp, err := os.CreateTemp("", "turn-*.wav")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := tmp.Write(WrapPCM16(pcm, sampleRate)); err != nil {
		return "", err
	}

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: tmp.Name(),
	})
	if err != nil {
		return "", err
	}

	return resp.Text, nil
}
