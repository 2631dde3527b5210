package services

import (
	"context"
	"unicode/utf8"
)

// maxNarrationRunes bounds how much of a reply is sent for synthesis.
const maxNarrationRunes = 1024

// Narrator voices finished guide replies with the TTS service.
type Narrator struct {
	tts *TTSService
}

func NewNarrator(tts *TTSService) *Narrator {
	return &Narrator{tts: tts}
}

func (n *Narrator) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	if utf8.RuneCountInString(text) > maxNarrationRunes {
		text = string([]rune(text)[:maxNarrationRunes])
	}

	result, err := n.tts.Synthesize(ctx, TTSRequest{Text: text})
	if err != nil {
		return nil, "", err
	}
	return result.Audio, result.Format, nil
}
