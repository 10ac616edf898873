package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanSpeech struct{ phrases chan string }

func (s chanSpeech) Transcribe(context.Context, string) (<-chan string, error) {
	return s.phrases, nil
}

type prefixTranslator struct{}

func (prefixTranslator) Translate(_ context.Context, text, _, _ string) (string, error) {
	if text == "boom" {
		return "", errors.New("quota exceeded")
	}
	return "[hi] " + text, nil
}

func TestCaptionsTranslateAndFallBack(t *testing.T) {
	h := open(t)
	speech := chanSpeech{phrases: make(chan string, 2)}
	s, err := Open(context.Background(), Options{EventID: h.ev.ID, Backend: h.backend, Speech: speech, Translator: prefixTranslator{}})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.StartCaptions(context.Background(), "en", "hi"))

	speech.phrases <- "welcome"
	require.Eventually(t, func() bool { return s.Snapshot().Caption.Original == "welcome" }, waitFor, tick)
	assert.Equal(t, Caption{Original: "welcome", Translated: "[hi] welcome", Lang: "hi"}, s.Snapshot().Caption)

	speech.phrases <- "boom"
	require.Eventually(t, func() bool { return s.Snapshot().Caption.Original == "boom" }, waitFor, tick)
	assert.Equal(t, Caption{Original: "boom", Translated: "boom", Lang: "en"}, s.Snapshot().Caption)

	s.StopCaptions()
}

func TestCaptionsNeedRecognizer(t *testing.T) {
	h := open(t)

	assert.ErrorIs(t, h.s.StartCaptions(context.Background(), "en", "hi"), ErrValidation)
}
