package session

import (
	"context"

	"go.uber.org/zap"
)

// SpeechToText streams recognized phrases until ctx is done or the source ends.
type SpeechToText interface {
	Transcribe(ctx context.Context, lang string) (<-chan string, error)
}

// Translator translates one phrase.
type Translator interface {
	Translate(ctx context.Context, text, from, to string) (string, error)
}

// Caption is the latest recognized phrase and its translation.
// Translated equals Original when no translation was requested or it failed.
type Caption struct {
	Original   string
	Translated string
	Lang       string
}

type captionRun struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (r *captionRun) stop() {
	r.cancel()
	<-r.done
}

// StartCaptions recognizes speech in from and, when to differs, translates each phrase.
// A running caption stream is replaced.
func (s *Session) StartCaptions(ctx context.Context, from, to string) error {
	if s.speech == nil {
		return invalid("speech recognition is not available")
	}
	t, err := s.current()
	if err != nil {
		return err
	}
	s.StopCaptions()

	runCtx, cancel := context.WithCancel(s.ctx)
	phrases, err := s.speech.Transcribe(runCtx, from)
	if err != nil {
		cancel()
		s.notifier.Notify(failure("Captions unavailable", err))
		return err
	}
	run := &captionRun{cancel: cancel, done: make(chan struct{})}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		return ErrClosed
	}
	s.captions = run
	s.mu.Unlock()

	go func() {
		defer close(run.done)
		for {
			select {
			case <-runCtx.Done():
				return
			case phrase, ok := <-phrases:
				if !ok {
					return
				}
				s.showPhrase(runCtx, t, phrase, from, to)
			}
		}
	}()
	return nil
}

func (s *Session) showPhrase(ctx context.Context, t target, phrase, from, to string) {
	c := Caption{Original: phrase, Translated: phrase, Lang: from}
	if to != "" && to != from && s.translator != nil {
		out, err := s.translator.Translate(ctx, phrase, from, to)
		if err != nil {
			s.log(t).Warn("translation failed, showing original", zap.String("to", to), zap.Error(err))
		} else {
			c.Translated, c.Lang = out, to
		}
	}
	s.apply(t, KindCaption, func() bool {
		s.caption = c
		return true
	})
}

// StopCaptions ends the running caption stream, if any.
func (s *Session) StopCaptions() {
	s.mu.Lock()
	run := s.captions
	s.captions = nil
	s.mu.Unlock()
	if run != nil {
		run.stop()
	}
}
