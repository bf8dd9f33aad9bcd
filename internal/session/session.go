package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"strings"
	"time"

	"pantry/internal/nlu"
	"pantry/internal/voice"
)

const (
	Greeting = "Hello, Welcome to the Grocery Tracking Bot."
	Goodbye  = "Goodbye!"

	msgNoSpeech = "Sorry, I didn't catch that."

	// consecutive listen failures before falling back to typed input
	maxListenFailures = 3
)

type Config struct {
	ListenTimeout time.Duration
	PhraseLimit   time.Duration
}

// Session is the interactive loop: it reads a line or a spoken phrase, runs it
// through the runner and prints the reply, speaking it too in voice mode.
type Session struct {
	runner *Runner
	voice  voice.Adapter
	in     io.Reader
	out    io.Writer
	cfg    Config

	lines    chan string
	done     chan struct{}
	mode     nlu.Mode
	failures int
}

func New(r *Runner, v voice.Adapter, in io.Reader, out io.Writer, cfg Config) *Session {
	if v == nil {
		v = voice.Unavailable{}
	}
	if cfg.ListenTimeout <= 0 {
		cfg.ListenTimeout = 5 * time.Second
	}
	if cfg.PhraseLimit <= 0 {
		cfg.PhraseLimit = 5 * time.Second
	}
	return &Session{runner: r, voice: v, in: in, out: out, cfg: cfg}
}

// Run returns nil on quit, exit or end of input, and ctx.Err() when cancelled.
func (s *Session) Run(ctx context.Context) error {
	mode, err := s.runner.Mode(ctx)
	if err != nil {
		return err
	}
	s.mode = mode

	s.done = make(chan struct{})
	defer close(s.done)

	fmt.Fprintln(s.out, "Grocery Tracking Chatbot")
	fmt.Fprintln(s.out, "Type 'help' for commands or 'quit' to exit")
	if s.voice.Available() {
		fmt.Fprintln(s.out, "Type 'voice on' to enable voice commands")
	} else {
		fmt.Fprintln(s.out, "Voice functionality is not available on this system")
	}
	fmt.Fprintln(s.out)
	s.respond(ctx, Greeting)

	for {
		text, err := s.next(ctx)
		switch {
		case errors.Is(err, io.EOF):
			fmt.Fprintln(s.out)
			s.respond(ctx, Goodbye)
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, ErrClosed):
			return err
		case err != nil:
			s.listenFailed(ctx, err)
			continue
		}
		if text == "" {
			continue
		}

		if isQuit(text) {
			s.respond(ctx, Goodbye)
			return nil
		}

		reply, err := s.runner.Handle(ctx, text)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error("Command failed", "text", text, "err", err)
			s.mode = reply.Mode
			s.respond(ctx, fmt.Sprintf("Could not save inventory: %v", err))
			continue
		}

		s.mode = reply.Mode
		s.respond(ctx, reply.Text)
	}
}

func (s *Session) next(ctx context.Context) (string, error) {
	// the control socket may have toggled voice since the last reply
	mode, err := s.runner.Mode(ctx)
	if err != nil {
		return "", err
	}
	s.mode = mode

	if s.mode == nlu.VoiceMode {
		fmt.Fprintln(s.out, "Listening...")
		text, err := s.voice.Listen(ctx, s.cfg.ListenTimeout, s.cfg.PhraseLimit)
		if err != nil {
			return "", err
		}
		s.failures = 0
		fmt.Fprintf(s.out, "You (voice): %s\n", text)
		return text, nil
	}

	if s.lines == nil {
		s.lines = readLines(s.in, s.done)
	}

	fmt.Fprint(s.out, "You: ")
	select {
	case line, ok := <-s.lines:
		if !ok {
			return "", io.EOF
		}
		return strings.TrimSpace(line), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *Session) listenFailed(ctx context.Context, err error) {
	if errors.Is(err, voice.ErrNoSpeech) {
		fmt.Fprintln(s.out, msgNoSpeech)
		return
	}

	s.failures++
	log.Warn("Listening failed", "err", err, "failures", s.failures)
	if s.failures < maxListenFailures {
		return
	}

	s.failures = 0
	reply, herr := s.runner.Handle(ctx, "voice off")
	if herr != nil {
		return
	}
	s.mode = reply.Mode
	s.respond(ctx, reply.Text)
}

func (s *Session) respond(ctx context.Context, text string) {
	fmt.Fprintf(s.out, "Bot: %s\n", text)
	if s.mode != nlu.VoiceMode {
		return
	}
	if err := s.voice.Speak(ctx, text); err != nil {
		log.Warn("TTS failed", "err", err)
	}
}

func isQuit(text string) bool {
	switch strings.ToLower(text) {
	case "quit", "exit":
		return true
	}
	return false
}

// readLines feeds lines from r into a channel so Run can select on ctx while
// waiting for input. The channel closes at EOF or once done is closed.
func readLines(r io.Reader, done <-chan struct{}) chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case ch <- sc.Text():
			case <-done:
				return
			}
		}
		if err := sc.Err(); err != nil {
			log.Warn("Reading input failed", "err", err)
		}
	}()
	return ch
}
