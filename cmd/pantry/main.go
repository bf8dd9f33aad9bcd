package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	cli "github.com/spf13/pflag"

	log "log/slog"

	"pantry/internal/config"
	"pantry/internal/inventory"
	"pantry/internal/ipc"
	"pantry/internal/nlu"
	"pantry/internal/session"
	"pantry/internal/storage"
	"pantry/internal/voice"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func setLogger(level string) {
	log.SetDefault(log.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: logLevelMap[level],
	})))
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	configFile := cli.StringP("config", "c", "", "Config file (default: ./pantry.yaml if present)")
	cli.StringP("log", "l", "info", "Log level")
	cli.StringP("data", "d", "", "Snapshot file or database path")
	cli.String("storage", "file", "Storage backend: file, sqlite, redis")
	cli.String("redis", "localhost:6379", "Redis address for the redis backend")
	cli.Int("days", inventory.DefaultExpiryWindow, "Default window for 'check expiring'")
	cli.Bool("voice", true, "Set up microphone and speech output")
	cli.Bool("listen", false, "Start in voice mode when voice is available")
	cli.String("engine", config.EngineWhisper, "Speech recognition: whisper, openai")
	cli.String("model", "models/ggml-base.en.bin", "Whisper model path")
	cli.String("cue", "", "Sound played before listening (mp3 or wav)")
	cli.Bool("duck", false, "Lower other audio while listening and speaking")
	cli.StringP("proxy", "p", "", "SOCKS5 proxy for the speech API")
	cli.String("socket", "", "Serve commands on this unix socket")
	once := cli.String("once", "", "Run one command, print the reply and exit")
	audioFile := cli.String("audio", "", "Transcribe an audio file, run it as a command and exit")
	cli.Parse()

	setLogger("info")
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("Failed to load env file", "path", *envFile, "err", err)
	}

	cfg, err := config.Load(cli.CommandLine, *configFile)
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}
	setLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg, *once, *audioFile)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, cfg *config.Config, once, audioFile string) int {
	log.Debug("Booting up")

	opt := cfg.StorageOptions()
	persist, err := storage.Open(ctx, opt)
	if err != nil {
		log.Error("Failed to open storage", "backend", opt.Backend, "err", err)
		return 1
	}
	defer persist.Close()

	store, err := inventory.Open(ctx, persist)
	if err != nil {
		log.Error("Failed to load inventory", "backend", opt.Backend, "path", opt.Path, "err", err)
		return 1
	}
	log.Debug("Loaded inventory", "items", store.Snapshot().Len())

	var adapter voice.Adapter = voice.Unavailable{}
	local, closeVoice, err := voice.Open(cfg)
	defer closeVoice()
	switch {
	case err == nil && local.Available():
		adapter = local
	case err == nil:
	case errors.Is(err, voice.ErrUnavailable):
		log.Debug("Voice disabled by config")
	default:
		log.Warn("Voice functionality not available", "err", err)
	}

	d := nlu.NewDispatcher(store, nlu.DispatcherConfig{
		Parser:         nlu.NewParser(cfg.ExpiryWindowDays),
		VoiceAvailable: adapter.Available(),
		StartInVoice:   cfg.Voice.AutoStart,
	})
	runner := session.NewRunner(d)
	defer runner.Close()

	switch {
	case audioFile != "":
		if local == nil {
			log.Error("Speech recognition is not set up", "err", err)
			return 1
		}
		text, err := local.TranscribeFile(ctx, audioFile)
		if err != nil {
			log.Error("Failed to transcribe", "path", audioFile, "err", err)
			return 1
		}
		fmt.Printf("You (audio): %s\n", text)
		return oneShot(ctx, runner, text)

	case once != "":
		return oneShot(ctx, runner, once)
	}

	if cfg.Socket != "" {
		go func() {
			if err := ipc.Serve(ctx, cfg.Socket, runner.HandleText); err != nil {
				log.Error("Control socket failed", "err", err)
			}
		}()
	}

	s := session.New(runner, adapter, os.Stdin, os.Stdout, session.Config{
		ListenTimeout: cfg.Voice.ListenTimeout,
		PhraseLimit:   cfg.Voice.PhraseLimit,
	})
	if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Session ended", "err", err)
		return 1
	}
	return 0
}

func oneShot(ctx context.Context, runner *session.Runner, text string) int {
	reply, err := runner.Handle(ctx, text)
	if err != nil {
		fmt.Printf("Could not save inventory: %v\n", err)
		return 1
	}
	fmt.Println(reply.Text)
	return 0
}
