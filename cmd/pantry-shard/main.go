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

	"pantry/internal/bus"
	"pantry/internal/config"
	"pantry/internal/inventory"
	"pantry/internal/nlu"
	"pantry/internal/proxy"
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

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	configFile := cli.StringP("config", "c", "", "Config file (default: ./pantry.yaml if present)")
	cli.StringP("url", "u", "ws://localhost:8092/ws", "Url of the bus")
	cli.String("shard", "PANTRY", "Name this shard answers to")
	cli.StringP("log", "l", "info", "Log level")
	cli.StringP("data", "d", "", "Snapshot file or database path")
	cli.String("storage", "file", "Storage backend: file, sqlite, redis")
	cli.String("redis", "localhost:6379", "Redis address for the redis backend")
	cli.Int("days", inventory.DefaultExpiryWindow, "Default window for 'check expiring'")
	cli.Bool("voice", true, "Accept audio commands (needs a speech engine)")
	cli.String("engine", config.EngineWhisper, "Speech recognition: whisper, openai")
	cli.String("model", "models/ggml-base.en.bin", "Whisper model path")
	cli.StringP("proxy", "p", "", "SOCKS5 proxy for the bus and the speech API")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stderr, nil)))
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("Failed to load env file", "path", *envFile, "err", err)
	}

	cfg, err := config.Load(cli.CommandLine, *configFile)
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}
	log.SetDefault(log.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: logLevelMap[cfg.LogLevel],
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, cfg *config.Config) int {
	log.Info("Starting pantry shard", "shard", cfg.Bus.Shard, "url", cfg.Bus.URL)

	persist, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		log.Error("Failed to open storage", "err", err)
		return 1
	}
	defer persist.Close()

	store, err := inventory.Open(ctx, persist)
	if err != nil {
		log.Error("Failed to load inventory", "err", err)
		return 1
	}

	// replies go back over the bus as text, voice mode never applies here
	runner := session.NewRunner(nlu.NewDispatcher(store, nlu.DispatcherConfig{
		Parser: nlu.NewParser(cfg.ExpiryWindowDays),
	}))
	defer runner.Close()

	dialer, err := proxy.NewWSDialer(cfg.Proxy)
	if err != nil {
		log.Error("Failed to set up proxy", "proxy", cfg.Proxy, "err", err)
		return 1
	}

	shardCfg := bus.ShardConfig{
		Name:   cfg.Bus.Shard,
		URL:    cfg.Bus.URL,
		Dialer: dialer,
	}

	if cfg.Voice.Enabled {
		local, closeVoice, err := voice.Open(cfg)
		defer closeVoice()
		if err != nil {
			log.Warn("Audio commands disabled", "err", err)
		} else {
			shardCfg.Audio = transcribeBytes(local)
		}
	}

	if err := bus.NewShard(shardCfg, runner.HandleText).Run(ctx); err != nil {
		log.Error("Shard stopped", "err", err)
		return 1
	}
	log.Info("Shard stopped")
	return 0
}

// transcribeBytes spools the recording to a temp file so the decoders can
// sniff and seek it.
func transcribeBytes(local *voice.Local) bus.AudioFunc {
	return func(ctx context.Context, audio []byte) (string, error) {
		f, err := os.CreateTemp("", "pantry-audio-*")
		if err != nil {
			return "", err
		}
		defer os.Remove(f.Name())

		if _, err := f.Write(audio); err != nil {
			f.Close()
			return "", fmt.Errorf("spool audio: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("spool audio: %w", err)
		}
		return local.TranscribeFile(ctx, f.Name())
	}
}
