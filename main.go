// stagecue listens to the stage, matches spoken lines against a cue script,
// and plays the matching audio clip. Operators can also drive cues manually
// with hotkeys or the remote API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/stagecue/stagecue/audiocapture"
	"github.com/stagecue/stagecue/config"
	"github.com/stagecue/stagecue/cue"
	"github.com/stagecue/stagecue/hotkey"
	"github.com/stagecue/stagecue/pipeline"
	"github.com/stagecue/stagecue/playback"
	"github.com/stagecue/stagecue/remote"
	"github.com/stagecue/stagecue/stt"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "stagecue.json", "path to the config file")
	cuesPath := flag.String("cues", "", "override the cue script path")
	audioDir := flag.String("audio-dir", "", "override the clip directory")
	provider := flag.String("provider", "", "override the transcription provider")
	noHotkeys := flag.Bool("no-hotkeys", false, "disable global hotkeys")
	noRemote := flag.Bool("no-remote", false, "disable the remote API server")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	// .env is optional; real env vars win either way.
	_ = godotenv.Load()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	})))
	slog.Info("stagecue starting", "version", version, "commit", commit)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *cuesPath != "" {
		cfg.CuesFile = *cuesPath
	}
	if *audioDir != "" {
		cfg.AudioDir = *audioDir
	}
	if *provider != "" {
		cfg.STTProvider = *provider
	}

	catalog, err := cue.Load(cfg.CuesFile)
	if err != nil {
		return fmt.Errorf("load cue script: %w", err)
	}
	slog.Info("cue script loaded", "path", cfg.CuesFile, "cues", catalog.Len())

	registry, err := buildProviders(cfg)
	if err != nil {
		return err
	}
	defer registry.Close()

	sttProvider := registry.Get(cfg.STTProvider)
	if sttProvider == nil {
		return fmt.Errorf("unknown transcription provider %q", cfg.STTProvider)
	}
	if !sttProvider.IsReady() {
		slog.Warn("transcription provider not ready, check its model or API key",
			"provider", sttProvider.Name())
	}

	if err := audiocapture.Initialize(); err != nil {
		return fmt.Errorf("initialize audio: %w", err)
	}
	defer audiocapture.Terminate()

	var capturer audiocapture.Capturer
	capturer, err = audiocapture.New(cfg.SampleRate, cfg.FrameSize)
	if err != nil {
		// Keep running on remote ingest alone when no microphone exists.
		slog.Warn("no input device, local capture disabled", "error", err)
		capturer = audiocapture.Nop{}
	}

	svc := pipeline.New(cfg, catalog, capturer, sttProvider, playback.NewSpeaker())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}
	defer svc.Stop()

	if !*noHotkeys {
		keys := hotkey.NewHotkeyManager(svc.Next, svc.Previous, svc.Repeat, stop)
		if err := keys.Start(); err != nil {
			slog.Error("start hotkeys", "error", err)
		} else {
			defer keys.Stop()
		}
	}

	remoteErr := make(chan error, 1)
	if !*noRemote {
		server := remote.NewServer(svc, cfg.APIToken, cfg.AllowedOrigins())
		addr := fmt.Sprintf("%s:%d", cfg.BindHost, cfg.BindPort)
		go func() {
			remoteErr <- server.Run(ctx, addr)
		}()
	}

	slog.Info("listening for cues", "provider", sttProvider.Name(), "policy", cfg.MatchingPolicy)

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
		if !*noRemote {
			if err := <-remoteErr; err != nil {
				slog.Error("remote API shutdown", "error", err)
			}
		}
		return nil
	case err := <-remoteErr:
		if err != nil {
			return fmt.Errorf("remote API: %w", err)
		}
		return nil
	}
}

// buildProviders registers every transcription backend the config can select.
func buildProviders(cfg *config.Config) (*stt.Registry, error) {
	registry := stt.NewRegistry()

	local, err := stt.NewWhisperLocal(stt.WhisperLocalConfig{ModelSize: cfg.ModelSize})
	if err != nil {
		slog.Warn("local whisper unavailable", "error", err)
	} else {
		registry.Register(local)
	}

	registry.Register(stt.NewWhisperAPI(stt.WhisperAPIConfig{APIKey: cfg.APIKey}))
	registry.Register(stt.NewOpenAI(stt.OpenAIConfig{APIKey: cfg.APIKey}))

	return registry, nil
}
