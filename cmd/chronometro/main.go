package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cbegin/chronometro-go"
	"github.com/cbegin/chronometro-go/internal/config"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file (default ~/.config/chronometro/config.yaml)")
		bpm        = flag.Float64("bpm", 0, "tempo in beats per minute (20..999)")
		beats      = flag.Int("beats", 0, "beats per bar (1..16)")
		samplePath = flag.String("sample", "", "click sample (.wav or .ogg) instead of the sine tone")
		gainDB     = flag.Float64("gain", 0, "output level in dB (-60..0)")
		backend    = flag.String("backend", "", "audio backend: ebiten|oto")
		renderPath = flag.String("render", "", "write a float WAV to this path instead of playing")
		seconds    = flag.Float64("seconds", 8, "with -render, length in seconds")
		debug      = flag.Bool("debug", false, "enable debug logging")
		logPath    = flag.String("log", "", "log file while the terminal UI runs (default: discard)")
	)
	flag.Parse()

	interactive := *renderPath == ""
	logger, closeLog, err := newLogger(*debug, interactive, *logPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closeLog()
	slog.SetDefault(logger)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fail(logger, "load config", err)
	}
	// Flags given on the command line win over the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "bpm":
			cfg.BPM = *bpm
		case "beats":
			cfg.BeatsPerBar = *beats
		case "sample":
			cfg.Sound.Kind = config.SoundSample
			cfg.Sound.Path = *samplePath
		case "gain":
			cfg.GainDB = *gainDB
		case "backend":
			cfg.Backend = *backend
		}
	})
	if err := cfg.Normalize(); err != nil {
		fail(logger, "invalid settings", err)
	}
	opts := playerOptions(cfg, logger)

	if !interactive {
		if err := render(*renderPath, cfg.SampleRate, *seconds, opts); err != nil {
			fail(logger, "render", err)
		}
		logger.Info("rendered", "path", *renderPath, "seconds", *seconds, "bpm", cfg.BPM)
		return
	}

	pl, err := chronometro.NewPlayer(cfg.SampleRate, opts...)
	if err != nil {
		fail(logger, "create player", err)
	}
	defer pl.Close()

	p := tea.NewProgram(newModel(pl), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fail(logger, "terminal ui", err)
	}
}

func fail(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "err", err)
	fmt.Fprintf(os.Stderr, "chronometro: %s: %v\n", msg, err)
	os.Exit(1)
}

// newLogger writes text logs to stderr, or to logPath while the terminal UI
// owns the screen.
func newLogger(debug, interactive bool, logPath string) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	var w io.Writer = os.Stderr
	closeFn := func() {}
	if interactive {
		w = io.Discard
		if logPath != "" {
			f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, nil, fmt.Errorf("open log: %w", err)
			}
			w = f
			closeFn = func() { f.Close() }
		}
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), closeFn, nil
}

func loadConfig(path string) (*config.Config, error) {
	if strings.TrimSpace(path) == "" {
		def, err := config.DefaultPath()
		if err != nil {
			return config.DefaultConfig(), nil
		}
		path = def
	}
	return config.Load(path)
}

func playerOptions(cfg *config.Config, logger *slog.Logger) []chronometro.PlayerOption {
	sound := chronometro.SineSound(cfg.Sound.FrequencyHz)
	if cfg.Sound.Kind == config.SoundSample {
		sound = chronometro.SampleFile(cfg.Sound.Path, cfg.Sound.MaxFrames)
	}
	opts := []chronometro.PlayerOption{
		chronometro.WithLogger(logger),
		chronometro.WithBPM(cfg.BPM),
		chronometro.WithBeatsPerBar(cfg.BeatsPerBar),
		chronometro.WithSound(sound),
		chronometro.WithGainDB(cfg.GainDB),
		chronometro.WithBackend(chronometro.Backend(cfg.Backend), time.Duration(cfg.BufferMS)*time.Millisecond),
	}
	for _, e := range cfg.Effects {
		opts = append(opts, chronometro.WithEffect(e.Type, e.Params))
	}
	return opts
}

func render(path string, sampleRate int, seconds float64, opts []chronometro.PlayerOption) error {
	samples, err := chronometro.RenderSamples(sampleRate, seconds, opts...)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := chronometro.WriteWAVFloat32LE(f, samples, sampleRate, 2); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
