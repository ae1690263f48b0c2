package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-face/internal/config"
	"github.com/teslashibe/go-face/pkg/audioio"
	"github.com/teslashibe/go-face/pkg/blendshape"
	"github.com/teslashibe/go-face/pkg/control"
	"github.com/teslashibe/go-face/pkg/expression"
	"github.com/teslashibe/go-face/pkg/face"
	"github.com/teslashibe/go-face/pkg/frame"
	"github.com/teslashibe/go-face/pkg/gaze"
	"github.com/teslashibe/go-face/pkg/interest"
	"github.com/teslashibe/go-face/pkg/lipsync"
	"github.com/teslashibe/go-face/pkg/metrics"
	"github.com/teslashibe/go-face/pkg/rig"
	"github.com/teslashibe/go-face/pkg/sink"
	"github.com/teslashibe/go-face/pkg/web"
)

func newRunCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Animate the simulated head and serve it over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loader, cfg, logger, err := g.load(cmd, map[string]string{
				"http.addr":         "addr",
				"loop.rate":         "rate",
				"loop.seed":         "seed",
				"preset.name":       "preset",
				"preset.file":       "preset-file",
				"preset.dir":        "preset-dir",
				"preset.watch":      "watch",
				"face.emotion":      "emotion",
				"face.gaze_mode":    "gaze",
				"face.agent":        "agent",
				"face.lipsync_mode": "lipsync",
				"face.clip":         "clip",
				"audio.backend":     "audio",
				"sink.url":          "sink",
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()
			return a.run(ctx, loader)
		},
	}

	f := cmd.Flags()
	f.String("addr", ":8080", "HTTP listen address")
	f.Duration("rate", 0, "frame period, e.g. 16ms")
	f.Uint64("seed", 0, "random seed, 0 picks one")
	f.String("preset", "sim", "registered expression preset")
	f.String("preset-file", "", "expression preset file, wins over --preset")
	f.String("preset-dir", "", "directory of extra presets")
	f.Bool("watch", false, "reload --preset-file when it changes")
	f.String("emotion", "", "initial emotion")
	f.String("gaze", "probabilistic", "gaze mode: probabilistic, random, static, scripted")
	f.Bool("agent", false, "look around the whole body rather than ahead")
	f.String("lipsync", "realtime", "lip-sync input: realtime or prerecorded")
	f.String("clip", "", "WAV clip for prerecorded lip-sync")
	f.String("audio", "mock", "live audio backend: mock or stream")
	f.String("sink", "", "renderer WebSocket URL to stream weights to")
	return cmd
}

// app is one running face with everything around it.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	head      *rig.Head
	loop      *frame.Loop
	face      *face.Manager
	stream    *web.Stream
	server    *web.Server
	remote    *sink.Remote
	collector *metrics.Collector
	watcher   *expression.Watcher
	closers   []io.Closer
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, head: rig.NewHead()}
	space := a.head.Space

	preset, err := loadPreset(cfg.Preset, space, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("expression preset", "name", preset.Name, "categories", len(preset.Categories()))
	if cfg.Preset.Watch && cfg.Preset.File != "" {
		if a.watcher, err = expression.NewWatcher(cfg.Preset.File, space, logger); err != nil {
			return nil, err
		}
	}

	a.loop = frame.NewLoop(frame.Config{Rate: cfg.Loop.Rate, MaxDelta: cfg.Loop.MaxDelta}, logger)

	seed := cfg.Loop.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rnd := rand.New(rand.NewPCG(seed, seed>>1|1))

	mem := blendshape.NewMemory(space.Total())
	var out blendshape.Sink = mem
	if cfg.Sink.URL != "" {
		a.remote = sink.NewRemote(cfg.Sink, space.Names(), logger)
		out = blendshape.Tee{mem, a.remote}
	}
	a.stream = web.NewStream(space.Names(), logger)

	decoder := lipsync.NewEnvelopeDecoder()
	inputs, err := a.lipInputs(decoder)
	if err != nil {
		return nil, err
	}
	lipMode, err := lipsync.ParseMode(cfg.Face.LipSyncMode)
	if err != nil {
		return nil, err
	}
	gazeCfg, err := gazeConfig(cfg.Face)
	if err != nil {
		return nil, err
	}

	sc, err := newScene()
	if err != nil {
		return nil, err
	}
	a.loop.Add(frame.Update, "scene", sc.Update)
	a.loop.Add(frame.Update, "rig.idle", a.head.Idle)

	field := interest.NewField(logger)
	a.face, err = face.New(a.loop, face.Options{
		Space: space,
		Store: preset,
		Sink:  out,
		Anatomy: gaze.Anatomy{
			Root:     a.head.Root,
			Head:     a.head.Head,
			LeftEye:  a.head.LeftEye,
			RightEye: a.head.RightEye,
		},
		IK:      a.stream,
		Gaze:    gazeCfg,
		Field:   field,
		Scanner: interest.NewScanner(field, a.head.Head, gazeCfg.HeadVolume),
		Objects: sc.Candidates,
		Decoder: decoder,
		Inputs:  inputs,
		LipMode: lipMode,
		Rand:    rnd,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	applyFace(a.face, cfg.Face, logger)

	if cfg.Metrics.Enabled {
		a.collector = metrics.New(cfg.Metrics.Runtime)
		a.loop.AddObserver(a.collector)
		a.face.SetObserver(a.collector)
	}
	a.loop.AtFrameEnd("stream.publish", func(float64) {
		a.stream.Publish(a.loop.Frames()+1, mem.Weights())
		if a.collector != nil {
			a.collector.Clients.Set(float64(a.stream.Subscribers()))
		}
	})

	ctl := control.New(a.loop, a.face, logger)
	if a.remote != nil {
		a.remote.OnCommand(ctl.HandleBytes)
	}
	a.server = web.NewServer(cfg.HTTP, ctl, a.stream, a.collector, logger)
	return a, nil
}

func (a *app) lipInputs(dec lipsync.AudioDecoder) (map[lipsync.Mode]lipsync.Input, error) {
	inputs := make(map[lipsync.Mode]lipsync.Input)
	src, err := audioio.NewSource(a.cfg.Audio, a.logger)
	if err != nil {
		return nil, fmt.Errorf("audio source: %w", err)
	}
	a.closers = append(a.closers, src)
	inputs[lipsync.Realtime] = lipsync.NewMicInput(src, dec, a.logger)

	if a.cfg.Face.Clip != "" {
		clip, err := lipsync.OpenClip(a.cfg.Face.Clip, dec)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, clip)
		inputs[lipsync.Prerecorded] = clip
	}
	return inputs, nil
}

// run drives the loop, the HTTP server and the optional renderer link
// until ctx is cancelled or one of them fails.
func (a *app) run(ctx context.Context, loader *config.Loader) error {
	if err := a.face.Start(ctx); err != nil {
		a.logger.Warn("lip-sync input unavailable", "error", err)
	}

	if loader.File() != "" {
		loader.Watch(func(old, cur *config.Config) {
			if old != nil && old.Face == cur.Face {
				return
			}
			if !a.loop.Post(func() { applyFace(a.face, cur.Face, a.logger) }) {
				a.logger.Warn("face settings dropped, loop is busy")
			}
		})
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.loop.Run(ctx) })
	g.Go(func() error { return a.server.Run(ctx) })
	if a.remote != nil {
		g.Go(func() error { return a.remote.Run(ctx) })
	}
	if a.watcher != nil {
		g.Go(func() error {
			return a.watcher.Run(ctx, func(p *expression.Preset) {
				a.loop.Post(func() { a.face.Reload(p) })
			})
		})
	}

	err := g.Wait()
	// The loop has stopped; the face can be touched directly again.
	if derr := a.face.Disable(); derr != nil {
		a.logger.Warn("stopping face failed", "error", derr)
	}
	if errors.Is(err, context.Canceled) {
		a.logger.Info("shutdown complete", "frames", a.loop.Frames())
		return nil
	}
	return err
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Debug("close failed", "error", err)
		}
	}
}

// loadPreset resolves the preset named by cfg. A file wins over a name.
func loadPreset(cfg config.PresetConfig, space *blendshape.Space, logger *slog.Logger) (*expression.Preset, error) {
	if cfg.File != "" {
		p, err := expression.LoadFile(cfg.File, space)
		if err != nil {
			return nil, err
		}
		for _, issue := range p.Issues() {
			logger.Warn("preset value rejected", "preset", p.Name, "issue", issue)
		}
		return p, nil
	}
	r := expression.NewRegistry(space)
	if err := r.LoadBuiltIn(); err != nil {
		return nil, err
	}
	if cfg.Dir != "" {
		if err := r.LoadCustomDir(cfg.Dir); err != nil {
			return nil, err
		}
	}
	return r.Get(cfg.Name)
}

func gazeConfig(f config.FaceConfig) (gaze.Config, error) {
	cfg := gaze.DefaultConfig()
	mode, err := gaze.ParseMode(f.GazeMode)
	if err != nil {
		return cfg, err
	}
	axis, err := gaze.ParseAxis(f.EyeAxis)
	if err != nil {
		return cfg, err
	}
	cfg.Mode = mode
	cfg.Agent = f.Agent
	cfg.Eyes = gaze.EyesConfig{
		Axis:            axis,
		InvertAxis:      f.InvertEyeAxis,
		Blinking:        f.Blinking,
		MicroVariations: f.MicroVariations,
	}
	return cfg, nil
}

// applyFace pushes the live-tunable settings into m. Runs on the loop.
// Values were validated when the config was loaded.
func applyFace(m *face.Manager, f config.FaceConfig, logger *slog.Logger) {
	if f.Emotion != "" {
		if c, err := expression.ParseCategory(f.Emotion); err == nil {
			if err := m.SetEmotion(c, f.EmotionIntensity); err != nil {
				logger.Warn("emotion rejected", "emotion", f.Emotion, "error", err)
			}
		}
	} else if c, _, ok := m.Emotion().Active(); ok {
		_ = m.SetEmotion(c, 0)
	}

	if mode, err := gaze.ParseMode(f.GazeMode); err == nil {
		m.SetGazeMode(mode)
	}
	m.SetAgentMode(f.Agent)
	if eyes := m.Gaze().Eyes(); eyes != nil {
		if axis, err := gaze.ParseAxis(f.EyeAxis); err == nil {
			eyes.SetAxis(axis, f.InvertEyeAxis)
		}
		eyes.SetBlinking(f.Blinking)
		eyes.SetMicroVariations(f.MicroVariations)
	}

	m.LipSync().SetSmoothing(f.Smoothing)
	if mode, err := lipsync.ParseMode(f.LipSyncMode); err == nil {
		if err := m.SetLipMode(mode); err != nil {
			logger.Warn("lip-sync mode rejected", "mode", mode, "error", err)
		}
	}
}
