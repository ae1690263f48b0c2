// facesim runs a simulated animated face: a frame loop driving emotion,
// gaze and lip-sync channels, served over HTTP and WebSocket.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-face/internal/config"
	"github.com/teslashibe/go-face/internal/log"
)

// Version information (set at build time)
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configFile string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "facesim",
		Short: "Simulated facial animation engine",
		Long: `facesim animates a simulated character head.

Emotion, gaze and lip-sync drivers write blend-shape weights that are
merged by a priority arbiter and published to dashboards and renderers.`,
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&g.configFile, "config", "c", "", "config file (default ./face.yaml or ~/.go-face/face.yaml)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "log format: text or json")

	root.AddCommand(newRunCmd(g), newPresetsCmd(g))
	return root
}

// load reads the configuration with the flags of cmd bound over it and
// initializes the global logger. bind maps config keys to flag names.
func (g *globalFlags) load(cmd *cobra.Command, bind map[string]string) (*config.Loader, *config.Config, *slog.Logger, error) {
	boot := log.New(log.Options{Level: g.logLevel, Format: g.logFormat, Output: os.Stderr})
	loader := config.NewLoader(g.configFile, boot)

	v := loader.Viper()
	bind["log.level"] = "log-level"
	bind["log.format"] = "log-format"
	for key, name := range bind {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, nil, nil, err
		}
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	log.InitWith(log.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	logger := log.L()
	if f := loader.File(); f != "" {
		logger.Info("config loaded", "file", f)
	}
	return loader, cfg, logger, nil
}
