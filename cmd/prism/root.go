package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abelbrown/prism/internal/config"
	"github.com/abelbrown/prism/internal/logging"
	"github.com/abelbrown/prism/internal/report"
)

// globals are the persistent flags plus what PersistentPreRunE derives
// from them.
type globals struct {
	configPath string
	logLevel   string
	logFile    bool
	format     string

	cfg *config.Config
	out report.Format
}

func newRootCommand() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:           "prism",
		Short:         "Cross-source news coverage analysis",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "config file (yaml, json or toml)")
	pf.StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&g.logFile, "log-file", false, "write logs to a dated file under the data directory")
	pf.StringVarP(&g.format, "format", "o", "text", "output format: text, json, yaml")

	root.AddCommand(
		newAnalyzeCommand(g),
		newClustersCommand(g),
		newClusterCommand(g),
		newArticleCommand(g),
		newTraceCommand(),
	)
	return root
}

func (g *globals) setup(cmd *cobra.Command) error {
	out, err := report.ParseFormat(g.format)
	if err != nil {
		return err
	}
	g.out = out

	cfg, err := config.Load(g.configPath)
	if err != nil {
		return err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	g.cfg = cfg

	switch {
	case g.logFile:
		dir := cfg.Log.Dir
		if dir == "" {
			dir = filepath.Join(filepath.Dir(cfg.Store.Path), "logs")
		}
		return logging.InitFile(dir, cfg.Log.Level)
	case cfg.Log.Dir != "":
		return logging.InitFile(cfg.Log.Dir, cfg.Log.Level)
	default:
		logging.Init(cmd.ErrOrStderr(), cfg.Log.Level)
	}
	return nil
}

// dataDir makes sure the directory holding the database exists.
func dataDir(cfg *config.Config) error {
	dir := filepath.Dir(cfg.Store.Path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	return nil
}
