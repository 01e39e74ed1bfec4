// Copyright (C) 2025 Quickstrap Authors (maintainers@quickstrap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quickstrap/quickstrap/cmd/quickstrap/config"
	"github.com/quickstrap/quickstrap/cmd/quickstrap/internal/cache"
	"github.com/quickstrap/quickstrap/cmd/quickstrap/internal/infra/process"
	"github.com/quickstrap/quickstrap/cmd/quickstrap/internal/install"
	"github.com/quickstrap/quickstrap/cmd/quickstrap/internal/manifest"
	"github.com/quickstrap/quickstrap/cmd/quickstrap/internal/marker"
	"github.com/quickstrap/quickstrap/cmd/quickstrap/internal/resolve"
	"github.com/quickstrap/quickstrap/cmd/quickstrap/internal/util"
	"github.com/quickstrap/quickstrap/pkg/logging"
)

// =============================================================================
// GLOBAL FLAGS
// =============================================================================

var (
	flagConfigPath  string // Alternate config file location
	flagProjectRoot string // Override the project root
	flagAssumeYes   bool   // Skip confirmations, answering yes
)

// app holds the wired engine shared by all commands. Built once in the
// persistent pre-run; tests construct their own instances instead of
// mutating globals.
type app struct {
	cfg      config.Config
	logger   *logging.Logger
	cache    *cache.Cache
	markers  *marker.Store
	runner   process.Runner
	resolver *resolve.Resolver
	prompter util.UserPrompter
}

var engine *app

// newApp wires the engine from a loaded configuration.
func newApp(cfg config.Config) *app {
	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.LogLevel),
		Service: "quickstrap",
	})

	runner := process.NewExecRunner()
	markers := marker.NewStore(cfg.MarkersDir)

	var prompter util.UserPrompter
	if cfg.Unattended {
		prompter = util.AutoApprovePrompter{}
	} else {
		prompter = util.NewTerminalPrompter()
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		cache:    cache.New(cfg.ManifestPath, cfg.CacheDir, cfg.ManifestTTL(), logger),
		markers:  markers,
		runner:   runner,
		resolver: resolve.NewResolver(runner, markers, cfg.CheckTimeout(), logger),
		prompter: prompter,
	}
}

// registry loads the manifest through the cache and wraps it with the
// configured roots.
func (a *app) registry() (*manifest.Registry, error) {
	m, _, err := a.cache.Load()
	if err != nil {
		return nil, err
	}
	return manifest.NewRegistry(m, manifest.Roots{
		ProjectRoot: a.cfg.ProjectRoot,
		InstallRoot: a.cfg.InstallRoot,
		ScriptsDir:  a.cfg.ScriptsDir,
	}), nil
}

// orchestrator builds the install orchestrator for one offer.
func (a *app) orchestrator() *install.Orchestrator {
	return install.NewOrchestrator(a.runner, a.prompter, a.cfg.InstallTimeout(), os.Stdout, a.logger)
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "quickstrap",
	Short: "Bootstrap new projects from a declarative script manifest",
	Long: `quickstrap scaffolds new-project configuration by orchestrating a
menu of independent setup scripts described in a generated manifest.

The engine resolves each script's tool and ordering dependencies before
running it, offers bounded auto-installation for a small set of known
tools, and tracks completion through marker files.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfigPath)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		if flagProjectRoot != "" {
			cfg.ProjectRoot = flagProjectRoot
		}
		if flagAssumeYes {
			cfg.Unattended = true
		}
		engine = newApp(cfg)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "",
		"config file (default ~/.quickstrap/quickstrap.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagProjectRoot, "project-root", "",
		"project directory being bootstrapped (default: working directory)")
	rootCmd.PersistentFlags().BoolVarP(&flagAssumeYes, "yes", "y", false,
		"answer yes to all confirmations")

	rootCmd.AddCommand(depsCmd)
	rootCmd.AddCommand(manifestCmd)
	rootCmd.AddCommand(scriptsCmd)
	rootCmd.AddCommand(runCmd)
}
