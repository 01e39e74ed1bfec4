// Copyright (C) 2025 Quickstrap Authors (maintainers@quickstrap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
Package install offers bounded, allow-listed remediation for missing
tools reported by the resolver.

# Problem Statement

When resolution reports a missing tool the user's next step is almost
always "install it" — but auto-installing arbitrary executables on the
user's machine is a footgun. Package names must never be interpolated
into shell commands, installs must not hang forever, and the
orchestrator must never claim success when an install quietly failed.

# Solution

A closed allow-list maps each auto-installable tool to a fixed
installation routine: a handful of CLI utilities go through whichever
system package manager is present, and language runtimes go through
their own version managers. Everything outside the list gets manual
guidance and is excluded from the offer. One confirmation covers the
whole batch (auto-approved in unattended runs), every install is
time-bounded, and presence is re-checked afterwards: the offer
succeeds only when every missing tool is verifiably present.
*/
package install

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/quickstrap/quickstrap/cmd/quickstrap/internal/infra/process"
	"github.com/quickstrap/quickstrap/cmd/quickstrap/internal/resolve"
	"github.com/quickstrap/quickstrap/cmd/quickstrap/internal/util"
	"github.com/quickstrap/quickstrap/pkg/logging"
)

// =============================================================================
// Error Sentinel Values
// =============================================================================

// ErrUnsafePackageName is returned when a package name contains
// characters outside the safe set. Such names are rejected before any
// command is constructed.
var ErrUnsafePackageName = errors.New("unsafe package name")

// ErrNoPackageManager is returned when none of the supported system
// package managers is present.
var ErrNoPackageManager = errors.New("no supported package manager found")

// packageNamePattern is the complete safe character set for package
// names. Anything else (spaces, shell metacharacters, path separators)
// is rejected outright.
var packageNamePattern = regexp.MustCompile(`^[A-Za-z0-9@._+-]+$`)

// =============================================================================
// Allow-List
// =============================================================================

// routine is one tool's fixed installation procedure.
type routine struct {
	// pkg is the package name passed to the system package manager;
	// empty when the tool installs through its own manager.
	pkg string

	// run overrides the package-manager path for tools with their own
	// installer (language runtimes).
	run func(ctx context.Context, r process.Runner) error
}

// allowList is the closed set of auto-installable tools. Growing it is
// a deliberate review decision, not a config option.
var allowList = map[string]routine{
	"git":  {pkg: "git"},
	"curl": {pkg: "curl"},
	"wget": {pkg: "wget"},
	"jq":   {pkg: "jq"},
	"make": {pkg: "make"},
	"node": {run: func(ctx context.Context, r process.Runner) error {
		// nvm is a shell function, not a binary; it has to run inside
		// a login shell.
		_, err := r.Run(ctx, "bash", "-lc", "nvm install --lts && nvm use --lts")
		return err
	}},
	"python3": {run: func(ctx context.Context, r process.Runner) error {
		_, err := r.Run(ctx, "pyenv", "install", "--skip-existing", "3.12")
		return err
	}},
}

// guidance holds manual installation hints for tools quickstrap will
// not install itself.
var guidance = map[string]string{
	"docker":    "install Docker Desktop or your distribution's docker-ce package: https://docs.docker.com/engine/install/",
	"podman":    "see https://podman.io/docs/installation",
	"kubectl":   "see https://kubernetes.io/docs/tasks/tools/",
	"terraform": "see https://developer.hashicorp.com/terraform/install",
	"helm":      "see https://helm.sh/docs/intro/install/",
	"go":        "see https://go.dev/doc/install",
	"rustc":     "install via rustup: https://rustup.rs/",
}

// Guidance returns the manual installation hint for a tool.
func Guidance(tool string) string {
	if g, ok := guidance[tool]; ok {
		return g
	}
	return "install it with your system package manager or from the vendor's site"
}

// AllowListed reports whether the orchestrator may auto-install a tool.
func AllowListed(tool string) bool {
	_, ok := allowList[tool]
	return ok
}

// =============================================================================
// Package Manager Detection
// =============================================================================

// managers lists the supported system package managers in detection
// order, with the install argv for a validated package name.
var managers = []struct {
	name string
	args func(pkg string) []string
}{
	{"brew", func(pkg string) []string { return []string{"install", pkg} }},
	{"apt-get", func(pkg string) []string { return []string{"install", "-y", pkg} }},
	{"dnf", func(pkg string) []string { return []string{"install", "-y", pkg} }},
	{"pacman", func(pkg string) []string { return []string{"-S", "--noconfirm", pkg} }},
}

// =============================================================================
// Orchestrator
// =============================================================================

// Orchestrator turns a resolver report into an installation offer.
type Orchestrator struct {
	runner         process.Runner
	prompter       util.UserPrompter
	installTimeout time.Duration
	out            io.Writer
	logger         *logging.Logger
}

// NewOrchestrator creates an Orchestrator.
//
// # Inputs
//
//   - runner: subprocess executor for install commands
//   - prompter: confirmation source; pass util.AutoApprovePrompter for
//     unattended runs
//   - installTimeout: per-tool bound; clamped to a sane default when
//     zero or negative
//   - out: where plan and guidance text is written
//   - logger: structured logger (required)
func NewOrchestrator(runner process.Runner, prompter util.UserPrompter, installTimeout time.Duration, out io.Writer, logger *logging.Logger) *Orchestrator {
	return &Orchestrator{
		runner:         runner,
		prompter:       prompter,
		installTimeout: util.ClampInstallTimeout(installTimeout),
		out:            out,
		logger:         logger,
	}
}

// Offer attempts to remedy a report's missing tools.
//
// # Description
//
// Filters the missing tools to the allow-list, prints manual guidance
// for the rest, asks one confirmation for the whole batch, runs each
// tool's fixed routine under the install timeout, then re-checks
// presence. Returns true only when every missing tool from the report
// is now present — a partially successful batch is a failure, reported
// per-tool, never silently absorbed.
//
// # Outputs
//
//   - bool: whether the caller may proceed as if tools were satisfied
//   - error: infrastructure failure (prompt I/O); unsatisfiable tools
//     alone do not produce an error
func (o *Orchestrator) Offer(ctx context.Context, report *resolve.Report) (bool, error) {
	if len(report.MissingTools) == 0 {
		return true, nil
	}

	var targets, manual []string
	for _, tool := range report.MissingTools {
		if AllowListed(tool) {
			targets = append(targets, tool)
		} else {
			manual = append(manual, tool)
		}
	}

	for _, tool := range manual {
		fmt.Fprintf(o.out, "%s cannot be auto-installed: %s\n", tool, Guidance(tool))
	}
	if len(targets) == 0 {
		return false, nil
	}

	fmt.Fprintf(o.out, "The following tools can be installed automatically: %v\n", targets)
	ok, err := o.prompter.Confirm("Install them now?")
	if err != nil {
		return false, fmt.Errorf("confirmation failed: %w", err)
	}
	if !ok {
		o.logger.Info("installation declined", "tools", targets)
		return false, nil
	}

	for _, tool := range targets {
		if err := o.installOne(ctx, tool); err != nil {
			fmt.Fprintf(o.out, "installing %s failed: %v\n", tool, err)
			o.logger.Warn("install failed", "tool", tool, "error", err)
		}
	}

	// Presence after the fact is the only verdict that counts.
	stillMissing := false
	for _, tool := range report.MissingTools {
		if _, ok := o.runner.LookPath(tool); !ok {
			fmt.Fprintf(o.out, "%s is still missing\n", tool)
			stillMissing = true
		}
	}
	return !stillMissing, nil
}

// installOne runs a single tool's routine under the install timeout.
func (o *Orchestrator) installOne(ctx context.Context, tool string) error {
	r, ok := allowList[tool]
	if !ok {
		return fmt.Errorf("%s is not allow-listed", tool)
	}

	ctx, cancel := context.WithTimeout(ctx, o.installTimeout)
	defer cancel()

	o.logger.Info("installing", "tool", tool)
	if r.run != nil {
		return r.run(ctx, o.runner)
	}
	return o.installViaPackageManager(ctx, r.pkg)
}

// installViaPackageManager dispatches to the first supported package
// manager found on PATH.
func (o *Orchestrator) installViaPackageManager(ctx context.Context, pkg string) error {
	if !packageNamePattern.MatchString(pkg) {
		return fmt.Errorf("%w: %q", ErrUnsafePackageName, pkg)
	}
	for _, m := range managers {
		if _, ok := o.runner.LookPath(m.name); !ok {
			continue
		}
		_, err := o.runner.Run(ctx, m.name, m.args(pkg)...)
		return err
	}
	return ErrNoPackageManager
}
