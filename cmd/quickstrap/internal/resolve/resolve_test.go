// Copyright (C) 2025 Quickstrap Authors (maintainers@quickstrap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package resolve

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/quickstrap/quickstrap/cmd/quickstrap/internal/infra/process"
	"github.com/quickstrap/quickstrap/cmd/quickstrap/internal/manifest"
	"github.com/quickstrap/quickstrap/cmd/quickstrap/internal/marker"
	"github.com/quickstrap/quickstrap/pkg/logging"
)

// fakeTool configures one tool on the fake runner.
type fakeTool struct {
	output string        // version command stdout
	delay  time.Duration // simulated probe latency
}

// fakeRunner implements process.Runner over an in-memory tool table.
type fakeRunner struct {
	tools map[string]fakeTool
}

func (f *fakeRunner) LookPath(name string) (string, bool) {
	_, ok := f.tools[name]
	return "/usr/bin/" + name, ok
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (process.Result, error) {
	tool, ok := f.tools[name]
	if !ok {
		return process.Result{}, process.ErrNotFound
	}
	if tool.delay > 0 {
		select {
		case <-time.After(tool.delay):
		case <-ctx.Done():
			return process.Result{}, process.ErrTimedOut
		}
	}
	return process.Result{Stdout: tool.output}, nil
}

func newTestResolver(t *testing.T, runner process.Runner, markerDir string) *Resolver {
	t.Helper()
	logger := logging.New(logging.Config{Level: logging.LevelError, Quiet: true})
	return NewResolver(runner, marker.NewStore(markerDir), time.Second, logger)
}

func TestResolver_Completeness(t *testing.T) {
	// Exactly one missing, one version failure, one satisfied.
	runner := &fakeRunner{tools: map[string]fakeTool{
		"git":  {output: "git version 2.39.5"},
		"node": {output: "v16.20.0"},
	}}
	r := newTestResolver(t, runner, t.TempDir())

	report := r.Resolve(context.Background(), Declaration{
		Tools: []manifest.ToolRequirement{
			{Name: "docker", MinVersion: "20.0.0"}, // absent
			{Name: "node", MinVersion: "18.0.0"},   // present, too old
			{Name: "git", MinVersion: "2.0.0"},     // satisfied
		},
	})

	if !reflect.DeepEqual(report.MissingTools, []string{"docker"}) {
		t.Errorf("MissingTools = %v, want [docker]", report.MissingTools)
	}
	if len(report.VersionFailures) != 1 {
		t.Fatalf("VersionFailures = %+v, want exactly one", report.VersionFailures)
	}
	vf := report.VersionFailures[0]
	if vf.Tool != "node" || vf.Required != "18.0.0" || vf.Observed != "16.20.0" {
		t.Errorf("VersionFailures[0] = %+v", vf)
	}
	if !reflect.DeepEqual(report.SatisfiedTools, []string{"git"}) {
		t.Errorf("SatisfiedTools = %v, want [git]", report.SatisfiedTools)
	}
	if report.Satisfied() {
		t.Error("report should not be satisfied")
	}
}

func TestResolver_ConcurrencyBound(t *testing.T) {
	// Five tools, each probing in 100ms, must resolve in roughly one
	// probe's time, not five.
	const probeDelay = 100 * time.Millisecond
	tools := map[string]fakeTool{}
	var decl Declaration
	for _, name := range []string{"git", "docker", "node", "npm", "helm"} {
		tools[name] = fakeTool{output: "9.9.9", delay: probeDelay}
		decl.Tools = append(decl.Tools, manifest.ToolRequirement{Name: name, MinVersion: "1.0"})
	}
	r := newTestResolver(t, &fakeRunner{tools: tools}, t.TempDir())

	start := time.Now()
	report := r.Resolve(context.Background(), decl)
	elapsed := time.Since(start)

	if !report.Satisfied() {
		t.Fatalf("report unsatisfied: %+v", report)
	}
	if elapsed > 3*probeDelay {
		t.Errorf("resolution took %v, want ~%v (parallel, not serial)", elapsed, probeDelay)
	}
}

func TestResolver_DeclarationOrder(t *testing.T) {
	// Mixed latencies: the report must still follow declaration order.
	runner := &fakeRunner{tools: map[string]fakeTool{
		"git":  {output: "2.39.5", delay: 80 * time.Millisecond},
		"node": {output: "20.0.0", delay: 5 * time.Millisecond},
		"npm":  {output: "10.0.0", delay: 40 * time.Millisecond},
	}}
	r := newTestResolver(t, runner, t.TempDir())

	decl := Declaration{Tools: []manifest.ToolRequirement{
		{Name: "git", MinVersion: "1.0"},
		{Name: "node", MinVersion: "1.0"},
		{Name: "npm", MinVersion: "1.0"},
	}}

	for i := 0; i < 3; i++ {
		report := r.Resolve(context.Background(), decl)
		want := []string{"git", "node", "npm"}
		if !reflect.DeepEqual(report.SatisfiedTools, want) {
			t.Fatalf("run %d: SatisfiedTools = %v, want %v", i, report.SatisfiedTools, want)
		}
	}
}

func TestResolver_ProbeTimeout(t *testing.T) {
	// A hanging probe reads as "version unknown": the tool stays
	// satisfied, with a note.
	runner := &fakeRunner{tools: map[string]fakeTool{
		"docker": {output: "24.0.7", delay: 10 * time.Second},
	}}
	logger := logging.New(logging.Config{Level: logging.LevelError, Quiet: true})
	r := NewResolver(runner, marker.NewStore(t.TempDir()), 50*time.Millisecond, logger)

	start := time.Now()
	report := r.Resolve(context.Background(), Declaration{
		Tools: []manifest.ToolRequirement{{Name: "docker", MinVersion: "20.0.0"}},
	})
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("timed-out probe blocked resolution for %v", elapsed)
	}

	if !report.Satisfied() {
		t.Errorf("unknown version must not fail resolution: %+v", report)
	}
	if len(report.Notes) != 1 || !strings.Contains(report.Notes[0], "version unknown") {
		t.Errorf("Notes = %v, want a version-unknown note", report.Notes)
	}
}

func TestResolver_UnknownModeFailsClosed(t *testing.T) {
	runner := &fakeRunner{tools: map[string]fakeTool{
		"git": {output: "2.39.5"},
	}}
	r := newTestResolver(t, runner, t.TempDir())

	report := r.Resolve(context.Background(), Declaration{
		Tools: []manifest.ToolRequirement{
			{Name: "git", MinVersion: "2.0.0", Mode: "approximately"},
		},
	})
	if len(report.VersionFailures) != 1 {
		t.Errorf("unknown mode should fail closed: %+v", report)
	}
}

func TestResolver_OptionalTools(t *testing.T) {
	runner := &fakeRunner{tools: map[string]fakeTool{
		"helm": {output: "v3.2.0"},
	}}
	r := newTestResolver(t, runner, t.TempDir())

	report := r.Resolve(context.Background(), Declaration{
		OptionalTools: []manifest.ToolRequirement{
			{Name: "docker-compose"},             // absent
			{Name: "helm", MinVersion: "3.10.0"}, // present, outdated
		},
	})

	if !report.Satisfied() {
		t.Errorf("optional outcomes must never fail resolution: %+v", report)
	}
	if len(report.Notes) != 2 {
		t.Fatalf("Notes = %v, want two", report.Notes)
	}
	if !strings.Contains(report.Notes[0], "docker-compose not found") {
		t.Errorf("Notes[0] = %q", report.Notes[0])
	}
	if !strings.HasPrefix(report.Notes[1], "warning:") || !strings.Contains(report.Notes[1], "helm") {
		t.Errorf("Notes[1] = %q, want a helm version warning", report.Notes[1])
	}
}

func TestResolver_ScriptMarkers(t *testing.T) {
	markers := marker.NewStore(t.TempDir())
	if err := markers.Create("env"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	logger := logging.New(logging.Config{Level: logging.LevelError, Quiet: true})
	r := NewResolver(&fakeRunner{}, markers, time.Second, logger)

	report := r.Resolve(context.Background(), Declaration{
		RequiredScripts: []string{"git", "env"},
	})
	if !reflect.DeepEqual(report.MissingScripts, []string{"git"}) {
		t.Errorf("MissingScripts = %v, want [git]", report.MissingScripts)
	}
	if !reflect.DeepEqual(report.SatisfiedScripts, []string{"env"}) {
		t.Errorf("SatisfiedScripts = %v, want [env]", report.SatisfiedScripts)
	}
}

func TestResolver_EndToEndScript(t *testing.T) {
	// Manifest declares docker requiring tool docker >= 20.0.0 and
	// depending on script git. git's marker is absent; the docker tool
	// itself meets the bound. Expect exactly one missing-script
	// failure and no tool failures.
	doc := `
version: "1"
scripts:
  git:
    file: setup_git.sh
  docker:
    file: setup_docker.sh
    depends: [git]
    requires:
      tools:
        - name: docker
          min_version: "20.0.0"
`
	m, err := manifest.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	reg := manifest.NewRegistry(m, manifest.Roots{})

	runner := &fakeRunner{tools: map[string]fakeTool{
		"docker": {output: "24.0.7"},
	}}
	r := newTestResolver(t, runner, t.TempDir())

	report := r.ResolveScript(context.Background(), reg, "docker")

	if !reflect.DeepEqual(report.MissingScripts, []string{"git"}) {
		t.Errorf("MissingScripts = %v, want [git]", report.MissingScripts)
	}
	if len(report.MissingTools) != 0 || len(report.VersionFailures) != 0 {
		t.Errorf("docker meets the bound, no tool failure expected: %+v", report)
	}
	if report.Satisfied() {
		t.Error("report must be unsatisfied while git's marker is absent")
	}
}
