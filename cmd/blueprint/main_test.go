package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FocuswithJustin/blueprint/core/sqlite"
	"github.com/FocuswithJustin/blueprint/internal/config"
)

// Test helper functions

func createTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	return path
}

func createCorpus(t *testing.T, withBad bool) string {
	t.Helper()
	dir := t.TempDir()
	createTestFile(t, dir, "a.bp", "# Auth [@security, ?login]\nUsers sign in.\n# Audit [?audit]\n")
	createTestFile(t, dir, "b.bp", "# Deploy [=login]\nsteps\n# Ghost [=ghost]\n")
	if withBad {
		createTestFile(t, dir, "bad.bp", "# Bad\n*unclosed\n")
	}
	return dir
}

// captureOutput redirects command output for the duration of the test.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = orig })
	return &buf
}

func TestVersionCmd_Run(t *testing.T) {
	out := captureOutput(t)
	if err := (&VersionCmd{}).Run(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	got := out.String()
	if !strings.HasPrefix(got, "blueprint version "+version+"\n") {
		t.Errorf("output = %q", got)
	}
	if !strings.Contains(got, "sqlite driver: "+sqlite.DriverName()+" ("+sqlite.DriverType()) {
		t.Errorf("output lacks driver info: %q", got)
	}
}

func TestBuildCmd_Run(t *testing.T) {
	out := captureOutput(t)
	input := createCorpus(t, true)
	work := t.TempDir()
	cmd := &BuildCmd{
		InputFlags: InputFlags{Input: input, Workers: 2},
		Output:     filepath.Join(work, "site"),
		Theme:      "light",
		Archive:    filepath.Join(work, "site.tar.xz"),
		TraceDB:    filepath.Join(work, "trace.db"),
	}
	if err := cmd.Run(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	text := out.String()
	for _, want := range []string{
		"Documents:    2 (1 rejected)",
		"Pages:        2",
		"Requirements: 2 (0 duplicates, 1 dangling)",
		"Archive:",
		"Trace DB:",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output lacks %q:\n%s", want, text)
		}
	}
	for _, f := range []string{"index.html", "page_security.html", "req_login.html", "theme/m-light.css", "manifest.json"} {
		if _, err := os.Stat(filepath.Join(cmd.Output, filepath.FromSlash(f))); err != nil {
			t.Errorf("missing %s: %v", f, err)
		}
	}

	out.Reset()
	if err := (&VerifyCmd{Path: cmd.Output}).Run(); err != nil {
		t.Fatalf("VerifyCmd error: %v", err)
	}
	if !strings.HasPrefix(out.String(), "OK ") {
		t.Errorf("verify output = %q", out.String())
	}

	out.Reset()
	if err := (&CoverageCmd{Path: cmd.TraceDB}).Run(); err != nil {
		t.Fatalf("CoverageCmd error: %v", err)
	}
	if !strings.Contains(out.String(), "Requirements: 2 (1 claimed, 50%)") ||
		!strings.Contains(out.String(), "Unclaimed:    audit") {
		t.Errorf("coverage output = %q", out.String())
	}

	out.Reset()
	if err := (&CoverageCmd{Path: cmd.TraceDB, Requirement: "login"}).Run(); err != nil {
		t.Fatalf("CoverageCmd -r login error: %v", err)
	}
	if got := out.String(); got != "login: 1 claim(s)\n  <- b#Deploy\n" {
		t.Errorf("coverage -r login output = %q", got)
	}
	out.Reset()
	if err := (&CoverageCmd{Path: cmd.TraceDB, Requirement: "audit"}).Run(); err != nil {
		t.Fatalf("CoverageCmd -r audit error: %v", err)
	}
	if got := out.String(); got != "audit: unclaimed\n" {
		t.Errorf("coverage -r audit output = %q", got)
	}

	out.Reset()
	if err := (&VerifyCmd{Path: cmd.Archive}).Run(); err != nil {
		t.Fatalf("VerifyCmd(archive) error: %v", err)
	}
	if !strings.HasPrefix(out.String(), "OK "+cmd.Archive) {
		t.Errorf("verify archive output = %q", out.String())
	}

	createTestFile(t, cmd.Output, "index.html", "tampered")
	out.Reset()
	if err := (&VerifyCmd{Path: cmd.Output}).Run(); err == nil {
		t.Error("expected verify to fail after tampering")
	}
	if !strings.Contains(out.String(), "CHANGED index.html") {
		t.Errorf("verify output = %q", out.String())
	}
}

func TestInitCmd_Run(t *testing.T) {
	out := captureOutput(t)
	dir := t.TempDir()
	if err := (&InitCmd{Dir: dir}).Run(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	path := filepath.Join(dir, config.ProjectConfigFile)
	if got := out.String(); got != "Wrote "+path+"\n" {
		t.Errorf("output = %q", got)
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("written config is invalid: %v", err)
	}
	if cfg.Output != "site" || cfg.Theme != config.ThemeDark {
		t.Errorf("config = %+v", cfg)
	}

	if err := (&InitCmd{Dir: dir}).Run(); err == nil {
		t.Error("expected error when blueprint.yaml exists")
	}
	if err := (&InitCmd{Dir: dir, Force: true}).Run(); err != nil {
		t.Errorf("Run(--force) error: %v", err)
	}
}

func TestBuildCmd_BadTheme(t *testing.T) {
	captureOutput(t)
	cmd := &BuildCmd{
		InputFlags: InputFlags{Input: createCorpus(t, false)},
		Output:     filepath.Join(t.TempDir(), "site"),
		Theme:      "neon",
	}
	if err := cmd.Run(); err == nil {
		t.Error("expected error for unknown theme")
	}
}

func TestCheckCmd_Run(t *testing.T) {
	tests := []struct {
		name    string
		withBad bool
		strict  bool
		wantErr bool
		want    string
	}{
		{"clean", false, false, false, "2 documents, 2 requirements"},
		{"rejected", true, false, true, "REJECTED bad.bp"},
		{"strict dangling", false, true, true, "DANGLING ghost: claimed by b#Ghost"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := captureOutput(t)
			cmd := &CheckCmd{InputFlags: InputFlags{Input: createCorpus(t, tt.withBad)}, Strict: tt.strict}
			err := cmd.Run()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Run() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("output lacks %q:\n%s", tt.want, out.String())
			}
		})
	}
}

func TestRequirementsCmd_Run(t *testing.T) {
	out := captureOutput(t)
	input := createCorpus(t, false)
	if err := (&RequirementsCmd{InputFlags: InputFlags{Input: input}, JSON: true}).Run(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	var views []requirementView
	if err := json.Unmarshal(out.Bytes(), &views); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out.String())
	}
	if len(views) != 2 || views[0].Name != "audit" || views[1].Name != "login" {
		t.Fatalf("views = %+v", views)
	}
	if len(views[1].ClaimedBy) != 1 || views[1].ClaimedBy[0].Heading != "Deploy" {
		t.Errorf("login claims = %+v", views[1].ClaimedBy)
	}

	out.Reset()
	if err := (&RequirementsCmd{InputFlags: InputFlags{Input: input}, Unclaimed: true}).Run(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got := out.String(); got != "audit\ta#Audit\n" {
		t.Errorf("unclaimed output = %q", got)
	}
}

func TestDumpCmd_Run(t *testing.T) {
	out := captureOutput(t)
	dir := t.TempDir()
	src := "# Auth [@security]\nUsers sign in with a *password*.\n"
	path := createTestFile(t, dir, "auth.bp", src)

	if err := (&DumpCmd{Path: path, Markup: true}).Run(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !strings.Contains(out.String(), "*password*") || !strings.HasPrefix(out.String(), "# Auth [@security]") {
		t.Errorf("markup output = %q", out.String())
	}

	out.Reset()
	if err := (&DumpCmd{Path: path}).Run(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !strings.Contains(out.String(), "auth") || !strings.Contains(out.String(), "password") {
		t.Errorf("dump output = %q", out.String())
	}

	bad := createTestFile(t, dir, "bad.bp", "# a\n### skipped\n")
	if err := (&DumpCmd{Path: bad}).Run(); err == nil {
		t.Error("expected parse error")
	}
}
