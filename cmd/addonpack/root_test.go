// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/nak-tools/addonpack/internal/config"
	"github.com/nak-tools/addonpack/internal/testutil"
	"github.com/nak-tools/addonpack/pkg/types"
)

type (
	// staticConfig serves a fixed configuration so tests never read the
	// user's config directory.
	staticConfig struct {
		cfg *config.Config
		err error
	}

	runResult struct {
		code   types.ExitCode
		stdout string
		stderr string
	}
)

func (s staticConfig) Load(context.Context, config.LoadOptions) (*config.Config, error) {
	return s.cfg, s.err
}

// runCLI executes the command tree with default configuration and the given
// environment lookups.
func runCLI(t *testing.T, env map[string]string, args ...string) runResult {
	t.Helper()
	return runCLIWith(t, Dependencies{Config: staticConfig{cfg: config.DefaultConfig()}}, env, args...)
}

func runCLIWith(t *testing.T, deps Dependencies, env map[string]string, args ...string) runResult {
	t.Helper()
	var stdout, stderr bytes.Buffer
	deps.Stdout = &stdout
	deps.Stderr = &stderr
	deps.Getenv = func(key string) string { return env[key] }

	code := Run(t.Context(), append([]string{}, args...), deps)
	return runResult{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func writeAddon(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "addon")
	testutil.MustMkdirAll(t, dir, 0o755)
	testutil.WriteTree(t, dir, files)
	return dir
}

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.

	t.Run("ldflags version takes priority", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		Version = "v1.2.3"
		Commit = "abc1234"
		BuildDate = "2026-03-01T10:00:00Z"

		got := getVersionString()
		want := "v1.2.3 (commit: abc1234, built: 2026-03-01T10:00:00Z)"
		if got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})

	t.Run("fallback to dev when no build info", func(t *testing.T) {
		origVersion := Version
		t.Cleanup(func() { Version = origVersion })

		// Test binaries report Main.Version == "(devel)".
		Version = "dev"
		if got := getVersionString(); got != "dev (built from source)" {
			t.Errorf("getVersionString() = %q", got)
		}
	})
}

func TestRun_BuildDemoArchive(t *testing.T) {
	t.Parallel()

	src := writeAddon(t, map[string]string{
		"addon.json": `{"id": "demo"}`,
		"a.txt":      "hello",
	})
	out := t.TempDir()

	for _, args := range [][]string{
		{src, "2.1.0", "--output-dir", out},
		{"build", src, "2.1.0", "-o", out},
	} {
		res := runCLI(t, nil, args...)
		if res.code != types.ExitSuccess {
			t.Fatalf("%v: exit code = %d, stderr:\n%s", args, res.code, res.stderr)
		}

		want := filepath.Join(out, "demo-2.1.0.zip")
		if got := strings.TrimSpace(res.stdout); got != want {
			t.Errorf("%v: stdout = %q, want %q", args, got, want)
		}
		if members := testutil.ZipMembers(t, want); !slices.Equal(members, []string{"a.txt", "addon.json"}) {
			t.Errorf("%v: members = %v", args, members)
		}
		if !strings.Contains(res.stderr, "demo-2.1.0.zip") {
			t.Errorf("%v: stderr should summarize the archive, got %q", args, res.stderr)
		}
	}
}

func TestRun_BuildUsesConfiguredOutputDir(t *testing.T) {
	t.Parallel()

	src := writeAddon(t, map[string]string{"addon.json": `{"id": "demo"}`})
	cfg := config.DefaultConfig()
	cfg.Build.OutputDir = t.TempDir()

	res := runCLIWith(t, Dependencies{Config: staticConfig{cfg: cfg}}, nil, src, "1.0.0")
	if res.code != types.ExitSuccess {
		t.Fatalf("exit code = %d, stderr:\n%s", res.code, res.stderr)
	}
	if _, err := os.Stat(filepath.Join(cfg.Build.OutputDir, "demo-1.0.0.zip")); err != nil {
		t.Errorf("archive not written to configured output dir: %v", err)
	}
}

func TestRun_SourceDateEpochIsReproducible(t *testing.T) {
	t.Parallel()

	src := writeAddon(t, map[string]string{
		"addon.json":  `{"id": "demo"}`,
		"lib/util.py": "x = 1\n",
	})
	env := map[string]string{"SOURCE_DATE_EPOCH": "1717243200"}

	var archives [][]byte
	for range 2 {
		out := t.TempDir()
		res := runCLI(t, env, src, "2.1.0", "-o", out)
		if res.code != types.ExitSuccess {
			t.Fatalf("exit code = %d, stderr:\n%s", res.code, res.stderr)
		}
		data, err := os.ReadFile(filepath.Join(out, "demo-2.1.0.zip"))
		if err != nil {
			t.Fatal(err)
		}
		archives = append(archives, data)
	}
	if !bytes.Equal(archives[0], archives[1]) {
		t.Error("archives built with SOURCE_DATE_EPOCH differ")
	}
}

func TestRun_ExitCodes(t *testing.T) {
	t.Parallel()

	good := writeAddon(t, map[string]string{"addon.json": `{"id": "demo"}`})
	noID := writeAddon(t, map[string]string{"addon.json": `{"name": "nameless"}`})
	noManifest := writeAddon(t, map[string]string{"a.txt": "a"})
	out := t.TempDir()

	tests := []struct {
		name       string
		env        map[string]string
		args       []string
		wantStderr string
	}{
		{"no arguments", nil, nil, "accepts 2 arg(s), received 0"},
		{"one argument", nil, []string{good}, "Usage: addonpack <addon-dir> <version>"},
		{"three arguments", nil, []string{good, "1.0", "extra"}, "received 3"},
		{"missing directory", nil, []string{filepath.Join(out, "nope"), "1.0", "-o", out}, "failed to find path"},
		{"manifest without id", nil, []string{noID, "1.0", "-o", out}, "failed to parse addon manifest"},
		{"no manifest", nil, []string{noManifest, "1.0", "-o", out}, "failed to read addon manifest"},
		{"version with separator", nil, []string{good, "1/0", "-o", out}, "failed to parse version"},
		{"strict version", nil, []string{good, "nightly", "-o", out, "--strict-version"}, "semantic version"},
		{"bad epoch", map[string]string{"SOURCE_DATE_EPOCH": "soon"}, []string{good, "1.0", "-o", out}, "SOURCE_DATE_EPOCH"},
		{"unknown flag", nil, []string{good, "1.0", "--frobnicate"}, "unknown flag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := runCLI(t, tt.env, tt.args...)
			if res.code != types.ExitInvalidInput {
				t.Errorf("exit code = %d, want %d", res.code, types.ExitInvalidInput)
			}
			if !strings.Contains(res.stderr, tt.wantStderr) {
				t.Errorf("stderr = %q, want it to contain %q", res.stderr, tt.wantStderr)
			}
			if res.stdout != "" {
				t.Errorf("stdout = %q, want empty", res.stdout)
			}
		})
	}

	if left := testutil.ListDir(t, out); len(left) != 0 {
		t.Errorf("failed builds left files in the output directory: %v", left)
	}
}

func TestRun_ManifestErrorMessage(t *testing.T) {
	t.Parallel()

	src := writeAddon(t, map[string]string{"addon.json": `{"name": "nameless"}`})
	manifest := filepath.Join(src, "addon.json")

	res := runCLI(t, nil, src, "1.0", "-o", t.TempDir())
	if res.code != types.ExitInvalidInput {
		t.Fatalf("exit code = %d, want %d", res.code, types.ExitInvalidInput)
	}
	if n := strings.Count(res.stderr, manifest); n != 1 {
		t.Errorf("stderr names %s %d times, want once: %q", manifest, n, res.stderr)
	}
	if strings.Contains(res.stderr, "#Manifest") {
		t.Errorf("stderr should name document fields, not the schema: %q", res.stderr)
	}
	if !strings.Contains(res.stderr, manifest+": id: ") {
		t.Errorf("stderr should locate the id field: %q", res.stderr)
	}
}

func TestRun_HookFailureExitsWithIOCode(t *testing.T) {
	t.Parallel()

	src := writeAddon(t, map[string]string{"addon.json": `{"id": "demo"}`})
	out := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Build.Hooks.PreArchive = "exit 3"

	res := runCLIWith(t, Dependencies{Config: staticConfig{cfg: cfg}}, nil, src, "1.0", "-o", out)
	if res.code != types.ExitIOFailure {
		t.Errorf("exit code = %d, want %d", res.code, types.ExitIOFailure)
	}
	if !strings.Contains(res.stderr, "failed to run pre-archive hook") {
		t.Errorf("stderr = %q", res.stderr)
	}
	if left := testutil.ListDir(t, out); len(left) != 0 {
		t.Errorf("output directory = %v, want empty", left)
	}
}

func TestRun_ConfigLoadFailure(t *testing.T) {
	t.Parallel()

	src := writeAddon(t, map[string]string{"addon.json": `{"id": "demo"}`})
	deps := Dependencies{Config: staticConfig{err: os.ErrPermission}}

	res := runCLIWith(t, deps, nil, src, "1.0")
	if res.code != types.ExitInvalidInput {
		t.Errorf("exit code = %d, want %d", res.code, types.ExitInvalidInput)
	}
	if !strings.Contains(res.stderr, "permission denied") {
		t.Errorf("stderr = %q", res.stderr)
	}
}

func TestRun_VerboseShowsErrorChain(t *testing.T) {
	t.Parallel()

	src := writeAddon(t, map[string]string{"addon.json": `{"id": ""}`})

	res := runCLI(t, nil, src, "1.0", "--verbose")
	if res.code != types.ExitInvalidInput {
		t.Errorf("exit code = %d", res.code)
	}
	if !strings.Contains(res.stderr, "Error chain:") {
		t.Errorf("verbose stderr should include the error chain, got %q", res.stderr)
	}
}

func TestRun_Validate(t *testing.T) {
	t.Parallel()

	src := writeAddon(t, map[string]string{
		"addon.json": `{"id": "spore", "name": "Spore ModAPI Launcher"}`,
	})

	res := runCLI(t, nil, "validate", src)
	if res.code != types.ExitSuccess {
		t.Fatalf("exit code = %d, stderr:\n%s", res.code, res.stderr)
	}
	for _, want := range []string{"spore is a valid addon", "Spore ModAPI Launcher", filepath.Join(src, "addon.json")} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("stdout = %q, want it to contain %q", res.stdout, want)
		}
	}
	if strings.Contains(res.stdout, "archive:") {
		t.Errorf("no archive name expected without a version: %q", res.stdout)
	}

	res = runCLI(t, nil, "validate", src, "1.4.0")
	if res.code != types.ExitSuccess || !strings.Contains(res.stdout, "spore-1.4.0.zip") {
		t.Errorf("validate with version: code %d, stdout %q", res.code, res.stdout)
	}

	res = runCLI(t, nil, "validate", filepath.Join(src, "missing"))
	if res.code != types.ExitInvalidInput {
		t.Errorf("validate missing dir: code %d", res.code)
	}
}

func TestRun_ValidateArity(t *testing.T) {
	t.Parallel()

	for _, args := range [][]string{
		{"validate"},
		{"validate", "a", "1.0", "extra"},
	} {
		res := runCLI(t, nil, args...)
		if res.code != types.ExitInvalidInput {
			t.Errorf("%v: exit code = %d, want %d", args, res.code, types.ExitInvalidInput)
		}
		want := fmt.Sprintf("accepts between 1 and 2 arg(s), received %d", len(args)-1)
		if !strings.Contains(res.stderr, want) {
			t.Errorf("%v: stderr = %q, want it to contain %q", args, res.stderr, want)
		}
		if !strings.Contains(res.stderr, "validate <addon-dir> [version]") {
			t.Errorf("%v: stderr should show the usage line, got %q", args, res.stderr)
		}
	}
}
