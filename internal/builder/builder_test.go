// SPDX-License-Identifier: MPL-2.0

package builder

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/nak-tools/addonpack/internal/hook"
	"github.com/nak-tools/addonpack/internal/testutil"
	"github.com/nak-tools/addonpack/pkg/types"
)

type buildEnv struct {
	source  string
	output  string
	scratch string
}

// newBuildEnv creates separate source, output and scratch-base directories so
// tests can assert that nothing leaks between them.
func newBuildEnv(t *testing.T, files map[string]string) buildEnv {
	t.Helper()
	root := t.TempDir()
	env := buildEnv{
		source:  filepath.Join(root, "src"),
		output:  filepath.Join(root, "out"),
		scratch: filepath.Join(root, "tmp"),
	}
	testutil.MustMkdirAll(t, env.source, 0o755)
	testutil.MustMkdirAll(t, env.output, 0o755)
	testutil.MustMkdirAll(t, env.scratch, 0o755)
	testutil.WriteTree(t, env.source, files)
	return env
}

func (e buildEnv) builder(t *testing.T, mutate func(*Options)) *Builder {
	t.Helper()
	opts := DefaultOptions()
	opts.ScratchBase = e.scratch
	if mutate != nil {
		mutate(&opts)
	}
	b, err := New(opts)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return b
}

func (e buildEnv) request(version string) Request {
	return Request{SourceDir: e.source, Version: version, OutputDir: e.output}
}

func (e buildEnv) assertNoScratchLeft(t *testing.T) {
	t.Helper()
	if left := testutil.ListDir(t, e.scratch); len(left) != 0 {
		t.Errorf("scratch directories left behind: %v", left)
	}
}

func (e buildEnv) assertOutput(t *testing.T, want ...string) {
	t.Helper()
	got := testutil.ListDir(t, e.output)
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !slices.Equal(got, want) {
		t.Errorf("output directory = %v, want %v", got, want)
	}
}

func TestBuild_DemoArchive(t *testing.T) {
	t.Parallel()

	env := newBuildEnv(t, map[string]string{
		"a.txt":      "hello\n",
		"addon.json": `{"id": "demo"}`,
	})

	res, err := env.builder(t, nil).Build(t.Context(), env.request("2.1.0"))
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	wantPath := filepath.Join(env.output, "demo-2.1.0.zip")
	if res.ArchivePath != wantPath {
		t.Errorf("ArchivePath = %q, want %q", res.ArchivePath, wantPath)
	}
	if res.Manifest.ID != "demo" {
		t.Errorf("Manifest.ID = %q, want demo", res.Manifest.ID)
	}
	if res.Size <= 0 {
		t.Errorf("Size = %d, want > 0", res.Size)
	}
	if want := []string{"a.txt", "addon.json"}; !slices.Equal(res.Members, want) {
		t.Errorf("Members = %v, want %v", res.Members, want)
	}

	contents := testutil.ZipContents(t, wantPath)
	if contents["a.txt"] != "hello\n" {
		t.Errorf("a.txt = %q", contents["a.txt"])
	}
	if contents["addon.json"] != `{"id": "demo"}` {
		t.Errorf("addon.json = %q", contents["addon.json"])
	}

	env.assertOutput(t, "demo-2.1.0.zip")
	env.assertNoScratchLeft(t)
}

func TestBuild_PrunesBytecodeCaches(t *testing.T) {
	t.Parallel()

	env := newBuildEnv(t, map[string]string{
		"addon.json":                              `{"id": "spore", "name": "Spore ModAPI Launcher"}`,
		"installer.py":                            "print('install')\n",
		"__pycache__/installer.cpython-312.pyc":   "bytecode",
		"lib/helpers.py":                          "x = 1\n",
		"lib/__pycache__/helpers.cpython-312.pyc": "bytecode",
		"lib/stale.pyc":                           "bytecode",
		"lib/opt.pyo":                             "bytecode",
		"assets/icon.png":                         "png",
		"assets/empty/":                           "",
	})

	res, err := env.builder(t, nil).Build(t.Context(), env.request("1.0.0"))
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	members := testutil.ZipMembers(t, res.ArchivePath)
	for _, m := range members {
		if strings.HasSuffix(m, ".pyc") || strings.HasSuffix(m, ".pyo") || strings.Contains(m, "__pycache__") {
			t.Errorf("archive contains build artifact %q", m)
		}
	}

	want := []string{
		"addon.json",
		"assets/",
		"assets/empty/",
		"assets/icon.png",
		"installer.py",
		"lib/",
		"lib/helpers.py",
	}
	if !slices.Equal(members, want) {
		t.Errorf("members = %v, want %v", members, want)
	}

	wantPruned := []string{"__pycache__/", "lib/__pycache__/", "lib/opt.pyo", "lib/stale.pyc"}
	if !slices.Equal(res.Pruned, wantPruned) {
		t.Errorf("Pruned = %v, want %v", res.Pruned, wantPruned)
	}

	// The source tree is never mutated.
	for _, rel := range []string{"__pycache__/installer.cpython-312.pyc", "lib/stale.pyc", "lib/opt.pyo"} {
		if _, err := os.Stat(filepath.Join(env.source, filepath.FromSlash(rel))); err != nil {
			t.Errorf("source file %s was touched: %v", rel, err)
		}
	}
	env.assertNoScratchLeft(t)
}

func TestBuild_NoArtifactsIsNotAnError(t *testing.T) {
	t.Parallel()

	env := newBuildEnv(t, map[string]string{"addon.json": `{"id": "clean"}`})
	res, err := env.builder(t, nil).Build(t.Context(), env.request("0.1"))
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if len(res.Pruned) != 0 {
		t.Errorf("Pruned = %v, want none", res.Pruned)
	}
	if filepath.Base(res.ArchivePath) != "clean-0.1.zip" {
		t.Errorf("ArchivePath = %q", res.ArchivePath)
	}
}

func TestBuild_Repeatable(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"addon.json":          `{"id": "repro"}`,
		"z.txt":               "last",
		"a/b/c.txt":           "deep",
		"a/__pycache__/x.pyc": "bytecode",
	}
	env := newBuildEnv(t, files)
	b := env.builder(t, nil)
	epoch := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	build := func() ([]byte, map[string]string) {
		t.Helper()
		req := env.request("3.0.0")
		req.ModTime = epoch
		res, err := b.Build(t.Context(), req)
		if err != nil {
			t.Fatalf("Build() error: %v", err)
		}
		data, err := os.ReadFile(res.ArchivePath)
		if err != nil {
			t.Fatal(err)
		}
		return data, testutil.ZipContents(t, res.ArchivePath)
	}

	first, firstContents := build()
	second, secondContents := build()

	if !bytes.Equal(first, second) {
		t.Error("archives built with the same ModTime differ")
	}
	if len(firstContents) != len(secondContents) {
		t.Errorf("member sets differ: %v vs %v", firstContents, secondContents)
	}
	for name, content := range firstContents {
		if secondContents[name] != content {
			t.Errorf("member %s differs between runs", name)
		}
	}
	env.assertOutput(t, "repro-3.0.0.zip")
	env.assertNoScratchLeft(t)
}

func TestBuild_InputErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		files   map[string]string
		mutate  func(env buildEnv, req *Request)
		target  error
		strict  bool
		version string
	}{
		{
			name:   "missing source directory",
			files:  map[string]string{"addon.json": `{"id": "demo"}`},
			mutate: func(env buildEnv, req *Request) { req.SourceDir = filepath.Join(env.source, "nope") },
			target: ErrNotFound,
		},
		{
			name:  "source is a file",
			files: map[string]string{"addon.json": `{"id": "demo"}`},
			mutate: func(env buildEnv, req *Request) {
				req.SourceDir = filepath.Join(env.source, "addon.json")
			},
			target: ErrNotFound,
		},
		{
			name:   "missing output directory",
			files:  map[string]string{"addon.json": `{"id": "demo"}`},
			mutate: func(env buildEnv, req *Request) { req.OutputDir = filepath.Join(env.output, "nope") },
			target: ErrNotFound,
		},
		{name: "missing manifest", files: map[string]string{"a.txt": "a"}, target: ErrManifest},
		{name: "manifest not json", files: map[string]string{"addon.json": "{id: "}, target: ErrManifest},
		{name: "manifest in cue syntax", files: map[string]string{"addon.json": `id: "demo"`}, target: ErrManifest},
		{name: "manifest with comment", files: map[string]string{"addon.json": "{\"id\": \"demo\" // x\n}"}, target: ErrManifest},
		{name: "manifest without id", files: map[string]string{"addon.json": `{"name": "x"}`}, target: ErrManifest},
		{name: "empty id", files: map[string]string{"addon.json": `{"id": ""}`}, target: ErrManifest},
		{name: "id with separator", files: map[string]string{"addon.json": `{"id": "../evil"}`}, target: ErrManifest},
		{name: "id wrong type", files: map[string]string{"addon.json": `{"id": 7}`}, target: ErrManifest},
		{name: "empty version", files: map[string]string{"addon.json": `{"id": "demo"}`}, version: "-", target: ErrUsage},
		{name: "version with slash", files: map[string]string{"addon.json": `{"id": "demo"}`}, version: "1/2", target: ErrUsage},
		{name: "version with space", files: map[string]string{"addon.json": `{"id": "demo"}`}, version: "1 2", target: ErrUsage},
		{name: "strict non-semver", files: map[string]string{"addon.json": `{"id": "demo"}`}, version: "2024.06", strict: true, target: ErrUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newBuildEnv(t, tt.files)
			version := tt.version
			switch version {
			case "":
				version = "1.0.0"
			case "-":
				version = ""
			}
			req := env.request(version)
			req.StrictVersion = tt.strict
			if tt.mutate != nil {
				tt.mutate(env, &req)
			}

			res, err := env.builder(t, nil).Build(t.Context(), req)
			if err == nil {
				t.Fatalf("Build() = %+v, want error", res)
			}
			if !errors.Is(err, tt.target) {
				t.Errorf("errors.Is(err, %v) = false, err: %v", tt.target, err)
			}
			if code := ExitCodeFor(err); code != types.ExitInvalidInput {
				t.Errorf("ExitCodeFor() = %d, want %d", code, types.ExitInvalidInput)
			}
			env.assertOutput(t)
			env.assertNoScratchLeft(t)
		})
	}
}

func TestBuild_StrictVersionAcceptsSemver(t *testing.T) {
	t.Parallel()

	env := newBuildEnv(t, map[string]string{"addon.json": `{"id": "demo"}`})
	req := env.request("v1.2.3-rc.1+build.5")
	req.StrictVersion = true
	res, err := env.builder(t, nil).Build(t.Context(), req)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if filepath.Base(res.ArchivePath) != "demo-v1.2.3-rc.1+build.5.zip" {
		t.Errorf("ArchivePath = %q", res.ArchivePath)
	}
}

func TestBuild_PreArchiveHook(t *testing.T) {
	t.Parallel()

	env := newBuildEnv(t, map[string]string{
		"addon.json": `{"id": "demo"}`,
		"notes.txt":  "internal",
	})
	var stdout bytes.Buffer
	b := env.builder(t, func(o *Options) {
		o.PreArchive = hook.Script(`printf '%s' "$ADDON_ID-$ADDON_VERSION" > stamp.txt
rm notes.txt
echo "hook ran"`)
		o.HookStdout = &stdout
	})

	res, err := b.Build(t.Context(), env.request("2.1.0"))
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	contents := testutil.ZipContents(t, res.ArchivePath)
	if contents["stamp.txt"] != "demo-2.1.0" {
		t.Errorf("stamp.txt = %q, want demo-2.1.0", contents["stamp.txt"])
	}
	if _, ok := contents["notes.txt"]; ok {
		t.Error("notes.txt should have been removed by the hook")
	}
	if _, err := os.Stat(filepath.Join(env.source, "notes.txt")); err != nil {
		t.Errorf("hook must run in the staged copy, source notes.txt: %v", err)
	}
	if !strings.Contains(stdout.String(), "hook ran") {
		t.Errorf("hook stdout = %q", stdout.String())
	}
	env.assertNoScratchLeft(t)
}

func TestBuild_HookFailureIsIOError(t *testing.T) {
	t.Parallel()

	env := newBuildEnv(t, map[string]string{"addon.json": `{"id": "demo"}`})
	b := env.builder(t, func(o *Options) { o.PreArchive = "exit 3" })

	_, err := b.Build(t.Context(), env.request("1.0.0"))
	if !errors.Is(err, ErrIO) {
		t.Fatalf("Build() error = %v, want ErrIO", err)
	}
	if !errors.Is(err, hook.ErrHookFailed) {
		t.Errorf("error should wrap hook.ErrHookFailed: %v", err)
	}
	if code := ExitCodeFor(err); code != types.ExitIOFailure {
		t.Errorf("ExitCodeFor() = %d, want %d", code, types.ExitIOFailure)
	}
	env.assertOutput(t)
	env.assertNoScratchLeft(t)
}

func TestBuild_Canceled(t *testing.T) {
	t.Parallel()

	env := newBuildEnv(t, map[string]string{
		"addon.json": `{"id": "demo"}`,
		"a.txt":      "a",
	})
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := env.builder(t, nil).Build(ctx, env.request("1.0.0"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Build() error = %v, want context.Canceled", err)
	}
	if !errors.Is(err, ErrIO) {
		t.Errorf("cancellation after preflight should be an IOError: %v", err)
	}
	env.assertOutput(t)
	env.assertNoScratchLeft(t)
}

func TestBuild_CustomManifestAndPrune(t *testing.T) {
	t.Parallel()

	env := newBuildEnv(t, map[string]string{
		"mod.json":       `{"id": "custom"}`,
		"debug.log":      "noise",
		"keep/debug.log": "kept",
		"x.pyc":          "kept, default patterns replaced",
	})
	b := env.builder(t, func(o *Options) {
		o.ManifestName = "mod.json"
		o.Prune = []string{"**/*.log", "!keep/debug.log"}
	})

	res, err := b.Build(t.Context(), env.request("1"))
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	want := []string{"keep/", "keep/debug.log", "mod.json", "x.pyc"}
	if got := testutil.ZipMembers(t, res.ArchivePath); !slices.Equal(got, want) {
		t.Errorf("members = %v, want %v", got, want)
	}
}

func TestBuild_ReplacesExistingArchive(t *testing.T) {
	t.Parallel()

	env := newBuildEnv(t, map[string]string{"addon.json": `{"id": "demo"}`})
	stale := filepath.Join(env.output, "demo-1.0.0.zip")
	if err := os.WriteFile(stale, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := env.builder(t, nil).Build(t.Context(), env.request("1.0.0"))
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if got := testutil.ZipMembers(t, res.ArchivePath); !slices.Equal(got, []string{"addon.json"}) {
		t.Errorf("members = %v", got)
	}
	env.assertOutput(t, "demo-1.0.0.zip")
}

func TestBuild_DefaultOutputIsWorkingDirectory(t *testing.T) {
	env := newBuildEnv(t, map[string]string{"addon.json": `{"id": "demo"}`})
	t.Chdir(env.output)

	req := env.request("2.1.0")
	req.OutputDir = ""
	res, err := env.builder(t, nil).Build(t.Context(), req)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	wd, _ := os.Getwd()
	if filepath.Dir(res.ArchivePath) != wd {
		t.Errorf("ArchivePath = %q, want it in %q", res.ArchivePath, wd)
	}
	env.assertOutput(t, "demo-2.1.0.zip")
}

func TestPrepare_TouchesNothing(t *testing.T) {
	t.Parallel()

	env := newBuildEnv(t, map[string]string{"addon.json": `{"id": "demo", "version": "2.1.0"}`})
	plan, err := env.builder(t, nil).Prepare(env.request("2.1.0"))
	if err != nil {
		t.Fatalf("Prepare() error: %v", err)
	}
	if plan.ArchiveName != "demo-2.1.0.zip" {
		t.Errorf("ArchiveName = %q", plan.ArchiveName)
	}
	if plan.OutputPath != filepath.Join(env.output, "demo-2.1.0.zip") {
		t.Errorf("OutputPath = %q", plan.OutputPath)
	}
	if !filepath.IsAbs(plan.SourceDir) {
		t.Errorf("SourceDir = %q, want absolute", plan.SourceDir)
	}
	env.assertOutput(t)
	env.assertNoScratchLeft(t)
}

func TestNew_InvalidOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"level too high", func(o *Options) { o.CompressionLevel = 10 }},
		{"level too low", func(o *Options) { o.CompressionLevel = -3 }},
		{"bad prune pattern", func(o *Options) { o.Prune = []string{"["} }},
		{"bad hook", func(o *Options) { o.PreArchive = "if then" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts := DefaultOptions()
			tt.mutate(&opts)
			if _, err := New(opts); !errors.Is(err, ErrUsage) {
				t.Errorf("New() error = %v, want ErrUsage", err)
			}
		})
	}
}

func TestLoadManifest(t *testing.T) {
	t.Parallel()

	env := newBuildEnv(t, map[string]string{
		"addon.json": `{"id": "spore", "version": "1.4.0"}`,
	})
	b := env.builder(t, nil)

	dir, manifest, err := b.LoadManifest(env.source)
	if err != nil {
		t.Fatalf("LoadManifest() error: %v", err)
	}
	if dir != env.source {
		t.Errorf("dir = %q, want %q", dir, env.source)
	}
	if manifest.ID != "spore" || manifest.Version != "1.4.0" {
		t.Errorf("manifest = %+v", manifest)
	}

	if _, _, err := b.LoadManifest(env.output); !errors.Is(err, ErrManifest) {
		t.Errorf("LoadManifest(no manifest) error = %v, want ErrManifest", err)
	}
	if _, _, err := b.LoadManifest(filepath.Join(env.source, "missing")); !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadManifest(missing dir) error = %v, want ErrNotFound", err)
	}
	env.assertNoScratchLeft(t)
}
