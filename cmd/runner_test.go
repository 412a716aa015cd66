package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/discpack/internal/models"
	"github.com/desertthunder/discpack/internal/pack"
	"github.com/desertthunder/discpack/internal/shared"
	tu "github.com/desertthunder/discpack/internal/testing"
	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli/v3"
)

var testDurations = map[string]float64{
	"a.ogg":   180,
	"b.ogg":   70,
	"c.ogg":   340,
	"cat.ogg": 180,
	"11.ogg":  70,
}

func testRunner(t *testing.T) (*Runner, *bytes.Buffer, string) {
	t.Helper()
	dir := t.TempDir()

	config := shared.DefaultConfig()
	config.Icon.Enabled = false
	config.Pack.OutputDir = dir
	config.Database.Path = filepath.Join(dir, "history.db")

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config: config,
		Prober: &tu.MockProber{Durations: testDurations},
		Logger: log.New(&bytes.Buffer{}),
		Output: output,
	})
	return runner, output, dir
}

func run(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	app := &cli.Command{Name: "discpack", Commands: r.register()}
	return app.Run(context.Background(), append([]string{"discpack"}, args...))
}

func writeTracks(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
		tu.MustWriteFile(t, paths[i], []byte("audio:"+n))
	}
	return paths
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			prober := &tu.MockProber{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/test/path/config.toml",
				Logger:     logger,
				Output:     output,
				Prober:     prober,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.prober != prober {
				t.Error("expected prober to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
			if runner.engine == nil {
				t.Error("expected engine to be built")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil prober uses the chain", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.prober == nil || runner.prober.Name() != "chain" {
				t.Errorf("expected chain prober, got %v", runner.prober)
			}
		})
	})

	t.Run("SetLogger", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		engine := runner.engine
		logger := log.New(&bytes.Buffer{})

		runner.SetLogger(logger)
		if runner.logger != logger {
			t.Error("expected logger to be replaced")
		}
		if runner.engine == engine {
			t.Error("expected engine to be rebuilt with the new logger")
		}
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writeJSON(map[string]string{"key": "value"}, true)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		seen := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			if seen[cmd.Name] {
				t.Errorf("duplicate command %s", cmd.Name)
			}
			seen[cmd.Name] = true
		}
		for _, name := range []string{"slots", "preview", "build", "inspect", "import", "history", "setup", "watch", "tui", "serve"} {
			if !seen[name] {
				t.Errorf("expected command %s to be registered", name)
			}
		}
	})
}

func TestLoadTracks(t *testing.T) {
	runner, _, dir := testRunner(t)

	t.Run("files and directories", func(t *testing.T) {
		music := filepath.Join(dir, "music")
		if err := os.MkdirAll(music, 0755); err != nil {
			t.Fatal(err)
		}
		writeTracks(t, music, "b.ogg", "a.ogg", "notes.txt", ".hidden.ogg")
		single := writeTracks(t, dir, "c.ogg")

		tracks, err := runner.loadTracks([]string{single[0], music})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var names []string
		for _, tr := range tracks {
			names = append(names, tr.Name)
		}
		if got := strings.Join(names, ","); got != "c.ogg,a.ogg,b.ogg" {
			t.Errorf("unexpected tracks %s", got)
		}
	})

	t.Run("duplicates keep the first", func(t *testing.T) {
		other := filepath.Join(dir, "other")
		os.MkdirAll(other, 0755)
		first := writeTracks(t, dir, "a.ogg")
		second := writeTracks(t, other, "a.ogg")

		tracks, err := runner.loadTracks([]string{first[0], second[0]})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(tracks) != 1 || tracks[0].Path != first[0] {
			t.Errorf("unexpected tracks %+v", tracks)
		}
	})

	t.Run("no arguments", func(t *testing.T) {
		if _, err := runner.loadTracks(nil); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := runner.loadTracks([]string{filepath.Join(dir, "nope.ogg")}); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("empty directory", func(t *testing.T) {
		empty := filepath.Join(dir, "empty")
		os.MkdirAll(empty, 0755)
		if _, err := runner.loadTracks([]string{empty}); !errors.Is(err, shared.ErrNoTracks) {
			t.Errorf("expected ErrNoTracks, got %v", err)
		}
	})
}

func TestMergeTracks(t *testing.T) {
	base := []models.Track{{Name: "a.ogg"}, {Name: "b.ogg"}}
	merged := mergeTracks(base, []models.Track{{Name: "b.ogg"}, {Name: "c.ogg"}})

	if len(merged) != 3 || merged[2].Name != "c.ogg" {
		t.Errorf("unexpected merge %+v", merged)
	}
	if len(base) != 2 {
		t.Error("input slice was modified")
	}
}

func TestCommands(t *testing.T) {
	t.Run("slots", func(t *testing.T) {
		runner, output, _ := testRunner(t)

		if err := run(t, runner, "slots", "--format", "csv"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(output.String(), "Slot,Duration\n13,178\n") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("slots rejects unknown format", func(t *testing.T) {
		runner, _, _ := testRunner(t)

		if err := run(t, runner, "slots", "--format", "xml"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("preview", func(t *testing.T) {
		runner, output, dir := testRunner(t)
		paths := writeTracks(t, dir, "a.ogg", "b.ogg")
		report := filepath.Join(dir, "report.md")

		if err := run(t, runner, "preview", "--format", "json", "--save", report, paths[0], paths[1]); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var got struct {
			Assignments []models.Assignment `json:"assignments"`
		}
		if err := json.Unmarshal(output.Bytes(), &got); err != nil {
			t.Fatalf("invalid json: %v\n%s", err, output.String())
		}
		if len(got.Assignments) != 2 || got.Assignments[0].Slot.Name != "cat" || got.Assignments[1].Slot.Name != "11" {
			t.Errorf("unexpected assignments %+v", got.Assignments)
		}
		tu.AssertFileExists(t, report)
	})

	t.Run("build, inspect and history", func(t *testing.T) {
		runner, output, dir := testRunner(t)
		paths := writeTracks(t, dir, "a.ogg", "b.ogg")
		out := filepath.Join(dir, "packs", "mixtape.mcpack")

		err := run(t, runner, "build", "--name", "Mixtape", "--version", "1.2.3", "--output", out, paths[0], paths[1])
		if err != nil {
			t.Fatalf("build failed: %v", err)
		}
		tu.AssertFileExists(t, out)
		if !strings.Contains(output.String(), "Pack Built!") {
			t.Errorf("expected build summary, got %s", output.String())
		}

		contents, err := pack.Inspect(tu.MustReadFile(t, out))
		if err != nil {
			t.Fatalf("built pack is unreadable: %v", err)
		}
		if contents.Name != "Mixtape" || len(contents.Records) != 2 || len(contents.Icon) != 0 {
			t.Errorf("unexpected contents %+v", contents)
		}

		output.Reset()
		if err := run(t, runner, "inspect", out); err != nil {
			t.Fatalf("inspect failed: %v", err)
		}
		if !strings.Contains(output.String(), "Pack: Mixtape") || !strings.Contains(output.String(), "Version: 1.2.3") {
			t.Errorf("unexpected inspect output %s", output.String())
		}

		output.Reset()
		if err := run(t, runner, "history", "--json"); err != nil {
			t.Fatalf("history failed: %v", err)
		}
		var builds []map[string]any
		if err := json.Unmarshal(output.Bytes(), &builds); err != nil {
			t.Fatalf("invalid history json: %v\n%s", err, output.String())
		}
		if len(builds) != 1 || builds[0]["name"] != "Mixtape" || builds[0]["output_path"] != out {
			t.Errorf("unexpected history %+v", builds)
		}

		output.Reset()
		if err := run(t, runner, "history", "--show", "1"); err != nil {
			t.Fatalf("history --show failed: %v", err)
		}
		if !strings.Contains(output.String(), "Build #1: Mixtape v1.2.3") {
			t.Errorf("unexpected build output %s", output.String())
		}
	})

	t.Run("build json without history", func(t *testing.T) {
		runner, output, dir := testRunner(t)
		paths := writeTracks(t, dir, "c.ogg")

		if err := run(t, runner, "build", "--json", "--no-history", paths[0]); err != nil {
			t.Fatalf("build failed: %v", err)
		}

		var got summary
		if err := json.Unmarshal(output.Bytes(), &got); err != nil {
			t.Fatalf("invalid json: %v\n%s", err, output.String())
		}
		if got.Name != "Custom Music Discs" || got.BuildID != "" || got.Version != "1.0.0" {
			t.Errorf("unexpected summary %+v", got)
		}
		if got.OutputPath != filepath.Join(dir, "Custom Music Discs.mcpack") {
			t.Errorf("unexpected output path %s", got.OutputPath)
		}
		if _, err := os.Stat(filepath.Join(dir, "history.db")); !os.IsNotExist(err) {
			t.Error("history database should not be created")
		}
	})

	t.Run("build rejects bad version", func(t *testing.T) {
		runner, _, dir := testRunner(t)
		paths := writeTracks(t, dir, "a.ogg")

		if err := run(t, runner, "build", "--version", "x.y", paths[0]); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("import adds tracks", func(t *testing.T) {
		runner, output, dir := testRunner(t)
		paths := writeTracks(t, dir, "a.ogg", "b.ogg", "c.ogg")
		first := filepath.Join(dir, "first.mcpack")
		second := filepath.Join(dir, "second.mcpack")

		if err := run(t, runner, "build", "--no-history", "--name", "Original", "--version", "3", "--output", first, paths[0], paths[1]); err != nil {
			t.Fatalf("build failed: %v", err)
		}

		output.Reset()
		if err := run(t, runner, "import", "--no-history", "--output", second, first, paths[2]); err != nil {
			t.Fatalf("import failed: %v", err)
		}

		contents, err := pack.Inspect(tu.MustReadFile(t, second))
		if err != nil {
			t.Fatal(err)
		}
		if contents.Name != "Original" || len(contents.Records) != 3 {
			t.Errorf("unexpected imported pack %+v", contents)
		}
		if contents.Version == nil || *contents.Version != [3]int{3, 0, 0} {
			t.Errorf("expected version to carry over, got %v", contents.Version)
		}
	})

	t.Run("import requires a pack", func(t *testing.T) {
		runner, _, _ := testRunner(t)

		if err := run(t, runner, "import"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("setup config", func(t *testing.T) {
		runner, _, dir := testRunner(t)
		path := filepath.Join(dir, "config.toml")

		if err := run(t, runner, "setup", "config", "--config", path); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := shared.LoadConfig(path); err != nil {
			t.Errorf("written config does not load: %v", err)
		}
		if err := run(t, runner, "setup", "config", "--config", path); err == nil {
			t.Error("expected error when config already exists")
		}
	})

	t.Run("setup database", func(t *testing.T) {
		runner, _, dir := testRunner(t)
		path := filepath.Join(dir, "config.toml")
		dbPath := filepath.Join(dir, "setup.db")
		tu.MustWriteFile(t, path, []byte("[database]\npath = \""+filepath.ToSlash(dbPath)+"\"\n"))

		if err := run(t, runner, "setup", "database", "--config", path); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tu.AssertFileExists(t, dbPath)

		if err := run(t, runner, "setup", "database", "--rollback", "--config", path); err != nil {
			t.Errorf("rollback failed: %v", err)
		}
	})
}

func TestWatchLoop(t *testing.T) {
	dir := t.TempDir()
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		t.Skipf("fsnotify unavailable: %v", err)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		t.Fatal(err)
	}

	var rebuilds atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- watchLoop(ctx, watcher, 50*time.Millisecond, func() { rebuilds.Add(1) }, func(any, ...any) {})
	}()

	tu.MustWriteFile(t, filepath.Join(dir, "notes.txt"), []byte("x"))
	time.Sleep(200 * time.Millisecond)
	if n := rebuilds.Load(); n != 0 {
		t.Errorf("non-audio change triggered %d rebuilds", n)
	}

	for _, n := range []string{"a.ogg", "b.ogg", "c.mp3"} {
		tu.MustWriteFile(t, filepath.Join(dir, n), []byte("audio"))
	}

	deadline := time.Now().Add(3 * time.Second)
	for rebuilds.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if n := rebuilds.Load(); n != 1 {
		t.Errorf("expected one debounced rebuild, got %d", n)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("watch loop did not stop")
	}
}
