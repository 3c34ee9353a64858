package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"go-harmony/melody"
)

func runCmd(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()

	var outBuf, errBuf bytes.Buffer
	rootCmd.SetOut(&outBuf)
	rootCmd.SetErr(&errBuf)
	verbose = false
	configFile = ""
	globalConfig = nil

	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	stdout = outBuf.String()
	stderr = errBuf.String()
	if err != nil {
		exitCode = 1
		if stderr == "" {
			stderr = err.Error()
		}
	}

	resetFlags(rootCmd)
	return
}

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		f.Changed = false
		f.Value.Set(f.DefValue)
	})
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// setupProject writes a config, a training melody at 600 BPM and a rules
// file into a temp dir and returns the dir and the config path.
func setupProject(t *testing.T) (dir, cfgPath string) {
	t.Helper()
	dir = t.TempDir()

	ts := melody.NewTimeSignature(4, 4, 600, 480)
	scale := []melody.Note{60, 62, 64, 65, 67, 69, 71, 72, 71, 69, 67, 65, 64, 62}
	var tr melody.Track
	for i := 0; i < 32; i++ {
		on := int64(i * 240)
		tr = append(tr, melody.NotePair{Note: scale[i%len(scale)], Velocity: 100, OnTick: on, OffTick: on + 200})
	}
	if err := melody.WriteFile(filepath.Join(dir, "theme.mid"), []melody.Track{tr}, ts); err != nil {
		t.Fatal(err)
	}

	writeFile(t, filepath.Join(dir, "rules.yaml"), `main: theme.mid
start:
  scale: Dorian
  drum_pattern: Calm
triggers:
  environment:
    cave: {scale: Phrygian}
`)
	cfgPath = filepath.Join(dir, "config.yaml")
	writeFile(t, cfgPath, fmt.Sprintf(`music:
  rules: %s
  seed: 7
  start_delay_ms: 0
cache:
  dir: %s
`, filepath.Join(dir, "rules.yaml"), filepath.Join(dir, "cache")))
	return dir, cfgPath
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestVersion(t *testing.T) {
	stdout, _, code := runCmd(t, "version")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.HasPrefix(stdout, "harmony ") {
		t.Fatalf("expected 'harmony', got: %s", stdout)
	}
}

func TestVersionVerbose(t *testing.T) {
	stdout, _, code := runCmd(t, "version", "-v", "--config", "/tmp/x.yaml")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stdout, "go:") || !strings.Contains(stdout, "/tmp/x.yaml") {
		t.Fatalf("got: %s", stdout)
	}
}

func TestAnalyze(t *testing.T) {
	dir, cfg := setupProject(t)
	path := filepath.Join(dir, "theme.mid")

	stdout, stderr, code := runCmd(t, "analyze", path, "--config", cfg)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	for _, want := range []string{"4/4 at 600 BPM", "32 events", "key:      C major", "order search:", "best order:"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output lacks %q:\n%s", want, stdout)
		}
	}

	stdout, stderr, code = runCmd(t, "analyze", path, "--config", cfg)
	if code != 0 {
		t.Fatalf("second run: exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "(cached)") {
		t.Fatalf("second run did not hit the cache:\n%s", stdout)
	}
}

func TestAnalyzeMissingFile(t *testing.T) {
	_, cfg := setupProject(t)
	_, stderr, code := runCmd(t, "analyze", "nope.mid", "--config", cfg)
	if code == 0 {
		t.Fatal("analyze of a missing file succeeded")
	}
	if !strings.Contains(stderr, "nope.mid") {
		t.Fatalf("stderr = %s", stderr)
	}
}

func TestBenchCSV(t *testing.T) {
	stdout, stderr, code := runCmd(t, "bench", "--lengths", "2", "--samples", "5")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != 2 || lines[0] != "measures,events,order,ms" {
		t.Fatalf("csv = %q", stdout)
	}
	if !strings.HasPrefix(lines[1], "2,16,") {
		t.Fatalf("row = %q", lines[1])
	}
}

func TestRunOfflineCapture(t *testing.T) {
	dir, cfg := setupProject(t)
	out := filepath.Join(dir, "out.mid")

	stdout, stderr, code := runCmd(t, "run", "--config", cfg, "--offline", "--no-output", "--order", "2", "--measures", "2", "--capture", out)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "played 2 measures") {
		t.Fatalf("stdout = %s", stdout)
	}
	f, err := melody.Load(out)
	if err != nil {
		t.Fatalf("capture unreadable: %v", err)
	}
	if f.Timing.BPM != 600 || len(f.Tracks) == 0 {
		t.Fatalf("capture = %+v", f.Timing)
	}
}

func TestRunNeedsMelody(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	writeFile(t, cfg, "music:\n  rules: "+filepath.Join(dir, "missing.yaml")+"\n")
	_, _, code := runCmd(t, "run", "--config", cfg, "--offline", "--no-output")
	if code == 0 {
		t.Fatal("run without rules or main melody succeeded")
	}
}

func TestRunUnknownKit(t *testing.T) {
	_, cfg := setupProject(t)
	_, stderr, code := runCmd(t, "run", "--config", cfg, "--offline", "--no-output", "--kit", "cowbell")
	if code == 0 || !strings.Contains(stderr, "cowbell") {
		t.Fatalf("exit %d: %s", code, stderr)
	}
}

func TestBenchAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.csv")
	for i := 0; i < 2; i++ {
		if _, stderr, code := runCmd(t, "bench", "--lengths", "2", "--samples", "2", "--max-order", "2", "--out", path); code != 0 {
			t.Fatalf("run %d: exit %d: %s", i, code, stderr)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 || strings.Count(string(data), "measures") != 1 {
		t.Fatalf("csv = %q", data)
	}
}
