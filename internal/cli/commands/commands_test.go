package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/onsi/gomega"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer lets a test read output while a command is still writing.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func resetFlags() {
	statNoFollow = false
	lsRecursive, lsLong, lsGlob = false, false, ""
	watchRecursive, watchPoll, watchInterval = false, false, 0
	serveListen, serveMetrics = "", ""
	logLevelFlag = ""
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("NODEFS_CONFIG_DIR", t.TempDir())
	resetFlags()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func makeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.go"), []byte("package b\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "c.go"), []byte("package c\n"), 0o644))
	return root
}

func TestStatCommand(t *testing.T) {
	root := makeTree(t)

	out, err := runCLI(t, "stat", filepath.Join(root, "a.txt"))
	require.NoError(t, err)
	assert.Contains(t, out, "Type: file")
	assert.Contains(t, out, "Size: 5")

	out, err = runCLI(t, "stat", "--lstat", root)
	require.NoError(t, err)
	assert.Contains(t, out, "Type: directory")
}

func TestStatCommandMissing(t *testing.T) {
	_, err := runCLI(t, "stat", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ENOENT")
}

func TestLsCommand(t *testing.T) {
	root := makeTree(t)

	out, err := runCLI(t, "ls", root)
	require.NoError(t, err)
	lines := strings.Fields(out)
	assert.ElementsMatch(t, []string{"a.txt", "b.go", "sub"}, lines)

	out, err = runCLI(t, "ls", "-R", root)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.txt", "b.go", "sub", filepath.Join("sub", "c.go")}, strings.Fields(out))

	out, err = runCLI(t, "ls", "-l", root)
	require.NoError(t, err)
	assert.Contains(t, out, "dir  sub")
	assert.Contains(t, out, "file a.txt")
}

func TestLsCommandGlob(t *testing.T) {
	root := makeTree(t)

	out, err := runCLI(t, "ls", "--glob", "**/*.go", root)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b.go", "sub/c.go"}, strings.Fields(out))
}

func TestCatCommand(t *testing.T) {
	root := makeTree(t)

	out, err := runCLI(t, "cat", filepath.Join(root, "a.txt"), filepath.Join(root, "b.go"))
	require.NoError(t, err)
	assert.Equal(t, "alphapackage b\n", out)

	_, err = runCLI(t, "cat", root)
	assert.Error(t, err)
}

func TestWatchPath(t *testing.T) {
	g := gomega.NewWithT(t)
	t.Setenv("NODEFS_CONFIG_DIR", t.TempDir())
	resetFlags()
	dir := t.TempDir()

	var out syncBuffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watchPath(ctx, cmd, dir) }()

	g.Eventually(func() string {
		_ = os.WriteFile(filepath.Join(dir, "new.txt"), []byte("x"), 0o644)
		return out.String()
	}, 5*time.Second, 50*time.Millisecond).Should(gomega.ContainSubstring("new.txt"))

	cancel()
	g.Eventually(done, 2*time.Second).Should(gomega.Receive(gomega.BeNil()))
}

func TestWatchPathPoll(t *testing.T) {
	g := gomega.NewWithT(t)
	t.Setenv("NODEFS_CONFIG_DIR", t.TempDir())
	resetFlags()
	watchPoll = true
	watchInterval = 20 * time.Millisecond
	defer resetFlags()

	p := filepath.Join(t.TempDir(), "polled")
	var out syncBuffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watchPath(ctx, cmd, p) }()

	g.Eventually(func() string {
		_ = os.WriteFile(p, []byte("12345"), 0o644)
		return out.String()
	}, 5*time.Second, 50*time.Millisecond).Should(gomega.ContainSubstring("-> 5"))

	cancel()
	g.Eventually(done, 2*time.Second).Should(gomega.Receive(gomega.BeNil()))
}

func TestServeDir(t *testing.T) {
	g := gomega.NewWithT(t)
	t.Setenv("NODEFS_CONFIG_DIR", t.TempDir())
	resetFlags()
	serveListen = "127.0.0.1:0"
	defer resetFlags()

	dir := t.TempDir()
	var out syncBuffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serveDir(ctx, cmd, dir) }()

	g.Eventually(out.String, 2*time.Second).Should(gomega.ContainSubstring("Exporting " + dir))
	cancel()
	g.Eventually(done, 5*time.Second).Should(gomega.Receive(gomega.BeNil()))
}

func TestServeDirRejectsFile(t *testing.T) {
	resetFlags()
	p := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(p, nil, 0o644))

	err := serveDir(context.Background(), &cobra.Command{}, p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestVersionString(t *testing.T) {
	assert.Equal(t, "2023-11-14", formatBuildDate("1700000000"))
	assert.Equal(t, "unknown", formatBuildDate("unknown"))

	SetVersion("1.2.0", "abc123", "1700000000")
	assert.Equal(t, "1.2.0 (2023-11-14)", rootCmd.Version)

	SetVersion("1.3.0-dev", "abc123", "1700000000")
	assert.Equal(t, "1.3.0-dev (2023-11-14, epoch: 1700000000, commit: abc123)", rootCmd.Version)
}

func TestConfigSetAndShow(t *testing.T) {
	out, err := runCLI(t, "config", "set", "max_workers", "6")
	require.NoError(t, err)
	path := filepath.Join(os.Getenv("NODEFS_CONFIG_DIR"), "settings.yaml")
	assert.Contains(t, out, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "max_workers: 6")

	t.Setenv("NODEFS_CONFIG_DIR", filepath.Dir(path))
	resetFlags()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"config", "show"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "max_workers: 6")
}

func TestConfigSetUnknownKey(t *testing.T) {
	_, err := runCLI(t, "config", "set", "bogus", "1")
	assert.ErrorContains(t, err, "unknown setting")
}
