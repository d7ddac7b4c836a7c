// Copyright 2024 NodeFS Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"nodefs/fs"
	"nodefs/internal/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// settings is loaded once per invocation by the root pre-run hook.
var settings = config.Default()

var logLevelFlag string

// SetVersion sets the version info for --version flag
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

// getVersionString returns the version string with build info
func getVersionString() string {
	buildDate := formatBuildDate(date)
	if strings.HasSuffix(version, "-dev") {
		return fmt.Sprintf("%s (%s, epoch: %s, commit: %s)", version, buildDate, date, commit)
	}
	return fmt.Sprintf("%s (%s)", version, buildDate)
}

// formatBuildDate converts epoch timestamp to readable date
func formatBuildDate(epoch string) string {
	ts, err := strconv.ParseInt(epoch, 10, 64)
	if err != nil {
		return epoch
	}
	return time.Unix(ts, 0).UTC().Format("2006-01-02")
}

var rootCmd = &cobra.Command{
	Use:   "nodefs",
	Short: "Node.js style file system engine",
	Long: `nodefs exposes the Node.js fs and Buffer semantics as a Go engine.

The subcommands drive the engine directly: inspect files, list directories,
follow changes, or export a directory over NFS.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load settings: %w", err)
		}
		settings = *loaded
		if logLevelFlag != "" {
			settings.LogLevel = logLevelFlag
		}
		config.ConfigureLogging(settings.LogLevel, os.Stderr)
		return nil
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetVersionTemplate("nodefs version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "override log_level (none, error, warn, info, debug, trace)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// newEngine builds an engine from the loaded settings.
func newEngine() *fs.Engine {
	return fs.NewEngine(settings)
}

// await runs an async engine call and blocks for its single completion.
func await[T any](call func(cb *fs.AsyncClosure[T])) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	call(fs.NewAsyncClosure(
		func(v T) { ch <- result{v: v} },
		func(err error) { ch <- result{err: err} },
	))
	r := <-ch
	return r.v, r.err
}
