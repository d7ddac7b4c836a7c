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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"nodefs/fs"
)

var (
	watchRecursive bool
	watchPoll      bool
	watchInterval  time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch <path>",
	Short: "Print change events for a path until interrupted",
	Long: `Follow a file or directory and print one line per event.

By default the native notification backend is used and each line is
"<event> <filename>". With --poll the path is stat-polled instead and each
line reports the previous and current size and mtime.

Examples:
  nodefs watch src
  nodefs watch -r src
  nodefs watch --poll --interval 500ms package.json`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVarP(&watchRecursive, "recursive", "r", false, "watch subdirectories too")
	watchCmd.Flags().BoolVar(&watchPoll, "poll", false, "poll with stat instead of native notifications")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "poll interval (default watch_interval)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return watchPath(ctx, cmd, args[0])
}

func watchPath(ctx context.Context, cmd *cobra.Command, path string) error {
	eng := newEngine()
	defer eng.Close(time.Second)

	out := cmd.OutOrStdout()
	ctx, cancel := context.WithCancel(ctx)
	lines := make(chan string, 64)
	failed := make(chan error, 1)
	emit := func(line string) {
		select {
		case lines <- line:
		case <-ctx.Done():
		}
	}
	onError := func(err error) {
		select {
		case failed <- err:
		default:
		}
	}

	if watchPoll {
		cb := fs.NewAsyncClosure(func(ev fs.FileWatchEvent) {
			emit(fmt.Sprintf("change size %d -> %d mtime %s -> %s",
				ev.Previous.Size, ev.Current.Size,
				ev.Previous.Mtime.Format(time.RFC3339Nano), ev.Current.Mtime.Format(time.RFC3339Nano)))
		}, onError)
		eng.StatWatchers.WatchFile(path, &fs.WatchFileOptions{Persistent: true, Interval: watchInterval}, cb)
		defer eng.StatWatchers.UnwatchFile(path, cb)
	} else {
		opts := fs.DefaultWatchOptions()
		opts.Recursive = watchRecursive
		cb := fs.NewAsyncClosure(func(ev fs.WatchEvent) {
			name, _ := ev.Filename.Text()
			emit(fmt.Sprintf("%s %s", ev.EventType, name))
		}, onError)
		eng.Watchers.Watch(path, &opts, cb)
		defer eng.Watchers.Close(path, cb)
	}

	// release callbacks blocked in emit before the deferred teardown runs
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-failed:
			return err
		case line := <-lines:
			fmt.Fprintln(out, line)
		}
	}
}
