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
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"nodefs/fs"
)

var (
	lsRecursive bool
	lsLong      bool
	lsGlob      string
)

var lsCmd = &cobra.Command{
	Use:   "ls [dir]",
	Short: "List directory entries",
	Long: `List a directory through an opendir handle, one entry per line.

With --glob the pattern is matched relative to dir instead.

Examples:
  nodefs ls
  nodefs ls -R src
  nodefs ls --glob '**/*.go' .`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLs,
}

func init() {
	lsCmd.Flags().BoolVarP(&lsRecursive, "recursive", "R", false, "descend into subdirectories")
	lsCmd.Flags().BoolVarP(&lsLong, "long", "l", false, "prefix each entry with its type")
	lsCmd.Flags().StringVar(&lsGlob, "glob", "", "match a glob pattern instead of listing")
	rootCmd.AddCommand(lsCmd)
}

func runLs(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	eng := newEngine()
	defer eng.Close(time.Second)
	out := cmd.OutOrStdout()

	if lsGlob != "" {
		matches, err := await(func(cb *fs.AsyncClosure[[]string]) {
			eng.Glob(lsGlob, &fs.GlobOptions{Cwd: dir}, cb)
		})
		if err != nil {
			return err
		}
		for _, m := range matches {
			fmt.Fprintln(out, m)
		}
		return nil
	}

	opts := fs.DefaultOpendirOptions()
	opts.Recursive = lsRecursive
	d, err := await(func(cb *fs.AsyncClosure[*fs.Dir]) {
		eng.Opendir(dir, &opts, cb)
	})
	if err != nil {
		return err
	}
	defer d.Close()

	for {
		ent, err := await(func(cb *fs.AsyncClosure[fs.Dirent]) {
			d.ReadAsync(eng.Dispatcher, cb)
		})
		if err != nil {
			return err
		}
		if ent == nil {
			return nil
		}
		name := ent.Name()
		if lsRecursive {
			if rel, err := filepath.Rel(dir, filepath.Join(ent.Path(), name)); err == nil {
				name = rel
			}
		}
		if lsLong {
			fmt.Fprintf(out, "%-4s %s\n", direntTypeName(ent), name)
		} else {
			fmt.Fprintln(out, name)
		}
	}
}

func direntTypeName(ent fs.Dirent) string {
	switch {
	case ent.IsDirectory():
		return "dir"
	case ent.IsSymbolicLink():
		return "link"
	case ent.IsFile():
		return "file"
	}
	return "other"
}
