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
	"io"
	"time"

	"github.com/spf13/cobra"

	"nodefs/fs"
)

var statNoFollow bool

var statCmd = &cobra.Command{
	Use:   "stat <path>...",
	Short: "Print file status",
	Long: `Print the Node.js Stats fields for each path.

Examples:
  nodefs stat package.json
  nodefs stat --lstat node_modules/.bin/tsc`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStat,
}

func init() {
	statCmd.Flags().BoolVarP(&statNoFollow, "lstat", "l", false, "do not follow symbolic links")
	rootCmd.AddCommand(statCmd)
}

func runStat(cmd *cobra.Command, args []string) error {
	eng := newEngine()
	defer eng.Close(time.Second)

	out := cmd.OutOrStdout()
	for i, p := range args {
		st, err := await(func(cb *fs.AsyncClosure[*fs.FileStat]) {
			if statNoFollow {
				eng.Lstat(p, cb)
			} else {
				eng.Stat(p, true, cb)
			}
		})
		if err != nil {
			return err
		}
		if i > 0 {
			fmt.Fprintln(out)
		}
		printStat(out, p, st)
	}
	return nil
}

func fileTypeName(st *fs.FileStat) string {
	switch {
	case st.IsFile():
		return "file"
	case st.IsDirectory():
		return "directory"
	case st.IsSymbolicLink():
		return "symlink"
	case st.IsFIFO():
		return "fifo"
	case st.IsSocket():
		return "socket"
	case st.IsBlockDevice():
		return "block device"
	case st.IsCharacterDevice():
		return "character device"
	}
	return "unknown"
}

func printStat(w io.Writer, p string, st *fs.FileStat) {
	fmt.Fprintf(w, "Path: %s\n", p)
	fmt.Fprintf(w, "Type: %s\n", fileTypeName(st))
	fmt.Fprintf(w, "Size: %d\n", st.Size)
	fmt.Fprintf(w, "Mode: %o\n", st.Mode)
	fmt.Fprintf(w, "Dev: %d  Ino: %d  Nlink: %d\n", st.Dev, st.Ino, st.Nlink)
	fmt.Fprintf(w, "Uid: %d  Gid: %d\n", st.Uid, st.Gid)
	fmt.Fprintf(w, "Blksize: %d  Blocks: %d\n", st.Blksize, st.Blocks)
	fmt.Fprintf(w, "Atime: %s\n", st.Atime.Format(time.RFC3339Nano))
	fmt.Fprintf(w, "Mtime: %s\n", st.Mtime.Format(time.RFC3339Nano))
	fmt.Fprintf(w, "Ctime: %s\n", st.Ctime.Format(time.RFC3339Nano))
	fmt.Fprintf(w, "Birthtime: %s\n", st.Birthtime.Format(time.RFC3339Nano))
}
