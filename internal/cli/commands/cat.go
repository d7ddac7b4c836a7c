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
	"time"

	"github.com/spf13/cobra"

	"nodefs/fs"
)

var catCmd = &cobra.Command{
	Use:   "cat <file>...",
	Short: "Print file contents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCat,
}

func init() {
	rootCmd.AddCommand(catCmd)
}

func runCat(cmd *cobra.Command, args []string) error {
	eng := newEngine()
	defer eng.Close(time.Second)

	opts := fs.DefaultReadFileOptions()
	for _, p := range args {
		res, err := await(func(cb *fs.AsyncClosure[fs.FsEncoding]) {
			eng.ReadFile(fs.Path(p), &opts, cb)
		})
		if err != nil {
			return err
		}
		buf, _ := res.Buffer()
		var werr error
		buf.View(func(b []byte) {
			_, werr = cmd.OutOrStdout().Write(b)
		})
		if werr != nil {
			return werr
		}
	}
	return nil
}
