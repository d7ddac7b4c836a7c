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

package fs

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"nodefs/fserr"
)

// Glob matches pattern with ** support. Relative patterns are resolved
// against opts.Cwd (the working directory when empty) and results are
// relative to it; absolute patterns return absolute paths.
func Glob(pattern string, opts *GlobOptions) ([]string, error) {
	if !doublestar.ValidatePattern(filepath.ToSlash(pattern)) {
		return nil, fserr.TypeError("invalid glob pattern: " + pattern)
	}
	if filepath.IsAbs(pattern) {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fserr.FromOS(err, "glob", pattern)
		}
		return matches, nil
	}
	cwd := ""
	if opts != nil {
		cwd = opts.Cwd
	}
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fserr.FromOS(err, "glob", pattern)
		}
		cwd = wd
	}
	matches, err := doublestar.Glob(os.DirFS(cwd), filepath.ToSlash(pattern))
	if err != nil {
		return nil, fserr.FromOS(err, "glob", pattern)
	}
	for i, m := range matches {
		matches[i] = filepath.FromSlash(m)
	}
	return matches, nil
}
