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

package util

import (
	"context"
	"time"
)

// DefaultPollInterval is the stat polling interval Node.js uses for watchFile.
const DefaultPollInterval = 5007 * time.Millisecond

// PollConfig configures polling/wait behavior.
type PollConfig struct {
	Timeout  time.Duration // Total timeout, 0 polls until the context ends
	Interval time.Duration // Polling interval (default: DefaultPollInterval)
}

// PollEvery calls tick every cfg.Interval until tick returns false, the
// timeout elapses or ctx is done. The first call happens after one interval.
// Returns nil when tick stopped the loop, otherwise the context error.
func PollEvery(ctx context.Context, cfg PollConfig, tick func() bool) error {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !tick() {
				return nil
			}
		}
	}
}

// PollUntil polls until condition returns true or timeout.
// Returns nil on success, context.DeadlineExceeded on timeout.
func PollUntil(ctx context.Context, cfg PollConfig, condition func() bool) error {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Interval == 0 {
		cfg.Interval = 50 * time.Millisecond
	}
	if condition() {
		return nil
	}
	met := false
	err := PollEvery(ctx, cfg, func() bool {
		met = condition()
		return !met
	})
	if met {
		return nil
	}
	return err
}
