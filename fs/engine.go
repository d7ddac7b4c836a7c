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
	"time"

	log "github.com/sirupsen/logrus"

	"nodefs/internal/config"
	"nodefs/internal/metrics"
	"nodefs/internal/worker"
)

// Engine bundles a dispatcher with both watch registries, sharing one
// metrics set. Host bindings usually create one Engine per process.
type Engine struct {
	*Dispatcher
	Watchers     *WatchRegistry
	StatWatchers *StatWatchRegistry
	Metrics      *metrics.Metrics
}

func NewEngine(s config.Settings) *Engine {
	s.ApplyDefaults()
	m := metrics.New(nil)
	pool := worker.New(s.MaxWorkers, m)
	log.Debugf("[fs.NewEngine] max_workers=%d watch_interval=%v", s.MaxWorkers, s.WatchInterval)
	return &Engine{
		Dispatcher: NewDispatcher(pool, Defaults{
			RmRetryDelay:      s.RmRetryDelay,
			OpendirBufferSize: s.OpendirBufferSize,
		}),
		Watchers:     NewWatchRegistry(m),
		StatWatchers: NewStatWatchRegistry(s.WatchInterval, m),
		Metrics:      m,
	}
}

// Close stops all watchers and waits up to timeout for in-flight
// operations.
func (e *Engine) Close(timeout time.Duration) error {
	e.Watchers.CloseAll()
	e.StatWatchers.CloseAll()
	return e.pool.Close(timeout)
}
