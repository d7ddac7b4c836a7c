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
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"nodefs/fs"
	"nodefs/internal/nfsexport"
)

var (
	serveListen  string
	serveMetrics string
)

var serveCmd = &cobra.Command{
	Use:   "serve <dir>",
	Short: "Export a directory over NFSv3",
	Long: `Export a directory over NFSv3 with every operation routed through the engine.

Changes under the export are followed with a recursive watch and logged at
info level. With --metrics the engine's Prometheus collectors are served on
/metrics.

Examples:
  nodefs serve ./workspace
  nodefs serve --listen 127.0.0.1:2049 --metrics 127.0.0.1:9100 ./workspace
  mount_nfs -o port=2049,mountport=2049,tcp,vers=3 localhost:/ /mnt/ws`,
	Args: cobra.ExactArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "NFS listen address (default nfs_listen)")
	serveCmd.Flags().StringVar(&serveMetrics, "metrics", "", "serve Prometheus metrics on this address")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, err := fs.Realpath(args[0], fs.EncodingUtf8)
	if err != nil {
		return err
	}
	dir, _ := root.Text()
	return serveDir(ctx, cmd, dir)
}

func serveDir(ctx context.Context, cmd *cobra.Command, dir string) error {
	st, err := fs.Stat(dir)
	if err != nil {
		return err
	}
	if !st.IsDirectory() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	eng := newEngine()
	defer eng.Close(5 * time.Second)

	watchOpts := fs.DefaultWatchOptions()
	watchOpts.Recursive = true
	changes := fs.NewAsyncClosure(func(ev fs.WatchEvent) {
		name, _ := ev.Filename.Text()
		log.Infof("[serve] %s %s", ev.EventType, name)
	}, func(err error) {
		log.Warnf("[serve] watch on %s stopped: %v", dir, err)
	})
	eng.Watchers.Watch(dir, &watchOpts, changes)

	var metricsSrv *http.Server
	if serveMetrics != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(eng.Metrics.Registry, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{Addr: serveMetrics, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warnf("[serve] metrics server: %v", err)
			}
		}()
		defer metricsSrv.Close()
	}

	listen := serveListen
	if listen == "" {
		listen = settings.NFSListen
	}
	srv := nfsexport.NewNFSServer(dir)
	addr, err := srv.Listen(listen)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exporting %s on %s\n", dir, addr)

	served := make(chan error, 1)
	go func() { served <- srv.Serve() }()

	select {
	case <-ctx.Done():
		srv.Shutdown()
		return <-served
	case err := <-served:
		srv.Shutdown()
		return err
	}
}
