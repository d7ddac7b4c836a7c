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

package nfsexport

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	nfs "github.com/willscott/go-nfs"
	nfshelper "github.com/willscott/go-nfs/helpers"
)

// handleCacheSize is the number of file handles go-nfs keeps resolvable.
const handleCacheSize = 65536

// NFSServer exports one directory over NFSv3.
type NFSServer struct {
	mu       sync.Mutex
	listener net.Listener
	server   *nfs.Server
	handler  nfs.Handler
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewNFSServer creates a server exporting root.
func NewNFSServer(root string) *NFSServer {
	// Match go-nfs verbosity to ours
	if log.IsLevelEnabled(log.TraceLevel) {
		nfs.Log.SetLevel(nfs.TraceLevel)
	} else if log.IsLevelEnabled(log.DebugLevel) {
		nfs.Log.SetLevel(nfs.DebugLevel)
	}
	handler := nfshelper.NewNullAuthHandler(NewBillyAdapter(root))
	cacheHelper := nfshelper.NewCachingHandler(handler, handleCacheSize)

	ctx, cancel := context.WithCancel(context.Background())
	return &NFSServer{
		server: &nfs.Server{
			Handler: cacheHelper,
			Context: ctx,
		},
		handler: cacheHelper,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Listen binds addr and returns the resolved address, so ":0" callers
// learn the port before Serve blocks.
func (s *NFSServer) Listen(addr string) (net.Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil, errors.Errorf("nfs server already listening on %s", s.listener.Addr())
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to listen on %s", addr)
	}
	s.listener = l
	log.Infof("[NFSServer.Listen] exporting on %s", l.Addr())
	return l.Addr(), nil
}

// Serve accepts connections until Shutdown. Listen must come first.
func (s *NFSServer) Serve() error {
	s.mu.Lock()
	l := s.listener
	s.mu.Unlock()
	if l == nil {
		return errors.New("nfs server is not listening")
	}
	err := s.server.Serve(l)
	select {
	case <-s.done:
		return nil
	default:
	}
	return errors.Wrap(err, "nfs serve")
}

// ListenAndServe is Listen followed by Serve.
func (s *NFSServer) ListenAndServe(addr string) error {
	if _, err := s.Listen(addr); err != nil {
		return err
	}
	return s.Serve()
}

// Shutdown stops accepting connections and cancels in-flight handlers.
func (s *NFSServer) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
		return
	default:
	}
	close(s.done)
	if s.listener != nil {
		s.listener.Close()
	}

	// settle time for requests already read off the wire
	time.Sleep(50 * time.Millisecond)
	s.cancel()
}
