// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/luxfi/interchain/utils/timer/mockable"
)

const (
	baseURL              = "/ext"
	maxConcurrentStreams = 64
)

var (
	_ Server = (*server)(nil)

	errDuplicateRoute = errors.New("duplicate route")
)

// Server maintains the HTTP router
type Server interface {
	// AddRoute registers handler at /ext/<endpoint>.
	AddRoute(handler http.Handler, endpoint string) error
	// Dispatch starts the API server
	Dispatch() error
	// Shutdown this server
	Shutdown() error
}

type HTTPConfig struct {
	ReadTimeout       time.Duration `json:"readTimeout"`
	ReadHeaderTimeout time.Duration `json:"readHeaderTimeout"`
	WriteTimeout      time.Duration `json:"writeTimeout"`
	IdleTimeout       time.Duration `json:"idleTimeout"`
}

type server struct {
	// log this server writes to
	log log.Logger

	shutdownTimeout time.Duration

	metrics *serverMetrics

	lock   sync.Mutex
	routes map[string]struct{}
	router *mux.Router

	srv *http.Server

	// Listener used to serve traffic
	listener net.Listener
}

// New returns an instance of a Server. An empty allowedOrigins accepts every
// origin.
func New(
	log log.Logger,
	listener net.Listener,
	allowedOrigins []string,
	shutdownTimeout time.Duration,
	registerer metric.Registerer,
	clock *mockable.Clock,
	httpConfig HTTPConfig,
) (Server, error) {
	m, err := newMetrics(registerer, clock)
	if err != nil {
		return nil, err
	}
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	router := mux.NewRouter()
	httpServer := &http.Server{
		Handler: h2c.NewHandler(
			wrapHandler(router, allowedOrigins),
			&http2.Server{
				MaxConcurrentStreams: maxConcurrentStreams,
			}),
		ReadTimeout:       httpConfig.ReadTimeout,
		ReadHeaderTimeout: httpConfig.ReadHeaderTimeout,
		WriteTimeout:      httpConfig.WriteTimeout,
		IdleTimeout:       httpConfig.IdleTimeout,
	}

	log.Info("API created with allowed origins: " + strings.Join(allowedOrigins, ","))

	return &server{
		log:             log,
		shutdownTimeout: shutdownTimeout,
		metrics:         m,
		routes:          make(map[string]struct{}),
		router:          router,
		srv:             httpServer,
		listener:        listener,
	}, nil
}

func (s *server) Dispatch() error {
	return s.srv.Serve(s.listener)
}

func (s *server) AddRoute(handler http.Handler, endpoint string) error {
	url := fmt.Sprintf("%s/%s", baseURL, endpoint)

	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.routes[url]; ok {
		return fmt.Errorf("%w: %s", errDuplicateRoute, url)
	}
	s.routes[url] = struct{}{}

	s.log.Info("adding route",
		log.String("url", url),
	)
	s.router.Handle(url, s.metrics.wrapHandler(endpoint, handler))
	return nil
}

func (s *server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	err := s.srv.Shutdown(ctx)
	cancel()

	// If shutdown times out, make sure the server is still shutdown.
	_ = s.srv.Close()
	return err
}

func wrapHandler(handler http.Handler, allowedOrigins []string) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowCredentials: true,
	}).Handler(handler)
}
