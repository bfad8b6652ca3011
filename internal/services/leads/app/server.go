package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/craftlane/craftlane/internal/platform/config"
	apperrors "github.com/craftlane/craftlane/internal/platform/errors"
	"github.com/craftlane/craftlane/internal/services/leads/domain/workspace"
	"github.com/craftlane/craftlane/internal/services/leads/storage/sqlite"
	"github.com/craftlane/craftlane/internal/services/notify"
)

// serverEnv holds raw env values for the leads server.
type serverEnv struct {
	DBPath   string `env:"CRAFTLANE_LEADS_DB_PATH"`
	GRPCPort int    `env:"CRAFTLANE_LEADS_GRPC_PORT" envDefault:"50061"`
	HTTPAddr string `env:"CRAFTLANE_LEADS_HTTP_ADDR" envDefault:":8061"`
}

// Server hosts the leads service: the workflow service, the notification
// websocket endpoint, and a gRPC health endpoint.
type Server struct {
	listener     net.Listener
	grpcServer   *grpc.Server
	health       *health.Server
	store        *sqlite.Store
	httpListener net.Listener
	httpServer   *http.Server
	service      *Service
	registry     *notify.Registry
}

// New creates a configured leads server from the environment.
func New() (*Server, error) {
	var cfg serverEnv
	if err := config.ParseEnv(&cfg); err != nil {
		return nil, fmt.Errorf("parse leads env: %w", err)
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		return nil, fmt.Errorf("listen on port %d: %w", cfg.GRPCPort, err)
	}
	store, err := openLeadsStore(cfg.DBPath)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	var grants workspace.GrantConfig
	if strings.TrimSpace(os.Getenv("CRAFTLANE_WORKSPACE_GRANT_ISSUER")) != "" {
		grants, err = workspace.LoadGrantConfigFromEnv(time.Now)
		if err != nil {
			_ = listener.Close()
			_ = store.Close()
			return nil, err
		}
	} else {
		log.Printf("leads: workspace grants disabled, no issuer configured")
	}

	registry := notify.NewRegistry()
	service := NewService(Stores{
		Leads:      store,
		Projects:   store,
		Workspaces: store,
		Directory:  store,
	}, Config{
		Dispatcher: registry,
		Grants:     grants,
	})

	httpListener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		_ = listener.Close()
		_ = store.Close()
		return nil, fmt.Errorf("listen on http addr %s: %w", cfg.HTTPAddr, err)
	}
	httpServer := &http.Server{Handler: notify.NewHandler(registry)}

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(apperrors.UnaryServerInterceptor()),
	)
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	return &Server{
		listener:     listener,
		grpcServer:   grpcServer,
		health:       healthServer,
		store:        store,
		httpListener: httpListener,
		httpServer:   httpServer,
		service:      service,
		registry:     registry,
	}, nil
}

// Service returns the lead workflow service hosted by the server.
func (s *Server) Service() *Service {
	if s == nil {
		return nil
	}
	return s.service
}

// Registry returns the notification connection registry.
func (s *Server) Registry() *notify.Registry {
	if s == nil {
		return nil
	}
	return s.registry
}

// Addr returns the gRPC listener address.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a leads server until the context ends.
func Run(ctx context.Context) error {
	server, err := New()
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the leads server and blocks until it stops or the context
// ends.
func (s *Server) Serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.closeStore()

	log.Printf("leads server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	log.Printf("leads notification server listening at %v", s.httpListener.Addr())
	httpErr := make(chan error, 1)
	go func() {
		httpErr <- s.httpServer.Serve(s.httpListener)
	}()

	handleErr := func(err error) error {
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}

	shutdownGRPC := func() {
		if s.health != nil {
			s.health.Shutdown()
		}
		s.grpcServer.GracefulStop()
	}
	shutdownHTTP := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
	}

	select {
	case <-ctx.Done():
		shutdownGRPC()
		shutdownHTTP()
		err := <-serveErr
		return handleErr(err)
	case err := <-serveErr:
		shutdownHTTP()
		return handleErr(err)
	case err := <-httpErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		shutdownGRPC()
		grpcErr := <-serveErr
		if handled := handleErr(grpcErr); handled != nil {
			return handled
		}
		return fmt.Errorf("serve HTTP: %w", err)
	}
}

func openLeadsStore(path string) (*sqlite.Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = filepath.Join("data", "leads.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	store, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open leads sqlite store: %w", err)
	}
	return store, nil
}

func (s *Server) closeStore() {
	if s == nil {
		return
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close leads store: %v", err)
		}
	}
}
