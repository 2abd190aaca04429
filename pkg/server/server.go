// Package server exposes the instance data cache and spot prices over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/younsl/ec2spot/internal/models"
)

// InstanceStore serves instance type metadata
type InstanceStore interface {
	GetAll(ctx context.Context) (*models.Dataset, error)
	GetTypes(ctx context.Context, f models.Filters) ([]string, *models.Dataset, error)
	GetType(ctx context.Context, name string) (models.InstanceRecord, *models.Dataset, error)
	Snapshot() *models.Dataset
	Location() string
}

// SpotPricer serves live spot prices
type SpotPricer interface {
	GetPrices(ctx context.Context, instanceTypes []string) (models.Prices, time.Time, error)
	Location() string
	Region() string
}

// OnDemandPricer serves on-demand prices
type OnDemandPricer interface {
	GetOnDemandPrice(ctx context.Context, instanceType, region string) (models.OnDemandPrice, error)
}

// Options configures the HTTP layer
type Options struct {
	APIPrefix  string
	StaticPath string
	// StaticLibPath holds third-party frontend libraries served under /lib
	StaticLibPath string
	Production    bool
}

// Server wires the HTTP routes to the data sources
type Server struct {
	instances InstanceStore
	spot      SpotPricer
	onDemand  OnDemandPricer
	logger    logrus.FieldLogger
	opts      Options
}

// New creates a Server. onDemand may be nil, in which case the on-demand
// price route answers 503.
func New(instances InstanceStore, spot SpotPricer, onDemand OnDemandPricer, logger logrus.FieldLogger, opts Options) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Server{
		instances: instances,
		spot:      spot,
		onDemand:  onDemand,
		logger:    logger,
		opts:      opts,
	}
}

// Router builds the gin engine with every route registered
func (s *Server) Router() *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(requestLogger(s.logger))
	r.Use(gin.Recovery())

	r.GET("/health", s.getHealth)
	r.GET("/version", s.getVersion)

	api := r.Group(s.opts.APIPrefix)
	{
		api.GET("/instances", s.getInstances)
		api.GET("/instances/types", s.getInstanceTypes)
		api.GET("/instances/types/:name", s.getInstanceType)

		api.GET("/prices", s.getPrices)
		api.GET("/prices/:name", s.getInstancePrices)
		api.GET("/prices/:name/ondemand", s.getOnDemandPrice)
	}

	static := r.Group("/", noCache(!s.opts.Production))
	if s.opts.StaticPath != "" {
		static.StaticFile("/", filepath.Join(s.opts.StaticPath, "index.html"))
		static.Static("/static", s.opts.StaticPath)
	}
	if s.opts.StaticLibPath != "" {
		static.Static("/lib", s.opts.StaticLibPath)
	}

	return r
}

// Run serves HTTP on addr until ctx is cancelled
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("address", addr).Info("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("error running HTTP server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error shutting down HTTP server: %w", err)
	}
	return nil
}
