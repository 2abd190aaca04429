package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/younsl/ec2spot/internal/config"
	"github.com/younsl/ec2spot/internal/logging"
	"github.com/younsl/ec2spot/internal/version"
	"github.com/younsl/ec2spot/pkg/instances"
	"github.com/younsl/ec2spot/pkg/pricing"
	"github.com/younsl/ec2spot/pkg/server"
	"github.com/younsl/ec2spot/pkg/source"
	"github.com/younsl/ec2spot/pkg/spot"
	"github.com/younsl/ec2spot/pkg/utils"
)

func newServeCmd() *cobra.Command {
	var (
		host       string
		port       int
		staticPath string
		staticLib  string
		production bool
		eager      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("host") {
				cfg.Server.Host = host
			}
			if flags.Changed("port") {
				cfg.Server.Port = port
			}
			if flags.Changed("static") {
				cfg.Server.StaticPath = staticPath
			}
			if flags.Changed("static-lib") {
				cfg.Server.StaticLibPath = staticLib
			}
			if flags.Changed("production") {
				cfg.Server.Production = production
			}
			if flags.Changed("eager") {
				cfg.Cache.Eager = eager
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := logging.New(cfg.LogLevel(), cfg.Logging.Format)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServer(ctx, cfg, logger)
		},
	}

	cmd.Flags().StringVar(&host, "host", config.DefaultHost, "Address to listen on")
	cmd.Flags().IntVarP(&port, "port", "p", config.DefaultPort, "Port to listen on")
	cmd.Flags().StringVar(&staticPath, "static", "", "Directory of frontend files served at / and /static")
	cmd.Flags().StringVar(&staticLib, "static-lib", "", "Directory of frontend libraries served at /lib")
	cmd.Flags().BoolVar(&production, "production", false, "Production mode (browser caching of static files, error-level logging)")
	cmd.Flags().BoolVar(&eager, "eager", true, "Fetch the instance data before accepting requests")

	return cmd
}

func runServer(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	if cfg.Server.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	awsRegion := utils.ResolveRegion(ctx, cfg.AWS.Region, nil)
	if !utils.IsValidRegion(awsRegion) {
		logger.WithField("region", awsRegion).Warn("Unknown AWS region, spot price requests may fail")
	}
	logger.WithFields(logrus.Fields{
		"version": version.Get().Version,
		"region":  awsRegion,
		"source":  cfg.Cache.InstancesJSONURL,
		"ttl":     cfg.CacheTTL().String(),
	}).Info("Starting ec2spot")

	src, err := source.New(ctx, cfg.Cache.InstancesJSONURL, source.Options{
		Region:  awsRegion,
		Timeout: cfg.Cache.FetchTimeout,
	})
	if err != nil {
		return err
	}

	cache := instances.New(src, cfg.CacheTTL(),
		instances.WithLogger(logger),
		instances.WithFetchTimeout(cfg.Cache.FetchTimeout),
	)

	spotClient, err := spot.NewEC2Client(ctx, awsRegion,
		spot.WithLogger(logger),
		spot.WithBatchSize(cfg.AWS.SpotBatchSize),
		spot.WithConcurrency(cfg.AWS.SpotConcurrency),
	)
	if err != nil {
		return err
	}

	// On-demand prices are optional; the route answers 503 without them
	var onDemand server.OnDemandPricer
	if pricingClient, err := pricing.NewAWSClient(ctx, logger); err != nil {
		logger.WithError(err).Warn("On-demand pricing disabled")
	} else {
		onDemand = pricingClient
	}

	if cfg.Cache.Eager {
		if _, err := cache.Refresh(ctx); err != nil {
			logger.WithError(err).Warn("Initial instance data fetch failed, retrying on first request")
		}
	}

	srv := server.New(cache, spotClient, onDemand, logger, server.Options{
		APIPrefix:     cfg.Server.APIPrefix,
		StaticPath:    cfg.Server.StaticPath,
		StaticLibPath: cfg.Server.StaticLibPath,
		Production:    cfg.Server.Production,
	})
	return srv.Run(ctx, cfg.Address())
}
