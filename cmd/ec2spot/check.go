package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/younsl/ec2spot/internal/logging"
	"github.com/younsl/ec2spot/internal/models"
	"github.com/younsl/ec2spot/pkg/formatter"
	"github.com/younsl/ec2spot/pkg/instances"
	"github.com/younsl/ec2spot/pkg/pricing"
	"github.com/younsl/ec2spot/pkg/source"
	"github.com/younsl/ec2spot/pkg/spot"
	"github.com/younsl/ec2spot/pkg/utils"
)

// startSpinner creates and starts a spinner with the given message
func startSpinner(message string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[9], 200*time.Millisecond)
	s.Suffix = " " + message
	s.Writer = os.Stderr
	s.Start()
	return s
}

func newCheckCmd() *cobra.Command {
	var (
		maxCPU     int
		maxMemory  int
		maxStorage int
		priceTypes []string
		onDemand   bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Fetch the instance data once and print a summary",
		Long: `check fetches instances.json from the configured source, prints the
instance types matching the optional filters and, with --prices, the current
spot prices of the given instance types.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			// Progress is shown by the spinner; only warnings are logged
			logger, err := logging.New("warn", "text")
			if err != nil {
				return err
			}

			var filters models.Filters
			flags := cmd.Flags()
			if flags.Changed("max-cpu") {
				filters.MaxCPU = &maxCPU
			}
			if flags.Changed("max-memory") {
				filters.MaxMemory = &maxMemory
			}
			if flags.Changed("max-storage") {
				filters.MaxStorage = &maxStorage
			}

			ctx := cmd.Context()
			awsRegion := utils.ResolveRegion(ctx, cfg.AWS.Region, nil)

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

			out := cmd.OutOrStdout()
			if err := checkInstances(ctx, out, cache, filters); err != nil {
				return err
			}

			if len(priceTypes) == 0 {
				return nil
			}
			return checkPrices(ctx, out, logger, awsRegion, priceTypes, onDemand)
		},
	}

	cmd.Flags().IntVar(&maxCPU, "max-cpu", 0, "Only list instance types with at most this many vCPUs")
	cmd.Flags().IntVar(&maxMemory, "max-memory", 0, "Only list instance types with at most this much memory (GiB)")
	cmd.Flags().IntVar(&maxStorage, "max-storage", 0, "Only list instance types with instance storage of at most this size (GB)")
	cmd.Flags().StringSliceVar(&priceTypes, "prices", nil, "Instance types to print spot prices for (comma separated)")
	cmd.Flags().BoolVar(&onDemand, "ondemand", false, "Compare spot prices with on-demand prices from the AWS Pricing API")

	return cmd
}

func checkInstances(ctx context.Context, out io.Writer, cache *instances.Cache, filters models.Filters) error {
	fmt.Fprintf(out, "Fetching instance data from %s ...\n", cache.Location())
	start := time.Now()
	s := startSpinner("Loading instance types ...")

	ds, err := cache.Refresh(ctx)
	duration := time.Since(start)
	if err != nil {
		s.FinalMSG = "✗ Instance data fetch failed\n"
		s.Stop()
		return err
	}
	names := instances.FilterTypes(ds.Instances, filters)

	s.FinalMSG = fmt.Sprintf("✓ [%d instance types loaded] Completed in %.2f seconds\n", ds.Len(), duration.Seconds())
	s.Stop()

	formatter.PrintInstanceTypesTable(out, ds, names, start, duration)
	formatter.PrintDatasetSummary(out, ds)
	return nil
}

func checkPrices(ctx context.Context, out io.Writer, logger logrus.FieldLogger, awsRegion string, instanceTypes []string, withOnDemand bool) error {
	spotClient, err := spot.NewEC2Client(ctx, awsRegion, spot.WithLogger(logger))
	if err != nil {
		return err
	}

	s := startSpinner(fmt.Sprintf("Fetching spot prices in %s ...", awsRegion))
	prices, _, err := spotClient.GetPrices(ctx, instanceTypes)
	if err != nil {
		s.FinalMSG = "✗ Spot price fetch failed\n"
		s.Stop()
		return err
	}

	var onDemandPrices map[string]models.OnDemandPrice
	var pricingClient *pricing.Client
	if withOnDemand {
		pricingClient, err = pricing.NewAWSClient(ctx, logger)
		if err != nil {
			logger.WithError(err).Warn("On-demand pricing unavailable")
		} else {
			onDemandPrices = make(map[string]models.OnDemandPrice, len(instanceTypes))
			for _, name := range instanceTypes {
				price, err := pricingClient.GetOnDemandPrice(ctx, name, awsRegion)
				if err != nil {
					logger.WithError(err).WithField("instanceType", name).Warn("No on-demand price")
					continue
				}
				onDemandPrices[name] = price
			}
		}
	}
	s.Stop()

	fmt.Fprintf(out, "\n## Spot Prices (%s)\n", utils.GetRegionDescriptiveName(awsRegion))
	formatter.PrintSpotPricesTable(out, prices, onDemandPrices)
	if pricingClient != nil {
		formatter.PrintPricingAPIStats(out, pricingClient.Stats().Snapshot())
	}
	return nil
}
