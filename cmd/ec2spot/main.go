package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/younsl/ec2spot/internal/config"
	"github.com/younsl/ec2spot/internal/version"
)

// Flags shared by serve and check
var (
	configPath string
	sourceURL  string
	region     string
	ttlHours   int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ec2spot",
		Short: "REST API for EC2 instance types and spot prices",
		Long: `ec2spot serves EC2 instance type metadata from a periodically
refreshed in-memory cache, together with live spot prices.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&sourceURL, "url", "", "Location of instances.json (http(s)://, s3:// or file path)")
	rootCmd.PersistentFlags().StringVarP(&region, "region", "r", "", "AWS region for spot prices (default: detected from instance metadata, then us-east-1)")
	rootCmd.PersistentFlags().IntVar(&ttlHours, "ttl", config.DefaultMaxAgeHours, "Hours before the instance data is fetched again")

	rootCmd.AddCommand(newServeCmd(), newCheckCmd(), newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.Get().String())
		},
	}
}

// loadConfig reads the configuration and applies the persistent flags that
// were set explicitly on the command line
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.Cache.InstancesJSONURL = sourceURL
	}
	if flags.Changed("region") {
		cfg.AWS.Region = region
	}
	if flags.Changed("ttl") {
		cfg.Cache.MaxAgeHours = ttlHours
	}
	return cfg, nil
}
