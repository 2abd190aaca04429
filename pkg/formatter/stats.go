package formatter

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/younsl/ec2spot/pkg/pricing"
)

// PrintPricingAPIStats prints the statistics of pricing API calls
func PrintPricingAPIStats(w io.Writer, stats map[string]map[string]pricing.CallStats) {
	if len(stats) == 0 {
		return
	}

	fmt.Fprintln(w, "\n## AWS Pricing API Call Statistics")

	// Use tabwriter for clean tabular output
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)

	// Print header
	fmt.Fprintln(tw, "SERVICE\tREGION\tAPI CALLS\tSUCCESS\tFAILURE\tCACHE HITS\tSUCCESS RATE")

	services := make([]string, 0, len(stats))
	for service := range stats {
		services = append(services, service)
	}
	sort.Strings(services)

	for _, service := range services {
		regions := make([]string, 0, len(stats[service]))
		for region := range stats[service] {
			regions = append(regions, region)
		}
		sort.Strings(regions)

		for _, region := range regions {
			s := stats[service][region]
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%.1f%%\n",
				service,
				region,
				s.Total(),
				s.Success,
				s.Failure,
				s.Cache,
				s.SuccessRate(),
			)
		}
	}

	tw.Flush()
}
