package formatter

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/younsl/ec2spot/internal/models"
)

// PrintSpotPricesTable prints one row per instance type and zone. onDemand
// may be nil or miss types; those rows show N/A for the comparison columns.
func PrintSpotPricesTable(w io.Writer, prices models.Prices, onDemand map[string]models.OnDemandPrice) {
	if len(prices) == 0 {
		fmt.Fprintln(w, "No spot prices found.")
		return
	}

	names := make([]string, 0, len(prices))
	for name := range prices {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "INSTANCE TYPE\tZONE\tSPOT $/HR\tON-DEMAND $/HR\tSAVINGS\tPRICING")

	for _, name := range names {
		zones := make([]string, 0, len(prices[name]))
		for zone := range prices[name] {
			zones = append(zones, zone)
		}
		sort.Strings(zones)

		od, hasOnDemand := onDemand[name]
		for _, zone := range zones {
			entry := prices[name][zone]

			onDemandStr, savings, marker := "N/A", "N/A", GetPricingMarker("N/A")
			if hasOnDemand && od.Price > 0 {
				onDemandStr = fmt.Sprintf("$%.4f", od.Price)
				savings = fmt.Sprintf("%.0f%%", (1-entry.Price/od.Price)*100)
				marker = GetPricingMarker(od.PricingSource)
			}

			fmt.Fprintf(tw, "%s\t%s\t$%.4f\t%s\t%s\t%s\n",
				name,
				zone,
				entry.Price,
				onDemandStr,
				savings,
				marker,
			)
		}
	}

	tw.Flush()
}
