package formatter

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/younsl/ec2spot/internal/models"
)

// PrintInstanceTypesTable prints the named instance types of ds, smallest first
func PrintInstanceTypesTable(w io.Writer, ds *models.Dataset, names []string, fetchStart time.Time, fetchDuration time.Duration) {
	if ds == nil || len(names) == 0 {
		fmt.Fprintln(w, "No matching instance types found.")
		return
	}

	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := ds.Instances[sorted[i]], ds.Instances[sorted[j]]
		if a.VCPU != b.VCPU {
			return a.VCPU < b.VCPU
		}
		if a.Memory != b.Memory {
			return a.Memory < b.Memory
		}
		return sorted[i] < sorted[j]
	})

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)

	printTimestamp(tw, fetchStart, fetchDuration)

	fmt.Fprintln(tw, "INSTANCE TYPE\tFAMILY\tVCPU\tMEMORY\tSTORAGE")
	for _, name := range sorted {
		record := ds.Instances[name]
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s GiB\t%s\n",
			name,
			attrString(record.Attributes, "family"),
			record.VCPU,
			strconv.FormatFloat(record.Memory, 'f', -1, 64),
			formatStorage(record.Storage),
		)
	}
	fmt.Fprintf(tw, "Total:\t%d types\t\t\t\n", len(sorted))

	tw.Flush()
}

// formatStorage renders instance storage as e.g. "2 x 300 GB NVMe SSD"
func formatStorage(s *models.Storage) string {
	if s == nil {
		return "EBS only"
	}
	size := strconv.FormatFloat(s.Size, 'f', -1, 64)
	out := size + " GB"
	if s.Devices > 1 {
		perDevice := strconv.FormatFloat(s.Size/float64(s.Devices), 'f', -1, 64)
		out = fmt.Sprintf("%d x %s GB", s.Devices, perDevice)
	}
	switch {
	case s.NVMeSSD:
		out += " NVMe SSD"
	case s.SSD:
		out += " SSD"
	default:
		out += " HDD"
	}
	return out
}

// vcpuRanges buckets instance types by size for the summary
var vcpuRanges = []struct {
	label string
	max   int
}{
	{"1-2 vCPU", 2},
	{"3-8 vCPU", 8},
	{"9-32 vCPU", 32},
	{"33-96 vCPU", 96},
	{"97+ vCPU", math.MaxInt},
}

// PrintDatasetSummary displays where the dataset came from and how it is composed
func PrintDatasetSummary(w io.Writer, ds *models.Dataset) {
	if ds == nil {
		fmt.Fprintln(w, "No instance data loaded.")
		return
	}

	fmt.Fprintln(w, "\n## Instance Data Summary")

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "Source:\t%s\n", ds.FetchedFrom)
	fmt.Fprintf(tw, "Instance types:\t%d\n", ds.Len())
	fmt.Fprintf(tw, "Payload size:\t%s\n", humanize.Bytes(uint64(ds.SizeBytes)))
	fmt.Fprintf(tw, "Fetched at:\t%s\n", ds.FetchedAt.Format(time.RFC3339))
	fmt.Fprintf(tw, "Expires at:\t%s\n", ds.ExpireAt.Format(time.RFC3339))
	tw.Flush()

	counts := make([]int, len(vcpuRanges))
	withStorage := 0
	for _, record := range ds.Instances {
		for i, r := range vcpuRanges {
			if record.VCPU <= r.max {
				counts[i]++
				break
			}
		}
		if record.Storage != nil {
			withStorage++
		}
	}

	fmt.Fprintln(w, "\n## Instance Types by Size")
	tw = tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "SIZE\tCOUNT")
	for i, r := range vcpuRanges {
		fmt.Fprintf(tw, "%s\t%d\n", r.label, counts[i])
	}
	fmt.Fprintf(tw, "With instance storage\t%d\n", withStorage)
	tw.Flush()
}
