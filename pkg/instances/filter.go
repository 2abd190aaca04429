package instances

import (
	"sort"
	"strconv"
	"strings"

	"github.com/younsl/ec2spot/internal/models"
)

// Query parameter names accepted by ParseFilters
const (
	ParamMaxCPU     = "maxCpu"
	ParamMaxMemory  = "maxMemory"
	ParamMaxStorage = "maxStorage"
)

// ParseFilters builds Filters from query parameters read through get.
// Values that are empty or not integers are treated as absent.
func ParseFilters(get func(string) string) models.Filters {
	return models.Filters{
		MaxCPU:     parseBound(get(ParamMaxCPU)),
		MaxMemory:  parseBound(get(ParamMaxMemory)),
		MaxStorage: parseBound(get(ParamMaxStorage)),
	}
}

func parseBound(value string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return nil
	}
	return &n
}

// FilterTypes returns the sorted names of the records that satisfy f
func FilterTypes(records map[string]models.InstanceRecord, f models.Filters) []string {
	names := make([]string, 0, len(records))
	for name, record := range records {
		if f.Matches(record) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
