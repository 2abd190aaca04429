package instances

import (
	"encoding/json"
	"net/url"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/younsl/ec2spot/internal/models"
)

func TestReshapeKeysByInstanceType(t *testing.T) {
	c := qt.New(t)

	records, err := Reshape([]byte(testInstancesJSON))
	c.Assert(err, qt.IsNil)
	c.Assert(records, qt.HasLen, 2)

	small := records["a1.small"]
	c.Assert(small.VCPU, qt.Equals, 2)
	c.Assert(small.Memory, qt.Equals, 4.0)
	c.Assert(small.Storage, qt.IsNil)

	for name, record := range records {
		for _, dropped := range []string{"instance_type", "pricing"} {
			_, ok := record.Attributes[dropped]
			c.Assert(ok, qt.IsFalse, qt.Commentf("%s still has %s", name, dropped))
		}
	}
}

func TestReshapeKeepsOtherAttributes(t *testing.T) {
	c := qt.New(t)

	records, err := Reshape([]byte(`[{"instance_type": "m5.large", "vCPU": "2", "memory": 8, "family": "General purpose", "ECU": 10}]`))
	c.Assert(err, qt.IsNil)

	record := records["m5.large"]
	c.Assert(record.VCPU, qt.Equals, 2)
	c.Assert(string(record.Attributes["family"]), qt.Equals, `"General purpose"`)

	out, err := json.Marshal(record)
	c.Assert(err, qt.IsNil)
	var decoded map[string]any
	c.Assert(json.Unmarshal(out, &decoded), qt.IsNil)
	c.Assert(decoded, qt.DeepEquals, map[string]any{
		"vCPU":   "2",
		"memory": 8.0,
		"family": "General purpose",
		"ECU":    10.0,
	})
}

func TestReshapeKeepsFullStorageObject(t *testing.T) {
	c := qt.New(t)

	storage := `{"devices": 1, "size": 50, "nvme_ssd": true, "ssd": false, "trim_support": true, "storage_needs_initialization": false, "includes_swap_partition": false}`
	records, err := Reshape([]byte(`[{"instance_type": "c5d.large", "vCPU": 2, "memory": 4, "storage": ` + storage + `}]`))
	c.Assert(err, qt.IsNil)

	record := records["c5d.large"]
	c.Assert(record.Storage, qt.DeepEquals, &models.Storage{Size: 50, Devices: 1, NVMeSSD: true})

	out, err := json.Marshal(record)
	c.Assert(err, qt.IsNil)
	var decoded struct {
		Storage map[string]any `json:"storage"`
	}
	c.Assert(json.Unmarshal(out, &decoded), qt.IsNil)

	var want map[string]any
	c.Assert(json.Unmarshal([]byte(storage), &want), qt.IsNil)
	c.Assert(decoded.Storage, qt.HasLen, 7)
	c.Assert(decoded.Storage, qt.DeepEquals, want)
}

func TestReshapeDoesNotInventMissingAttributes(t *testing.T) {
	c := qt.New(t)

	records, err := Reshape([]byte(`[{"instance_type": "u-6tb1.metal", "family": "Memory optimized"}]`))
	c.Assert(err, qt.IsNil)

	out, err := json.Marshal(records["u-6tb1.metal"])
	c.Assert(err, qt.IsNil)
	c.Assert(string(out), qt.Equals, `{"family":"Memory optimized"}`)
}

func TestReshapeSkipsEntriesWithoutKey(t *testing.T) {
	c := qt.New(t)

	records, err := Reshape([]byte(`[{"vCPU": 2}, {"instance_type": "", "vCPU": 1}, {"instance_type": "t3.nano", "vCPU": 2, "memory": 0.5}]`))
	c.Assert(err, qt.IsNil)
	c.Assert(records, qt.HasLen, 1)
	c.Assert(records["t3.nano"].Memory, qt.Equals, 0.5)
}

func TestReshapeErrors(t *testing.T) {
	c := qt.New(t)

	for _, body := range []string{
		`not json`,
		`{"instance_type": "t3.nano"}`,
		`[{"instance_type": 42}]`,
		`[{"instance_type": "t3.nano", "vCPU": true}]`,
		`[{"instance_type": "t3.nano", "storage": "big"}]`,
	} {
		_, err := Reshape([]byte(body))
		c.Assert(err, qt.Not(qt.IsNil), qt.Commentf("body %s", body))
	}
}

func TestParseFilters(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		about string
		query string
		want  models.Filters
	}{{
		about: "empty",
		query: "",
		want:  models.Filters{},
	}, {
		about: "all set",
		query: "maxCpu=4&maxMemory=16&maxStorage=0",
		want:  models.Filters{MaxCPU: intPtr(4), MaxMemory: intPtr(16), MaxStorage: intPtr(0)},
	}, {
		about: "malformed values are absent",
		query: "maxCpu=four&maxMemory=1.5&maxStorage=",
		want:  models.Filters{},
	}, {
		about: "snake case names are not recognised",
		query: "max_cpu=4",
		want:  models.Filters{},
	}}

	for _, test := range tests {
		c.Run(test.about, func(c *qt.C) {
			values, err := url.ParseQuery(test.query)
			c.Assert(err, qt.IsNil)
			c.Assert(ParseFilters(values.Get), qt.DeepEquals, test.want)
		})
	}
}
