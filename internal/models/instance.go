package models

import (
	"encoding/json"
	"time"
)

// Storage describes the instance store volumes of an instance type
type Storage struct {
	Size    float64 `json:"size"`
	Devices int     `json:"devices"`
	NVMeSSD bool    `json:"nvme_ssd"`
	SSD     bool    `json:"ssd"`
}

// InstanceRecord represents the metadata of a single EC2 instance type.
// VCPU, Memory and Storage are decoded for filtering; Attributes holds every
// upstream attribute verbatim, including the decoded ones.
type InstanceRecord struct {
	VCPU       int
	Memory     float64 // GiB
	Storage    *Storage
	Attributes map[string]json.RawMessage
}

// MarshalJSON writes the upstream attributes unchanged
func (r InstanceRecord) MarshalJSON() ([]byte, error) {
	if r.Attributes == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r.Attributes)
}

// Dataset is one immutable snapshot of the instance type metadata.
// A refresh replaces the whole Dataset; it is never modified after creation.
type Dataset struct {
	Instances   map[string]InstanceRecord
	FetchedFrom string
	FetchedAt   time.Time
	ExpireAt    time.Time
	SizeBytes   int
}

// Len returns the number of instance types in the dataset
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Instances)
}

// Filters holds the optional upper bounds used to select instance types.
// A nil field imposes no constraint.
type Filters struct {
	MaxCPU     *int
	MaxMemory  *int
	MaxStorage *int
}

// Matches reports whether r satisfies every filter that is set
func (f Filters) Matches(r InstanceRecord) bool {
	if f.MaxCPU != nil && r.VCPU > *f.MaxCPU {
		return false
	}
	if f.MaxMemory != nil && r.Memory > float64(*f.MaxMemory) {
		return false
	}
	if f.MaxStorage != nil {
		// Types without instance storage never satisfy a storage bound
		if r.Storage == nil || r.Storage.Size > float64(*f.MaxStorage) {
			return false
		}
	}
	return true
}
