package instances

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/younsl/ec2spot/internal/models"
)

const (
	keyInstanceType = "instance_type"
	keyPricing      = "pricing"
	keyVCPU         = "vCPU"
	keyMemory       = "memory"
	keyStorage      = "storage"
)

// Reshape parses an instances.json document (a JSON array of instance type
// objects) into records keyed by instance type.
//
// The instance_type attribute becomes the map key and is removed from the
// record. Embedded pricing payloads are dropped since spot prices are
// queried live. Every other attribute is kept verbatim. Entries without an
// instance type are skipped.
func Reshape(body []byte) (map[string]models.InstanceRecord, error) {
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("error parsing instance data: %w", err)
	}

	records := make(map[string]models.InstanceRecord, len(raw))
	for i, attrs := range raw {
		name, err := decodeString(attrs[keyInstanceType])
		if err != nil {
			return nil, fmt.Errorf("entry %d: invalid %s: %w", i, keyInstanceType, err)
		}
		if name == "" {
			continue
		}

		record, err := newRecord(attrs)
		if err != nil {
			return nil, fmt.Errorf("instance type %s: %w", name, err)
		}
		records[name] = record
	}

	return records, nil
}

// newRecord decodes the typed attributes and keeps attrs as the record's
// attribute set
func newRecord(attrs map[string]json.RawMessage) (models.InstanceRecord, error) {
	var record models.InstanceRecord

	if v, ok := attrs[keyVCPU]; ok && !isNull(v) {
		n, err := decodeNumber(v)
		if err != nil {
			return record, fmt.Errorf("invalid %s: %w", keyVCPU, err)
		}
		record.VCPU = int(n)
	}

	if v, ok := attrs[keyMemory]; ok && !isNull(v) {
		n, err := decodeNumber(v)
		if err != nil {
			return record, fmt.Errorf("invalid %s: %w", keyMemory, err)
		}
		record.Memory = n
	}

	if v, ok := attrs[keyStorage]; ok && !isNull(v) {
		var storage models.Storage
		if err := json.Unmarshal(v, &storage); err != nil {
			return record, fmt.Errorf("invalid %s: %w", keyStorage, err)
		}
		record.Storage = &storage
	}

	delete(attrs, keyInstanceType)
	delete(attrs, keyPricing)
	record.Attributes = attrs

	return record, nil
}

func isNull(v json.RawMessage) bool {
	return len(v) == 0 || bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func decodeString(v json.RawMessage) (string, error) {
	if isNull(v) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", err
	}
	return s, nil
}

// decodeNumber accepts both JSON numbers and numeric strings, since older
// dataset revisions quote some values
func decodeNumber(v json.RawMessage) (float64, error) {
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(v))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return 0, err
	}
	switch t := raw.(type) {
	case json.Number:
		n = t
	case string:
		n = json.Number(t)
	default:
		return 0, fmt.Errorf("unexpected value %s", string(v))
	}
	return n.Float64()
}
