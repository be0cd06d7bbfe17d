package output

import (
	"bytes"
	"encoding/json"
	"strings"
)

// SnapshotExcludeFields lists the dotted paths removed before two responses
// are compared. Paths are matched at any depth below the root object.
var SnapshotExcludeFields = []string{
	"meta.durationMs",
	"queryDurationMs",
	"loadedAt",
	"buildTime",
	"journalId",
	"plan.state",
}

// NormalizeForSnapshot removes time-varying fields for comparison
func NormalizeForSnapshot(data []byte) ([]byte, error) {
	var parsed interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&parsed); err != nil {
		return nil, err
	}

	if root, ok := parsed.(map[string]interface{}); ok {
		for _, field := range SnapshotExcludeFields {
			removeNestedField(root, field)
		}
		if data, ok := root["data"].(map[string]interface{}); ok {
			for _, field := range SnapshotExcludeFields {
				removeNestedField(data, field)
			}
		}
	}

	return DeterministicEncode(parsed)
}

// CompareSnapshots returns true if two responses are identical
// (ignoring time-varying fields)
func CompareSnapshots(a, b []byte) (bool, string) {
	normalizedA, err := NormalizeForSnapshot(a)
	if err != nil {
		return false, "failed to normalize snapshot A: " + err.Error()
	}

	normalizedB, err := NormalizeForSnapshot(b)
	if err != nil {
		return false, "failed to normalize snapshot B: " + err.Error()
	}

	if !bytes.Equal(normalizedA, normalizedB) {
		return false, "snapshots differ"
	}

	return true, ""
}

// removeNestedField removes a nested field from a map using dot notation
// e.g., "meta.durationMs" removes the "durationMs" field from the "meta" object
func removeNestedField(data map[string]interface{}, path string) {
	parts := strings.Split(path, ".")
	current := data
	for i := 0; i < len(parts)-1; i++ {
		next, ok := current[parts[i]].(map[string]interface{})
		if !ok {
			return
		}
		current = next
	}
	delete(current, parts[len(parts)-1])
}

// SnapshotEqual compares two values for equality, ignoring time-varying fields
func SnapshotEqual(a, b interface{}) bool {
	aJSON, err := json.Marshal(a)
	if err != nil {
		return false
	}

	bJSON, err := json.Marshal(b)
	if err != nil {
		return false
	}

	equal, _ := CompareSnapshots(aJSON, bJSON)
	return equal
}
