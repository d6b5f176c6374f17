package syncengine

import "encoding/json"

// canonicalKey serializes the upsert-column values of a row, in declared
// order, as a JSON array (spec §4.4 "Canonical key encoding"). This
// preserves ordering and distinguishes `"1"` from `1` even when source
// integers are carried as strings.
func canonicalKey(upsertColumns []string, row map[string]any) (string, error) {
	values := make([]any, len(upsertColumns))
	for i, col := range upsertColumns {
		values[i] = row[col]
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
