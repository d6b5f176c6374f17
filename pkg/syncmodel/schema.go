package syncmodel

// FieldClass is the engine's normalized type vocabulary, shared by the
// warehouse source's schema probe and the sink's DDL generator (spec §4.3).
type FieldClass string

const (
	ClassString    FieldClass = "string"
	ClassInt       FieldClass = "int"
	ClassFloat     FieldClass = "float"
	ClassBool      FieldClass = "bool"
	ClassDate      FieldClass = "date"
	ClassDatetime  FieldClass = "datetime"
	ClassTimestamp FieldClass = "timestamp"
	ClassNumeric   FieldClass = "numeric"
)

// SchemaField describes one column as seen by the source or the sink.
type SchemaField struct {
	Name     string     `json:"name"`
	Class    FieldClass `json:"class"`
	Nullable bool       `json:"nullable"`
}

// Schema is an ordered set of fields keyed case-insensitively for diffing
// (spec §4.3 invariant I4: "column comparison is case-insensitive").
type Schema []SchemaField

// ByLowerName indexes the schema by lowercased column name.
func (s Schema) ByLowerName() map[string]SchemaField {
	m := make(map[string]SchemaField, len(s))
	for _, f := range s {
		m[lower(f.Name)] = f
	}
	return m
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
