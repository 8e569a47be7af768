package models

// Record is one untyped row of a dynamic table: a mapping from field name
// to value. The table store assigns the id and timestamp fields on insert.
type Record map[string]any

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ID returns the record's id value as a string, or "" if unset.
func (r Record) ID() string {
	if v, ok := r[SystemFieldID].(string); ok {
		return v
	}
	return ""
}
