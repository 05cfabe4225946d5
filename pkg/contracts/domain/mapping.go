package domain

// ColumnMapping records which raw column of one source file was matched to
// each canonical field. Scoped to a single file: different extracts map
// differently.
type ColumnMapping struct {
	SourceFile string
	// Columns maps canonical field name -> raw column name as it appears
	// in the file header.
	Columns map[string]string
	// Unresolved lists required canonical fields no raw column matched.
	Unresolved []string
}

// Resolved reports whether the canonical field was matched.
func (m ColumnMapping) Resolved(field string) bool {
	_, ok := m.Columns[field]
	return ok
}

// RawColumn returns the raw column matched for the canonical field.
func (m ColumnMapping) RawColumn(field string) (string, bool) {
	col, ok := m.Columns[field]
	return col, ok
}
