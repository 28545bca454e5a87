package models

import "sort"

// ColumnType classifies a dataset column for descriptor generation.
type ColumnType string

const (
	ColumnNumeric    ColumnType = "numeric"
	ColumnCategorical ColumnType = "categorical"
	ColumnTemporal   ColumnType = "temporal"
	ColumnOther      ColumnType = "other"
)

// Dataset is an in-memory tabular value with a schema and a free-text
// context used to prime agents. Immutable once bound to a session —
// UpdateDataset replaces the whole value rather than mutating it.
type Dataset struct {
	Name    string
	Schema  map[string]ColumnType
	Context string
	Rows    int
}

// Descriptor renders the dataset schema and context into the text
// form agents and retrievers consume as the `dataset` input field.
func (d *Dataset) Descriptor() string {
	if d == nil {
		return ""
	}
	out := "Dataset: " + d.Name + "\n"
	if d.Context != "" {
		out += d.Context + "\n"
	}
	cols := make([]string, 0, len(d.Schema))
	for col := range d.Schema {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		out += col + ": " + string(d.Schema[col]) + "\n"
	}
	return out
}
