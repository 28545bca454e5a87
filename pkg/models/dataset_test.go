package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDataset_Descriptor(t *testing.T) {
	t.Run("nil dataset", func(t *testing.T) {
		var d *Dataset
		assert.Equal(t, "", d.Descriptor())
	})

	t.Run("columns sorted deterministically", func(t *testing.T) {
		d := &Dataset{
			Name: "housing.csv",
			Schema: map[string]ColumnType{
				"sqft":  ColumnNumeric,
				"price": ColumnNumeric,
				"city":  ColumnCategorical,
			},
			Context: "US residential sales",
		}
		got := d.Descriptor()
		assert.Equal(t, "Dataset: housing.csv\nUS residential sales\ncity: categorical\nprice: numeric\nsqft: numeric\n", got)
	})

	t.Run("no context", func(t *testing.T) {
		d := &Dataset{Name: "x.csv", Schema: map[string]ColumnType{"a": ColumnOther}}
		assert.Equal(t, "Dataset: x.csv\na: other\n", d.Descriptor())
	})
}
