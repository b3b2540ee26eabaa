package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendRow(t *testing.T) {
	d := New("url", "platform")

	require.NoError(t, d.AppendRow("https://a", "instagram"))
	assert.Equal(t, 1, d.Len())

	err := d.AppendRow("https://b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 values")
}

func TestValue_UnknownColumn(t *testing.T) {
	d := New("url")
	require.NoError(t, d.AppendRow("https://a"))

	_, err := d.Value(0, "nope")
	require.Error(t, err)

	v, err := d.Value(0, "url")
	require.NoError(t, err)
	assert.Equal(t, "https://a", v)

	_, err = d.Value(5, "url")
	require.Error(t, err)
}

func TestFromRecords_MissingKeysAreNil(t *testing.T) {
	d := FromRecords([]string{"url", "spend"}, []map[string]any{
		{"url": "https://a", "spend": 10.5},
		{"url": "https://b"},
	})

	require.Equal(t, 2, d.Len())
	v, err := d.Value(1, "spend")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestAddColumn(t *testing.T) {
	d := New("n")
	require.NoError(t, d.AppendRow(1))
	require.NoError(t, d.AppendRow(2))

	err := d.AddColumn("doubled", func(row Row) any {
		return row.Value("n").(int) * 2
	})
	require.NoError(t, err)

	v, err := d.Value(1, "doubled")
	require.NoError(t, err)
	assert.Equal(t, 4, v)

	err = d.AddColumn("doubled", func(Row) any { return nil })
	require.Error(t, err)
}

func TestSetColumn(t *testing.T) {
	d := New("n")
	require.NoError(t, d.AppendRow(1))

	require.NoError(t, d.SetColumn("n", func(Row) any { return 9 }))
	v, err := d.Value(0, "n")
	require.NoError(t, err)
	assert.Equal(t, 9, v)

	assert.Error(t, d.SetColumn("missing", func(Row) any { return nil }))
}

func TestDropColumn(t *testing.T) {
	d := New("a", "b", "c")
	require.NoError(t, d.AppendRow(1, 2, 3))

	d.DropColumn("b")
	assert.Equal(t, []string{"a", "c"}, d.Columns())

	v, err := d.Value(0, "c")
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	// Dropping a missing column is a no-op
	d.DropColumn("b")
	assert.Equal(t, []string{"a", "c"}, d.Columns())
}

func TestCopy_IsDeep(t *testing.T) {
	d := New("n")
	require.NoError(t, d.AppendRow(1))

	cp := d.Copy()
	require.NoError(t, cp.SetColumn("n", func(Row) any { return 99 }))

	v, err := d.Value(0, "n")
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestUnique(t *testing.T) {
	d := New("url")
	for _, v := range []any{"a", "b", "a", nil, "c", "b"} {
		require.NoError(t, d.AppendRow(v))
	}

	values, err := d.UniqueStrings("url")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, values)

	_, err = d.Unique("nope")
	assert.Error(t, err)
}

func TestPartition(t *testing.T) {
	d := New("n")
	for i := 1; i <= 5; i++ {
		require.NoError(t, d.AppendRow(i))
	}

	even, odd := d.Partition(func(row Row) bool {
		return row.Value("n").(int)%2 == 0
	})
	assert.Equal(t, 2, even.Len())
	assert.Equal(t, 3, odd.Len())
}

func TestConcat(t *testing.T) {
	a := New("x", "y")
	require.NoError(t, a.AppendRow(1, 2))

	// Same columns in a different order still concat by name
	b := New("y", "x")
	require.NoError(t, b.AppendRow(20, 10))

	out, err := a.Concat(b)
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())

	v, err := out.Value(1, "x")
	require.NoError(t, err)
	assert.Equal(t, 10, v)

	c := New("x", "z")
	_, err = a.Concat(c)
	assert.Error(t, err)
}

func TestStringify(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		value    any
		expected string
	}{
		{"nil", nil, ""},
		{"string", "x", "x"},
		{"bool", true, "true"},
		{"int", 42, "42"},
		{"int64", int64(42), "42"},
		{"float no trailing zeros", 42.5, "42.5"},
		{"float whole number", float64(80), "80"},
		{"time rfc3339", ts, "2025-06-01T12:00:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Stringify(tt.value))
		})
	}
}
