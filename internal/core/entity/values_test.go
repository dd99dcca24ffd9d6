package entity

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValues_ScanPreservesPrecision(t *testing.T) {
	var v Values
	require.NoError(t, v.Scan([]byte(`{"amount": 12345.678901234567890123, "name": "Acme"}`)))

	// json.Number keeps every digit; a float64 decode would not.
	want, _ := decimal.NewFromString("12345.678901234567890123")
	assert.True(t, want.Equal(v.GetDecimal("amount")))
	assert.Equal(t, "Acme", v.GetString("name"))
}

func TestValues_ScanNilAndEmpty(t *testing.T) {
	var v Values
	require.NoError(t, v.Scan(nil))
	assert.Nil(t, v)

	require.NoError(t, v.Scan([]byte{}))
	assert.Nil(t, v)

	assert.Error(t, v.Scan(42))
}

func TestValues_NumericGetters(t *testing.T) {
	var v Values
	require.NoError(t, v.Scan(`{"count": 7, "ratio": 0.5}`))

	assert.Equal(t, int64(7), v.GetInt("count"))
	assert.Equal(t, 0.5, v.GetFloat("ratio"))
	assert.Equal(t, int64(0), v.GetInt("missing"))
}

func TestValues_Clone(t *testing.T) {
	v := Values{"a": 1}
	clone := v.Clone()
	clone.Set("a", 2)
	assert.Equal(t, 1, v["a"])

	var empty Values
	assert.Nil(t, empty.Clone())
}

func TestRecord_TouchAndSoftDelete(t *testing.T) {
	r := NewRecord("deals", Values{"name": "Acme renewal"})
	assert.Equal(t, 1, r.Version)
	assert.Equal(t, "deals", r.Module)

	r.Touch()
	assert.Equal(t, 2, r.Version)

	r.MarkDeleted()
	assert.True(t, r.DeletionMark)
}
