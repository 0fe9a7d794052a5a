package busapi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) interface{} {
	t.Helper()
	var v interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestExtractResults_Envelopes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"bare array", `[{"id":1},{"id":2}]`, 2},
		{"results", `{"results":[{"id":1}]}`, 1},
		{"data array", `{"data":[{"id":1},{"id":2},{"id":3}]}`, 3},
		{"data results", `{"data":{"results":[{"id":1}]}}`, 1},
		{"unknown shape", `{"items":[{"id":1}]}`, 0},
		{"null", `null`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, ExtractResults(decode(t, tt.body)), tt.want)
		})
	}
}

func TestExtractRecord(t *testing.T) {
	assert.Equal(t, "7", ExtractRecord(decode(t, `{"data":{"id":7}}`)).String("id"))
	assert.Equal(t, "7", ExtractRecord(decode(t, `{"id":7}`)).String("id"))
	assert.Empty(t, ExtractRecord(decode(t, `[1,2]`)))
}

func TestRecordAccessors(t *testing.T) {
	rec := Record(decode(t, `{"price":"89.50","seats":[12,"A3"],"bus":{"name":"Cama"},"empty":""}`).(map[string]interface{}))

	assert.Equal(t, 89.5, rec.Float("price"))
	assert.Equal(t, []string{"12", "A3"}, rec.Strings("seats"))
	assert.Equal(t, "Cama", rec.Object("bus").String("name"))
	assert.Nil(t, rec.Object("missing"))
	assert.Equal(t, "89.50", rec.FirstString("empty", "price"))
	assert.False(t, Truthy(rec["empty"]))
}

func TestSeatNumber(t *testing.T) {
	assert.Equal(t, 12, SeatNumber("12"))
	assert.Equal(t, "12A", SeatNumber("12A"))
}
