package google

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToStringsPadsShortRows(t *testing.T) {
	values := [][]interface{}{
		{"year_month", "currency_code", "average_rate"},
		{"2024-09", "USD"},
		{"2024-09", " JPY ", 185.1},
	}
	got := toStrings(values)
	assert.Equal(t, [][]string{
		{"year_month", "currency_code", "average_rate"},
		{"2024-09", "USD", ""},
		{"2024-09", "JPY", "185.1"},
	}, got)
	assert.Nil(t, toStrings(nil))
}

func TestToValuesRoundTrip(t *testing.T) {
	rows := [][]string{{"a", "b"}, {"1", ""}}
	assert.Equal(t, rows, toStrings(toValues(rows)))
}
