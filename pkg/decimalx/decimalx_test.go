package decimalx

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComma(t *testing.T) {
	cases := map[string]string{
		"0":          "0",
		"1":          "1",
		"999":        "999",
		"1000":       "1,000",
		"200000":     "200,000",
		"1250000":    "1,250,000",
		"-52500":     "-52,500",
		"0.0042":     "0.0042",
		"1234567.89": "1,234,567.89",
		"-1000.5":    "-1,000.5",
	}
	for in, want := range cases {
		assert.Equal(t, want, Comma(MustFromString(in)), "input %s", in)
	}
}

func TestMustFromString(t *testing.T) {
	assert.True(t, MustFromString("1.5").Equal(decimal.RequireFromString("1.5")))
	assert.Panics(t, func() {
		MustFromString("not-a-number")
	})
}
