package masterdata

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFoldSearchTerm(t *testing.T) {
	cases := map[string]string{
		"Nhớt Castrol":   "nhot castrol",
		"LỐP XE MÁY":     "lop xe may",
		"đèn pha LED":    "den pha led",
		"bugi NGK":       "bugi ngk",
		"  Phanh Đĩa  ":  "phanh dia",
		"":               "",
	}
	for in, want := range cases {
		require.Equal(t, want, FoldSearchTerm(in), "input %q", in)
	}
}
