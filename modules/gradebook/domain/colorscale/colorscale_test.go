package colorscale

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func testScale(t *testing.T) *Scale {
	t.Helper()
	scale, err := New([]Anchor{
		{Bound: big.NewRat(6, 10), HTML: "#F5C7C3"},
		{Bound: big.NewRat(8, 10), HTML: "#FCE8AF"},
		{Bound: big.NewRat(10, 10), HTML: "#B6E1CC"},
	})
	require.NoError(t, err)
	return scale
}

func TestScale_AnchorsRoundTrip(t *testing.T) {
	scale := testScale(t)
	require.Equal(t, "#f5c7c3", scale.Color(big.NewRat(6, 10)))
	require.Equal(t, "#fce8af", scale.Color(big.NewRat(8, 10)))
	require.Equal(t, "#b6e1cc", scale.Color(big.NewRat(1, 1)))
}

func TestScale_ClampsOutOfRange(t *testing.T) {
	scale := testScale(t)
	require.Equal(t, scale.Color(big.NewRat(6, 10)), scale.Color(big.NewRat(1, 10)))
	require.Equal(t, scale.Color(big.NewRat(6, 10)), scale.Color(new(big.Rat)))
	require.Equal(t, scale.Color(big.NewRat(1, 1)), scale.Color(big.NewRat(3, 2)))
}

func TestScale_InterpolatesBetweenAnchors(t *testing.T) {
	scale := testScale(t)
	mid := scale.Color(big.NewRat(7, 10))
	require.NotEmpty(t, mid)
	require.NotEqual(t, scale.Color(big.NewRat(6, 10)), mid)
	require.NotEqual(t, scale.Color(big.NewRat(8, 10)), mid)
}

func TestScale_NeedsTwoAnchors(t *testing.T) {
	_, err := New([]Anchor{{Bound: big.NewRat(1, 1), HTML: "#FFFFFF"}})
	require.Error(t, err)
}

func TestRoundPercent(t *testing.T) {
	cases := []struct {
		ratio *big.Rat
		want  int
	}{
		{big.NewRat(875, 1000), 88},
		{big.NewRat(1, 3), 33},
		{big.NewRat(2, 3), 67},
		{big.NewRat(865, 1000), 86}, // tie rounds to even
		{big.NewRat(875, 10000), 9},
	}
	for _, tc := range cases {
		if got := roundPercent(tc.ratio); got != tc.want {
			t.Errorf("roundPercent(%v) = %d, want %d", tc.ratio, got, tc.want)
		}
	}
}
