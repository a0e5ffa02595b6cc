// Package colorscale maps grade ratios onto a smooth band of cell colors.
package colorscale

import (
	"fmt"
	"math/big"

	"github.com/lucasb-eyer/go-colorful"
)

// Anchor pins an exact color to a ratio; colors between anchors are
// interpolated in HSV space.
type Anchor struct {
	Bound *big.Rat
	HTML  string
}

// Scale precomputes one color per integer percent between the first and
// last anchor. Ratios outside the anchored range clamp to the nearest end.
type Scale struct {
	lowest    int
	highest   int
	byPercent map[int]string
}

func New(anchors []Anchor) (*Scale, error) {
	if len(anchors) < 2 {
		return nil, fmt.Errorf("colorscale: need at least two anchors, got %d", len(anchors))
	}
	type hsvAnchor struct {
		percent int
		h, s, v float64
	}
	hsvAnchors := make([]hsvAnchor, len(anchors))
	for i, anchor := range anchors {
		color, err := colorful.Hex(anchor.HTML)
		if err != nil {
			return nil, fmt.Errorf("colorscale: anchor %q: %w", anchor.HTML, err)
		}
		h, s, v := color.Hsv()
		hsvAnchors[i] = hsvAnchor{percent: roundPercent(anchor.Bound), h: h, s: s, v: v}
	}

	scale := &Scale{
		lowest:    hsvAnchors[0].percent,
		highest:   hsvAnchors[len(hsvAnchors)-1].percent,
		byPercent: make(map[int]string),
	}
	for i := 0; i < len(hsvAnchors)-1; i++ {
		lower, upper := hsvAnchors[i], hsvAnchors[i+1]
		span := float64(upper.percent - lower.percent)
		for percent := lower.percent; percent < upper.percent; percent++ {
			weight := float64(percent-lower.percent) / span
			scale.byPercent[percent] = colorful.Hsv(
				(1-weight)*lower.h+weight*upper.h,
				(1-weight)*lower.s+weight*upper.s,
				(1-weight)*lower.v+weight*upper.v,
			).Hex()
		}
	}
	top := hsvAnchors[len(hsvAnchors)-1]
	scale.byPercent[top.percent] = colorful.Hsv(top.h, top.s, top.v).Hex()
	return scale, nil
}

// Color looks up the cell color for a grade ratio.
func (s *Scale) Color(ratio *big.Rat) string {
	percent := roundPercent(ratio)
	if percent < s.lowest {
		percent = s.lowest
	} else if percent > s.highest {
		percent = s.highest
	}
	return s.byPercent[percent]
}

// roundPercent converts a ratio to a whole percent, rounding ties to even.
func roundPercent(ratio *big.Rat) int {
	scaled := new(big.Rat).Mul(ratio, big.NewRat(100, 1))
	quo := new(big.Int)
	rem := new(big.Int)
	quo.QuoRem(scaled.Num(), scaled.Denom(), rem)
	rem.Abs(rem)

	twice := new(big.Int).Lsh(rem, 1)
	switch twice.Cmp(scaled.Denom()) {
	case 1:
		quo.Add(quo, big.NewInt(1))
	case 0:
		if quo.Bit(0) == 1 {
			quo.Add(quo, big.NewInt(1))
		}
	}
	return int(quo.Int64())
}
