// Package gradeval parses the score and weight notation used throughout a
// gradebook: percentages, fractions, raw point values, and letter grades.
// All arithmetic is exact, backed by big.Rat.
package gradeval

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// Kind classifies which notation a value was written in.
type Kind string

const (
	KindNone     Kind = "none"
	KindPercent  Kind = "percent"
	KindFraction Kind = "fraction"
	KindPoints   Kind = "points"
	KindLetter   Kind = "letter"
)

var (
	percentRe  = regexp.MustCompile(`^([0-9]*)(\.[0-9]+)?%$`)
	fractionRe = regexp.MustCompile(`^([0-9]*)(\.[0-9]+)?/([0-9]*)(\.[0-9]+)?$`)
	pointsRe   = regexp.MustCompile(`^([0-9]*)(\.[0-9]+)?$`)
	letterRe   = regexp.MustCompile(`^[A-F][+-]?(/[A-F][+-]?)?$`)
)

// Options adjust how a value is interpreted. FullPoints, when set, divides a
// bare point score into a ratio. LetterScale maps letter grades to their
// equivalent ratio and is required for letter input.
type Options struct {
	FullPoints  *big.Rat
	LetterScale map[string]*big.Rat
}

// Parse converts a value string into an exact ratio. The sentinel "none"
// (any case) yields a nil ratio and KindNone. A leading "+" is ignored; a
// leading "-" complements the value, so "-10%" means "all but 10%".
func Parse(value string, opts Options) (*big.Rat, Kind, error) {
	if strings.EqualFold(value, "none") {
		return nil, KindNone, nil
	}
	value = strings.TrimLeft(value, "+")
	complement := strings.HasPrefix(value, "-")
	if complement {
		value = value[1:]
	}

	ratio, kind, err := parseBody(value, opts)
	if err != nil {
		return nil, "", err
	}
	if complement {
		ratio = new(big.Rat).Sub(big.NewRat(1, 1), ratio)
	}
	return ratio, kind, nil
}

func parseBody(value string, opts Options) (*big.Rat, Kind, error) {
	switch {
	case percentRe.MatchString(value):
		ratio, err := parseDecimal(strings.TrimSuffix(value, "%"))
		if err != nil {
			return nil, "", err
		}
		return ratio.Quo(ratio, big.NewRat(100, 1)), KindPercent, nil

	case fractionRe.MatchString(value):
		numStr, denStr, _ := strings.Cut(value, "/")
		if numStr == "" {
			numStr = "0"
		}
		if denStr == "" {
			denStr = "1"
		}
		num, err := parseDecimal(numStr)
		if err != nil {
			return nil, "", err
		}
		den, err := parseDecimal(denStr)
		if err != nil {
			return nil, "", err
		}
		if den.Sign() == 0 {
			return nil, "", fmt.Errorf("gradeval: zero denominator in %q", value)
		}
		return num.Quo(num, den), KindFraction, nil

	case pointsRe.MatchString(value):
		ratio, err := parseDecimal(value)
		if err != nil {
			return nil, "", err
		}
		if opts.FullPoints != nil {
			ratio.Quo(ratio, opts.FullPoints)
		}
		return ratio, KindPoints, nil

	case letterRe.MatchString(value):
		if opts.LetterScale == nil {
			return nil, "", fmt.Errorf("gradeval: no letter scale given for %q", value)
		}
		if lower, upper, split := strings.Cut(value, "/"); split {
			lowRatio, ok := opts.LetterScale[lower]
			if !ok {
				return nil, "", fmt.Errorf("gradeval: unknown letter grade %q", lower)
			}
			highRatio, ok := opts.LetterScale[upper]
			if !ok {
				return nil, "", fmt.Errorf("gradeval: unknown letter grade %q", upper)
			}
			mean := new(big.Rat).Add(lowRatio, highRatio)
			return mean.Quo(mean, big.NewRat(2, 1)), KindLetter, nil
		}
		ratio, ok := opts.LetterScale[value]
		if !ok {
			return nil, "", fmt.Errorf("gradeval: unknown letter grade %q", value)
		}
		return new(big.Rat).Set(ratio), KindLetter, nil

	default:
		return nil, "", fmt.Errorf("gradeval: invalid value %q", value)
	}
}

// parseDecimal converts a non-negative decimal string into a big.Rat.
func parseDecimal(s string) (*big.Rat, error) {
	if s == "" || s == "." {
		return nil, fmt.Errorf("gradeval: empty number")
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	ratio, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("gradeval: invalid number %q", s)
	}
	return ratio, nil
}

// Valid reports whether the value would parse, without needing a letter
// scale: letter notation is considered valid as long as the letters are
// well formed.
func Valid(value string) bool {
	if strings.EqualFold(value, "none") {
		return true
	}
	value = strings.TrimLeft(value, "+")
	value = strings.TrimPrefix(value, "-")
	return percentRe.MatchString(value) ||
		fractionRe.MatchString(value) ||
		(pointsRe.MatchString(value) && value != "" && value != ".") ||
		letterRe.MatchString(value)
}

// FormatPercent renders a ratio as a percentage with two decimal places,
// e.g. 7/8 becomes "87.50%".
func FormatPercent(ratio *big.Rat) string {
	scaled := new(big.Rat).Mul(ratio, big.NewRat(100, 1))
	return scaled.FloatString(2) + "%"
}
