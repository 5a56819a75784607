package domain

import (
	"fmt"
	"strings"
)

// Bias is one of the five editorial-lean classes, or Unclassified for
// channels missing from the outlet registry.
type Bias string

const (
	BiasLeft         Bias = "left"
	BiasLeanLeft     Bias = "lean-left"
	BiasCenter       Bias = "center"
	BiasLeanRight    Bias = "lean-right"
	BiasRight        Bias = "right"
	BiasUnclassified Bias = "unclassified"
)

var biasOrder = []Bias{BiasLeft, BiasLeanLeft, BiasCenter, BiasLeanRight, BiasRight}

// Biases returns the classes from left to right.
func Biases() []Bias {
	out := make([]Bias, len(biasOrder))
	copy(out, biasOrder)
	return out
}

// Valid reports whether b is one of the five classes.
func (b Bias) Valid() bool {
	for _, known := range biasOrder {
		if b == known {
			return true
		}
	}
	return false
}

// Rank orders biases left to right; Unclassified and unknown values sort last.
func (b Bias) Rank() int {
	for i, known := range biasOrder {
		if b == known {
			return i
		}
	}
	return len(biasOrder)
}

// ParseBias normalises free-form input such as "Lean Left" or "lean_left".
func ParseBias(raw string) (Bias, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer("_", "-", " ", "-").Replace(s)
	b := Bias(s)
	if !b.Valid() {
		return "", fmt.Errorf("unknown bias %q (expected left, lean-left, center, lean-right or right)", raw)
	}
	return b, nil
}
