// Package grade maps numeric marks to letter grade bands.
package grade

// Letter is a letter grade band. Bands are ordered F < S < B < A.
type Letter string

const (
	A Letter = "A"
	B Letter = "B"
	S Letter = "S"
	F Letter = "F"
)

// Inclusive lower bounds of each band.
const (
	AThreshold = 75.0
	BThreshold = 60.0
	SThreshold = 40.0

	// PassMark is the lowest passing mark.
	PassMark = SThreshold
)

// Letters lists the bands from highest to lowest.
var Letters = []Letter{A, B, S, F}

// Classify maps a mark to its band. Any real number is accepted.
func Classify(mark float64) Letter {
	switch {
	case mark >= AThreshold:
		return A
	case mark >= BThreshold:
		return B
	case mark >= SThreshold:
		return S
	default:
		return F
	}
}

// IsPass reports whether a mark reaches the pass mark.
func IsPass(mark float64) bool {
	return mark >= PassMark
}

// Rank orders bands: F=0, S=1, B=2, A=3 (-1 for unknown letters).
func (l Letter) Rank() int {
	switch l {
	case A:
		return 3
	case B:
		return 2
	case S:
		return 1
	case F:
		return 0
	}
	return -1
}
