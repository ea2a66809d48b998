package domain

// GainDelta describes one band whose displayed value differs from its target.
type GainDelta struct {
	Band Band
	From float64
	To   float64
}

// DiffGains returns the bands whose values differ between from and to.
// Iteration follows the closed band enumeration, so the result is deterministic.
func DiffGains(from, to GainMap) []GainDelta {
	var deltas []GainDelta
	for _, b := range Bands() {
		if from[b] != to[b] {
			deltas = append(deltas, GainDelta{Band: b, From: from[b], To: to[b]})
		}
	}
	return deltas
}
