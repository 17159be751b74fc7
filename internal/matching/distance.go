package matching

// Distance is the L1 (Manhattan) distance between two letter profiles: the
// sum over a-z of the absolute difference in counts. It is symmetric, zero
// only for identical profiles, and does not depend on the source string
// lengths once the profiles exist.
func Distance(a, b LetterProfile) int {
	d := 0
	for i := range a {
		diff := a[i] - b[i]
		if diff < 0 {
			diff = -diff
		}
		d += diff
	}
	return d
}
