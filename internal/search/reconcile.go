package search

// Reconcile min-max normalizes one backend's candidate scores onto
// [0,1] so lexical and vector scales become combinable.
//
// Floor and ceiling policy: floor = min(scores..., 0) and ceiling =
// max(scores..., 1). Negative scores clamp to the floor and sub-1
// ranges are not stretched; changing this policy changes fusion
// outcomes. When max == min every score normalizes to 1.0 (all equally
// relevant within the set), never NaN.
//
// Normalization is local to a single retrieval and recomputed every
// call; it is not calibrated across queries. Idempotent: reconciling an
// already-normalized set leaves it unchanged.
func Reconcile(candidates []*Candidate) []float64 {
	if len(candidates) == 0 {
		return nil
	}

	min, max := 0.0, 1.0
	for _, c := range candidates {
		if c.Score < min {
			min = c.Score
		}
		if c.Score > max {
			max = c.Score
		}
	}

	normalized := make([]float64, len(candidates))
	if max == min {
		for i := range normalized {
			normalized[i] = 1.0
		}
		return normalized
	}

	span := max - min
	for i, c := range candidates {
		n := (c.Score - min) / span
		if n < 0 {
			n = 0
		} else if n > 1 {
			n = 1
		}
		normalized[i] = n
	}
	return normalized
}
