package model

// PlanReorder computes the new order of a status bucket.  current is the
// bucket in its present order, requested the ids the caller wants first.
// Every requested id must be a member of the bucket; repeated ids keep
// their first position.  Members that were not mentioned follow in their
// original relative order, so the result always has len(current) items.
func PlanReorder(current, requested []uint64) ([]uint64, error) {
	member := make(map[uint64]bool, len(current))
	for _, id := range current {
		member[id] = true
	}
	placed := make(map[uint64]bool, len(requested))
	out := make([]uint64, 0, len(current))
	for _, id := range requested {
		if !member[id] {
			return nil, Errorf(KindOutOfBucket, "song %d is not in the requested bucket", id)
		}
		if placed[id] {
			continue
		}
		placed[id] = true
		out = append(out, id)
	}
	for _, id := range current {
		if !placed[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

// NextIndex returns the order index for a song appended to a bucket whose
// current maximum index is max; hasAny is false for an empty bucket.
func NextIndex(max int, hasAny bool) int {
	if !hasAny {
		return 0
	}
	return max + 1
}
