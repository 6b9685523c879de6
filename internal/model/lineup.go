package model

// Availability joins a song's manifest with approved counts per instrument.
func Availability(slots []InstrumentSlot, approved map[string]int) []SlotAvailability {
	out := make([]SlotAvailability, 0, len(slots))
	for _, s := range slots {
		n := approved[s.Instrument]
		rem := s.Slots - n
		if rem < 0 {
			rem = 0
		}
		out = append(out, SlotAvailability{InstrumentSlot: s, Approved: n, Remaining: rem})
	}
	return out
}

// ApprovedCounts tallies approved candidates per instrument.
func ApprovedCounts(candidates []Candidate) map[string]int {
	counts := make(map[string]int)
	for _, c := range candidates {
		if c.Status == CandidateApproved {
			counts[c.Instrument]++
		}
	}
	return counts
}

// LineupComplete reports whether every required instrument has at least
// one approved performer.  It is informational only and never sets Ready.
func LineupComplete(slots []InstrumentSlot, approved map[string]int) bool {
	for _, s := range slots {
		if s.Required && approved[s.Instrument] == 0 {
			return false
		}
	}
	return true
}

// ValidateManifest checks a replacement manifest: unique non-empty
// instrument keys with at least one slot each.
func ValidateManifest(slots []InstrumentSlot) error {
	seen := make(map[string]bool, len(slots))
	for _, s := range slots {
		if s.Instrument == "" {
			return Errorf(KindInvalidInput, "instrument is required")
		}
		if s.Slots < 1 {
			return Errorf(KindInvalidInput, "instrument %q needs at least one slot", s.Instrument)
		}
		if seen[s.Instrument] {
			return Errorf(KindInvalidInput, "instrument %q listed twice", s.Instrument)
		}
		seen[s.Instrument] = true
	}
	return nil
}

// CheckManifestFits verifies that replacing the manifest keeps the
// capacity invariant for already approved candidates.
func CheckManifestFits(slots []InstrumentSlot, approved map[string]int) error {
	capacity := make(map[string]int, len(slots))
	for _, s := range slots {
		capacity[s.Instrument] = s.Slots
	}
	for inst, n := range approved {
		if n == 0 {
			continue
		}
		c, ok := capacity[inst]
		if !ok {
			return Errorf(KindInvalidState, "instrument %q has approved performers and cannot be removed", inst)
		}
		if n > c {
			return Errorf(KindCapacityExceeded, "instrument %q already has %d approved performers", inst, n)
		}
	}
	return nil
}
