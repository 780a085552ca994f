package results

import "sort"

// RankAssignment pairs a result id with its recomputed 1-based rank.
type RankAssignment struct {
	ResultID int64
	Rank     int
}

// RankOrder recomputes the full standings for one bank's records: percentage
// correct descending, ties broken by earliest submission, then by id so the
// order is total. The returned ranks are always the permutation 1..len(records).
func RankOrder(records []ResultRecord) []RankAssignment {
	sorted := make([]ResultRecord, len(records))
	copy(sorted, records)

	sort.SliceStable(sorted, func(i, j int) bool {
		pi, pj := percentage(sorted[i]), percentage(sorted[j])
		if pi != pj {
			return pi > pj
		}
		if !sorted[i].SubmittedAt.Equal(sorted[j].SubmittedAt) {
			return sorted[i].SubmittedAt.Before(sorted[j].SubmittedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	out := make([]RankAssignment, len(sorted))
	for i, rec := range sorted {
		out[i] = RankAssignment{ResultID: rec.ID, Rank: i + 1}
	}
	return out
}

func percentage(r ResultRecord) float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Total)
}
