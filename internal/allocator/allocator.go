// Package allocator selects the final ordered injection set from scored
// candidates under per-tier percentage budgets and a max-items cap.
package allocator

import (
	"math"
	"sort"

	"github.com/recurator/tram/internal/config"
	"github.com/recurator/tram/internal/model"
)

// Candidate is one scored memory eligible for allocation.
type Candidate struct {
	Memory     model.Memory
	Similarity float64
	Score      float64
}

// Breakdown reports how many slots each bucket used.
type Breakdown struct {
	Pinned  int
	Hot     int
	Warm    int
	Cold    int
	Archive int
}

// Result is the Allocator's output.
type Result struct {
	Selected        []Candidate
	Breakdown       Breakdown
	TotalConsidered int
	ExcludedCount   int
}

// Allocate selects up to maxItems candidates under the given profile's
// tier budgets.
func Allocate(candidates []Candidate, maxItems int, profile config.RetrievalProfile) Result {
	result := Result{TotalConsidered: len(candidates)}

	var eligible []Candidate
	for _, c := range candidates {
		if c.Memory.Pinned {
			eligible = append(eligible, c)
			continue
		}
		if c.Memory.DoNotInject {
			result.ExcludedCount++
			continue
		}
		if c.Memory.Tier == model.TierArchive && profile.Archive <= 0 {
			result.ExcludedCount++
			continue
		}
		eligible = append(eligible, c)
	}

	pinnedSlots := bucketSlots(maxItems, profile.Pinned)
	hotSlots := bucketSlots(maxItems, profile.Hot)
	warmSlots := bucketSlots(maxItems, profile.Warm)
	coldSlots := bucketSlots(maxItems, profile.Cold)
	archiveSlots := bucketSlots(maxItems, profile.Archive)

	var pinned, hot, warm, cold, archive []Candidate
	for _, c := range eligible {
		switch {
		case c.Memory.Pinned:
			pinned = append(pinned, c)
		case c.Memory.Tier == model.TierHot:
			hot = append(hot, c)
		case c.Memory.Tier == model.TierWarm:
			warm = append(warm, c)
		case c.Memory.Tier == model.TierCold:
			cold = append(cold, c)
		case c.Memory.Tier == model.TierArchive:
			archive = append(archive, c)
		}
	}

	takePinned := takeTopN(pinned, pinnedSlots)
	takeHot := takeTopN(hot, hotSlots)
	takeWarm := takeTopN(warm, warmSlots)
	takeCold := takeTopN(cold, coldSlots)
	takeArchive := takeTopN(archive, archiveSlots)

	result.Breakdown = Breakdown{
		Pinned:  len(takePinned),
		Hot:     len(takeHot),
		Warm:    len(takeWarm),
		Cold:    len(takeCold),
		Archive: len(takeArchive),
	}

	selected := make([]Candidate, 0, len(takePinned)+len(takeHot)+len(takeWarm)+len(takeCold)+len(takeArchive))
	selected = append(selected, takePinned...)
	selected = append(selected, takeHot...)
	selected = append(selected, takeWarm...)
	selected = append(selected, takeCold...)
	selected = append(selected, takeArchive...)

	sortByScoreDesc(selected)
	result.Selected = selected
	return result
}

func bucketSlots(maxItems int, pct int) int {
	return int(math.Floor(float64(maxItems) * float64(pct) / 100))
}

// takeTopN returns the n highest-scored candidates from bucket, ordered by
// score desc then (created_at asc, id) for deterministic ties.
func takeTopN(bucket []Candidate, n int) []Candidate {
	if n <= 0 || len(bucket) == 0 {
		return nil
	}
	sorted := make([]Candidate, len(bucket))
	copy(sorted, bucket)
	sortByScoreDesc(sorted)
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

func sortByScoreDesc(cs []Candidate) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].Score != cs[j].Score {
			return cs[i].Score > cs[j].Score
		}
		if !cs[i].Memory.CreatedAt.Equal(cs[j].Memory.CreatedAt) {
			return cs[i].Memory.CreatedAt.Before(cs[j].Memory.CreatedAt)
		}
		return cs[i].Memory.ID < cs[j].Memory.ID
	})
}
