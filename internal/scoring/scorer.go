// Package scoring implements the Scorer component: a composite
// similarity+recency+frequency score in [0,1], plus an explain()
// that exposes the three components for observability.
package scoring

import (
	"math"
	"time"

	"github.com/recurator/tram/internal/model"
)

// Weights are the Scorer's (similarity, recency, frequency) blend,
// defaulting to (0.5, 0.3, 0.2) and summing to 1.
type Weights struct {
	Similarity float64
	Recency    float64
	Frequency  float64
}

// DefaultWeights returns the default component weights (0.5/0.3/0.2).
func DefaultWeights() Weights {
	return Weights{Similarity: 0.5, Recency: 0.3, Frequency: 0.2}
}

// halfLives maps memory type to its recency half-life in days.
var halfLives = map[model.MemoryType]float64{
	model.TypeProcedural: 180,
	model.TypeFactual:    90,
	model.TypeProject:    45,
	model.TypeEpisodic:   10,
}

// UseCountRef is the reference use-count at which the frequency component
// saturates.
const UseCountRef = 100

// Explanation is the breakdown returned by Explain.
type Explanation struct {
	Score               float64
	SimilarityComponent float64
	RecencyComponent    float64
	FrequencyComponent  float64
	AgeDays             float64
	HalfLifeDays        float64
	Eligible            bool
}

// halfLife returns the half-life in days for a memory type, defaulting to
// the factual half-life for unrecognized types.
func halfLife(t model.MemoryType) float64 {
	if hl, ok := halfLives[t]; ok {
		return hl
	}
	return halfLives[model.TypeFactual]
}

// Score computes the composite score for a memory given a vector/lexical
// similarity in [0,1] and the current time.
func Score(m model.Memory, similarity float64, now time.Time, w Weights) float64 {
	return Explain(m, similarity, now, w).Score
}

// Explain computes the composite score and exposes its components, the
// effective age and half-life used, and injection eligibility.
func Explain(m model.Memory, similarity float64, now time.Time, w Weights) Explanation {
	hl := halfLife(m.MemoryType)

	var ageDays float64
	var recency float64
	if m.Pinned {
		recency = 1
	} else {
		ageDays = now.Sub(m.LastAccessedAt).Hours() / 24
		if ageDays < 0 {
			ageDays = 0
		}
		recency = math.Exp(-ageDays / hl)
		if m.Tier == model.TierCold {
			recency *= 0.5
		}
	}

	frequency := math.Log(1+float64(m.UseCount)) / math.Log(1+UseCountRef)

	score := w.Similarity*clamp01(similarity) + w.Recency*recency + w.Frequency*frequency
	score = clamp01(score)

	eligible := m.Pinned || (!m.DoNotInject && m.Tier != model.TierArchive)

	return Explanation{
		Score:               score,
		SimilarityComponent: similarity,
		RecencyComponent:    recency,
		FrequencyComponent:  frequency,
		AgeDays:             ageDays,
		HalfLifeDays:        hl,
		Eligible:            eligible,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
