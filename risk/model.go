// Package risk implements the risk manager: registered risk models,
// dirty-tracking per model instance, and the produce/clear-dirty loop that
// turns newly injected exposures into risk scores, per §4.7 of the
// governing specification and herald/exposure/risk_manager.h.
package risk

import (
	"github.com/herald-go/herald/exposure"
	"github.com/herald-go/herald/uuidkit"
)

// Source lets a model request aggregated exposure data without ever
// holding a reference to raw exposures directly (§4.7, "Models are not
// permitted to retain references to exposures; they must request
// aggregates through the supplied source").
type Source interface {
	Aggregate(tag exposure.Tag, start, end uint32) (exposure.Score, int)
	TagsForAgent(agent uuidkit.Agent) []exposure.Tag
}

// Sink is where a model deposits the scores it produces. The manager hands
// each model a Sink pre-bound to that model's own tag, so models never see
// each other's stored scores (§4.7's WrappedRiskScoreStore equivalent).
type Sink interface {
	Score(s Score)
}

// Score is a model's output for one period, reusing the same shape as an
// exposure sample.
type Score = exposure.Score

// Parameters is the static personal risk-factor lookup, keyed by UUID
// (age, phenotypic sex, weight, ...), §4.7.
type Parameters map[uuidkit.UUID]float64

// Model is a registered risk-scoring algorithm. AlgorithmID identifies
// which model class this is; PotentiallyDirty decides whether a newly
// injected exposure should mark this model instance dirty; Produce walks
// the dirty window and emits scores through sink.
type Model interface {
	AlgorithmID() uuidkit.ModelClass
	PotentiallyDirty(agent uuidkit.Agent, sample exposure.Score) bool
	Produce(params Parameters, src Source, startTime, endTime, periodicity uint32, sink Sink)
}

// sinkFunc adapts a plain function to the Sink interface.
type sinkFunc func(Score)

func (f sinkFunc) Score(s Score) { f(s) }
