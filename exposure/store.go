// Package exposure implements the exposure store: a fixed-capacity,
// tagged container of aggregated exposure samples, keyed by
// (agent, sensorClass, sensorInstance), per §4.7 of the governing
// specification and herald/datatype/exposure_risk.h's ExposureArray/
// ExposureSet shape.
package exposure

import (
	"fmt"
	"sync"

	"github.com/herald-go/herald/uuidkit"
)

// Score is the common shape of an exposure sample or a risk score: a
// time window, a value, and a confidence, mirroring exposure_risk.h's
// Score struct. risk.Score is a type alias of this type, so exposure
// samples and risk scores are the same Go type.
type Score struct {
	PeriodStart uint32
	PeriodEnd   uint32
	Value       float64
	Confidence  float64
}

// Add combines two overlapping-or-adjacent scores by summing value and
// taking the wider time window and the lower confidence, mirroring the
// additive combination rule implied by Score::operator+= in
// exposure_risk.h.
func (s Score) Add(o Score) Score {
	out := Score{
		PeriodStart: s.PeriodStart,
		PeriodEnd:   s.PeriodEnd,
		Value:       s.Value + o.Value,
		Confidence:  s.Confidence,
	}
	if o.PeriodStart < out.PeriodStart {
		out.PeriodStart = o.PeriodStart
	}
	if o.PeriodEnd > out.PeriodEnd {
		out.PeriodEnd = o.PeriodEnd
	}
	if o.Confidence < out.Confidence {
		out.Confidence = o.Confidence
	}
	return out
}

// Tag identifies the source of a stored exposure, mirroring
// ExposureMetadata: an agent, the sensor class that measured it, and the
// specific sensor instance, plus which model (if any) is entitled to see
// it.
type Tag struct {
	Agent            uuidkit.Agent
	SensorClass      uuidkit.SensorClass
	SensorInstanceID uuidkit.UUID
	ModelClassID     uuidkit.UUID
}

// Store is a fixed number of (Tag, bounded array of Score) slots. Lookup
// is O(tags); inserting a sample under a brand new tag succeeds only while
// a tag slot remains free (§4.7).
type Store struct {
	mu       sync.Mutex
	tags     []Tag
	used     []bool
	samples  [][]Score
	perTagN  int
}

// NewStore builds a Store with room for `capacity` distinct tags, each
// holding up to `perTag` samples.
func NewStore(capacity, perTag int) *Store {
	return &Store{
		tags:    make([]Tag, capacity),
		used:    make([]bool, capacity),
		samples: make([][]Score, capacity),
		perTagN: perTag,
	}
}

var ErrNoFreeTagSlot = fmt.Errorf("exposure: no free tag slot")

func (s *Store) findLocked(tag Tag) int {
	for i, used := range s.used {
		if used && s.tags[i] == tag {
			return i
		}
	}
	return -1
}

// Add inserts a sample under tag, allocating a new tag slot if tag is
// unseen. The sample array for a tag is itself bounded: once full, the
// oldest sample is evicted to make room (a ring, not an error) — fixed
// capacity containers must never grow.
func (s *Store) Add(tag Tag, sample Score) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.findLocked(tag)
	if idx == -1 {
		for i, used := range s.used {
			if !used {
				idx = i
				break
			}
		}
		if idx == -1 {
			return ErrNoFreeTagSlot
		}
		s.tags[idx] = tag
		s.used[idx] = true
		s.samples[idx] = nil
	}
	arr := s.samples[idx]
	if len(arr) >= s.perTagN {
		arr = arr[1:]
	}
	s.samples[idx] = append(arr, sample)
	return nil
}

// Remove frees tag's slot entirely, by tag key.
func (s *Store) Remove(tag Tag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.findLocked(tag); idx != -1 {
		s.used[idx] = false
		s.tags[idx] = Tag{}
		s.samples[idx] = nil
	}
}

// Aggregate sums the Value of every sample under tag whose window
// [PeriodStart, PeriodEnd] overlaps [start, end], returning the combined
// Score and the count of samples folded in.
func (s *Store) Aggregate(tag Tag, start, end uint32) (Score, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.findLocked(tag)
	if idx == -1 {
		return Score{}, 0
	}
	var (
		acc   Score
		count int
	)
	for _, sample := range s.samples[idx] {
		if sample.PeriodEnd < start || sample.PeriodStart > end {
			continue
		}
		if count == 0 {
			acc = sample
		} else {
			acc = acc.Add(sample)
		}
		count++
	}
	return acc, count
}

// TagsForAgent returns every currently-used tag whose Agent matches agent,
// the entry point models use to discover what sensor instances measured
// the phenomenon they care about.
func (s *Store) TagsForAgent(agent uuidkit.Agent) []Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Tag
	for i, used := range s.used {
		if used && s.tags[i].Agent == agent {
			out = append(out, s.tags[i])
		}
	}
	return out
}
