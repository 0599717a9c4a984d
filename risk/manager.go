package risk

import (
	"fmt"
	"sync"

	"github.com/herald-go/herald/exposure"
	"github.com/herald-go/herald/uuidkit"
)

// instanceState is the per-model-instance bookkeeping the manager keeps:
// which model and tag it's registered under, its dirty flag, and its
// overlapping (periodStart, periodEnd) window, mirroring
// RiskModelInstanceMetadata in risk_manager.h.
type instanceState struct {
	instanceID uuidkit.UUID
	agent      uuidkit.Agent
	model      Model

	dirty       bool
	periodStart uint32
	periodEnd   uint32

	scores []Score
}

// Manager holds the registered model instances, static parameters, and a
// global period anchor/interval, and runs the event-driven dirty-tracking
// and produce/clear-dirty loop described in §4.7.
type Manager struct {
	mu         sync.Mutex
	instances  []*instanceState
	params     Parameters
	anchor     uint32
	periodSecs uint32
	capacity   int
}

var ErrNoFreeInstanceSlot = fmt.Errorf("risk: no free model instance slot")

// NewManager builds a Manager with room for `capacity` model instances.
func NewManager(capacity int, params Parameters, anchor, periodSecs uint32) *Manager {
	return &Manager{params: params, anchor: anchor, periodSecs: periodSecs, capacity: capacity}
}

// AddModel registers a model instance under instanceID, targeting agent.
func (m *Manager) AddModel(instanceID uuidkit.UUID, agent uuidkit.Agent, model Model) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inst := range m.instances {
		if inst.instanceID == instanceID {
			return nil // already registered; metadata-only update has nothing to change yet.
		}
	}
	if len(m.instances) >= m.capacity {
		return ErrNoFreeInstanceSlot
	}
	m.instances = append(m.instances, &instanceState{instanceID: instanceID, agent: agent, model: model})
	return nil
}

// InjectExposure marks every registered model instance whose
// PotentiallyDirty returns true as dirty, widening its overlap window to
// include sample's window, then runs produce() for every dirty instance
// and clears its dirty flag (§4.7's event path, steps 1-4).
func (m *Manager) InjectExposure(src Source, tag exposure.Tag, sample Score) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, inst := range m.instances {
		if !inst.model.PotentiallyDirty(tag.Agent, sample) {
			continue
		}
		if inst.dirty {
			if sample.PeriodStart < inst.periodStart {
				inst.periodStart = sample.PeriodStart
			}
			if sample.PeriodEnd > inst.periodEnd {
				inst.periodEnd = sample.PeriodEnd
			}
		} else {
			inst.dirty = true
			inst.periodStart = sample.PeriodStart
			inst.periodEnd = sample.PeriodEnd
		}
	}

	for _, inst := range m.instances {
		if !inst.dirty {
			continue
		}
		startTime, endTime := m.overlappingWindow(inst)
		sink := sinkFunc(func(s Score) { inst.scores = append(inst.scores, s) })
		inst.model.Produce(m.params, src, startTime, endTime, m.periodSecs, sink)
		inst.dirty = false
	}
}

// overlappingWindow widens the instance's dirty window to also cover every
// score already stored for it, mirroring calculateOverlappingTimePeriod:
// the output always starts from the dirty window (so the very first
// produce() call still has a window to work with) and grows to include
// any stored score outside it.
func (m *Manager) overlappingWindow(inst *instanceState) (start, end uint32) {
	start, end = inst.periodStart, inst.periodEnd
	for _, s := range inst.scores {
		if s.PeriodStart < start {
			start = s.PeriodStart
		}
		if s.PeriodEnd > end {
			end = s.PeriodEnd
		}
	}
	return start, end
}

// Scores returns a copy of the risk scores accumulated for instanceID.
func (m *Manager) Scores(instanceID uuidkit.UUID) []Score {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inst := range m.instances {
		if inst.instanceID == instanceID {
			return append([]Score(nil), inst.scores...)
		}
	}
	return nil
}

// Dirty reports whether instanceID currently has a pending (uncomputed)
// window, for tests and diagnostics.
func (m *Manager) Dirty(instanceID uuidkit.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inst := range m.instances {
		if inst.instanceID == instanceID {
			return inst.dirty
		}
	}
	return false
}
