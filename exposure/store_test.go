package exposure

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/herald-go/herald/uuidkit"
)

func TestAddAndAggregate(t *testing.T) {
	s := NewStore(4, 4)
	tag := Tag{Agent: uuidkit.AgentHumanProximity, SensorClass: uuidkit.SensorClassBluetoothProximityHerald}

	require.NoError(t, s.Add(tag, Score{PeriodStart: 0, PeriodEnd: 10, Value: 1, Confidence: 1}))
	require.NoError(t, s.Add(tag, Score{PeriodStart: 10, PeriodEnd: 20, Value: 2, Confidence: 0.9}))

	agg, count := s.Aggregate(tag, 0, 20)
	require.Equal(t, 2, count)
	require.InDelta(t, 3.0, agg.Value, 0.0001)
	require.Equal(t, uint32(0), agg.PeriodStart)
	require.Equal(t, uint32(20), agg.PeriodEnd)
}

func TestAggregateExcludesDisjointWindow(t *testing.T) {
	s := NewStore(4, 4)
	tag := Tag{Agent: uuidkit.AgentHumanProximity}
	require.NoError(t, s.Add(tag, Score{PeriodStart: 0, PeriodEnd: 10, Value: 5}))
	require.NoError(t, s.Add(tag, Score{PeriodStart: 100, PeriodEnd: 110, Value: 7}))

	agg, count := s.Aggregate(tag, 0, 10)
	require.Equal(t, 1, count)
	require.InDelta(t, 5.0, agg.Value, 0.0001)
}

func TestNoFreeTagSlot(t *testing.T) {
	s := NewStore(1, 4)
	tag1 := Tag{Agent: uuidkit.AgentHumanProximity}
	tag2 := Tag{Agent: uuidkit.AgentSound}
	require.NoError(t, s.Add(tag1, Score{Value: 1}))
	require.ErrorIs(t, s.Add(tag2, Score{Value: 1}), ErrNoFreeTagSlot)
}

func TestRemoveFreesSlot(t *testing.T) {
	s := NewStore(1, 4)
	tag1 := Tag{Agent: uuidkit.AgentHumanProximity}
	tag2 := Tag{Agent: uuidkit.AgentSound}
	require.NoError(t, s.Add(tag1, Score{Value: 1}))
	s.Remove(tag1)
	require.NoError(t, s.Add(tag2, Score{Value: 1}))
}

func TestPerTagBoundEvictsOldest(t *testing.T) {
	s := NewStore(1, 2)
	tag := Tag{Agent: uuidkit.AgentHumanProximity}
	require.NoError(t, s.Add(tag, Score{PeriodStart: 0, PeriodEnd: 1, Value: 1}))
	require.NoError(t, s.Add(tag, Score{PeriodStart: 1, PeriodEnd: 2, Value: 2}))
	require.NoError(t, s.Add(tag, Score{PeriodStart: 2, PeriodEnd: 3, Value: 3}))

	agg, count := s.Aggregate(tag, 0, 3)
	require.Equal(t, 2, count)
	require.InDelta(t, 5.0, agg.Value, 0.0001) // first sample (value 1) evicted
}

func TestTagsForAgent(t *testing.T) {
	s := NewStore(4, 4)
	tagA := Tag{Agent: uuidkit.AgentHumanProximity, SensorInstanceID: uuidkit.Random()}
	tagB := Tag{Agent: uuidkit.AgentSound, SensorInstanceID: uuidkit.Random()}
	require.NoError(t, s.Add(tagA, Score{Value: 1}))
	require.NoError(t, s.Add(tagB, Score{Value: 1}))

	tags := s.TagsForAgent(uuidkit.AgentHumanProximity)
	require.Len(t, tags, 1)
	require.Equal(t, tagA, tags[0])
}
