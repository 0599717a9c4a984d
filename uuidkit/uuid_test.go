package uuidkit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestForceV4Bits(t *testing.T) {
	u := New([16]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff})
	require.Equal(t, byte(0x4f), u[6])
	require.Equal(t, byte(0xbf), u[8])
}

func TestRandomIsV4(t *testing.T) {
	u := Random()
	require.Equal(t, byte(0x40), u[6]&0xf0)
	require.Equal(t, byte(0x80), u[8]&0xc0)
}

func TestStringRoundTrip(t *testing.T) {
	u := Random()
	got, err := FromString(u.String())
	require.NoError(t, err)
	require.True(t, u.Equal(got))
}

func TestUnknownIsStable(t *testing.T) {
	require.True(t, Unknown().Equal(Unknown()))
}

func TestAgentShortCodeAndKind(t *testing.T) {
	a := NewAgent(5)
	b := a.UUID().Bytes()
	require.Equal(t, byte(5), b[0])
	require.Equal(t, kindAgent, b[15])
}

func TestSensorClassShortCodeAndKind(t *testing.T) {
	s := NewSensorClass(2)
	b := s.UUID().Bytes()
	require.Equal(t, byte(2), b[0])
	require.Equal(t, kindSensorClass, b[15])
}

func TestRiskParameterShortCodeAndKind(t *testing.T) {
	r := NewRiskParameter(3)
	b := r.UUID().Bytes()
	require.Equal(t, byte(3), b[0])
	require.Equal(t, kindRiskParameter, b[15])
}

func TestModelClassShortCodeAndKind(t *testing.T) {
	m := NewModelClass(7)
	b := m.UUID().Bytes()
	require.Equal(t, byte(7), b[0])
	require.Equal(t, kindModelClass, b[15])
}

func TestDistinctKindsNeverEqual(t *testing.T) {
	a := NewAgent(1)
	s := NewSensorClass(1)
	require.NotEqual(t, a.UUID(), s.UUID())
}

func TestWellKnownAgentsDistinct(t *testing.T) {
	require.False(t, AgentHumanProximity.Equal(AgentLightBrightness))
	require.False(t, AgentLightRGBIR.Equal(AgentRadiation))
	require.False(t, AgentRadiation.Equal(AgentSound))
}
