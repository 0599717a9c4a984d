// Package uuidkit implements the spec's 16-byte UUID type and the
// compile-time identity namespaces (Agent, SensorClass, ModelClass,
// RiskParameter) built on top of it. The backing array is
// github.com/google/uuid's [16]byte, forced to RFC 4122 v4 bits the same
// way the original C++ UUID constructor does it in every code path
// (uuid.h: "blanks out first 4 bits" / "blanks out first 2 bits" on bytes
// 6 and 8).
package uuidkit

import "github.com/google/uuid"

// UUID is a 16-byte identifier with RFC 4122 v4 bits forced on
// construction, matching herald/include/herald/datatype/uuid.h.
type UUID [16]byte

// forceV4 sets the version (byte 6, high nibble = 0100) and variant
// (byte 8, top two bits = 10) fields in place, exactly as every UUID
// constructor in the original sources does regardless of how the
// remaining bytes were produced.
func forceV4(b *[16]byte) {
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
}

// New builds a UUID from the given 16 bytes, forcing v4 bits.
func New(data [16]byte) UUID {
	forceV4(&data)
	return UUID(data)
}

// Unknown returns the all-zero (save for the forced v4 bits) UUID used to
// represent "no identity" in the Risk API.
func Unknown() UUID {
	return New([16]byte{})
}

// Random returns a fresh, cryptographically random v4 UUID.
func Random() UUID {
	u := uuid.New() // google/uuid already produces RFC 4122 v4
	return New([16]byte(u))
}

// FromString parses a canonical "xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx"
// string, forcing v4 bits on the result the same way the constructor
// taking raw bytes does.
func FromString(s string) (UUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return UUID{}, err
	}
	return New([16]byte(u)), nil
}

// Bytes returns u's 16 raw bytes.
func (u UUID) Bytes() [16]byte { return u }

func (u UUID) String() string {
	return uuid.UUID(u).String()
}

func (u UUID) Equal(o UUID) bool { return u == o }

// shortCoded builds an identity UUID with shortCode in byte 0 and kind in
// the last byte, the rest zeroed (before v4-bit forcing), matching the
// Agent/SensorClass/RiskParameter constructors in exposure_risk.h and
// exposure/parameters.h.
func shortCoded(shortCode, kind byte) UUID {
	var b [16]byte
	b[0] = shortCode
	b[15] = kind
	return New(b)
}

// Identity kind discriminators, placed in the last byte. Agent and
// SensorClass values (1, 2) and RiskParameter (3) come directly from the
// original sources; ModelClass (4) is this port's own extension of the
// same scheme to the fourth identity namespace the spec names but the
// retrieved C++ sources never materialize as a distinct type (algorithmId
// there reuses Agent) — see DESIGN.md.
const (
	kindAgent         byte = 1
	kindSensorClass   byte = 2
	kindRiskParameter byte = 3
	kindModelClass    byte = 4
)

// Agent identifies a kind of measured phenomenon (proximity, luminosity, ...).
type Agent UUID

func NewAgent(shortCode byte) Agent { return Agent(shortCoded(shortCode, kindAgent)) }
func (a Agent) UUID() UUID          { return UUID(a) }
func (a Agent) Equal(o Agent) bool  { return a == o }
func (a Agent) String() string      { return UUID(a).String() }

// SensorClass identifies the kind of sensor producing a sample.
type SensorClass UUID

func NewSensorClass(shortCode byte) SensorClass { return SensorClass(shortCoded(shortCode, kindSensorClass)) }
func (s SensorClass) UUID() UUID                { return UUID(s) }
func (s SensorClass) Equal(o SensorClass) bool   { return s == o }
func (s SensorClass) String() string             { return UUID(s).String() }

// ModelClass identifies a registered risk-model algorithm.
type ModelClass UUID

func NewModelClass(shortCode byte) ModelClass { return ModelClass(shortCoded(shortCode, kindModelClass)) }
func (m ModelClass) UUID() UUID               { return UUID(m) }
func (m ModelClass) Equal(o ModelClass) bool  { return m == o }
func (m ModelClass) String() string           { return UUID(m).String() }

// RiskParameter identifies a static personal risk factor (age, weight, ...).
type RiskParameter UUID

func NewRiskParameter(shortCode byte) RiskParameter {
	return RiskParameter(shortCoded(shortCode, kindRiskParameter))
}
func (r RiskParameter) UUID() UUID              { return UUID(r) }
func (r RiskParameter) Equal(o RiskParameter) bool { return r == o }
func (r RiskParameter) String() string          { return UUID(r).String() }

// Well-known agents, mirroring herald::datatype::agent in exposure_risk.h.
var (
	AgentHumanProximity = NewAgent(1)
	AgentLightBrightness = NewAgent(2)
	AgentLightRGBIR      = NewAgent(3)
	AgentRadiation       = NewAgent(4)
	AgentSound           = NewAgent(5)
)

// Well-known sensor classes, mirroring herald::datatype::sensorClass.
var (
	SensorClassBluetoothProximityHerald    = NewSensorClass(1)
	SensorClassBluetoothProximityOpenTrace = NewSensorClass(2)
	SensorClassBluetoothProximityGAEN      = NewSensorClass(3)
)

// Well-known risk parameters, mirroring herald::exposure::parameter.
var (
	RiskParameterWeight        = NewRiskParameter(1)
	RiskParameterPhenotypicSex = NewRiskParameter(2)
	RiskParameterAge           = NewRiskParameter(3)
)
