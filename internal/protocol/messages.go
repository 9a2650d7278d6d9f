// Package protocol defines the messages the status engine exchanges with the
// game client and the companion AI process. Byte-level framing is left to the
// transport; here every message is a JSON document wrapped in an Envelope.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/MRamiBalles/worldstatus/internal/domain/status"
)

// Message is anything that can be sent to a client or the AI process.
type Message interface {
	MessageType() string
}

// Envelope is the JSON frame written to the websocket.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Encode wraps a message in its envelope.
func Encode(m Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", m.MessageType(), err)
	}
	return json.Marshal(Envelope{Type: m.MessageType(), Data: data})
}

// UpdateType names the counter carried by an attribute sync.
type UpdateType string

const (
	UpdateStatusFlag       UpdateType = "StatusFlag"
	UpdateHitpoints        UpdateType = "Hitpoints"
	UpdateStamina          UpdateType = "Stamina"
	UpdateLuckyTime        UpdateType = "LuckyTimer"
	UpdateAzureShield      UpdateType = "AzureShield"
	UpdateSoulShackleTimer UpdateType = "SoulShackleTimer"
	UpdateExperience       UpdateType = "Experience"
)

// Attribute-sync tag constants.
const (
	TagMagicDefender uint32 = 0x80
	TagAzureShield   uint32 = 93
	TagSoulShackle   uint32 = 111
)

// MsgStatusFlag broadcasts the full three-word flag state of a role.
type MsgStatusFlag struct {
	Identity uint32 `json:"identity"`
	Flag1    uint64 `json:"flag1"`
	Flag2    uint64 `json:"flag2"`
	Flag3    uint64 `json:"flag3"`
}

func (MsgStatusFlag) MessageType() string { return "status_flag" }

// NewStatusFlag builds the flag broadcast from the mirrored words.
func NewStatusFlag(identity uint32, f status.FlagWords) MsgStatusFlag {
	return MsgStatusFlag{Identity: identity, Flag1: f[0], Flag2: f[1], Flag3: f[2]}
}

// RaceTrackEffect is one movement/race-status display entry.
type RaceTrackEffect struct {
	Attribute int   `json:"attribute"`
	Active    int   `json:"active"`
	Amount    int32 `json:"amount"`
	Display   int32 `json:"display"`
	Time      int   `json:"time"` // remaining seconds
}

// Race-track active bits.
const (
	RaceActiveSlow    = 0x2
	RaceActiveDisplay = 1 << 8
)

// MsgRaceTrackStatus updates the movement status display of a role.
type MsgRaceTrackStatus struct {
	Identity uint32            `json:"identity"`
	Effects  []RaceTrackEffect `json:"effects"`
}

func (MsgRaceTrackStatus) MessageType() string { return "race_track_status" }

// MsgSyncAttribute is the generic attribute-sync update.
type MsgSyncAttribute struct {
	Identity uint32     `json:"identity"`
	Counter  UpdateType `json:"counter"`
	Values   []uint64   `json:"values"`
}

func (MsgSyncAttribute) MessageType() string { return "sync_attribute" }

// AuraAction tells the client whether an aura starts or stops.
type AuraAction int

const (
	AuraAttach AuraAction = 1
	AuraDetach AuraAction = 2
)

// MsgAura notifies aura attach/detach.
type MsgAura struct {
	Action   AuraAction      `json:"action"`
	Aura     status.AuraType `json:"aura"`
	Identity uint32          `json:"identity"` // caster
	Level    uint8           `json:"level"`
	Power0   int32           `json:"power0"`
	Power1   int32           `json:"power1"`
}

func (MsgAura) MessageType() string { return "aura" }

// MagicEffectTarget is one hit of a magic effect visual.
type MagicEffectTarget struct {
	Identity uint32 `json:"identity"`
	Damage   int    `json:"damage"`
	Show     bool   `json:"show"`
}

// MsgMagicEffect is the damage visual broadcast to the room.
type MsgMagicEffect struct {
	AttackerIdentity uint32              `json:"attacker"`
	MagicIdentity    uint16              `json:"magic"`
	Targets          []MagicEffectTarget `json:"targets"`
}

func (MsgMagicEffect) MessageType() string { return "magic_effect" }

// Append adds a target hit.
func (m *MsgMagicEffect) Append(identity uint32, damage int, show bool) {
	m.Targets = append(m.Targets, MagicEffectTarget{Identity: identity, Damage: damage, Show: show})
}

// AI flag-change modes.
const (
	AIModeAdd    = 0
	AIModeRemove = 1
)

// MsgAiRoleStatusFlag notifies the companion AI process of a flag change.
type MsgAiRoleStatusFlag struct {
	Identity uint32    `json:"identity"`
	Caster   uint32    `json:"caster"`
	Duration int       `json:"duration"`
	Steps    int       `json:"steps"`
	Flag     status.ID `json:"flag"`
	Mode     int       `json:"mode"`
}

func (MsgAiRoleStatusFlag) MessageType() string { return "ai_role_status_flag" }
