package engine

import (
	"context"

	"github.com/MRamiBalles/worldstatus/internal/domain/role"
	"github.com/MRamiBalles/worldstatus/internal/domain/status"
	"github.com/MRamiBalles/worldstatus/internal/protocol"
)

// Store persists status records of player-controlled roles. Calls are
// awaited one mutation at a time and are not transactional with memory.
type Store interface {
	// Save inserts (rec.ID == 0) or updates a record and returns its id.
	Save(ctx context.Context, rec status.Record) (int64, error)
	Delete(ctx context.Context, rec status.Record) error
	GetByOwner(ctx context.Context, ownerID uint32) ([]status.Record, error)
}

// ClientSink delivers messages to connected game clients.
type ClientSink interface {
	// SendTo delivers to the client controlling roleID, if connected.
	SendTo(roleID uint32, msg protocol.Message)
	// BroadcastRoom delivers to every client that can see roleID, itself included.
	BroadcastRoom(roleID uint32, msg protocol.Message)
}

// AINotifier forwards flag changes to the companion AI process.
type AINotifier interface {
	NotifyStatus(msg protocol.MsgAiRoleStatusFlag)
}

// World is the combat and movement surface the dispatch table acts on.
type World interface {
	QueryRole(id uint32) (*role.Role, bool)
	ResetCombatState(r *role.Role)
	AbortCast(r *role.Role, force bool)
	Attack(attackerID uint32, target *role.Role, amount int)
	ApplyLifeDelta(target *role.Role, delta int) int
	GrantResource(owner *role.Role, res role.Resource, amount int)
	GrantExperience(owner *role.Role) int64
	CastArea(owner *role.Role, magicType uint16, x, y int)
	Kill(target *role.Role, killerID uint32)
}

type nopSink struct{}

func (nopSink) SendTo(uint32, protocol.Message)        {}
func (nopSink) BroadcastRoom(uint32, protocol.Message) {}

type nopAI struct{}

func (nopAI) NotifyStatus(protocol.MsgAiRoleStatusFlag) {}
