package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/propoza/internal/actorcontext"
	"gorm.io/datatypes"
)

// AuditLog records who did what to which record. Lifecycle transitions and
// destructive operations write one row each.
type AuditLog struct {
	ID         snowflake.ID      `json:"id" gorm:"primaryKey"`
	ActorID    snowflake.ID      `json:"actor_id" gorm:"index"`
	ActorRole  actorcontext.Role `json:"actor_role" gorm:"size:16"`
	Action     string            `json:"action" gorm:"size:64;index;not null"`
	TargetType string            `json:"target_type" gorm:"size:64;not null"`
	TargetID   snowflake.ID      `json:"target_id" gorm:"index;not null"`
	Metadata   datatypes.JSONMap `json:"metadata" gorm:"type:jsonb"`
	CreatedAt  time.Time         `json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

type Entry struct {
	Actor      actorcontext.Actor
	Action     string
	TargetType string
	TargetID   snowflake.ID
	Metadata   datatypes.JSONMap
}

type Service interface {
	// Record persists an entry. Failures are logged, never surfaced: audit
	// must not fail the operation it describes.
	Record(ctx context.Context, entry Entry)
	List(ctx context.Context, targetType string, targetID snowflake.ID) ([]AuditLog, error)
}
