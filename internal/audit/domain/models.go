package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// AuditLog records one administrative mutation or authorization decision.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID      *snowflake.ID     `gorm:"column:organization_id;index" json:"organizationId,omitempty"`
	ActorID    string            `gorm:"column:actor_id;type:text" json:"actorId"`
	Action     string            `gorm:"type:text;not null" json:"action"`
	TargetType string            `gorm:"column:target_type;type:text;not null" json:"targetType"`
	TargetID   string            `gorm:"column:target_id;type:text" json:"targetId"`
	Metadata   datatypes.JSONMap `gorm:"column:metadata" json:"metadata"`
	RequestID  string            `gorm:"column:request_id;type:text" json:"requestId,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;index" json:"createdAt"`
}

func (AuditLog) TableName() string { return "audit_logs" }
