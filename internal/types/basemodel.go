package types

import (
	"context"
	"time"
)

// BaseModel carries the audit columns shared by every persisted bill record
// Any changes to this model should be reflected in the database schema by running migrations
type BaseModel struct {
	OrgID     string    `db:"org_id" json:"org_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	UpdatedBy string    `db:"updated_by" json:"updated_by"`
}

// GetDefaultBaseModel stamps a new record for the organization and user in ctx.
// Background runs without a user are attributed to SystemUserID.
func GetDefaultBaseModel(ctx context.Context) BaseModel {
	now := time.Now().UTC()
	userID := GetUserID(ctx)
	if userID == "" {
		userID = SystemUserID
	}
	return BaseModel{
		OrgID:     GetOrgID(ctx),
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: userID,
		UpdatedBy: userID,
	}
}
