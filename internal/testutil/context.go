package testutil

import (
	"context"

	"github.com/rentwise/rentwise/internal/types"
)

// DefaultOrgID is the organization used by service tests
const DefaultOrgID = "org_00000000000000000000000001"

func SetupContext() context.Context {
	ctx := context.Background()
	ctx = types.SetOrgID(ctx, DefaultOrgID)
	ctx = types.SetUserID(ctx, types.SystemUserID)
	ctx = types.SetRequestID(ctx, types.GenerateUUID())
	return ctx
}
