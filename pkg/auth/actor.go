package auth

import (
	"github.com/angelmondragon/quartermaster-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quartermaster-backend/pkg/errors"
	"github.com/google/uuid"
)

// Actor is the authenticated caller: every service query is scoped to TenantID.
type Actor struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	Role     enums.UserRole
}

// Require fails with FORBIDDEN unless the actor holds at least min.
func (a Actor) Require(min enums.UserRole) error {
	if a.TenantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "tenant context required")
	}
	if !a.Role.AtLeast(min) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role").
			WithDetails(map[string]any{"required_role": min.String()})
	}
	return nil
}

// OwnsTenant returns a TENANT_VIOLATION unless tenantID is the actor's tenant.
func (a Actor) OwnsTenant(tenantID uuid.UUID) error {
	if tenantID != a.TenantID {
		return pkgerrors.New(pkgerrors.CodeTenantViolation, "cross tenant reference")
	}
	return nil
}
