package ordering

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/quartermaster-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/quartermaster-backend/pkg/errors"
	"github.com/angelmondragon/quartermaster-backend/pkg/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Manager keeps every scope's positions at exactly 1..N. All methods run on the
// caller's transaction handle and never commit; an error leaves the caller to
// roll back.
type Manager struct {
	metrics *metrics.DomainMetrics
}

// NewManager builds a Manager; m may be nil.
func NewManager(m *metrics.DomainMetrics) *Manager {
	return &Manager{metrics: m}
}

// List returns the scope's members sorted by position.
func (m *Manager) List(ctx context.Context, tx *gorm.DB, scope Scope) ([]Member, error) {
	def, err := m.resolve(ctx, tx, scope)
	if err != nil {
		return nil, err
	}
	return m.load(ctx, tx, def, scope, false)
}

// Append returns the position a new member of the scope must take.
func (m *Manager) Append(ctx context.Context, tx *gorm.DB, scope Scope) (int, error) {
	def, err := m.resolve(ctx, tx, scope)
	if err != nil {
		return 0, err
	}
	members, err := m.load(ctx, tx, def, scope, true)
	if err != nil {
		return 0, err
	}
	m.metrics.OrderingMutation(scope.Kind.String(), "append")
	return len(members) + 1, nil
}

// Insert creates row, which must carry the position Append returned. The
// scope lock only covers existing rows, so two first appends into an empty
// scope can pick the same slot; the loser gets a STATE_CONFLICT to retry.
func (m *Manager) Insert(ctx context.Context, tx *gorm.DB, scope Scope, row any) error {
	def, ok := kinds[scope.Kind]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown catalog kind").
			WithDetails(map[string]string{"kind": "is invalid"})
	}
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		// the position index is the only unique key besides the id
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "list changed concurrently").
				WithDetails(map[string]string{"position": "was taken by a concurrent change, retry"})
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("insert into %s", def.table))
	}
	return nil
}

// Reorder moves id inside its scope and returns the updated list.
func (m *Manager) Reorder(ctx context.Context, tx *gorm.DB, scope Scope, id uuid.UUID, move Move) ([]Member, error) {
	def, err := m.resolve(ctx, tx, scope)
	if err != nil {
		return nil, err
	}
	members, err := m.load(ctx, tx, def, scope, true)
	if err != nil {
		return nil, err
	}

	next, err := Apply(ids(members), id, move)
	if err != nil {
		return nil, m.sequenceError(ctx, tx, def, scope, id, err)
	}
	if err := m.persist(ctx, tx, def, members, next); err != nil {
		return nil, err
	}
	m.metrics.OrderingMutation(scope.Kind.String(), "reorder_"+move.String())
	return m.load(ctx, tx, def, scope, false)
}

// Remove deletes id (soft delete kinds get deleted_at stamped) and closes the gap.
func (m *Manager) Remove(ctx context.Context, tx *gorm.DB, scope Scope, id uuid.UUID) ([]Member, error) {
	def, err := m.resolve(ctx, tx, scope)
	if err != nil {
		return nil, err
	}
	members, err := m.load(ctx, tx, def, scope, true)
	if err != nil {
		return nil, err
	}

	next, err := Remove(ids(members), id)
	if err != nil {
		return nil, m.sequenceError(ctx, tx, def, scope, id, err)
	}

	if def.softDelete {
		err = tx.WithContext(ctx).Table(def.table).Where("id = ?", id).Update("deleted_at", time.Now().UTC()).Error
	} else {
		err = tx.WithContext(ctx).Exec("DELETE FROM "+def.table+" WHERE id = ?", id).Error
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete ordered member")
	}

	remaining := make([]Member, 0, len(members)-1)
	for _, member := range members {
		if member.ID != id {
			remaining = append(remaining, member)
		}
	}
	if err := m.persist(ctx, tx, def, remaining, next); err != nil {
		return nil, err
	}
	m.metrics.OrderingMutation(scope.Kind.String(), "remove")
	return m.load(ctx, tx, def, scope, false)
}

// Normalize rewrites a scope with gaps or duplicates to 1..N keeping the
// current relative order.
func (m *Manager) Normalize(ctx context.Context, tx *gorm.DB, scope Scope) ([]Member, error) {
	def, err := m.resolve(ctx, tx, scope)
	if err != nil {
		return nil, err
	}
	members, err := m.load(ctx, tx, def, scope, true)
	if err != nil {
		return nil, err
	}
	if err := m.persist(ctx, tx, def, members, ids(members)); err != nil {
		return nil, err
	}
	m.metrics.OrderingMutation(scope.Kind.String(), "normalize")
	return m.load(ctx, tx, def, scope, false)
}

// resolve validates the scope and, for nested kinds, that the parent exists
// inside the caller's tenant.
func (m *Manager) resolve(ctx context.Context, tx *gorm.DB, scope Scope) (kindDef, error) {
	def, ok := kinds[scope.Kind]
	if !ok {
		return kindDef{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown catalog kind").
			WithDetails(map[string]string{"kind": "is invalid"})
	}
	if scope.TenantID == uuid.Nil {
		return kindDef{}, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	if def.parentTable == "" {
		return def, nil
	}
	if scope.ParentID == uuid.Nil {
		return kindDef{}, pkgerrors.New(pkgerrors.CodeValidation, "parent id required").
			WithDetails(map[string]string{"parent_id": "is required"})
	}

	var parent struct {
		TenantID uuid.UUID
	}
	query := tx.WithContext(ctx).Table(def.parentTable).Select("tenant_id").Where("id = ?", scope.ParentID)
	if def.parentSoftDelete {
		query = query.Where("deleted_at IS NULL")
	}
	if err := query.Take(&parent).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return kindDef{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown parent").
				WithDetails(map[string]string{"parent_id": "does not exist"})
		}
		return kindDef{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ordering parent")
	}
	if parent.TenantID != scope.TenantID {
		return kindDef{}, pkgerrors.New(pkgerrors.CodeTenantViolation, "parent belongs to another tenant")
	}
	return def, nil
}

func (m *Manager) load(ctx context.Context, tx *gorm.DB, def kindDef, scope Scope, lock bool) ([]Member, error) {
	query := tx.WithContext(ctx).
		Table(def.table).
		Select("id, name, position").
		Where(def.scopeColumn+" = ?", scope.value())
	if def.softDelete {
		query = query.Where("deleted_at IS NULL")
	}
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var members []Member
	if err := query.Order("position ASC, id ASC").Scan(&members).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ordered scope")
	}
	return members, nil
}

// persist writes next as positions 1..N touching only rows whose position
// changes. Changed rows first move past the highest occupied position so the
// (scope, position) unique index never sees two rows on one slot.
func (m *Manager) persist(ctx context.Context, tx *gorm.DB, def kindDef, current []Member, next []uuid.UUID) error {
	oldPos := make(map[uuid.UUID]int, len(current))
	ceiling := len(next)
	for _, member := range current {
		oldPos[member.ID] = member.Position
		if member.Position > ceiling {
			ceiling = member.Position
		}
	}

	changed := make([]int, 0, len(next))
	for idx, id := range next {
		if oldPos[id] != idx+1 {
			changed = append(changed, idx)
		}
	}
	if len(changed) == 0 {
		return nil
	}

	for _, idx := range changed {
		if err := m.setPosition(ctx, tx, def, next[idx], ceiling+idx+1); err != nil {
			return err
		}
	}
	for _, idx := range changed {
		if err := m.setPosition(ctx, tx, def, next[idx], idx+1); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) setPosition(ctx context.Context, tx *gorm.DB, def kindDef, id uuid.UUID, position int) error {
	err := tx.WithContext(ctx).Table(def.table).Where("id = ?", id).Update("position", position).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("update %s position", def.table))
	}
	return nil
}

// sequenceError maps a sequence failure onto the public taxonomy. A member
// that is missing from the scope but exists under another tenant is reported
// as a tenant violation rather than as unknown.
func (m *Manager) sequenceError(ctx context.Context, tx *gorm.DB, def kindDef, scope Scope, id uuid.UUID, err error) error {
	switch {
	case errors.Is(err, ErrAlreadyFirst):
		return pkgerrors.New(pkgerrors.CodeValidation, "member is already first").
			WithDetails(map[string]string{"direction": "cannot move the first member up"})
	case errors.Is(err, ErrAlreadyLast):
		return pkgerrors.New(pkgerrors.CodeValidation, "member is already last").
			WithDetails(map[string]string{"direction": "cannot move the last member down"})
	case !errors.Is(err, ErrUnknownMember):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reorder")
	}

	tenantID, found, lookupErr := m.memberTenant(ctx, tx, def, id)
	if lookupErr != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, lookupErr, "lookup ordered member")
	}
	if found && tenantID != scope.TenantID {
		return pkgerrors.New(pkgerrors.CodeTenantViolation, "member belongs to another tenant")
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "unknown member").
		WithDetails(map[string]string{"id": "is not part of this list"})
}

func (m *Manager) memberTenant(ctx context.Context, tx *gorm.DB, def kindDef, id uuid.UUID) (uuid.UUID, bool, error) {
	var row struct {
		TenantID uuid.UUID
	}
	query := tx.WithContext(ctx)
	if def.parentTable == "" {
		query = query.Table(def.table).Select("tenant_id").Where("id = ?", id)
	} else {
		query = query.Table(def.table+" AS m").
			Select("p.tenant_id").
			Joins(fmt.Sprintf("JOIN %s AS p ON p.id = m.%s", def.parentTable, def.scopeColumn)).
			Where("m.id = ?", id)
	}
	if err := query.Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, err
	}
	return row.TenantID, true, nil
}

func ids(members []Member) []uuid.UUID {
	out := make([]uuid.UUID, len(members))
	for i, member := range members {
		out[i] = member.ID
	}
	return out
}
