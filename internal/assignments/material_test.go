package assignments

import (
	"context"
	"testing"

	"github.com/angelmondragon/quartermaster-backend/pkg/db/dbtest"
	"github.com/angelmondragon/quartermaster-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/quartermaster-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueMaterialReissueReplacesQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	group := dbtest.MaterialGroup(t, f.conn, f.tenant.ID, "Badges", 1)
	badge := dbtest.Material(t, f.conn, group.ID, "Rank badge", 1)
	input := MaterialIssueInput{CadetID: f.cadetX.ID, MaterialID: badge.ID, Quantity: 2}

	first, err := f.svc.IssueMaterial(ctx, f.actor, input)
	require.NoError(t, err)
	same, err := f.svc.IssueMaterial(ctx, f.actor, input)
	require.NoError(t, err)
	assert.Equal(t, first.ID, same.ID)

	input.Quantity = 3
	updated, err := f.svc.IssueMaterial(ctx, f.actor, input)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, updated.ID)

	var rows []models.MaterialIssuance
	require.NoError(t, f.conn.Where("material_id = ?", badge.ID).Order("issued_at ASC").Find(&rows).Error)
	require.Len(t, rows, 2)
	open := 0
	for _, row := range rows {
		if row.ReturnedAt == nil {
			open++
			assert.Equal(t, 3, row.Quantity)
		}
	}
	assert.Equal(t, 1, open)

	require.NoError(t, f.svc.ReturnMaterial(ctx, f.actor, f.cadetX.ID, badge.ID))
	err = f.svc.ReturnMaterial(ctx, f.actor, f.cadetX.ID, badge.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestIssueMaterialValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	group := dbtest.MaterialGroup(t, f.conn, f.tenant.ID, "Badges", 1)
	badge := dbtest.Material(t, f.conn, group.ID, "Rank badge", 1)

	_, err := f.svc.IssueMaterial(ctx, f.actor, MaterialIssueInput{CadetID: f.cadetX.ID, MaterialID: badge.ID})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	other := dbtest.Tenant(t, f.conn)
	foreignGroup := dbtest.MaterialGroup(t, f.conn, other.ID, "Foreign", 1)
	foreign := dbtest.Material(t, f.conn, foreignGroup.ID, "Foreign badge", 1)
	_, err = f.svc.IssueMaterial(ctx, f.actor, MaterialIssueInput{CadetID: f.cadetX.ID, MaterialID: foreign.ID, Quantity: 1})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeTenantViolation))
}
