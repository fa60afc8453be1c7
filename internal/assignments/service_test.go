package assignments

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/quartermaster-backend/pkg/auth"
	"github.com/angelmondragon/quartermaster-backend/pkg/db"
	"github.com/angelmondragon/quartermaster-backend/pkg/db/dbtest"
	"github.com/angelmondragon/quartermaster-backend/pkg/db/models"
	"github.com/angelmondragon/quartermaster-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quartermaster-backend/pkg/errors"
	"github.com/angelmondragon/quartermaster-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	client  *db.Client
	conn    *gorm.DB
	svc     Service
	actor   auth.Actor
	tenant  models.Tenant
	jacket  models.UniformType
	cadetX  models.Cadet
	cadetY  models.Cadet
	uniform models.Uniform
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client := dbtest.New(t)
	conn := client.DB()
	tenant := dbtest.Tenant(t, conn)
	jacket := dbtest.UniformType(t, conn, tenant.ID, "Jacket", 1, 1)
	svc, err := NewService(NewRepository(conn), client, nil)
	require.NoError(t, err)
	return fixture{
		client:  client,
		conn:    conn,
		svc:     svc,
		actor:   auth.Actor{UserID: uuid.New(), TenantID: tenant.ID, Role: enums.UserRoleInspector},
		tenant:  tenant,
		jacket:  jacket,
		cadetX:  dbtest.Cadet(t, conn, tenant.ID, "Xavier", "Ames"),
		cadetY:  dbtest.Cadet(t, conn, tenant.ID, "Yara", "Bell"),
		uniform: dbtest.Uniform(t, conn, jacket.ID, 1148),
	}
}

func (f fixture) openIssuances(t *testing.T, uniformID uuid.UUID) []models.UniformIssuance {
	t.Helper()
	var rows []models.UniformIssuance
	require.NoError(t, f.conn.Where("uniform_id = ? AND returned_at IS NULL", uniformID).Find(&rows).Error)
	return rows
}

func byID(id uuid.UUID) Selector {
	return Selector{UniformID: &id}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	client := dbtest.New(t)
	_, err := NewService(nil, client, nil)
	require.Error(t, err)
	_, err = NewService(NewRepository(client.DB()), nil, nil)
	require.Error(t, err)
}

func TestIssueForceReassigns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dbtest.Issue(t, f.conn, f.uniform.ID, f.cadetX.ID)

	_, err := f.svc.Issue(ctx, f.actor, IssueInput{Selector: byID(f.uniform.ID), CadetID: f.cadetY.ID})
	require.Error(t, err)
	conflict, ok := ConflictOf(err)
	require.True(t, ok)
	assert.Equal(t, enums.AssignmentConflictAlreadyIssued, conflict.Kind)
	data, ok := conflict.Data.(AlreadyIssuedData)
	require.True(t, ok)
	assert.Equal(t, f.cadetX.ID, data.Holder.ID)
	assert.Equal(t, "Xavier", data.Holder.FirstName)
	assert.Equal(t, 1148, data.Number)

	issued, err := f.svc.Issue(ctx, f.actor, IssueInput{
		Selector: byID(f.uniform.ID),
		CadetID:  f.cadetY.ID,
		Options:  Options{Force: true},
	})
	require.NoError(t, err)
	assert.Equal(t, f.cadetY.ID, issued.CadetID)

	open := f.openIssuances(t, f.uniform.ID)
	require.Len(t, open, 1)
	assert.Equal(t, f.cadetY.ID, open[0].CadetID)

	var closed models.UniformIssuance
	require.NoError(t, f.conn.Where("uniform_id = ? AND cadet_id = ?", f.uniform.ID, f.cadetX.ID).Take(&closed).Error)
	assert.NotNil(t, closed.ReturnedAt)
}

func TestIssueSameCadetIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Issue(ctx, f.actor, IssueInput{Selector: byID(f.uniform.ID), CadetID: f.cadetX.ID})
	require.NoError(t, err)
	again, err := f.svc.Issue(ctx, f.actor, IssueInput{Selector: byID(f.uniform.ID), CadetID: f.cadetX.ID})
	require.NoError(t, err)

	assert.Equal(t, first.ID, again.ID)
	assert.Len(t, f.openIssuances(t, f.uniform.ID), 1)
}

func TestIssueInactiveNeedsOverride(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.conn.Model(&models.Uniform{}).Where("id = ?", f.uniform.ID).Update("active", false).Error)

	_, err := f.svc.Issue(ctx, f.actor, IssueInput{Selector: byID(f.uniform.ID), CadetID: f.cadetX.ID})
	conflict, ok := ConflictOf(err)
	require.True(t, ok)
	assert.Equal(t, enums.AssignmentConflictInactive, conflict.Kind)
	data := conflict.Data.(InactiveData)
	assert.Equal(t, "Jacket", data.TypeName)
	assert.Empty(t, f.openIssuances(t, f.uniform.ID))

	_, err = f.svc.Issue(ctx, f.actor, IssueInput{
		Selector: byID(f.uniform.ID),
		CadetID:  f.cadetX.ID,
		Options:  Options{IgnoreInactive: true},
	})
	require.NoError(t, err)
	assert.Len(t, f.openIssuances(t, f.uniform.ID), 1)
}

func TestIssueInactiveAndIssuedNeedsBothOverrides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.conn.Model(&models.Uniform{}).Where("id = ?", f.uniform.ID).Update("active", false).Error)
	dbtest.Issue(t, f.conn, f.uniform.ID, f.cadetX.ID)

	_, err := f.svc.Issue(ctx, f.actor, IssueInput{
		Selector: byID(f.uniform.ID), CadetID: f.cadetY.ID, Options: Options{Force: true},
	})
	conflict, ok := ConflictOf(err)
	require.True(t, ok)
	assert.Equal(t, enums.AssignmentConflictInactive, conflict.Kind)

	_, err = f.svc.Issue(ctx, f.actor, IssueInput{
		Selector: byID(f.uniform.ID), CadetID: f.cadetY.ID, Options: Options{IgnoreInactive: true},
	})
	conflict, ok = ConflictOf(err)
	require.True(t, ok)
	assert.Equal(t, enums.AssignmentConflictAlreadyIssued, conflict.Kind)

	_, err = f.svc.Issue(ctx, f.actor, IssueInput{
		Selector: byID(f.uniform.ID), CadetID: f.cadetY.ID, Options: Options{IgnoreInactive: true, Force: true},
	})
	require.NoError(t, err)
}

func TestIssueByNumberCreatesOnRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sel := Selector{UniformTypeID: f.jacket.ID, Number: 2001}

	_, err := f.svc.Issue(ctx, f.actor, IssueInput{Selector: sel, CadetID: f.cadetX.ID})
	conflict, ok := ConflictOf(err)
	require.True(t, ok)
	assert.Equal(t, enums.AssignmentConflictNotFound, conflict.Kind)
	assert.Equal(t, NotFoundData{UniformTypeID: f.jacket.ID, TypeName: "Jacket", Number: 2001}, conflict.Data)

	issued, err := f.svc.Issue(ctx, f.actor, IssueInput{Selector: sel, CadetID: f.cadetX.ID, Options: Options{Create: true}})
	require.NoError(t, err)

	var created models.Uniform
	require.NoError(t, f.conn.Where("id = ?", issued.UniformID).Take(&created).Error)
	assert.Equal(t, 2001, created.Number)
	assert.True(t, created.Active)

	// existing numbers resolve without create
	issued, err = f.svc.Issue(ctx, f.actor, IssueInput{
		Selector: Selector{UniformTypeID: f.jacket.ID, Number: 1148},
		CadetID:  f.cadetY.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, f.uniform.ID, issued.UniformID)
}

func TestIssueCreateRejectsForeignGeneration(t *testing.T) {
	f := newFixture(t)
	other := dbtest.UniformType(t, f.conn, f.tenant.ID, "Trousers", 1, 2)
	gen := models.UniformGeneration{ID: uuid.New(), UniformTypeID: other.ID, Name: "2020", Position: 1}
	require.NoError(t, f.conn.Create(&gen).Error)

	_, err := f.svc.Issue(context.Background(), f.actor, IssueInput{
		Selector: Selector{UniformTypeID: f.jacket.ID, Number: 7, GenerationID: &gen.ID},
		CadetID:  f.cadetX.ID,
		Options:  Options{Create: true},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	details := pkgerrors.As(err).Details().(map[string]string)
	assert.Contains(t, details, "generation_id")
}

func TestIssueRejectsCrossTenantReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	otherTenant := dbtest.Tenant(t, f.conn)
	stranger := dbtest.Cadet(t, f.conn, otherTenant.ID, "Zed", "Cole")
	otherType := dbtest.UniformType(t, f.conn, otherTenant.ID, "Cap", 1, 1)
	otherUniform := dbtest.Uniform(t, f.conn, otherType.ID, 1)

	_, err := f.svc.Issue(ctx, f.actor, IssueInput{Selector: byID(f.uniform.ID), CadetID: stranger.ID})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeTenantViolation))

	_, err = f.svc.Issue(ctx, f.actor, IssueInput{Selector: byID(otherUniform.ID), CadetID: f.cadetX.ID})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeTenantViolation))
	assert.Empty(t, f.openIssuances(t, otherUniform.ID))
}

func TestIssueRequiresInspectorRole(t *testing.T) {
	f := newFixture(t)
	actor := f.actor
	actor.Role = enums.UserRoleUser

	_, err := f.svc.Issue(context.Background(), actor, IssueInput{Selector: byID(f.uniform.ID), CadetID: f.cadetX.ID})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))
}

func TestIssueUnknownIDsAreValidationErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Issue(ctx, f.actor, IssueInput{Selector: byID(uuid.New()), CadetID: f.cadetX.ID})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = f.svc.Issue(ctx, f.actor, IssueInput{Selector: byID(f.uniform.ID), CadetID: uuid.New()})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = f.svc.Issue(ctx, f.actor, IssueInput{Selector: Selector{Number: 3}, CadetID: f.cadetX.ID})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

// staleRepository hides the open issuance from the first lookup, reproducing
// the window between the gating read and the insert of a concurrent writer.
type staleRepository struct {
	Repository
	hidden *bool
}

func (r staleRepository) WithTx(tx *gorm.DB) Repository {
	return staleRepository{Repository: r.Repository.WithTx(tx), hidden: r.hidden}
}

func (r staleRepository) LockOpenIssuance(ctx context.Context, uniformID uuid.UUID) (*models.UniformIssuance, error) {
	if !*r.hidden {
		*r.hidden = true
		return nil, nil
	}
	return r.Repository.LockOpenIssuance(ctx, uniformID)
}

func TestIssueLostRaceBecomesConflict(t *testing.T) {
	f := newFixture(t)
	dbtest.Issue(t, f.conn, f.uniform.ID, f.cadetX.ID)

	hidden := false
	svc, err := NewService(staleRepository{Repository: NewRepository(f.conn), hidden: &hidden}, f.client, nil)
	require.NoError(t, err)

	_, err = svc.Issue(context.Background(), f.actor, IssueInput{Selector: byID(f.uniform.ID), CadetID: f.cadetY.ID})
	conflict, ok := ConflictOf(err)
	require.True(t, ok)
	assert.Equal(t, enums.AssignmentConflictAlreadyIssued, conflict.Kind)
	assert.Equal(t, f.cadetX.ID, conflict.Data.(AlreadyIssuedData).Holder.ID)

	open := f.openIssuances(t, f.uniform.ID)
	require.Len(t, open, 1)
	assert.Equal(t, f.cadetX.ID, open[0].CadetID)
}

// staleNumberRepository misses the uniform on the first number lookup, as if
// another caller created it right after the read.
type staleNumberRepository struct {
	Repository
	missed *bool
}

func (r staleNumberRepository) WithTx(tx *gorm.DB) Repository {
	return staleNumberRepository{Repository: r.Repository.WithTx(tx), missed: r.missed}
}

func (r staleNumberRepository) FindUniformByNumber(ctx context.Context, uniformTypeID uuid.UUID, number int) (*models.Uniform, error) {
	if !*r.missed {
		*r.missed = true
		return nil, nil
	}
	return r.Repository.FindUniformByNumber(ctx, uniformTypeID, number)
}

func TestIssueCreateLostRaceContinuesWithExistingUniform(t *testing.T) {
	byNumber := func(f fixture) IssueInput {
		return IssueInput{
			Selector: Selector{UniformTypeID: f.jacket.ID, Number: f.uniform.Number},
			CadetID:  f.cadetY.ID,
			Options:  Options{Create: true},
		}
	}

	t.Run("held by another cadet", func(t *testing.T) {
		f := newFixture(t)
		dbtest.Issue(t, f.conn, f.uniform.ID, f.cadetX.ID)
		missed := false
		svc, err := NewService(staleNumberRepository{Repository: NewRepository(f.conn), missed: &missed}, f.client, nil)
		require.NoError(t, err)

		_, err = svc.Issue(context.Background(), f.actor, byNumber(f))
		conflict, ok := ConflictOf(err)
		require.True(t, ok, "got %v", err)
		assert.Equal(t, enums.AssignmentConflictAlreadyIssued, conflict.Kind)
		assert.Equal(t, f.cadetX.ID, conflict.Data.(AlreadyIssuedData).Holder.ID)
	})

	t.Run("free", func(t *testing.T) {
		f := newFixture(t)
		missed := false
		svc, err := NewService(staleNumberRepository{Repository: NewRepository(f.conn), missed: &missed}, f.client, nil)
		require.NoError(t, err)

		issued, err := svc.Issue(context.Background(), f.actor, byNumber(f))
		require.NoError(t, err)
		assert.Equal(t, f.uniform.ID, issued.UniformID)

		var count int64
		require.NoError(t, f.conn.Model(&models.Uniform{}).
			Where("uniform_type_id = ? AND number = ?", f.jacket.ID, f.uniform.Number).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})
}

func TestReturn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.Return(ctx, f.actor, f.uniform.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	dbtest.Issue(t, f.conn, f.uniform.ID, f.cadetX.ID)
	require.NoError(t, f.svc.Return(ctx, f.actor, f.uniform.ID))
	assert.Empty(t, f.openIssuances(t, f.uniform.ID))
}

func TestReplaceSwapsUniforms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	spare := dbtest.Uniform(t, f.conn, f.jacket.ID, 1149)
	dbtest.Issue(t, f.conn, f.uniform.ID, f.cadetX.ID)

	issued, err := f.svc.Replace(ctx, f.actor, ReplaceInput{
		OldUniformID: f.uniform.ID,
		Selector:     byID(spare.ID),
		CadetID:      f.cadetX.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, spare.ID, issued.UniformID)
	assert.Empty(t, f.openIssuances(t, f.uniform.ID))
	assert.Len(t, f.openIssuances(t, spare.ID), 1)
}

func TestReplaceRollsBackOnConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	spare := dbtest.Uniform(t, f.conn, f.jacket.ID, 1149)
	dbtest.Issue(t, f.conn, f.uniform.ID, f.cadetX.ID)
	dbtest.Issue(t, f.conn, spare.ID, f.cadetY.ID)

	_, err := f.svc.Replace(ctx, f.actor, ReplaceInput{
		OldUniformID: f.uniform.ID,
		Selector:     byID(spare.ID),
		CadetID:      f.cadetX.ID,
	})
	conflict, ok := ConflictOf(err)
	require.True(t, ok)
	assert.Equal(t, enums.AssignmentConflictAlreadyIssued, conflict.Kind)

	open := f.openIssuances(t, f.uniform.ID)
	require.Len(t, open, 1, "return of the old uniform is rolled back")
	assert.Equal(t, f.cadetX.ID, open[0].CadetID)
}

func TestReplaceRequiresSameHolder(t *testing.T) {
	f := newFixture(t)
	spare := dbtest.Uniform(t, f.conn, f.jacket.ID, 1149)
	dbtest.Issue(t, f.conn, f.uniform.ID, f.cadetY.ID)

	_, err := f.svc.Replace(context.Background(), f.actor, ReplaceInput{
		OldUniformID: f.uniform.ID,
		Selector:     byID(spare.ID),
		CadetID:      f.cadetX.ID,
	})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	assert.Contains(t, pkgerrors.As(err).Details(), "old_uniform_id")
}

func TestListIssuedGroupsByType(t *testing.T) {
	f := newFixture(t)
	trousers := dbtest.UniformType(t, f.conn, f.tenant.ID, "Trousers", 2, 2)
	pair := dbtest.Uniform(t, f.conn, trousers.ID, 5)
	dbtest.Issue(t, f.conn, f.uniform.ID, f.cadetX.ID)
	dbtest.Issue(t, f.conn, pair.ID, f.cadetX.ID)
	group := dbtest.MaterialGroup(t, f.conn, f.tenant.ID, "Belts", 1)
	belt := dbtest.Material(t, f.conn, group.ID, "Leather belt", 1)
	_, err := f.svc.IssueMaterial(context.Background(), f.actor, MaterialIssueInput{CadetID: f.cadetX.ID, MaterialID: belt.ID, Quantity: 2})
	require.NoError(t, err)

	reader := f.actor
	reader.Role = enums.UserRoleUser
	inv, err := f.svc.ListIssued(context.Background(), reader, f.cadetX.ID)
	require.NoError(t, err)

	require.Len(t, inv.Uniforms, 2)
	assert.Equal(t, "Jacket", inv.Uniforms[0].Name)
	require.Len(t, inv.Uniforms[0].Uniforms, 1)
	assert.Equal(t, 1148, inv.Uniforms[0].Uniforms[0].Number)
	assert.Equal(t, "Trousers", inv.Uniforms[1].Name)
	assert.Equal(t, 2, inv.Uniforms[1].IssuedDefault)
	require.Len(t, inv.Materials, 1)
	assert.Equal(t, "Belts", inv.Materials[0].GroupName)
	assert.Equal(t, 2, inv.Materials[0].Quantity)

	empty, err := f.svc.ListIssued(context.Background(), reader, f.cadetY.ID)
	require.NoError(t, err)
	require.Len(t, empty.Uniforms, 2)
	assert.Empty(t, empty.Uniforms[0].Uniforms)
	assert.NotNil(t, empty.Materials)
}

func TestIssuedCounts(t *testing.T) {
	f := newFixture(t)
	trousers := dbtest.UniformType(t, f.conn, f.tenant.ID, "Trousers", 2, 2)
	pair := dbtest.Uniform(t, f.conn, trousers.ID, 5)
	dbtest.Issue(t, f.conn, pair.ID, f.cadetX.ID)
	dbtest.Issue(t, f.conn, f.uniform.ID, f.cadetY.ID)

	counts, err := NewRepository(f.conn).IssuedCounts(context.Background(), f.tenant.ID, f.cadetX.ID)
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, TypeCount{UniformTypeID: f.jacket.ID, Name: "Jacket", Issued: 0, Required: 1}, counts[0])
	assert.Equal(t, TypeCount{UniformTypeID: trousers.ID, Name: "Trousers", Issued: 1, Required: 2}, counts[1])
	assert.False(t, counts[1].Satisfied())
}

func TestHistoryPaginates(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		returned := base.Add(time.Duration(i)*time.Hour + 30*time.Minute)
		rec := models.UniformIssuance{
			ID:         uuid.New(),
			UniformID:  f.uniform.ID,
			CadetID:    f.cadetX.ID,
			IssuedAt:   base.Add(time.Duration(i) * time.Hour),
			ReturnedAt: &returned,
		}
		require.NoError(t, f.conn.Create(&rec).Error)
	}

	page, err := f.svc.History(context.Background(), f.actor, f.uniform.ID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.True(t, page.Items[0].IssuedAt.After(page.Items[1].IssuedAt))
	assert.Equal(t, "Xavier", page.Items[0].FirstName)
	require.NotEmpty(t, page.Cursor)

	rest, err := f.svc.History(context.Background(), f.actor, f.uniform.ID, pagination.Params{Limit: 2, Cursor: page.Cursor})
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	assert.True(t, rest.Items[0].IssuedAt.Equal(base))
	assert.Empty(t, rest.Cursor)

	_, err = f.svc.History(context.Background(), f.actor, f.uniform.ID, pagination.Params{Cursor: "%%%"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}
