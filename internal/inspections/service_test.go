package inspections

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/angelmondragon/quartermaster-backend/internal/assignments"
	"github.com/angelmondragon/quartermaster-backend/internal/deficiencies"
	"github.com/angelmondragon/quartermaster-backend/pkg/auth"
	"github.com/angelmondragon/quartermaster-backend/pkg/db/dbtest"
	"github.com/angelmondragon/quartermaster-backend/pkg/db/models"
	"github.com/angelmondragon/quartermaster-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quartermaster-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	conn       *gorm.DB
	svc        Service
	defRepo    deficiencies.Repository
	actor      auth.Actor
	tenant     models.Tenant
	cadet      models.Cadet
	jacket     models.UniformType
	inspection models.Inspection
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client := dbtest.New(t)
	conn := client.DB()
	tenant := dbtest.Tenant(t, conn)
	defRepo := deficiencies.NewRepository(conn)
	svc, err := NewService(ServiceParams{
		Repo:         NewRepository(conn),
		Assignments:  assignments.NewRepository(conn),
		Deficiencies: defRepo,
		Tx:           client,
	})
	require.NoError(t, err)
	return fixture{
		conn:       conn,
		svc:        svc,
		defRepo:    defRepo,
		actor:      auth.Actor{UserID: uuid.New(), TenantID: tenant.ID, Role: enums.UserRoleMaterialManager},
		tenant:     tenant,
		cadet:      dbtest.Cadet(t, conn, tenant.ID, "Ann", "Lee"),
		jacket:     dbtest.UniformType(t, conn, tenant.ID, "Jacket", 1, 1),
		inspection: dbtest.Inspection(t, conn, tenant.ID, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), true),
	}
}

func (f fixture) defType(t *testing.T, name string, dep enums.DeficiencyDependent, rel enums.DeficiencyRelation) models.DeficiencyType {
	t.Helper()
	v := deficiencies.Variant{Dependent: dep, Relation: rel}
	dt := models.DeficiencyType{ID: uuid.New(), TenantID: f.tenant.ID, Name: name, Dependent: dep, Relation: v.RelationPtr()}
	require.NoError(t, f.conn.Create(&dt).Error)
	return dt
}

func (f fixture) note(t *testing.T, typeID uuid.UUID, desc string, createdIn *uuid.UUID) uuid.UUID {
	t.Helper()
	d := &models.Deficiency{ID: uuid.New(), DeficiencyTypeID: typeID, Description: desc, InspectionCreatedID: createdIn}
	require.NoError(t, f.defRepo.Create(context.Background(), d, &models.CadetDeficiency{CadetID: f.cadet.ID}, nil))
	return d.ID
}

func ptr[T any](v T) *T { return &v }

func TestStartEnforcesSingleActiveInspection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Start(ctx, f.actor, StartInput{Name: "Autumn", Date: "2025-09-01"})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))

	finished, err := f.svc.Finish(ctx, f.actor, f.inspection.ID)
	require.NoError(t, err)
	assert.False(t, finished.Active)

	active, err := f.svc.Active(ctx, f.actor)
	require.NoError(t, err)
	assert.Nil(t, active)

	started, err := f.svc.Start(ctx, f.actor, StartInput{Name: "Autumn", Date: "2025-09-01"})
	require.NoError(t, err)
	assert.True(t, started.Active)

	active, err = f.svc.Active(ctx, f.actor)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, started.ID, active.ID)

	_, err = f.svc.Finish(ctx, f.actor, f.inspection.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))
}

func TestStartValidatesInput(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Start(context.Background(), f.actor, StartInput{Name: "", Date: "01.09.2025"})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	details := pkgerrors.As(err).Details().(map[string]string)
	assert.Contains(t, details, "name")
	assert.Contains(t, details, "date")
}

func TestSubmitResolutionRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	noteType := f.defType(t, "Note", enums.DeficiencyDependentCadet, "")
	d1 := f.note(t, noteType.ID, "d1", nil)
	d2 := f.note(t, noteType.ID, "d2", nil)

	inspector := f.actor
	inspector.Role = enums.UserRoleInspector
	wizard, err := f.svc.Begin(ctx, inspector, f.cadet.ID)
	require.NoError(t, err)
	require.Len(t, wizard.Open, 2)

	wizard, err = wizard.Next()
	require.NoError(t, err)
	require.Equal(t, StepResolve, wizard.Step)
	wizard, err = wizard.SetResolution(d1, true)
	require.NoError(t, err)
	wizard, err = wizard.Next()
	require.NoError(t, err)
	input, err := wizard.Submission()
	require.NoError(t, err)

	record, err := f.svc.Submit(ctx, inspector, input)
	require.NoError(t, err)
	assert.False(t, record.UniformComplete)

	open, err := f.svc.OpenDeficiencies(ctx, inspector, f.cadet.ID)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, d2, open[0].ID)

	var resolved models.Deficiency
	require.NoError(t, f.conn.Where("id = ?", d1).Take(&resolved).Error)
	require.NotNil(t, resolved.InspectionResolvedID)
	assert.Equal(t, f.inspection.ID, *resolved.InspectionResolvedID)
}

func TestSubmitDerivesUniformComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	jacket := dbtest.Uniform(t, f.conn, f.jacket.ID, 1148)
	dbtest.Issue(t, f.conn, jacket.ID, f.cadet.ID)

	record, err := f.svc.Submit(ctx, f.actor, SubmitInput{
		CadetID:         f.cadet.ID,
		InspectionID:    f.inspection.ID,
		UniformComplete: false,
	})
	require.NoError(t, err)
	assert.True(t, record.UniformComplete)

	var snapshot Snapshot
	require.NoError(t, json.Unmarshal(record.CompletenessSnapshot, &snapshot))
	require.Len(t, snapshot.Types, 1)
	assert.Equal(t, 1, snapshot.Types[0].Issued)
	assert.False(t, snapshot.ClientComplete)

	// the stored fact does not follow later ledger changes
	require.NoError(t, f.conn.Model(&models.UniformIssuance{}).Where("uniform_id = ?", jacket.ID).
		Update("returned_at", time.Now().UTC()).Error)
	var stored models.CadetInspection
	require.NoError(t, f.conn.Where("id = ?", record.ID).Take(&stored).Error)
	assert.True(t, stored.UniformComplete)

	// a repeated submission replaces the result instead of adding one
	again, err := f.svc.Submit(ctx, f.actor, SubmitInput{CadetID: f.cadet.ID, InspectionID: f.inspection.ID})
	require.NoError(t, err)
	assert.False(t, again.UniformComplete)
	var count int64
	require.NoError(t, f.conn.Model(&models.CadetInspection{}).Where("cadet_id = ?", f.cadet.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSubmitCompletenessCountsOnlyAttachedDrafts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	held := dbtest.Uniform(t, f.conn, f.jacket.ID, 1148)
	dbtest.Issue(t, f.conn, held.ID, f.cadet.ID)
	spare := dbtest.Uniform(t, f.conn, f.jacket.ID, 1149)
	torn := f.defType(t, "Torn", enums.DeficiencyDependentUniform, "")

	// a defect on a shelf uniform belongs to the uniform, not to this cadet
	record, err := f.svc.Submit(ctx, f.actor, SubmitInput{
		CadetID:         f.cadet.ID,
		InspectionID:    f.inspection.ID,
		NewDeficiencies: []DraftDeficiency{{TypeID: torn.ID, UniformID: ptr(spare.ID)}},
	})
	require.NoError(t, err)
	assert.True(t, record.UniformComplete)

	open, err := f.svc.OpenDeficiencies(ctx, f.actor, f.cadet.ID)
	require.NoError(t, err)
	assert.Empty(t, open)

	// the same defect on the held uniform stays open for the cadet
	record, err = f.svc.Submit(ctx, f.actor, SubmitInput{
		CadetID:         f.cadet.ID,
		InspectionID:    f.inspection.ID,
		NewDeficiencies: []DraftDeficiency{{TypeID: torn.ID, UniformID: ptr(held.ID)}},
	})
	require.NoError(t, err)
	assert.False(t, record.UniformComplete)

	var snapshot Snapshot
	require.NoError(t, json.Unmarshal(record.CompletenessSnapshot, &snapshot))
	assert.Equal(t, 1, snapshot.RemainingOpen)
	open, err = f.svc.OpenDeficiencies(ctx, f.actor, f.cadet.ID)
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestSubmitCreatesTypedDeficiencies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	held := dbtest.Uniform(t, f.conn, f.jacket.ID, 7)
	dbtest.Issue(t, f.conn, held.ID, f.cadet.ID)
	group := dbtest.MaterialGroup(t, f.conn, f.tenant.ID, "Belts", 1)
	belt := dbtest.Material(t, f.conn, group.ID, "Leather belt", 1)

	cadetUniformType := f.defType(t, "Dirty", enums.DeficiencyDependentCadet, enums.DeficiencyRelationUniform)
	materialType := f.defType(t, "Missing", enums.DeficiencyDependentCadet, enums.DeficiencyRelationMaterial)
	uniformType := f.defType(t, "Torn", enums.DeficiencyDependentUniform, "")

	_, err := f.svc.Submit(ctx, f.actor, SubmitInput{
		CadetID:      f.cadet.ID,
		InspectionID: f.inspection.ID,
		NewDeficiencies: []DraftDeficiency{
			{TypeID: cadetUniformType.ID, UniformID: &held.ID},
			{TypeID: materialType.ID, MaterialOther: true, MaterialGroupID: &group.ID, MaterialID: &belt.ID, Comment: ptr("lost")},
			{TypeID: uniformType.ID, UniformID: &held.ID, Description: "left sleeve"},
		},
	})
	require.NoError(t, err)

	open, err := f.svc.OpenDeficiencies(ctx, f.actor, f.cadet.ID)
	require.NoError(t, err)
	require.Len(t, open, 3)
	byType := map[uuid.UUID]deficiencies.OpenDeficiency{}
	for _, d := range open {
		byType[d.TypeID] = d
		require.NotNil(t, d.InspectionCreatedID)
	}
	assert.Equal(t, "Jacket 7", byType[cadetUniformType.ID].Description)
	assert.Equal(t, held.ID, *byType[cadetUniformType.ID].UniformID)
	assert.Equal(t, "Leather belt", byType[materialType.ID].Description)
	assert.Equal(t, belt.ID, *byType[materialType.ID].MaterialID)
	assert.Equal(t, "left sleeve", byType[uniformType.ID].Description)
}

func TestSubmitFieldScopedValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	noteType := f.defType(t, "Note", enums.DeficiencyDependentCadet, "")
	materialType := f.defType(t, "Missing", enums.DeficiencyDependentCadet, enums.DeficiencyRelationMaterial)

	_, err := f.svc.Submit(ctx, f.actor, SubmitInput{
		CadetID:      f.cadet.ID,
		InspectionID: f.inspection.ID,
		NewDeficiencies: []DraftDeficiency{
			{TypeID: noteType.ID, Description: "fine row"},
			{TypeID: materialType.ID, MaterialOther: true},
		},
	})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	details := pkgerrors.As(err).Details().(map[string]string)
	assert.Equal(t, map[string]string{
		"new_deficiencies[1].material_group_id": "is required",
		"new_deficiencies[1].material_id":       "is required",
	}, details)

	var count int64
	require.NoError(t, f.conn.Model(&models.Deficiency{}).Count(&count).Error)
	assert.Zero(t, count, "nothing is persisted when any row is invalid")
}

func TestSubmitRejectsReferencesNotIssuedToCadet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := dbtest.Cadet(t, f.conn, f.tenant.ID, "Bo", "Kim")
	theirs := dbtest.Uniform(t, f.conn, f.jacket.ID, 9)
	dbtest.Issue(t, f.conn, theirs.ID, other.ID)
	cadetUniformType := f.defType(t, "Dirty", enums.DeficiencyDependentCadet, enums.DeficiencyRelationUniform)
	noteType := f.defType(t, "Note", enums.DeficiencyDependentCadet, "")
	materialType := f.defType(t, "Missing", enums.DeficiencyDependentCadet, enums.DeficiencyRelationMaterial)
	group := dbtest.MaterialGroup(t, f.conn, f.tenant.ID, "Belts", 1)
	belt := dbtest.Material(t, f.conn, group.ID, "Leather belt", 1)

	_, err := f.svc.Submit(ctx, f.actor, SubmitInput{
		CadetID:      f.cadet.ID,
		InspectionID: f.inspection.ID,
		NewDeficiencies: []DraftDeficiency{
			{TypeID: cadetUniformType.ID, UniformID: &theirs.ID},
			{TypeID: noteType.ID, Description: "bad <script>"},
			{TypeID: noteType.ID},
			{TypeID: materialType.ID, MaterialID: &belt.ID},
		},
		Resolutions: map[uuid.UUID]bool{uuid.New(): true},
	})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	details := pkgerrors.As(err).Details().(map[string]string)
	assert.Equal(t, "is not issued to this cadet", details["new_deficiencies[0].uniform_id"])
	assert.Contains(t, details, "new_deficiencies[1].description")
	assert.Equal(t, "is required", details["new_deficiencies[2].description"])
	assert.Equal(t, "is not issued to this cadet", details["new_deficiencies[3].material_id"])
	assert.Len(t, details, 5)
}

func TestSubmitRejectsCrossTenantType(t *testing.T) {
	f := newFixture(t)
	other := dbtest.Tenant(t, f.conn)
	foreign := models.DeficiencyType{ID: uuid.New(), TenantID: other.ID, Name: "Foreign", Dependent: enums.DeficiencyDependentCadet}
	require.NoError(t, f.conn.Create(&foreign).Error)

	_, err := f.svc.Submit(context.Background(), f.actor, SubmitInput{
		CadetID:         f.cadet.ID,
		InspectionID:    f.inspection.ID,
		NewDeficiencies: []DraftDeficiency{{TypeID: foreign.ID, Description: "x"}},
	})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeTenantViolation))
}

func TestSubmitRequiresActiveInspection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Finish(ctx, f.actor, f.inspection.ID)
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, f.actor, SubmitInput{CadetID: f.cadet.ID, InspectionID: f.inspection.ID})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))

	_, err = f.svc.Begin(ctx, f.actor, f.cadet.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))
}

func TestSubmitRejectsResolutionBeforeCreation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Finish(ctx, f.actor, f.inspection.ID)
	require.NoError(t, err)
	earlier, err := f.svc.Start(ctx, f.actor, StartInput{Name: "Backfill", Date: "2025-01-15"})
	require.NoError(t, err)

	noteType := f.defType(t, "Note", enums.DeficiencyDependentCadet, "")
	d := f.note(t, noteType.ID, "recorded in june", &f.inspection.ID)

	_, err = f.svc.Submit(ctx, f.actor, SubmitInput{
		CadetID:      f.cadet.ID,
		InspectionID: earlier.ID,
		Resolutions:  map[uuid.UUID]bool{d: true},
	})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	assert.Contains(t, pkgerrors.As(err).Details(), "resolutions."+d.String())
}

func TestAutoClose(t *testing.T) {
	f := newFixture(t)
	closed, err := f.svc.AutoClose(context.Background(), time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, closed)

	closed, err = f.svc.AutoClose(context.Background(), time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.EqualValues(t, 1, closed)

	active, err := f.svc.Active(context.Background(), f.actor)
	require.NoError(t, err)
	assert.Nil(t, active)
}
