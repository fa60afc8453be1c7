package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/quartermaster-backend/internal/deficiencies"
	"github.com/angelmondragon/quartermaster-backend/pkg/auth"
	"github.com/angelmondragon/quartermaster-backend/pkg/db/models"
	"github.com/angelmondragon/quartermaster-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quartermaster-backend/pkg/errors"
)

type stubDeficiencyService struct {
	input           deficiencies.CreateTypeInput
	includeDisabled bool
	disabled        bool
	err             error
}

func (s *stubDeficiencyService) CreateType(_ context.Context, _ auth.Actor, input deficiencies.CreateTypeInput) (*models.DeficiencyType, error) {
	s.input = input
	if s.err != nil {
		return nil, s.err
	}
	return &models.DeficiencyType{ID: uuid.New(), Name: input.Name, Dependent: enums.DeficiencyDependent(input.Dependent)}, nil
}

func (s *stubDeficiencyService) ListTypes(_ context.Context, _ auth.Actor, includeDisabled bool) ([]models.DeficiencyType, error) {
	s.includeDisabled = includeDisabled
	return []models.DeficiencyType{}, s.err
}

func (s *stubDeficiencyService) DeleteType(_ context.Context, _ auth.Actor, _ uuid.UUID) (bool, error) {
	return s.disabled, s.err
}

func (s *stubDeficiencyService) LoadType(_ context.Context, _ auth.Actor, typeID uuid.UUID) (*models.DeficiencyType, error) {
	return &models.DeficiencyType{ID: typeID}, s.err
}

func TestDeficiencyTypeCreate(t *testing.T) {
	svc := &stubDeficiencyService{}
	actor := testActor(enums.UserRoleMaterialManager)

	rec, _ := serve(t, http.MethodPost, "/deficiency-types", "/deficiency-types",
		map[string]any{"name": "Torn seam", "dependent": "uniform"}, &actor, DeficiencyTypeCreate(svc, nil))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Torn seam", svc.input.Name)
}

func TestDeficiencyTypeCreateValidation(t *testing.T) {
	actor := testActor(enums.UserRoleMaterialManager)
	rec, env := serve(t, http.MethodPost, "/deficiency-types", "/deficiency-types",
		map[string]any{"name": "Lost", "dependent": "vehicle"}, &actor, DeficiencyTypeCreate(&stubDeficiencyService{}, nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, string(env.Error.Details), "dependent")
}

func TestDeficiencyTypeList(t *testing.T) {
	svc := &stubDeficiencyService{}
	actor := testActor(enums.UserRoleUser)

	rec, _ := serve(t, http.MethodGet, "/deficiency-types", "/deficiency-types?include_disabled=1", nil, &actor, DeficiencyTypeList(svc, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.includeDisabled)
}

func TestDeficiencyTypeDeleteReportsOutcome(t *testing.T) {
	actor := testActor(enums.UserRoleMaterialManager)
	for _, disabled := range []bool{false, true} {
		svc := &stubDeficiencyService{disabled: disabled}
		rec, env := serve(t, http.MethodDelete, "/deficiency-types/{id}", "/deficiency-types/"+uuid.NewString(), nil, &actor, DeficiencyTypeDelete(svc, nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var out struct {
			Deleted  bool `json:"deleted"`
			Disabled bool `json:"disabled"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &out))
		assert.Equal(t, disabled, out.Disabled)
		assert.Equal(t, !disabled, out.Deleted)
	}
}

func TestDeficiencyTypeDeleteForbidden(t *testing.T) {
	svc := &stubDeficiencyService{err: pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")}
	actor := testActor(enums.UserRoleInspector)

	rec, _ := serve(t, http.MethodDelete, "/deficiency-types/{id}", "/deficiency-types/"+uuid.NewString(), nil, &actor, DeficiencyTypeDelete(svc, nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
