package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/quartermaster-backend/api/responses"
	"github.com/angelmondragon/quartermaster-backend/api/validators"
	"github.com/angelmondragon/quartermaster-backend/internal/assignments"
	"github.com/angelmondragon/quartermaster-backend/internal/cadets"
	"github.com/angelmondragon/quartermaster-backend/internal/inspections"
	"github.com/angelmondragon/quartermaster-backend/pkg/logger"
)

type cadetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type materialIssueRequest struct {
	MaterialID uuid.UUID `json:"material_id" validate:"required"`
	Quantity   int       `json:"quantity" validate:"min=1"`
}

func CadetList(svc cadets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "cadets")
			return
		}
		actor, ok := requestActor(w, r, logg)
		if !ok {
			return
		}
		includeInactive, err := validators.ParseQueryBool(r, "include_inactive")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), actor, cadets.ListParams{IncludeInactive: includeInactive})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func CadetGet(svc cadets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "cadets")
			return
		}
		actor, ok := requestActor(w, r, logg)
		if !ok {
			return
		}
		cadetID, err := validators.URLParamUUID(r, "cadetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cadet, err := svc.Get(r.Context(), actor, cadetID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cadet)
	}
}

func CadetCreate(svc cadets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "cadets")
			return
		}
		actor, ok := requestActor(w, r, logg)
		if !ok {
			return
		}

		var input cadets.CreateInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cadet, err := svc.Create(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, cadet)
	}
}

// CadetSetActive toggles the roster flag; issued items stay with the cadet.
func CadetSetActive(svc cadets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "cadets")
			return
		}
		actor, ok := requestActor(w, r, logg)
		if !ok {
			return
		}
		cadetID, err := validators.URLParamUUID(r, "cadetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req cadetActiveRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cadet, err := svc.SetActive(r.Context(), actor, cadetID, *req.Active)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cadet)
	}
}

// CadetInventory lists the uniforms grouped by type and the materials a cadet holds.
func CadetInventory(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "assignments")
			return
		}
		actor, ok := requestActor(w, r, logg)
		if !ok {
			return
		}
		cadetID, err := validators.URLParamUUID(r, "cadetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		inventory, err := svc.ListIssued(r.Context(), actor, cadetID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, inventory)
	}
}

func CadetMaterialIssue(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "assignments")
			return
		}
		actor, ok := requestActor(w, r, logg)
		if !ok {
			return
		}
		cadetID, err := validators.URLParamUUID(r, "cadetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req materialIssueRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		issuance, err := svc.IssueMaterial(r.Context(), actor, assignments.MaterialIssueInput{
			CadetID:    cadetID,
			MaterialID: req.MaterialID,
			Quantity:   req.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, issuance)
	}
}

func CadetMaterialReturn(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "assignments")
			return
		}
		actor, ok := requestActor(w, r, logg)
		if !ok {
			return
		}
		cadetID, err := validators.URLParamUUID(r, "cadetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		materialID, err := validators.URLParamUUID(r, "materialId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ReturnMaterial(r.Context(), actor, cadetID, materialID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"material_id": materialID, "returned": true})
	}
}

// CadetDeficiencies lists the cadet's unresolved deficiencies.
func CadetDeficiencies(svc inspections.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "inspections")
			return
		}
		actor, ok := requestActor(w, r, logg)
		if !ok {
			return
		}
		cadetID, err := validators.URLParamUUID(r, "cadetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		open, err := svc.OpenDeficiencies(r.Context(), actor, cadetID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, open)
	}
}
