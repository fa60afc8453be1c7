package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/quartermaster-backend/api/responses"
	"github.com/angelmondragon/quartermaster-backend/api/validators"
	"github.com/angelmondragon/quartermaster-backend/internal/inspections"
	"github.com/angelmondragon/quartermaster-backend/pkg/logger"
)

// submitRequest carries the wizard's result; ids come from the path.
type submitRequest struct {
	Resolutions     map[uuid.UUID]bool            `json:"resolutions"`
	NewDeficiencies []inspections.DraftDeficiency `json:"new_deficiencies" validate:"dive"`
	UniformComplete bool                          `json:"uniform_complete"`
}

func InspectionStart(svc inspections.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "inspections")
			return
		}
		actor, ok := requestActor(w, r, logg)
		if !ok {
			return
		}

		var input inspections.StartInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		inspection, err := svc.Start(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, inspection)
	}
}

// InspectionActive returns the running inspection or null.
func InspectionActive(svc inspections.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "inspections")
			return
		}
		actor, ok := requestActor(w, r, logg)
		if !ok {
			return
		}

		inspection, err := svc.Active(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, inspection)
	}
}

func InspectionFinish(svc inspections.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "inspections")
			return
		}
		actor, ok := requestActor(w, r, logg)
		if !ok {
			return
		}
		inspectionID, err := validators.URLParamUUID(r, "inspectionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		inspection, err := svc.Finish(r.Context(), actor, inspectionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, inspection)
	}
}

// InspectionBegin opens the wizard for one cadet under the active inspection.
func InspectionBegin(svc inspections.Service, logg *logger.Logger) http.HandlerFunc {
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

		wizard, err := svc.Begin(r.Context(), actor, cadetID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, wizard)
	}
}

// InspectionSubmit commits resolutions, new deficiencies and the cadet
// inspection record together.
func InspectionSubmit(svc inspections.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "inspections")
			return
		}
		actor, ok := requestActor(w, r, logg)
		if !ok {
			return
		}
		inspectionID, err := validators.URLParamUUID(r, "inspectionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cadetID, err := validators.URLParamUUID(r, "cadetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req submitRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Submit(r.Context(), actor, inspections.SubmitInput{
			CadetID:         cadetID,
			InspectionID:    inspectionID,
			Resolutions:     req.Resolutions,
			NewDeficiencies: req.NewDeficiencies,
			UniformComplete: req.UniformComplete,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}
