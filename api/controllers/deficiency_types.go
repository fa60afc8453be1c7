package controllers

import (
	"net/http"

	"github.com/angelmondragon/quartermaster-backend/api/responses"
	"github.com/angelmondragon/quartermaster-backend/api/validators"
	"github.com/angelmondragon/quartermaster-backend/internal/deficiencies"
	"github.com/angelmondragon/quartermaster-backend/pkg/logger"
)

func DeficiencyTypeList(svc deficiencies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "deficiencies")
			return
		}
		actor, ok := requestActor(w, r, logg)
		if !ok {
			return
		}
		includeDisabled, err := validators.ParseQueryBool(r, "include_disabled")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		types, err := svc.ListTypes(r.Context(), actor, includeDisabled)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, types)
	}
}

func DeficiencyTypeCreate(svc deficiencies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "deficiencies")
			return
		}
		actor, ok := requestActor(w, r, logg)
		if !ok {
			return
		}

		var input deficiencies.CreateTypeInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.CreateType(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// DeficiencyTypeDelete removes an unused type; a referenced one is disabled.
func DeficiencyTypeDelete(svc deficiencies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "deficiencies")
			return
		}
		actor, ok := requestActor(w, r, logg)
		if !ok {
			return
		}
		typeID, err := validators.URLParamUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		disabled, err := svc.DeleteType(r.Context(), actor, typeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"id":       typeID,
			"deleted":  !disabled,
			"disabled": disabled,
		})
	}
}
