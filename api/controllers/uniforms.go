package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/quartermaster-backend/api/responses"
	"github.com/angelmondragon/quartermaster-backend/api/validators"
	"github.com/angelmondragon/quartermaster-backend/internal/assignments"
	"github.com/angelmondragon/quartermaster-backend/pkg/logger"
	"github.com/angelmondragon/quartermaster-backend/pkg/pagination"
)

// issueRequest flattens the selector and the override options into one body.
type issueRequest struct {
	CadetID uuid.UUID `json:"cadet_id" validate:"required"`
	assignments.Selector
	assignments.Options
}

type replaceRequest struct {
	CadetID      uuid.UUID `json:"cadet_id" validate:"required"`
	OldUniformID uuid.UUID `json:"old_uniform_id" validate:"required"`
	assignments.Selector
	assignments.Options
}

// UniformIssue hands a uniform to a cadet. Conflicts come back as
// ASSIGNMENT_CONFLICT and the client retries with the matching override.
func UniformIssue(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "assignments")
			return
		}
		actor, ok := requestActor(w, r, logg)
		if !ok {
			return
		}

		var req issueRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		issuance, err := svc.Issue(r.Context(), actor, assignments.IssueInput{
			Selector: req.Selector,
			CadetID:  req.CadetID,
			Options:  req.Options,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, issuance)
	}
}

func UniformReturn(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "assignments")
			return
		}
		actor, ok := requestActor(w, r, logg)
		if !ok {
			return
		}
		uniformID, err := validators.URLParamUUID(r, "uniformId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Return(r.Context(), actor, uniformID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"uniform_id": uniformID, "returned": true})
	}
}

// UniformReplace returns the old uniform and issues the selected one in a
// single transaction.
func UniformReplace(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "assignments")
			return
		}
		actor, ok := requestActor(w, r, logg)
		if !ok {
			return
		}

		var req replaceRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		issuance, err := svc.Replace(r.Context(), actor, assignments.ReplaceInput{
			OldUniformID: req.OldUniformID,
			Selector:     req.Selector,
			CadetID:      req.CadetID,
			Options:      req.Options,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, issuance)
	}
}

func UniformHistory(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "assignments")
			return
		}
		actor, ok := requestActor(w, r, logg)
		if !ok {
			return
		}
		uniformID, err := validators.URLParamUUID(r, "uniformId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.History(r.Context(), actor, uniformID, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
