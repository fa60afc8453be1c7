package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/quartermaster-backend/api/responses"
	"github.com/angelmondragon/quartermaster-backend/api/validators"
	"github.com/angelmondragon/quartermaster-backend/internal/catalog"
	"github.com/angelmondragon/quartermaster-backend/internal/ordering"
	"github.com/angelmondragon/quartermaster-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quartermaster-backend/pkg/errors"
	"github.com/angelmondragon/quartermaster-backend/pkg/logger"
)

// reorderRequest accepts exactly one of direction or position. Positions
// outside 1..N are clamped by the ordering manager, not rejected.
type reorderRequest struct {
	Direction string `json:"direction" validate:"omitempty,oneof=up down"`
	Position  *int   `json:"position"`
}

func (r reorderRequest) move() (ordering.Move, error) {
	switch {
	case r.Position != nil && r.Direction != "":
		return ordering.Move{}, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{"position": "cannot be combined with direction"})
	case r.Position != nil:
		return ordering.To(*r.Position), nil
	case r.Direction == "up":
		return ordering.Up(), nil
	case r.Direction == "down":
		return ordering.Down(), nil
	}
	return ordering.Move{}, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
		WithDetails(map[string]string{"direction": "direction or position is required"})
}

func catalogParams(r *http.Request) (catalog.ListParams, error) {
	kind, err := enums.ParseCatalogKind(chi.URLParam(r, "kind"))
	if err != nil {
		return catalog.ListParams{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown catalog kind").
			WithDetails(map[string]string{"kind": "is invalid"})
	}
	parentID, err := validators.ParseQueryUUID(r, "parent_id")
	if err != nil {
		return catalog.ListParams{}, err
	}
	return catalog.ListParams{Kind: kind, ParentID: parentID}, nil
}

// CatalogList returns one ordered list, e.g. GET /catalog/generation?parent_id=...
func CatalogList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "catalog")
			return
		}
		actor, ok := requestActor(w, r, logg)
		if !ok {
			return
		}
		params, err := catalogParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		members, err := svc.List(r.Context(), actor, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, members)
	}
}

// CatalogCreate appends a new member to the end of its list.
func CatalogCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "catalog")
			return
		}
		actor, ok := requestActor(w, r, logg)
		if !ok {
			return
		}
		params, err := catalogParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var input catalog.CreateInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.Kind = params.Kind
		input.ParentID = params.ParentID

		member, err := svc.Create(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, member)
	}
}

func CatalogReorder(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "catalog")
			return
		}
		actor, ok := requestActor(w, r, logg)
		if !ok {
			return
		}
		params, err := catalogParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.URLParamUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req reorderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		move, err := req.move()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		members, err := svc.Reorder(r.Context(), actor, params, id, move)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, members)
	}
}

func CatalogRemove(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "catalog")
			return
		}
		actor, ok := requestActor(w, r, logg)
		if !ok {
			return
		}
		params, err := catalogParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.URLParamUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		members, err := svc.Remove(r.Context(), actor, params, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, members)
	}
}

// CatalogNormalize repairs a list whose positions have gaps or duplicates.
func CatalogNormalize(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "catalog")
			return
		}
		actor, ok := requestActor(w, r, logg)
		if !ok {
			return
		}
		params, err := catalogParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		members, err := svc.Normalize(r.Context(), actor, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, members)
	}
}
