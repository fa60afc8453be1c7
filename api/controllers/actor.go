package controllers

import (
	"net/http"

	"github.com/angelmondragon/quartermaster-backend/api/middleware"
	"github.com/angelmondragon/quartermaster-backend/api/responses"
	"github.com/angelmondragon/quartermaster-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/quartermaster-backend/pkg/errors"
	"github.com/angelmondragon/quartermaster-backend/pkg/logger"
)

// requestActor writes UNAUTHORIZED and returns false when the route was
// reached without the auth middleware.
func requestActor(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (auth.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return auth.Actor{}, false
	}
	return actor, true
}

func serviceUnavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable"))
}
