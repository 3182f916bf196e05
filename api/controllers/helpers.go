package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/bundlehubgh/bundlehub-backend/api/middleware"
	pkgerrors "github.com/bundlehubgh/bundlehub-backend/pkg/errors"
	"github.com/bundlehubgh/bundlehub-backend/pkg/enums"
)

// actorFromRequest pulls the authenticated user id and role out of the
// request context seeded by the auth middleware.
func actorFromRequest(r *http.Request) (uuid.UUID, enums.UserRole, error) {
	userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
	if err != nil {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	role, err := enums.ParseUserRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return userID, role, nil
}

func pathUUID(r *http.Request, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid id in path")
	}
	return id, nil
}
