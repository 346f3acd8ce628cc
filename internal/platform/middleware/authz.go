// Copyright (c) 2026 Labtrace. All rights reserved.
// Author: engineering@labtrace.io

package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/labtrace/labtrace/internal/iam/auth"
	"github.com/labtrace/labtrace/internal/platform/apperr"
	"github.com/labtrace/labtrace/internal/platform/constants"
	"github.com/labtrace/labtrace/internal/platform/ctxutil"
)

// # Authorization

/*
RequirePrivileges protects a route group behind the authorization gate.

Every request must carry a valid bearer access token, and the resolved
account must hold every privilege in the list. An empty list means the
route only requires authentication. On success the resolved account is
injected into the request context for downstream handlers.

Parameters:
  - gate: the authorization gate performing token and privilege checks.
  - privileges: the privilege names required to pass this middleware.
*/
func RequirePrivileges(gate *auth.Gate, privileges ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// 1. Run the full authentication + authorization decision
			authorizationHeader := request.Header.Get(constants.HeaderAuthorization)
			user, err := gate.Authorize(request.Context(), authorizationHeader, privileges...)
			if err != nil {
				writeAuthError(writer, err)
				return
			}

			// 2. Inject the resolved account into the context
			ctx := ctxutil.WithAuthUser(request.Context(), user)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// writeAuthError renders a gate failure as a JSON error payload.
func writeAuthError(writer http.ResponseWriter, err error) {
	status := http.StatusUnauthorized
	code := "UNAUTHORIZED"
	message := "Authentication required"

	if appError := apperr.As(err); appError != nil {
		status = appError.HTTPStatus
		code = appError.Code
		message = appError.Message
	}

	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(map[string]string{
		constants.FieldCode:  code,
		constants.FieldError: message,
	})
}
