// Copyright (c) 2026 Labtrace. All rights reserved.
// Author: engineering@labtrace.io

package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/labtrace/labtrace/internal/platform/apperr"
	"github.com/labtrace/labtrace/internal/platform/constants"
	"github.com/labtrace/labtrace/internal/platform/ctxutil"
	requestutil "github.com/labtrace/labtrace/internal/platform/request"
	"github.com/labtrace/labtrace/internal/platform/respond"
	"github.com/labtrace/labtrace/internal/platform/validate"
)

// # Definitions & Constructors

// Field identifiers used in validation error payloads.
const (
	FieldEmail        = "email"
	FieldPassword     = "password"
	FieldFullName     = "full_name"
	FieldRefreshToken = "refresh_token"
)

// Handler implements the token lifecycle HTTP endpoints.
//
// # Scope
//
// This handler manages everything related to the session entry points
// (Registration, Login, Refresh, Logout, identity introspection).
type Handler struct {
	authService *Service

	// requireAuth is the authentication middleware for protected routes.
	// It is injected by the composition root to keep this package free of
	// a dependency on the middleware package.
	requireAuth func(http.Handler) http.Handler
}

// NewHandler constructs a new [Handler] with its service dependency and the
// authentication guard used for protected routes.
func NewHandler(service *Service, requireAuth func(http.Handler) http.Handler) *Handler {
	return &Handler{authService: service, requireAuth: requireAuth}
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
//
// # Endpoints
//   - POST /register : Creates a new account.
//   - POST /login    : Authenticates and returns a token pair.
//   - POST /refresh  : Exchanges a refresh token for a fresh pair.
//   - POST /logout   : Revokes the presented tokens.
//   - GET  /me       : Returns the authenticated account.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
	router.Post("/refresh", handler.refresh)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(handler.requireAuth)
		r.Post("/logout", handler.logout)
		r.Get("/me", handler.me)
	})

	return router
}

// # Request Payloads

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

/*
Register handles the creation of a new account.

POST /api/v1/auth/register

Description: Validates input, checks for identity conflicts, and persists
a new account to the database.

Request:
  - Body: registerRequest (Email, Password, FullName)

Response:
  - 201: User: Created account profile
  - 400: ErrInvalidJSON: Bad input or validation failure
  - 409: ErrConflict: Email already exists
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, 8).
		MaxLen(FieldFullName, input.FullName, 200)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.Register(request.Context(), RegisterInput{
		Email:    input.Email,
		Password: input.Password,
		FullName: input.FullName,
	})

	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, user)
}

/*
Login authenticates an account and issues a token pair.

POST /api/v1/auth/login

Description: Verifies credentials and returns a bearer access token plus a
refresh token. Failures never reveal whether the email or the password was
the wrong half.

Request:
  - Body: loginRequest (Email, Password)

Response:
  - 200: Token pair and account profile
  - 401: ErrUnauthorized: Invalid credentials or inactive account
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email)
	validator.Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	tokenPair, user, err := handler.authService.Login(request.Context(), input.Email, input.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		"access_token":  tokenPair.AccessToken,
		"refresh_token": tokenPair.RefreshToken,
		"token_type":    tokenPair.TokenType,
		"expires_in":    int64(time.Until(tokenPair.AccessTokenExpiresAt) / time.Second),
		"user":          user,
	})
}

/*
Refresh exchanges a refresh token for a fresh token pair.

POST /api/v1/auth/refresh

Description: Validates the presented refresh token (revocation, signature,
expiry, token class) and issues a new access/refresh pair. The presented
refresh token stays valid until its own expiry.

Request:
  - Body: refreshRequest (RefreshToken)

Response:
  - 200: TokenPair: New credentials
  - 401: ErrUnauthorized: Missing, invalid, revoked, or non-refresh token
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if input.RefreshToken == "" {
		respond.Error(writer, request, apperr.Unauthorized("Missing refresh token"))
		return
	}

	tokenPair, err := handler.authService.Refresh(request.Context(), input.RefreshToken)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, tokenPair)
}

/*
Logout revokes the caller's tokens.

POST /api/v1/auth/logout

Description: Denylists the presented access token and, when supplied in the
body, the refresh token as well. Revocation is best effort; logout always
succeeds from the client's point of view.

Request:
  - Body: logoutRequest (RefreshToken, optional)

Response:
  - 204: No Content: Tokens revoked
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	// Revoke the access token the caller authenticated with.
	if accessToken := bearerToken(request); accessToken != "" {
		handler.authService.Revoke(request.Context(), accessToken)
	}

	// Revoke the refresh token too when the client hands it over.
	var input logoutRequest
	if err := requestutil.DecodeJSON(request, &input); err == nil && input.RefreshToken != "" {
		handler.authService.Revoke(request.Context(), input.RefreshToken)
	}

	respond.NoContent(writer)
}

/*
Me returns the authenticated account's profile.

GET /api/v1/auth/me

Response:
  - 200: User: The authenticated account
  - 401: ErrUnauthorized: Missing or invalid token
*/
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	user, err := ctxutil.RequiredUser(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

// bearerToken extracts the raw token from the Authorization header, or ""
// when the header is absent or not a bearer scheme.
func bearerToken(request *http.Request) string {
	header := request.Header.Get(constants.HeaderAuthorization)

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
