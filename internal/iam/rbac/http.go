// Copyright (c) 2026 Labtrace. All rights reserved.
// Author: engineering@labtrace.io

package rbac

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/labtrace/labtrace/internal/platform/request"
	"github.com/labtrace/labtrace/internal/platform/respond"
	"github.com/labtrace/labtrace/internal/platform/validate"
	"github.com/labtrace/labtrace/pkg/pagination"
)

// # Definitions & Constructors

// Field identifiers used in validation error payloads.
const (
	FieldName        = "name"
	FieldDescription = "description"
	FieldEntity      = "entity"
	FieldPrivilegeID = "privilegeID"
	FieldRoleID      = "roleID"
)

// Privileges guarding the administration endpoints themselves.
const (
	privilegeCreatePrivilege = "privilege:create"
	privilegeReadPrivilege   = "privilege:read"
	privilegeUpdateRole      = "role:update"
)

// GuardFunc builds the authorization middleware for a set of required
// privileges. It is injected by the composition root to keep this package
// free of a dependency on the middleware package.
type GuardFunc func(privileges ...string) func(http.Handler) http.Handler

// Handler implements the privilege administration HTTP endpoints.
type Handler struct {
	engine *Engine
	guard  GuardFunc
}

// NewHandler constructs a new [Handler] around the decision engine.
func NewHandler(engine *Engine, guard GuardFunc) *Handler {
	return &Handler{engine: engine, guard: guard}
}

// Routes returns a [chi.Router] configured with privilege administration routes.
//
// # Endpoints
//   - GET    /privileges                                  : Lists privileges (paginated).
//   - POST   /privileges                                  : Creates a single privilege.
//   - POST   /privileges/crud/{entity}                    : Ensures CRUD privileges for an entity.
//   - PUT    /roles/{roleID}/privileges/{privilegeID}     : Grants a privilege to a role.
//   - DELETE /roles/{roleID}/privileges/{privilegeID}     : Removes a privilege from a role.
//
// All routes require authentication plus the matching administration privilege.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Group(func(r chi.Router) {
		r.Use(handler.guard(privilegeReadPrivilege))
		r.Get("/privileges", handler.listPrivileges)
	})

	router.Group(func(r chi.Router) {
		r.Use(handler.guard(privilegeCreatePrivilege))
		r.Post("/privileges", handler.createPrivilege)
		r.Post("/privileges/crud/{entity}", handler.createCrudPrivileges)
	})

	router.Group(func(r chi.Router) {
		r.Use(handler.guard(privilegeUpdateRole))
		r.Put("/roles/{roleID}/privileges/{privilegeID}", handler.assignPrivilege)
		r.Delete("/roles/{roleID}/privileges/{privilegeID}", handler.removePrivilege)
	})

	return router
}

// # Request Payloads

type createPrivilegeRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

/*
ListPrivileges returns the privilege catalogue.

GET /api/v1/privileges?page=1&limit=20

Response:
  - 200: []Privilege with pagination metadata
  - 403: ErrForbidden: Caller lacks privilege:read
*/
func (handler *Handler) listPrivileges(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)

	privileges, total, err := handler.engine.ListPrivileges(request.Context(), params.Limit, params.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, privileges, pagination.NewMeta(params.Page, params.Limit, total))
}

/*
CreatePrivilege registers a single named privilege.

POST /api/v1/privileges

Description: Validates the "entity:action" shape (wildcards allowed) and
persists the privilege. Duplicate names are rejected.

Request:
  - Body: createPrivilegeRequest (Name, Description)

Response:
  - 201: Privilege: The created privilege
  - 400: ErrValidation: Malformed privilege name
  - 409: ErrConflict: Privilege name already exists
*/
func (handler *Handler) createPrivilege(writer http.ResponseWriter, request *http.Request) {
	var input createPrivilegeRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldName, input.Name).
		PrivilegeName(FieldName, input.Name).
		MaxLen(FieldDescription, input.Description, 500)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	privilege, err := handler.engine.CreatePrivilege(request.Context(), input.Name, input.Description)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, privilege)
}

/*
CreateCrudPrivileges ensures the four CRUD privileges exist for an entity.

POST /api/v1/privileges/crud/{entity}

Description: Idempotently creates "{entity}:create", "{entity}:read",
"{entity}:update", and "{entity}:delete". Privileges that already exist are
returned as-is; the response always lists all four in that order.

Response:
  - 200: []Privilege: The four CRUD privileges
  - 400: ErrValidation: Blank or malformed entity name
*/
func (handler *Handler) createCrudPrivileges(writer http.ResponseWriter, request *http.Request) {
	entity := requestutil.Param(request, FieldEntity)

	validator := &validate.Validator{}
	validator.Required(FieldEntity, entity).
		MaxLen(FieldEntity, entity, 100)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	privileges, err := handler.engine.CreateCrudPrivileges(request.Context(), entity)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, privileges)
}

/*
AssignPrivilege grants a privilege to a role.

PUT /api/v1/roles/{roleID}/privileges/{privilegeID}

Description: Idempotent; granting an already-held privilege succeeds.

Response:
  - 200: Privilege: The granted privilege
  - 404: ErrNotFound: Unknown role or privilege
*/
func (handler *Handler) assignPrivilege(writer http.ResponseWriter, request *http.Request) {
	privilegeID := requestutil.Param(request, FieldPrivilegeID)
	roleID := requestutil.Param(request, FieldRoleID)

	validator := &validate.Validator{}
	validator.UUID(FieldPrivilegeID, privilegeID).
		UUID(FieldRoleID, roleID)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	privilege, err := handler.engine.AssignPrivilegeToRole(request.Context(), privilegeID, roleID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, privilege)
}

/*
RemovePrivilege withdraws a privilege from a role.

DELETE /api/v1/roles/{roleID}/privileges/{privilegeID}

Response:
  - 200: Privilege: The removed privilege
  - 404: ErrNotFound: Unknown role or privilege
*/
func (handler *Handler) removePrivilege(writer http.ResponseWriter, request *http.Request) {
	privilegeID := requestutil.Param(request, FieldPrivilegeID)
	roleID := requestutil.Param(request, FieldRoleID)

	validator := &validate.Validator{}
	validator.UUID(FieldPrivilegeID, privilegeID).
		UUID(FieldRoleID, roleID)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	privilege, err := handler.engine.RemovePrivilegeFromRole(request.Context(), privilegeID, roleID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, privilege)
}
