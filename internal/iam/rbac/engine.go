// Copyright (c) 2026 Labtrace. All rights reserved.
// Author: engineering@labtrace.io

package rbac

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/labtrace/labtrace/internal/platform/apperr"
	"github.com/labtrace/labtrace/pkg/slug"
	"github.com/labtrace/labtrace/pkg/uuid"
)

// # Resolution Engine

// Engine resolves privilege checks across the user→role→privilege graph.
//
// # Correctness over latency
//
// The engine holds no cache: every call reads the repositories so that a
// privilege revoked in the store takes effect on the next decision. Callers
// needing response caching layer it externally and invalidate on any
// role/privilege mutation.
type Engine struct {
	roleRepository      RoleRepository
	privilegeRepository PrivilegeRepository
	log                 *slog.Logger
}

// NewEngine constructs a new [Engine] with its repository dependencies.
func NewEngine(roleRepo RoleRepository, privilegeRepo PrivilegeRepository, log *slog.Logger) *Engine {
	return &Engine{
		roleRepository:      roleRepo,
		privilegeRepository: privilegeRepo,
		log:                 log,
	}
}

/*
HasPrivilege reports whether the user holds the required privilege.

Description: Deny-by-default walk of the user's role/privilege graph with
superuser and blanket-access-role bypasses and wildcard matching.

Parameters:
  - context: context.Context
  - user: *User
  - requiredPrivilege: string ("entity:action")

Returns:
  - bool: True only if an explicit grant path exists
  - error: Repository failures (never a denial — denials are false, nil)
*/
func (engine *Engine) HasPrivilege(context context.Context, user *User, requiredPrivilege string) (bool, error) {
	if user == nil {
		return false, nil
	}

	// Superuser bypass: satisfied before any traversal, for any string.
	if user.IsSuperuser {
		return true, nil
	}

	// Inactive or soft-deleted users are denied before any traversal.
	if user.IsDeleted || !user.IsActive {
		return false, nil
	}

	// Load the user's active, non-deleted roles.
	roles, err := engine.roleRepository.FindActiveForUser(context, user.ID)
	if err != nil {
		return false, fmt.Errorf("rbac_engine_load_roles_failed: %w", err)
	}

	// No roles means no grant path can exist.
	if len(roles) == 0 {
		return false, nil
	}

	for _, role := range roles {

		// Blanket-access roles satisfy any check without enumeration.
		if role.IsAdmin {
			return true, nil
		}

		// Walk the role's non-deleted privileges looking for a match.
		privileges, err := engine.privilegeRepository.FindActiveForRole(context, role.ID)
		if err != nil {
			return false, fmt.Errorf("rbac_engine_load_privileges_failed: %w", err)
		}

		for _, privilege := range privileges {
			if Matches(requiredPrivilege, privilege.Name) {
				return true, nil
			}
		}
	}

	// Exhausted every role without a match.
	return false, nil
}

// # Privilege Administration

/*
CreatePrivilege registers a new privilege after validating its name.

Parameters:
  - context: context.Context
  - name: string (canonical "entity:action" or wildcard form)
  - description: string

Returns:
  - *Privilege: Created entity
  - error: Validation failures, apperr.Conflict on duplicates, or storage errors
*/
func (engine *Engine) CreatePrivilege(context context.Context, name, description string) (*Privilege, error) {
	entity, action, err := SplitPrivilegeName(name)
	if err != nil {
		return nil, apperr.ValidationError("Privilege name must be in \"entity:action\" form")
	}

	privilege := &Privilege{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		Entity:      entity,
		Action:      action,
	}

	if err := engine.privilegeRepository.Create(context, privilege); err != nil {
		return nil, err
	}

	engine.log.Info("privilege_created",
		slog.String("privilege_id", privilege.ID),
		slog.String("name", privilege.Name),
	)

	return privilege, nil
}

/*
CreateCrudPrivileges ensures the four standard CRUD privileges exist for an
entity.

Description: Idempotent bootstrap for new resource types. Existing privileges
are returned untouched; missing ones are created. The result is always in
the stable order [create, read, update, delete].

Parameters:
  - context: context.Context
  - entityName: string (canonicalized via pkg/slug before use)

Returns:
  - []Privilege: The four privileges, existing or newly created
  - error: Validation or storage failures
*/
func (engine *Engine) CreateCrudPrivileges(context context.Context, entityName string) ([]Privilege, error) {
	entity := slug.From(entityName)
	if entity == "" {
		return nil, apperr.ValidationError("Entity name must contain at least one alphanumeric character")
	}

	privileges := make([]Privilege, 0, len(CrudActions))

	for _, action := range CrudActions {
		existing, err := engine.privilegeRepository.FindByEntityAction(context, entity, action)
		if err == nil {
			// Present: never mutate an existing privilege's fields.
			privileges = append(privileges, *existing)
			continue
		}
		if !apperr.IsNotFound(err) {
			return nil, fmt.Errorf("rbac_engine_crud_lookup_failed: %w", err)
		}

		privilege := Privilege{
			ID:          uuid.New(),
			Name:        PrivilegeName(entity, action),
			Description: fmt.Sprintf("%s %s", describeAction(action), entity),
			Entity:      entity,
			Action:      action,
		}

		if err := engine.privilegeRepository.Create(context, &privilege); err != nil {
			return nil, err
		}

		privileges = append(privileges, privilege)
	}

	engine.log.Info("crud_privileges_ensured", slog.String("entity", entity))

	return privileges, nil
}

/*
AssignPrivilegeToRole grants a privilege to a role.

Parameters:
  - context: context.Context
  - privilegeID: string
  - roleID: string

Returns:
  - *Privilege: The granted privilege
  - error: apperr.NotFound for a missing privilege or role, or storage errors
*/
func (engine *Engine) AssignPrivilegeToRole(context context.Context, privilegeID, roleID string) (*Privilege, error) {
	privilege, err := engine.privilegeRepository.FindByID(context, privilegeID)
	if err != nil {
		return nil, err
	}

	role, err := engine.roleRepository.FindByID(context, roleID)
	if err != nil {
		return nil, err
	}

	if err := engine.privilegeRepository.AssignToRole(context, privilege.ID, role.ID); err != nil {
		return nil, fmt.Errorf("rbac_engine_assign_failed: %w", err)
	}

	engine.log.Info("privilege_assigned",
		slog.String("privilege_id", privilege.ID),
		slog.String("role_id", role.ID),
	)

	return privilege, nil
}

/*
RemovePrivilegeFromRole withdraws a privilege grant from a role.

Parameters:
  - context: context.Context
  - privilegeID: string
  - roleID: string

Returns:
  - *Privilege: The withdrawn privilege
  - error: apperr.NotFound for a missing privilege or role, or storage errors
*/
func (engine *Engine) RemovePrivilegeFromRole(context context.Context, privilegeID, roleID string) (*Privilege, error) {
	privilege, err := engine.privilegeRepository.FindByID(context, privilegeID)
	if err != nil {
		return nil, err
	}

	role, err := engine.roleRepository.FindByID(context, roleID)
	if err != nil {
		return nil, err
	}

	if err := engine.privilegeRepository.RemoveFromRole(context, privilege.ID, role.ID); err != nil {
		return nil, fmt.Errorf("rbac_engine_remove_failed: %w", err)
	}

	engine.log.Info("privilege_removed",
		slog.String("privilege_id", privilege.ID),
		slog.String("role_id", role.ID),
	)

	return privilege, nil
}

/*
ListPrivileges returns a page of privileges plus the total count.

Parameters:
  - context: context.Context
  - limit: int
  - offset: int

Returns:
  - []Privilege: The requested page
  - int: Total privilege count
  - error: Storage failures
*/
func (engine *Engine) ListPrivileges(context context.Context, limit, offset int) ([]Privilege, int, error) {
	return engine.privilegeRepository.List(context, limit, offset)
}

// describeAction maps a CRUD action to its description verb.
func describeAction(action string) string {
	switch action {
	case ActionCreate:
		return "Create"
	case ActionRead:
		return "Read"
	case ActionUpdate:
		return "Update"
	case ActionDelete:
		return "Delete"
	default:
		return "Manage"
	}
}
