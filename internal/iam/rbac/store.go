// Copyright (c) 2026 Labtrace. All rights reserved.
// Author: engineering@labtrace.io

package rbac

import (
	"context"
)

// # User Data Access

// UserRepository defines the data access contract for user accounts.
//
// Every read filters out soft-deleted rows; deletion is logical, never
// physical, and must never silently grant access.
type UserRepository interface {

	/*
		FindByID returns the non-deleted account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindByEmail returns the non-deleted account with the given email.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		Create persists a brand-new user account to the storage.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: apperr.Conflict on duplicate email, or persistence failures
	*/
	Create(context context.Context, user *User) error

	/*
		Update persists changes to mutable profile and status fields.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: Persistence failures
	*/
	Update(context context.Context, user *User) error

	/*
		SoftDelete marks the account as deleted without removing the row.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - error: Persistence failures
	*/
	SoftDelete(context context.Context, id string) error
}

// # Role Data Access

// RoleRepository defines the data access contract for roles.
type RoleRepository interface {

	/*
		FindByID returns the non-deleted role with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *Role: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByID(context context.Context, id string) (*Role, error)

	/*
		FindActiveForUser returns the active, non-deleted roles assigned to
		the given user. An empty slice (not an error) means the user holds
		no roles.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - []Role: Assigned roles, possibly empty
		  - error: Database retrieval failures
	*/
	FindActiveForUser(context context.Context, userID string) ([]Role, error)
}

// # Privilege Data Access

// PrivilegeRepository defines the data access contract for privileges and
// their role associations.
type PrivilegeRepository interface {

	/*
		FindActiveForRole returns the non-deleted privileges granted to the
		given role.

		Parameters:
		  - context: context.Context
		  - roleID: string

		Returns:
		  - []Privilege: Granted privileges, possibly empty
		  - error: Database retrieval failures
	*/
	FindActiveForRole(context context.Context, roleID string) ([]Privilege, error)

	/*
		FindByEntityAction returns the non-deleted privilege matching the
		given entity and action pair.

		Parameters:
		  - context: context.Context
		  - entity: string
		  - action: string

		Returns:
		  - *Privilege: Hydrated entity
		  - error: apperr.NotFound if absent, or database retrieval failures
	*/
	FindByEntityAction(context context.Context, entity, action string) (*Privilege, error)

	/*
		FindByID returns the non-deleted privilege with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *Privilege: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByID(context context.Context, id string) (*Privilege, error)

	/*
		List returns a page of non-deleted privileges in stable name order,
		plus the total count for pagination metadata.

		Parameters:
		  - context: context.Context
		  - limit: int
		  - offset: int

		Returns:
		  - []Privilege: The requested page
		  - int: Total non-deleted privilege count
		  - error: Database retrieval failures
	*/
	List(context context.Context, limit, offset int) ([]Privilege, int, error)

	/*
		Create persists a brand-new privilege.

		Parameters:
		  - context: context.Context
		  - privilege: *Privilege

		Returns:
		  - error: apperr.Conflict on duplicate name, or persistence failures
	*/
	Create(context context.Context, privilege *Privilege) error

	/*
		AssignToRole grants the privilege to the role. The operation is
		idempotent: granting an already-granted privilege is a no-op.

		Parameters:
		  - context: context.Context
		  - privilegeID: string
		  - roleID: string

		Returns:
		  - error: Persistence failures
	*/
	AssignToRole(context context.Context, privilegeID, roleID string) error

	/*
		RemoveFromRole withdraws the privilege from the role. Removing a
		grant that does not exist is a no-op.

		Parameters:
		  - context: context.Context
		  - privilegeID: string
		  - roleID: string

		Returns:
		  - error: Persistence failures
	*/
	RemoveFromRole(context context.Context, privilegeID, roleID string) error
}
