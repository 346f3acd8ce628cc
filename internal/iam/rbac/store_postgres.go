// Copyright (c) 2026 Labtrace. All rights reserved.
// Author: engineering@labtrace.io

// PostgreSQL implementations of the rbac repository contracts.
//
// # Error Mapping
//
// Storage-specific errors (pgx.ErrNoRows, SQLSTATE 23505) are mapped to
// domain-friendly [apperr.AppError] types to avoid leaking storage
// implementation details.
package rbac

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labtrace/labtrace/internal/platform/apperr"
)

// isUniqueViolation reports whether err is a Postgres unique-constraint error.
func isUniqueViolation(err error) bool {
	var pgError *pgconn.PgError
	return errors.As(err, &pgError) && pgError.Code == pgerrcode.UniqueViolation
}

// # User Repository

// PostgresUserRepository implements the UserRepository interface using pgx.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

/*
FindByID retrieves a user record by primary key.

Description: Performs a lookup on the account table, filtering out
soft-deleted users.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	const query = `
		SELECT id, email, COALESCE(passwordhash, ''), COALESCE(fullname, ''), isactive, issuperuser, createdat, updatedat
		FROM iam.account
		WHERE id = $1 AND deletedat IS NULL`

	user := &User{}
	err := repository.pool.QueryRow(context, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FullName,
		&user.IsActive,
		&user.IsSuperuser,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_id_failed: %w", err)
	}

	return user, nil
}

/*
FindByEmail retrieves a user record by their unique email address.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	const query = `
		SELECT id, email, COALESCE(passwordhash, ''), COALESCE(fullname, ''), isactive, issuperuser, createdat, updatedat
		FROM iam.account
		WHERE email = $1 AND deletedat IS NULL`

	user := &User{}
	err := repository.pool.QueryRow(context, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FullName,
		&user.IsActive,
		&user.IsSuperuser,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_email_failed: %w", err)
	}

	return user, nil
}

/*
Create persists a new user record into the iam.account table.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: apperr.Conflict on duplicate email, or connectivity errors
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	const query = `
		INSERT INTO iam.account (
			id, email, passwordhash, fullname, isactive, issuperuser, createdat, updatedat
		) VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8)`

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.FullName,
		user.IsActive,
		user.IsSuperuser,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("Email is already registered")
		}
		return fmt.Errorf("postgres_user_repo_create_failed: %w", err)
	}

	return nil
}

/*
Update persists changes to mutable profile and status fields.

Parameters:
  - context: context.Context
  - user: *User

Returns:
  - error: Persistence failures
*/
func (repository *PostgresUserRepository) Update(context context.Context, user *User) error {
	const query = `
		UPDATE iam.account
		SET email = $2, fullname = $3, isactive = $4, issuperuser = $5, updatedat = $6
		WHERE id = $1 AND deletedat IS NULL`

	user.UpdatedAt = time.Now()

	_, err := repository.pool.Exec(context, query,
		user.ID,
		user.Email,
		user.FullName,
		user.IsActive,
		user.IsSuperuser,
		user.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("Email is already registered")
		}
		return fmt.Errorf("postgres_user_repo_update_failed: %w", err)
	}

	return nil
}

/*
SoftDelete marks the account as deleted without removing the row.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - error: Persistence failures
*/
func (repository *PostgresUserRepository) SoftDelete(context context.Context, id string) error {
	const query = `
		UPDATE iam.account
		SET deletedat = $2, updatedat = $2
		WHERE id = $1 AND deletedat IS NULL`

	if _, err := repository.pool.Exec(context, query, id, time.Now()); err != nil {
		return fmt.Errorf("postgres_user_repo_soft_delete_failed: %w", err)
	}

	return nil
}

// # Role Repository

// PostgresRoleRepository implements the RoleRepository interface using pgx.
type PostgresRoleRepository struct {
	pool *pgxpool.Pool
}

// NewRoleRepository creates a new PostgreSQL implementation of the RoleRepository.
func NewRoleRepository(pool *pgxpool.Pool) *PostgresRoleRepository {
	return &PostgresRoleRepository{pool: pool}
}

/*
FindByID retrieves a role record by primary key, filtering soft-deleted rows.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - *Role: Hydrated entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresRoleRepository) FindByID(context context.Context, id string) (*Role, error) {
	const query = `
		SELECT id, name, COALESCE(description, ''), isadmin, isactive, createdat, updatedat
		FROM iam.role
		WHERE id = $1 AND deletedat IS NULL`

	role := &Role{}
	err := repository.pool.QueryRow(context, query, id).Scan(
		&role.ID,
		&role.Name,
		&role.Description,
		&role.IsAdmin,
		&role.IsActive,
		&role.CreatedAt,
		&role.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Role")
		}
		return nil, fmt.Errorf("postgres_role_repo_find_by_id_failed: %w", err)
	}

	return role, nil
}

/*
FindActiveForUser returns the active, non-deleted roles assigned to a user.

Description: Joins through the iam.account_role relation. Returns an empty
slice (not an error) when the user holds no roles.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - []Role: Assigned roles
  - error: Database retrieval failures
*/
func (repository *PostgresRoleRepository) FindActiveForUser(context context.Context, userID string) ([]Role, error) {
	const query = `
		SELECT r.id, r.name, COALESCE(r.description, ''), r.isadmin, r.isactive, r.createdat, r.updatedat
		FROM iam.role r
		INNER JOIN iam.account_role ar ON ar.roleid = r.id
		WHERE ar.accountid = $1 AND r.deletedat IS NULL AND r.isactive
		ORDER BY r.name`

	rows, err := repository.pool.Query(context, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres_role_repo_find_for_user_failed: %w", err)
	}
	defer rows.Close()

	roles := make([]Role, 0)
	for rows.Next() {
		var role Role
		if err := rows.Scan(
			&role.ID,
			&role.Name,
			&role.Description,
			&role.IsAdmin,
			&role.IsActive,
			&role.CreatedAt,
			&role.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres_role_repo_scan_failed: %w", err)
		}
		roles = append(roles, role)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_role_repo_rows_failed: %w", err)
	}

	return roles, nil
}

// # Privilege Repository

// PostgresPrivilegeRepository implements the PrivilegeRepository interface using pgx.
type PostgresPrivilegeRepository struct {
	pool *pgxpool.Pool
}

// NewPrivilegeRepository creates a new PostgreSQL implementation of the PrivilegeRepository.
func NewPrivilegeRepository(pool *pgxpool.Pool) *PostgresPrivilegeRepository {
	return &PostgresPrivilegeRepository{pool: pool}
}

/*
FindActiveForRole returns the non-deleted privileges granted to a role.

Parameters:
  - context: context.Context
  - roleID: string

Returns:
  - []Privilege: Granted privileges
  - error: Database retrieval failures
*/
func (repository *PostgresPrivilegeRepository) FindActiveForRole(context context.Context, roleID string) ([]Privilege, error) {
	const query = `
		SELECT p.id, p.name, COALESCE(p.description, ''), p.entity, p.action, p.createdat, p.updatedat
		FROM iam.privilege p
		INNER JOIN iam.role_privilege rp ON rp.privilegeid = p.id
		WHERE rp.roleid = $1 AND p.deletedat IS NULL
		ORDER BY p.name`

	rows, err := repository.pool.Query(context, query, roleID)
	if err != nil {
		return nil, fmt.Errorf("postgres_privilege_repo_find_for_role_failed: %w", err)
	}
	defer rows.Close()

	privileges := make([]Privilege, 0)
	for rows.Next() {
		var privilege Privilege
		if err := rows.Scan(
			&privilege.ID,
			&privilege.Name,
			&privilege.Description,
			&privilege.Entity,
			&privilege.Action,
			&privilege.CreatedAt,
			&privilege.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres_privilege_repo_scan_failed: %w", err)
		}
		privileges = append(privileges, privilege)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_privilege_repo_rows_failed: %w", err)
	}

	return privileges, nil
}

/*
FindByEntityAction returns the non-deleted privilege for an entity/action pair.

Parameters:
  - context: context.Context
  - entity: string
  - action: string

Returns:
  - *Privilege: Hydrated entity
  - error: apperr.NotFound if absent, or database errors
*/
func (repository *PostgresPrivilegeRepository) FindByEntityAction(context context.Context, entity, action string) (*Privilege, error) {
	const query = `
		SELECT id, name, COALESCE(description, ''), entity, action, createdat, updatedat
		FROM iam.privilege
		WHERE entity = $1 AND action = $2 AND deletedat IS NULL`

	privilege := &Privilege{}
	err := repository.pool.QueryRow(context, query, entity, action).Scan(
		&privilege.ID,
		&privilege.Name,
		&privilege.Description,
		&privilege.Entity,
		&privilege.Action,
		&privilege.CreatedAt,
		&privilege.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Privilege")
		}
		return nil, fmt.Errorf("postgres_privilege_repo_find_by_entity_action_failed: %w", err)
	}

	return privilege, nil
}

/*
FindByID retrieves a privilege record by primary key.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - *Privilege: Hydrated entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresPrivilegeRepository) FindByID(context context.Context, id string) (*Privilege, error) {
	const query = `
		SELECT id, name, COALESCE(description, ''), entity, action, createdat, updatedat
		FROM iam.privilege
		WHERE id = $1 AND deletedat IS NULL`

	privilege := &Privilege{}
	err := repository.pool.QueryRow(context, query, id).Scan(
		&privilege.ID,
		&privilege.Name,
		&privilege.Description,
		&privilege.Entity,
		&privilege.Action,
		&privilege.CreatedAt,
		&privilege.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Privilege")
		}
		return nil, fmt.Errorf("postgres_privilege_repo_find_by_id_failed: %w", err)
	}

	return privilege, nil
}

/*
List returns a page of non-deleted privileges in stable name order.

Parameters:
  - context: context.Context
  - limit: int
  - offset: int

Returns:
  - []Privilege: The requested page
  - int: Total non-deleted privilege count
  - error: Database retrieval failures
*/
func (repository *PostgresPrivilegeRepository) List(context context.Context, limit, offset int) ([]Privilege, int, error) {
	const countQuery = `SELECT COUNT(*) FROM iam.privilege WHERE deletedat IS NULL`

	total := 0
	if err := repository.pool.QueryRow(context, countQuery).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("postgres_privilege_repo_count_failed: %w", err)
	}

	const query = `
		SELECT id, name, COALESCE(description, ''), entity, action, createdat, updatedat
		FROM iam.privilege
		WHERE deletedat IS NULL
		ORDER BY name
		LIMIT $1 OFFSET $2`

	rows, err := repository.pool.Query(context, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_privilege_repo_list_failed: %w", err)
	}
	defer rows.Close()

	privileges := make([]Privilege, 0, limit)
	for rows.Next() {
		var privilege Privilege
		if err := rows.Scan(
			&privilege.ID,
			&privilege.Name,
			&privilege.Description,
			&privilege.Entity,
			&privilege.Action,
			&privilege.CreatedAt,
			&privilege.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("postgres_privilege_repo_scan_failed: %w", err)
		}
		privileges = append(privileges, privilege)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres_privilege_repo_rows_failed: %w", err)
	}

	return privileges, total, nil
}

/*
Create persists a brand-new privilege record.

Parameters:
  - context: context.Context
  - privilege: *Privilege

Returns:
  - error: apperr.Conflict on duplicate name, or persistence failures
*/
func (repository *PostgresPrivilegeRepository) Create(context context.Context, privilege *Privilege) error {
	const query = `
		INSERT INTO iam.privilege (
			id, name, description, entity, action, createdat, updatedat
		) VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)`

	now := time.Now()
	if privilege.CreatedAt.IsZero() {
		privilege.CreatedAt = now
	}
	privilege.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		privilege.ID,
		privilege.Name,
		privilege.Description,
		privilege.Entity,
		privilege.Action,
		privilege.CreatedAt,
		privilege.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("Privilege with this name already exists")
		}
		return fmt.Errorf("postgres_privilege_repo_create_failed: %w", err)
	}

	return nil
}

/*
AssignToRole grants the privilege to the role (idempotent).

Parameters:
  - context: context.Context
  - privilegeID: string
  - roleID: string

Returns:
  - error: Persistence failures
*/
func (repository *PostgresPrivilegeRepository) AssignToRole(context context.Context, privilegeID, roleID string) error {
	const query = `
		INSERT INTO iam.role_privilege (roleid, privilegeid)
		VALUES ($1, $2)
		ON CONFLICT (roleid, privilegeid) DO NOTHING`

	if _, err := repository.pool.Exec(context, query, roleID, privilegeID); err != nil {
		return fmt.Errorf("postgres_privilege_repo_assign_failed: %w", err)
	}

	return nil
}

/*
RemoveFromRole withdraws the privilege grant from the role (idempotent).

Parameters:
  - context: context.Context
  - privilegeID: string
  - roleID: string

Returns:
  - error: Persistence failures
*/
func (repository *PostgresPrivilegeRepository) RemoveFromRole(context context.Context, privilegeID, roleID string) error {
	const query = `
		DELETE FROM iam.role_privilege
		WHERE roleid = $1 AND privilegeid = $2`

	if _, err := repository.pool.Exec(context, query, roleID, privilegeID); err != nil {
		return fmt.Errorf("postgres_privilege_repo_remove_failed: %w", err)
	}

	return nil
}
