// Copyright (c) 2026 Labtrace. All rights reserved.
// Author: engineering@labtrace.io

/*
Package rbac implements the role-based access-control decision engine.

It defines the core identity entities (User, Role, Privilege), the repository
contracts backing them, and the privilege resolution algorithm that answers
"does this user hold privilege P?" for every protected operation in the
platform.

# Architecture

This layer is the "Truth" of authorization. Entities defined here have no
transport or storage dependencies; resolution is deny-by-default and every
read path excludes soft-deleted rows at the repository contract level.
*/
package rbac

import (
	"fmt"
	"strings"
	"time"
)

// # Domain Entities

// User represents a registered member of the Labtrace platform.
//
// A superuser bypasses privilege resolution entirely; an inactive or
// soft-deleted user is denied before any role traversal.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Empty for SSO-provisioned accounts. Omitted from JSON for security.
	FullName     string    `json:"full_name,omitempty"`
	IsActive     bool      `json:"is_active"`
	IsSuperuser  bool      `json:"is_superuser"`
	IsDeleted    bool      `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasPassword reports whether the account can authenticate with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// Role is a named bundle of privileges assignable to users.
//
// A role flagged IsAdmin grants blanket access: it satisfies any privilege
// check without enumerating its privileges. This is a legacy bypass layer
// kept as a first-class feature — several long-lived deployments rely on it.
type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsAdmin     bool      `json:"is_admin"`
	IsActive    bool      `json:"is_active"`
	IsDeleted   bool      `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Privilege is a named permission in canonical "entity:action" form, or one
// of the wildcard forms "entity:*", "*:*", "*".
type Privilege struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Entity      string    `json:"entity"`
	Action      string    `json:"action"`
	IsDeleted   bool      `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// # Privilege Naming

// CRUD actions in the stable order required for privilege bootstrapping.
const (
	ActionCreate = "create"
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// CrudActions lists the four standard actions in their canonical order.
var CrudActions = [4]string{ActionCreate, ActionRead, ActionUpdate, ActionDelete}

const (
	// WildcardGlobal matches any required privilege.
	WildcardGlobal = "*"

	// WildcardGlobalPair is the two-segment spelling of the global wildcard.
	WildcardGlobalPair = "*:*"

	// wildcardActionSuffix marks a resource-level wildcard ("entity:*").
	wildcardActionSuffix = ":*"
)

// PrivilegeName builds the canonical "entity:action" privilege string.
func PrivilegeName(entity, action string) string {
	return entity + ":" + action
}

// SplitPrivilegeName splits a privilege name into its entity and action
// segments.
//
// Names are case-sensitive and must contain exactly one colon, with the
// single-character global wildcard "*" as the only exception.
func SplitPrivilegeName(name string) (entity, action string, err error) {
	if name == WildcardGlobal {
		return WildcardGlobal, WildcardGlobal, nil
	}

	segments := strings.Split(name, ":")
	if len(segments) != 2 || segments[0] == "" || segments[1] == "" {
		return "", "", fmt.Errorf("rbac: malformed privilege name %q (want \"entity:action\")", name)
	}

	return segments[0], segments[1], nil
}
