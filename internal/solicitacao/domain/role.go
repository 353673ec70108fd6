package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// RoleKind is the persisted tag of a Role.
type RoleKind string

const (
	RoleAdministrador    RoleKind = "administrador"
	RoleGestor           RoleKind = "gestor"
	RoleCoordenador      RoleKind = "coordenador"
	RoleTecnico          RoleKind = "tecnico"
	RoleAssistenteSocial RoleKind = "assistente_social"
	RoleAuditor          RoleKind = "auditor"
	roleSistema          RoleKind = "sistema"
)

type rolePermissions struct {
	mutateRequests bool
	applyJudicial  bool
}

var rolesByKind = map[RoleKind]rolePermissions{
	RoleAdministrador:    {mutateRequests: true, applyJudicial: true},
	RoleGestor:           {mutateRequests: true, applyJudicial: true},
	RoleCoordenador:      {mutateRequests: true, applyJudicial: true},
	RoleTecnico:          {mutateRequests: true},
	RoleAssistenteSocial: {mutateRequests: true},
	RoleAuditor:          {},
	roleSistema:          {mutateRequests: true},
}

// Role is the closed set of access roles. The zero value has no permissions.
type Role struct {
	kind RoleKind
}

// ParseRole resolves a role tag received at the access-control boundary.
// The internal system role cannot be obtained this way.
func ParseRole(value string) (Role, error) {
	kind := RoleKind(value)
	if _, ok := rolesByKind[kind]; !ok || kind == roleSistema {
		return Role{}, fmt.Errorf("unknown role %q", value)
	}
	return Role{kind: kind}, nil
}

// ResolveRole picks the most privileged known role out of a token's role list.
func ResolveRole(values []string) (Role, error) {
	precedence := []RoleKind{RoleAdministrador, RoleGestor, RoleCoordenador, RoleAssistenteSocial, RoleTecnico, RoleAuditor}
	held := make(map[string]bool, len(values))
	for _, v := range values {
		held[v] = true
	}
	for _, kind := range precedence {
		if held[string(kind)] {
			return Role{kind: kind}, nil
		}
	}
	return Role{}, fmt.Errorf("no known role in %v", values)
}

func (r Role) Kind() RoleKind { return r.kind }

func (r Role) String() string { return string(r.kind) }

// CanMutateRequests reports whether the role may change request state.
func (r Role) CanMutateRequests() bool { return rolesByKind[r.kind].mutateRequests }

// CanApplyJudicial reports whether the role may register court determinations.
func (r Role) CanApplyJudicial() bool { return rolesByKind[r.kind].applyJudicial }

// Is reports whether the role carries kind.
func (r Role) Is(kind RoleKind) bool { return r.kind == kind }

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID        uuid.UUID
	Role      Role
	UnidadeID *uuid.UUID
}

// SystemActor is used for automatic operations such as renewals.
func SystemActor() Actor {
	return Actor{ID: uuid.Nil, Role: Role{kind: roleSistema}}
}

// IsSystem reports whether a is the automatic system actor.
func (a Actor) IsSystem() bool { return a.Role.kind == roleSistema }

// HistoryUserID returns the user reference stored in history rows (nil for the system).
func (a Actor) HistoryUserID() *uuid.UUID {
	if a.IsSystem() || a.ID == uuid.Nil {
		return nil
	}
	id := a.ID
	return &id
}
