// Package security administra las reglas de seguridad del tenant:
// restricciones (condiciones ordenadas por secuencia) y políticas
// (pares nombre/valor). Los subpaquetes hash y token implementan la
// criptografía de credenciales y tokens.
package security

import (
	"context"

	"github.com/dropDatabas3/tenauth/internal/domain"
	"github.com/dropDatabas3/tenauth/internal/query"
	"github.com/dropDatabas3/tenauth/internal/store"
)

// Manager administra restricciones y políticas.
type Manager struct {
	restrictions store.Repository[domain.Restriction]
	policies     store.Repository[domain.Policy]
}

// NewManager arma el manager con sus repositorios.
func NewManager(
	restrictions store.Repository[domain.Restriction],
	policies store.Repository[domain.Policy],
) *Manager {
	return &Manager{restrictions: restrictions, policies: policies}
}

// CreateRestrictions persiste restricciones (alta o upsert por id).
func (m *Manager) CreateRestrictions(ctx context.Context, restrictions []domain.Restriction) ([]domain.Restriction, error) {
	return m.restrictions.Add(ctx, restrictions)
}

// RemoveRestrictions elimina las restricciones con los ids dados.
// Retorna si al menos una existía; ids desconocidos no son error.
func (m *Manager) RemoveRestrictions(ctx context.Context, ids []string) (bool, error) {
	found, err := m.restrictions.Search(ctx, query.Domain{query.In("id", asAny(ids)...)})
	if err != nil {
		return false, err
	}
	if len(found) == 0 {
		return false, nil
	}
	return m.restrictions.Remove(ctx, found)
}

// CreatePolicies persiste políticas (alta o upsert por id).
func (m *Manager) CreatePolicies(ctx context.Context, policies []domain.Policy) ([]domain.Policy, error) {
	return m.policies.Add(ctx, policies)
}

// RemovePolicies elimina las políticas con los ids dados.
func (m *Manager) RemovePolicies(ctx context.Context, ids []string) (bool, error) {
	found, err := m.policies.Search(ctx, query.Domain{query.In("id", asAny(ids)...)})
	if err != nil {
		return false, err
	}
	if len(found) == 0 {
		return false, nil
	}
	return m.policies.Remove(ctx, found)
}

func asAny(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
