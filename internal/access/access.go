// Package access arma el payload de autorización de un usuario
// autenticado: sus roles agregados por dominion.
package access

import (
	"context"
	"sort"

	"github.com/dropDatabas3/tenauth/internal/domain"
	"github.com/dropDatabas3/tenauth/internal/query"
	"github.com/dropDatabas3/tenauth/internal/store"
)

// Grant es la entrada de autorización de un dominion.
type Grant struct {
	Roles []string `json:"roles"`
}

// Payload son los claims de identidad y autorización que viajan dentro
// de los tokens firmados.
type Payload struct {
	Sub           string           `json:"sub"`
	Email         string           `json:"email"`
	Authorization map[string]Grant `json:"authorization"`
}

// Claims proyecta el payload a la forma que firma el token service.
func (p Payload) Claims() map[string]any {
	authorization := map[string]any{}
	for name, grant := range p.Authorization {
		authorization[name] = map[string]any{"roles": grant.Roles}
	}
	return map[string]any{
		"sub":           p.Sub,
		"email":         p.Email,
		"authorization": authorization,
	}
}

// Assembler resuelve rankings → roles → dominions y agrupa.
type Assembler struct {
	rankings  store.Repository[domain.Ranking]
	roles     store.Repository[domain.Role]
	dominions store.Repository[domain.Dominion]
}

// NewAssembler arma el assembler con sus repositorios colaboradores.
func NewAssembler(
	rankings store.Repository[domain.Ranking],
	roles store.Repository[domain.Role],
	dominions store.Repository[domain.Dominion],
) *Assembler {
	return &Assembler{rankings: rankings, roles: roles, dominions: dominions}
}

// GeneratePayload construye los claims del usuario. Un usuario sin
// roles produce un mapa de autorización vacío, no un error.
func (a *Assembler) GeneratePayload(ctx context.Context, user domain.User) (Payload, error) {
	payload := Payload{
		Sub:           user.ID,
		Email:         user.Email,
		Authorization: map[string]Grant{},
	}

	rankings, err := a.rankings.Search(ctx, query.Domain{query.Eq("user_id", user.ID)})
	if err != nil {
		return Payload{}, err
	}
	if len(rankings) == 0 {
		return payload, nil
	}

	roleIDs := make([]any, 0, len(rankings))
	for _, r := range rankings {
		roleIDs = append(roleIDs, r.RoleID)
	}
	roles, err := a.roles.Search(ctx, query.Domain{query.In("id", roleIDs...)})
	if err != nil {
		return Payload{}, err
	}

	dominionIDs := make([]any, 0, len(roles))
	seen := map[string]bool{}
	for _, role := range roles {
		if !seen[role.DominionID] {
			seen[role.DominionID] = true
			dominionIDs = append(dominionIDs, role.DominionID)
		}
	}
	if len(dominionIDs) == 0 {
		return payload, nil
	}
	dominions, err := a.dominions.Search(ctx, query.Domain{query.In("id", dominionIDs...)})
	if err != nil {
		return Payload{}, err
	}

	nameByID := make(map[string]string, len(dominions))
	for _, d := range dominions {
		nameByID[d.ID] = d.Name
	}

	for _, role := range roles {
		name, ok := nameByID[role.DominionID]
		if !ok {
			continue // rol colgando de un dominion eliminado
		}
		grant := payload.Authorization[name]
		grant.Roles = append(grant.Roles, role.Name)
		payload.Authorization[name] = grant
	}
	for name, grant := range payload.Authorization {
		sort.Strings(grant.Roles)
		payload.Authorization[name] = grant
	}
	return payload, nil
}
