package auth

import (
	"context"

	"github.com/dropDatabas3/tenauth/internal/domain"
	"github.com/dropDatabas3/tenauth/internal/query"
	"github.com/dropDatabas3/tenauth/internal/store"
)

// Reporter expone búsquedas de solo lectura sobre las entidades del
// tenant activo, para tooling administrativo. No filtra campos: las
// credenciales salen con su valor hasheado incluido, así que su uso
// queda reservado a superficies operativas.
type Reporter struct {
	users       store.Repository[domain.User]
	credentials store.Repository[domain.Credential]
	roles       store.Repository[domain.Role]
	dominions   store.Repository[domain.Dominion]
}

// NewReporter arma el reporter con sus repositorios.
func NewReporter(
	users store.Repository[domain.User],
	credentials store.Repository[domain.Credential],
	roles store.Repository[domain.Role],
	dominions store.Repository[domain.Dominion],
) *Reporter {
	return &Reporter{
		users:       users,
		credentials: credentials,
		roles:       roles,
		dominions:   dominions,
	}
}

// SearchUsers lista usuarios que cumplen el dominio de búsqueda.
func (r *Reporter) SearchUsers(ctx context.Context, d query.Domain, opts ...store.SearchOption) ([]domain.User, error) {
	return r.users.Search(ctx, d, opts...)
}

// SearchCredentials lista credenciales que cumplen el dominio.
func (r *Reporter) SearchCredentials(ctx context.Context, d query.Domain, opts ...store.SearchOption) ([]domain.Credential, error) {
	return r.credentials.Search(ctx, d, opts...)
}

// SearchRoles lista roles que cumplen el dominio.
func (r *Reporter) SearchRoles(ctx context.Context, d query.Domain, opts ...store.SearchOption) ([]domain.Role, error) {
	return r.roles.Search(ctx, d, opts...)
}

// SearchDominions lista dominions que cumplen el dominio.
func (r *Reporter) SearchDominions(ctx context.Context, d query.Domain, opts ...store.SearchOption) ([]domain.Dominion, error) {
	return r.dominions.Search(ctx, d, opts...)
}
