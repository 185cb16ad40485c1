package tenancy

import (
	"context"
	"errors"
)

// ErrNoTenant indica que la operación llegó sin tenant activo.
var ErrNoTenant = errors.New("tenancy: no tenant in context")

type ctxKey struct{}

// WithTenant retorna un context con el tenant activo. El tenant se
// resuelve una vez por sesión/request y viaja explícito en el context;
// nunca hay un singleton mutable de proceso.
func WithTenant(ctx context.Context, t Tenant) context.Context {
	return context.WithValue(ctx, ctxKey{}, t)
}

// FromContext extrae el tenant activo o falla con ErrNoTenant.
func FromContext(ctx context.Context) (Tenant, error) {
	t, ok := ctx.Value(ctxKey{}).(Tenant)
	if !ok || t.Slug == "" {
		return Tenant{}, ErrNoTenant
	}
	return t, nil
}
