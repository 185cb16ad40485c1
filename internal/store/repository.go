// Package store implementa el repositorio genérico particionado por
// tenant: CRUD consultable por dominios de búsqueda, con backends JSON
// (durable) y memoria (testing).
//
// El tenant activo viaja en el context (tenancy.FromContext); cada
// operación ve y muta únicamente la partición de ese tenant.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dropDatabas3/tenauth/internal/query"
)

// Record es el contrato mínimo de toda entidad persistible: id legible
// y una copia con id asignado (los repositorios nunca mutan el item
// recibido).
type Record[T any] interface {
	GetID() string
	WithID(id string) T
}

// Repository es el contrato de storage por tipo de entidad.
type Repository[T Record[T]] interface {
	// Add persiste items. Un id vacío recibe un id generado único; un id
	// existente se sobreescribe completo (upsert). Retorna los items
	// persistidos con ids poblados.
	Add(ctx context.Context, items []T) ([]T, error)

	// Search aplica el dominio a cada registro de la partición en orden
	// estable, luego offset y luego limit. Storage ausente equivale a
	// colección vacía.
	Search(ctx context.Context, domain query.Domain, opts ...SearchOption) ([]T, error)

	// Remove elimina los registros con los ids de items. Retorna si al
	// menos uno existía; remover un id inexistente no es error.
	Remove(ctx context.Context, items []T) (bool, error)

	// Count cuenta los registros que matchean el dominio, con la misma
	// semántica de dominio vacío y storage ausente que Search.
	Count(ctx context.Context, domain query.Domain) (int, error)
}

// SearchOption pagina los resultados de Search.
type SearchOption func(*searchOptions)

type searchOptions struct {
	limit  int // -1 = sin límite; 0 es un límite válido (vacío)
	offset int
}

func newSearchOptions(opts []SearchOption) searchOptions {
	so := searchOptions{limit: -1}
	for _, opt := range opts {
		opt(&so)
	}
	return so
}

// WithLimit toma a lo sumo n registros. n=0 produce una secuencia vacía.
func WithLimit(n int) SearchOption {
	return func(so *searchOptions) { so.limit = n }
}

// WithOffset salta los primeros n registros antes de aplicar el límite.
func WithOffset(n int) SearchOption {
	return func(so *searchOptions) { so.offset = n }
}

func (so searchOptions) page(n int) (start, end int) {
	start = so.offset
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	end = n
	if so.limit >= 0 && start+so.limit < end {
		end = start + so.limit
	}
	return start, end
}

// asRecord proyecta un item a un mapa campo→valor para el evaluador de
// dominios, pasando por su forma JSON.
func asRecord(item any) (map[string]any, error) {
	b, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("store: marshal record: %w", err)
	}
	var rec map[string]any
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("store: project record: %w", err)
	}
	return rec, nil
}
