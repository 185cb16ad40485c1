package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/dropDatabas3/tenauth/internal/query"
	"github.com/dropDatabas3/tenauth/internal/tenancy"
)

// MemoryRepository implementa el mismo contrato que JSONRepository sobre
// maps in-process. Se usa en tests y en modo dry-run del CLI.
type MemoryRepository[T Record[T]] struct {
	mu   sync.Mutex
	data map[string]map[string]T // slug → id → item
}

// NewMemoryRepository crea un repositorio en memoria vacío.
func NewMemoryRepository[T Record[T]]() *MemoryRepository[T] {
	return &MemoryRepository[T]{data: map[string]map[string]T{}}
}

func (r *MemoryRepository[T]) partition(slug string) map[string]T {
	items, ok := r.data[slug]
	if !ok {
		items = map[string]T{}
		r.data[slug] = items
	}
	return items
}

func (r *MemoryRepository[T]) Add(ctx context.Context, items []T) ([]T, error) {
	tenant, err := tenancy.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	part := r.partition(tenant.Slug)
	out := make([]T, 0, len(items))
	for _, item := range items {
		if item.GetID() == "" {
			item = item.WithID(uuid.NewString())
		}
		part[item.GetID()] = item
		out = append(out, item)
	}
	return out, nil
}

func (r *MemoryRepository[T]) Search(ctx context.Context, domain query.Domain, opts ...SearchOption) ([]T, error) {
	tenant, err := tenancy.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	so := newSearchOptions(opts)

	r.mu.Lock()
	defer r.mu.Unlock()

	matched, err := r.match(tenant.Slug, domain)
	if err != nil {
		return nil, err
	}
	start, end := so.page(len(matched))
	return matched[start:end], nil
}

func (r *MemoryRepository[T]) Remove(ctx context.Context, items []T) (bool, error) {
	tenant, err := tenancy.FromContext(ctx)
	if err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	part := r.partition(tenant.Slug)
	removed := false
	for _, item := range items {
		if _, ok := part[item.GetID()]; ok {
			delete(part, item.GetID())
			removed = true
		}
	}
	return removed, nil
}

func (r *MemoryRepository[T]) Count(ctx context.Context, domain query.Domain) (int, error) {
	tenant, err := tenancy.FromContext(ctx)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	matched, err := r.match(tenant.Slug, domain)
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

// match retorna los items que matchean, en orden estable por id.
func (r *MemoryRepository[T]) match(slug string, domain query.Domain) ([]T, error) {
	part := r.partition(slug)

	ids := make([]string, 0, len(part))
	for id := range part {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	matched := make([]T, 0, len(ids))
	for _, id := range ids {
		item := part[id]
		rec, err := asRecord(item)
		if err != nil {
			return nil, err
		}
		ok, err := domain.Match(rec)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, item)
		}
	}
	return matched, nil
}
