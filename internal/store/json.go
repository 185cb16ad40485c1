package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/dropDatabas3/tenauth/internal/query"
	"github.com/dropDatabas3/tenauth/internal/tenancy"
	"github.com/dropDatabas3/tenauth/internal/util/atomicwrite"
)

// JSONRepository persiste una colección por tenant en
// <root>/<slug>/<collection>.json con el formato
//
//	{"<collection>": {"<id>": {campos...}}}
//
// Archivo ausente equivale a colección vacía en lecturas y se crea en la
// primera escritura. Toda escritura es read-modify-write del documento
// completo con reemplazo atómico; un mutex por tenant serializa los
// escritores de la partición (los tenants no comparten estado entre sí).
type JSONRepository[T Record[T]] struct {
	root       string
	collection string

	mu    sync.Mutex
	locks map[string]*sync.Mutex // slug → lock de partición
}

// NewJSONRepository crea el repositorio de una colección bajo root.
func NewJSONRepository[T Record[T]](root, collection string) *JSONRepository[T] {
	return &JSONRepository[T]{
		root:       root,
		collection: collection,
		locks:      map[string]*sync.Mutex{},
	}
}

func (r *JSONRepository[T]) filePath(slug string) string {
	return filepath.Join(r.root, slug, r.collection+".json")
}

func (r *JSONRepository[T]) partitionLock(slug string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[slug]
	if !ok {
		l = &sync.Mutex{}
		r.locks[slug] = l
	}
	return l
}

// Add persiste items en la partición del tenant activo.
func (r *JSONRepository[T]) Add(ctx context.Context, items []T) ([]T, error) {
	tenant, err := tenancy.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	lock := r.partitionLock(tenant.Slug)
	lock.Lock()
	defer lock.Unlock()

	raw := r.load(tenant.Slug)

	out := make([]T, 0, len(items))
	for _, item := range items {
		if item.GetID() == "" {
			item = item.WithID(r.newID(raw))
		}
		b, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("store: marshal %s: %w", r.collection, err)
		}
		raw[item.GetID()] = b
		out = append(out, item)
	}

	if err := r.save(tenant.Slug, raw); err != nil {
		return nil, err
	}
	return out, nil
}

// Search filtra la colección del tenant activo en orden estable (ids
// ordenados lexicográficamente) y aplica offset/limit.
func (r *JSONRepository[T]) Search(ctx context.Context, domain query.Domain, opts ...SearchOption) ([]T, error) {
	tenant, err := tenancy.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	so := newSearchOptions(opts)

	lock := r.partitionLock(tenant.Slug)
	lock.Lock()
	raw := r.load(tenant.Slug)
	lock.Unlock()

	matched, err := matchRaw(raw, domain)
	if err != nil {
		return nil, err
	}

	start, end := so.page(len(matched))
	items := make([]T, 0, end-start)
	for _, id := range matched[start:end] {
		var item T
		if err := json.Unmarshal(raw[id], &item); err != nil {
			return nil, fmt.Errorf("store: decode %s/%s: %w", r.collection, id, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// Remove elimina por id. Retorna true si al menos un registro existía.
func (r *JSONRepository[T]) Remove(ctx context.Context, items []T) (bool, error) {
	tenant, err := tenancy.FromContext(ctx)
	if err != nil {
		return false, err
	}

	lock := r.partitionLock(tenant.Slug)
	lock.Lock()
	defer lock.Unlock()

	raw := r.load(tenant.Slug)
	removed := false
	for _, item := range items {
		if _, ok := raw[item.GetID()]; ok {
			delete(raw, item.GetID())
			removed = true
		}
	}
	if !removed {
		return false, nil
	}
	if err := r.save(tenant.Slug, raw); err != nil {
		return false, err
	}
	return true, nil
}

// Count cuenta los registros que matchean el dominio.
func (r *JSONRepository[T]) Count(ctx context.Context, domain query.Domain) (int, error) {
	tenant, err := tenancy.FromContext(ctx)
	if err != nil {
		return 0, err
	}

	lock := r.partitionLock(tenant.Slug)
	lock.Lock()
	raw := r.load(tenant.Slug)
	lock.Unlock()

	matched, err := matchRaw(raw, domain)
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

// matchRaw retorna los ids que matchean, en orden estable.
func matchRaw(raw map[string]json.RawMessage, domain query.Domain) ([]string, error) {
	ids := make([]string, 0, len(raw))
	for id := range raw {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	matched := ids[:0]
	for _, id := range ids {
		var rec map[string]any
		if err := json.Unmarshal(raw[id], &rec); err != nil {
			continue // registro corrupto: se ignora, no se propaga
		}
		ok, err := domain.Match(rec)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, id)
		}
	}
	return matched, nil
}

// newID genera un id único dentro de la colección.
func (r *JSONRepository[T]) newID(raw map[string]json.RawMessage) string {
	for {
		id := uuid.NewString()
		if _, ok := raw[id]; !ok {
			return id
		}
	}
}

// load lee la partición. Cualquier falla de lectura o parseo se trata
// como colección vacía: el storage ausente no es un error del dominio.
func (r *JSONRepository[T]) load(slug string) map[string]json.RawMessage {
	data, err := os.ReadFile(r.filePath(slug))
	if err != nil {
		return map[string]json.RawMessage{}
	}
	var doc map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return map[string]json.RawMessage{}
	}
	items := doc[r.collection]
	if items == nil {
		items = map[string]json.RawMessage{}
	}
	return items
}

func (r *JSONRepository[T]) save(slug string, raw map[string]json.RawMessage) error {
	doc := map[string]map[string]json.RawMessage{r.collection: raw}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal %s: %w", r.collection, err)
	}
	return atomicwrite.WriteFile(r.filePath(slug), data, 0o644)
}
