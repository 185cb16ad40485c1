package tenancy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/tenauth/internal/cache"
	"github.com/dropDatabas3/tenauth/internal/util/atomicwrite"
)

// Errores del catálogo.
var (
	ErrTenantExists   = errors.New("tenancy: tenant already exists")
	ErrTenantNotFound = errors.New("tenancy: tenant not found")
)

const (
	catalogFile    = "tenants.json"
	cacheKeyPrefix = "tenant:"
	cacheTTL       = 5 * time.Minute
)

// Catalog provisiona y resuelve tenants. Es el único escritor de
// tenants.json; las resoluciones por slug pasan por cache con
// singleflight para no estampedear el disco.
type Catalog struct {
	root  string
	cache cache.Client
	group singleflight.Group
	mu    sync.Mutex
}

// NewCatalog crea un catálogo sobre el directorio raíz de datos.
// c puede ser nil; en ese caso no se cachea.
func NewCatalog(root string, c cache.Client) *Catalog {
	return &Catalog{root: root, cache: c}
}

type catalogDoc struct {
	Tenants map[string]Tenant `json:"tenants"`
}

func (c *Catalog) path() string { return filepath.Join(c.root, catalogFile) }

// Create provisiona un tenant nuevo. El slug derivado del nombre debe
// ser único; los tenants nunca se eliminan desde este núcleo.
func (c *Catalog) Create(ctx context.Context, name string) (Tenant, error) {
	tenant, err := New(name)
	if err != nil {
		return Tenant{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	doc, err := c.load()
	if err != nil {
		return Tenant{}, err
	}
	for _, t := range doc.Tenants {
		if t.Slug == tenant.Slug {
			return Tenant{}, fmt.Errorf("%w: %s", ErrTenantExists, tenant.Slug)
		}
	}

	tenant.ID = uuid.NewString()
	doc.Tenants[tenant.ID] = tenant
	if err := c.save(doc); err != nil {
		return Tenant{}, err
	}
	if c.cache != nil {
		c.cache.Delete(ctx, cacheKeyPrefix+tenant.Slug)
	}
	return tenant, nil
}

// List retorna todos los tenants ordenados por slug.
func (c *Catalog) List(ctx context.Context) ([]Tenant, error) {
	c.mu.Lock()
	doc, err := c.load()
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	tenants := make([]Tenant, 0, len(doc.Tenants))
	for _, t := range doc.Tenants {
		tenants = append(tenants, t)
	}
	sort.Slice(tenants, func(i, j int) bool { return tenants[i].Slug < tenants[j].Slug })
	return tenants, nil
}

// GetBySlug resuelve un tenant por slug, con cache de lecturas.
func (c *Catalog) GetBySlug(ctx context.Context, slug string) (Tenant, error) {
	if c.cache != nil {
		if b, ok := c.cache.Get(ctx, cacheKeyPrefix+slug); ok {
			var t Tenant
			if err := json.Unmarshal(b, &t); err == nil {
				return t, nil
			}
		}
	}

	// singleflight colapsa resoluciones concurrentes del mismo slug
	v, err, _ := c.group.Do(slug, func() (any, error) {
		c.mu.Lock()
		doc, err := c.load()
		c.mu.Unlock()
		if err != nil {
			return nil, err
		}
		for _, t := range doc.Tenants {
			if t.Slug == slug {
				return t, nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrTenantNotFound, slug)
	})
	if err != nil {
		return Tenant{}, err
	}

	tenant := v.(Tenant)
	if c.cache != nil {
		if b, err := json.Marshal(tenant); err == nil {
			c.cache.Set(ctx, cacheKeyPrefix+slug, b, cacheTTL)
		}
	}
	return tenant, nil
}

// load lee el catálogo; archivo ausente equivale a catálogo vacío.
func (c *Catalog) load() (catalogDoc, error) {
	doc := catalogDoc{Tenants: map[string]Tenant{}}
	data, err := os.ReadFile(c.path())
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return doc, fmt.Errorf("tenancy: read catalog: %w", err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("tenancy: parse catalog: %w", err)
	}
	if doc.Tenants == nil {
		doc.Tenants = map[string]Tenant{}
	}
	return doc, nil
}

func (c *Catalog) save(doc catalogDoc) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("tenancy: marshal catalog: %w", err)
	}
	return atomicwrite.WriteFile(c.path(), data, 0o644)
}
