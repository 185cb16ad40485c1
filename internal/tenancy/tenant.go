// Package tenancy modela el tenant como frontera de aislamiento: su
// identidad (slug normalizado), su provisión en el catálogo y su
// propagación explícita vía context.
package tenancy

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Tenant es la frontera de aislamiento que particiona todo el storage.
// El id queda vacío hasta que el catálogo lo asigna; el slug es derivado
// del nombre, determinístico y único en el sistema.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ErrInvalidSlug indica que el nombre no produce ningún slug utilizable.
var ErrInvalidSlug = errors.New("tenancy: name normalizes to empty slug")

// New construye un tenant con slug derivado y timestamps de construcción.
func New(name string) (Tenant, error) {
	slug, err := NormalizeSlug(name)
	if err != nil {
		return Tenant{}, err
	}
	now := time.Now().UTC()
	return Tenant{
		Name:      name,
		Slug:      slug,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// NormalizeSlug deriva el slug: minúsculas, diacríticos removidos y
// cualquier secuencia no alfanumérica reemplazada por "_".
// Falla si el resultado queda vacío ("  ", "あ").
func NormalizeSlug(name string) (string, error) {
	// Descomponer y descartar marcas combinantes (tildes, diéresis)
	stripper := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(stripper, name)
	if err != nil {
		plain = name
	}
	plain = strings.ToLower(plain)

	var b strings.Builder
	pendingSep := false
	for _, r := range plain {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		default:
			pendingSep = true
		}
	}

	slug := b.String()
	if slug == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidSlug, name)
	}
	return slug, nil
}
