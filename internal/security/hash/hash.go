// Package hash provee el servicio de hashing de credenciales: una
// transformación one-way intercambiable, con verificación explícita
// para soportar sal por hash.
package hash

// Service es el contrato del servicio de hashing.
type Service interface {
	// Hash deriva la forma almacenable de un valor plano. Hashear el
	// string vacío es válido (produce el hash del vacío).
	Hash(plain string) (string, error)

	// Verify compara un valor plano contra un hash almacenado.
	Verify(plain, hashed string) bool
}

// Plain es un hasher determinístico sin sal, solo para tests y modo
// dry-run: permite sembrar valores almacenados predecibles.
type Plain struct{}

func (Plain) Hash(plain string) (string, error) { return "hashed:" + plain, nil }

func (Plain) Verify(plain, hashed string) bool { return "hashed:"+plain == hashed }
