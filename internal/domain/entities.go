// Package domain define las entidades persistidas y la taxonomía de errores
// del núcleo de identidad. Toda entidad tiene un id string que queda vacío
// hasta que el repositorio lo asigna; una vez asignado es inmutable.
package domain

// Tipos de credencial soportados.
const (
	CredentialTypePassword     = "password"
	CredentialTypeRefreshToken = "refresh_token"
)

// User es una cuenta dentro de un tenant. username y email son únicos
// por tenant; name y gender son opcionales.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Gender   string `json:"gender"`
}

func (u User) GetID() string { return u.ID }

func (u User) WithID(id string) User { u.ID = id; return u }

// Credential es un secreto asociado a un usuario: el hash de su password
// o un refresh token emitido. Un usuario tiene a lo sumo una credencial
// password y una refresh_token por cada client distinto.
type Credential struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Value  string `json:"value"`
	Type   string `json:"type"`
	Client string `json:"client"`
}

func (c Credential) GetID() string { return c.ID }

func (c Credential) WithID(id string) Credential { c.ID = id; return c }

// Dominion es un servicio externo registrado al que los roles dan acceso.
type Dominion struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (d Dominion) GetID() string { return d.ID }

func (d Dominion) WithID(id string) Dominion { d.ID = id; return d }

// Role es un rol dentro de un dominion.
type Role struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DominionID  string `json:"dominion_id"`
	Description string `json:"description"`
}

func (r Role) GetID() string { return r.ID }

func (r Role) WithID(id string) Role { r.ID = id; return r }

// Ranking asigna un rol a un usuario.
type Ranking struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	RoleID string `json:"role_id"`
}

func (r Ranking) GetID() string { return r.ID }

func (r Ranking) WithID(id string) Ranking { r.ID = id; return r }

// Restriction limita el alcance de una policy de seguridad.
// Se crean y eliminan en bloque; no tienen invariantes relacionales.
type Restriction struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Sequence  int    `json:"sequence"`
	Condition string `json:"condition"`
}

func (r Restriction) GetID() string { return r.ID }

func (r Restriction) WithID(id string) Restriction { r.ID = id; return r }

// Policy es una regla de seguridad de alto nivel.
type Policy struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (p Policy) GetID() string { return p.ID }

func (p Policy) WithID(id string) Policy { p.ID = id; return p }
