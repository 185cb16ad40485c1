// Package auth implementa el coordinador de autenticación: el dueño de
// la máquina de estados de login, refresh, registro y baja de cuentas.
//
// El coordinador no cachea nada entre llamadas: cada operación resuelve
// sus entidades contra los repositorios del tenant activo y suelta las
// referencias al terminar.
package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/dropDatabas3/tenauth/internal/access"
	"github.com/dropDatabas3/tenauth/internal/domain"
	"github.com/dropDatabas3/tenauth/internal/metrics"
	"github.com/dropDatabas3/tenauth/internal/observability/logger"
	"github.com/dropDatabas3/tenauth/internal/query"
	"github.com/dropDatabas3/tenauth/internal/security/hash"
	"github.com/dropDatabas3/tenauth/internal/security/token"
	"github.com/dropDatabas3/tenauth/internal/store"
)

// TokenPair es el resultado de una autenticación. RefreshToken queda
// vacío cuando un refresh no rota el token (fuera de la ventana de
// renovación): el caller sigue usando el que ya tiene.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Registration es una solicitud de alta de cuenta.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Gender   string `json:"gender"`
}

// El username no admite caracteres fuera de este conjunto; en particular
// excluye '@' para que nunca se confunda con un email.
var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// Coordinator orquesta autenticación, refresh, registro y baja.
type Coordinator struct {
	users         store.Repository[domain.User]
	credentials   store.Repository[domain.Credential]
	hasher        hash.Service
	assembler     *access.Assembler
	accessTokens  *token.Service
	refreshTokens *token.Service
	log           *zap.Logger
}

// NewCoordinator arma el coordinador con sus colaboradores.
func NewCoordinator(
	users store.Repository[domain.User],
	credentials store.Repository[domain.Credential],
	hasher hash.Service,
	assembler *access.Assembler,
	accessTokens, refreshTokens *token.Service,
) *Coordinator {
	return &Coordinator{
		users:         users,
		credentials:   credentials,
		hasher:        hasher,
		assembler:     assembler,
		accessTokens:  accessTokens,
		refreshTokens: refreshTokens,
		log:           logger.Named("auth"),
	}
}

// Authenticate valida identifier+password y emite el par de tokens.
// El identifier con '@' se resuelve por email; el resto por username.
// Toda falla de lookup o verificación colapsa en domain.ErrAuth sin
// detalle, para no permitir enumeración de usuarios.
func (c *Coordinator) Authenticate(ctx context.Context, identifier, password, client string) (TokenPair, error) {
	metrics.AuthAttempts.Inc()

	user, err := c.findUser(ctx, identifier)
	if err != nil {
		return TokenPair{}, c.deny(err, "user lookup")
	}

	cred, err := c.findPasswordCredential(ctx, user.ID)
	if err != nil {
		return TokenPair{}, c.deny(err, "credential lookup")
	}

	if !c.hasher.Verify(password, cred.Value) {
		return TokenPair{}, c.deny(domain.ErrAuth, "hash verify")
	}

	payload, err := c.assembler.GeneratePayload(ctx, user)
	if err != nil {
		return TokenPair{}, err
	}

	accessToken, err := c.accessTokens.Generate(payload.Claims())
	if err != nil {
		return TokenPair{}, err
	}
	metrics.TokensIssued.WithLabelValues("access").Inc()

	refreshToken, err := c.issueRefreshCredential(ctx, user.ID, client, payload)
	if err != nil {
		return TokenPair{}, err
	}

	c.log.Info("user authenticated",
		zap.String("user_id", user.ID), zap.String("client", client))
	return TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// RefreshAuthenticate intercambia un refresh token válido por un access
// token nuevo. La firma del token no alcanza: el valor debe seguir
// respaldado por una credencial almacenada, que es lo que hace a los
// refresh tokens revocables del lado del servidor. Dentro de la ventana
// de renovación también rota el refresh token.
func (c *Coordinator) RefreshAuthenticate(ctx context.Context, refreshToken string) (TokenPair, error) {
	metrics.AuthAttempts.Inc()

	if _, err := c.refreshTokens.Validate(refreshToken); err != nil {
		return TokenPair{}, c.deny(err, "refresh validate")
	}

	creds, err := c.credentials.Search(ctx, query.Domain{
		query.Eq("type", domain.CredentialTypeRefreshToken),
		query.Eq("value", refreshToken),
	})
	if err != nil {
		return TokenPair{}, err
	}
	if len(creds) == 0 {
		// revocado o nunca emitido por este servidor
		return TokenPair{}, c.deny(domain.ErrAuth, "refresh credential lookup")
	}
	cred := creds[0]

	users, err := c.users.Search(ctx, query.Domain{query.Eq("id", cred.UserID)})
	if err != nil {
		return TokenPair{}, err
	}
	if len(users) == 0 {
		return TokenPair{}, c.deny(domain.ErrAuth, "refresh user lookup")
	}

	payload, err := c.assembler.GeneratePayload(ctx, users[0])
	if err != nil {
		return TokenPair{}, err
	}
	accessToken, err := c.accessTokens.Generate(payload.Claims())
	if err != nil {
		return TokenPair{}, err
	}
	metrics.TokensIssued.WithLabelValues("access").Inc()

	pair := TokenPair{AccessToken: accessToken}

	renew, err := c.refreshTokens.Renew(refreshToken)
	if err != nil {
		return TokenPair{}, c.deny(err, "renew check")
	}
	if renew {
		rotated, err := c.refreshTokens.Generate(payload.Claims())
		if err != nil {
			return TokenPair{}, err
		}
		cred.Value = rotated // mismo id: reemplazo en el lugar
		if _, err := c.credentials.Add(ctx, []domain.Credential{cred}); err != nil {
			return TokenPair{}, err
		}
		metrics.TokensIssued.WithLabelValues("refresh").Inc()
		pair.RefreshToken = rotated
		c.log.Info("refresh token rotated", zap.String("user_id", cred.UserID))
	}
	return pair, nil
}

// Register da de alta cuentas nuevas con su credencial password.
// Valida el charset del username y la unicidad de email y username,
// en ese orden: un registro que colisiona en ambos reporta "email".
func (c *Coordinator) Register(ctx context.Context, registrations []Registration) ([]domain.User, error) {
	created := make([]domain.User, 0, len(registrations))
	for _, reg := range registrations {
		if !usernameRe.MatchString(reg.Username) {
			return nil, &domain.UserCreationError{
				Field:  "username",
				Reason: fmt.Sprintf("%q contains invalid characters", reg.Username),
			}
		}

		emails, err := c.users.Count(ctx, query.Domain{query.Eq("email", reg.Email)})
		if err != nil {
			return nil, err
		}
		if emails > 0 {
			return nil, &domain.UserCreationError{
				Field:  "email",
				Reason: fmt.Sprintf("%q is already registered", reg.Email),
			}
		}

		usernames, err := c.users.Count(ctx, query.Domain{query.Eq("username", reg.Username)})
		if err != nil {
			return nil, err
		}
		if usernames > 0 {
			return nil, &domain.UserCreationError{
				Field:  "username",
				Reason: fmt.Sprintf("%q is already registered", reg.Username),
			}
		}

		added, err := c.users.Add(ctx, []domain.User{{
			Username: reg.Username,
			Email:    reg.Email,
			Name:     reg.Name,
			Gender:   reg.Gender,
		}})
		if err != nil {
			return nil, err
		}
		user := added[0]

		if err := c.makePasswordCredential(ctx, user.ID, reg.Password); err != nil {
			return nil, err
		}

		metrics.Registrations.Inc()
		c.log.Info("user registered", zap.String("user_id", user.ID))
		created = append(created, user)
	}
	return created, nil
}

// Deregister elimina la cuenta y todas sus credenciales. Falla suave:
// un user_id vacío o desconocido retorna false sin tocar nada.
//
// La cuenta se elimina antes que las credenciales: si el barrido de
// credenciales falla a mitad, el estado parcial es una credencial
// huérfana inutilizable, nunca una cuenta sin credenciales.
func (c *Coordinator) Deregister(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}

	users, err := c.users.Search(ctx, query.Domain{query.Eq("id", userID)})
	if err != nil {
		return false, err
	}
	if len(users) == 0 {
		return false, nil
	}

	removed, err := c.users.Remove(ctx, users)
	if err != nil {
		return false, err
	}

	creds, err := c.credentials.Search(ctx, query.Domain{query.Eq("user_id", userID)})
	if err != nil {
		return removed, err
	}
	if len(creds) > 0 {
		if _, err := c.credentials.Remove(ctx, creds); err != nil {
			return removed, err
		}
	}

	if removed {
		c.log.Info("user deregistered", zap.String("user_id", userID))
	}
	return removed, nil
}

// findUser resuelve el identificador: email si contiene '@',
// username en caso contrario.
func (c *Coordinator) findUser(ctx context.Context, identifier string) (domain.User, error) {
	field := "username"
	if strings.Contains(identifier, "@") {
		field = "email"
	}
	users, err := c.users.Search(ctx, query.Domain{query.Eq(field, identifier)})
	if err != nil {
		return domain.User{}, err
	}
	if len(users) == 0 {
		return domain.User{}, domain.ErrAuth
	}
	return users[0], nil
}

func (c *Coordinator) findPasswordCredential(ctx context.Context, userID string) (domain.Credential, error) {
	creds, err := c.credentials.Search(ctx, query.Domain{
		query.Eq("user_id", userID),
		query.Eq("type", domain.CredentialTypePassword),
	})
	if err != nil {
		return domain.Credential{}, err
	}
	if len(creds) == 0 {
		return domain.Credential{}, domain.ErrAuth
	}
	return creds[0], nil
}

// issueRefreshCredential emite un refresh token y lo persiste como
// credencial de (user, client). Busca-y-reemplaza: si ya existe una
// credencial para ese par, se sobreescribe con el mismo id; nunca se
// acumula más de una por client.
func (c *Coordinator) issueRefreshCredential(ctx context.Context, userID, client string, payload access.Payload) (string, error) {
	refreshToken, err := c.refreshTokens.Generate(payload.Claims())
	if err != nil {
		return "", err
	}

	cred := domain.Credential{
		UserID: userID,
		Value:  refreshToken,
		Type:   domain.CredentialTypeRefreshToken,
		Client: client,
	}

	existing, err := c.credentials.Search(ctx, query.Domain{
		query.Eq("user_id", userID),
		query.Eq("type", domain.CredentialTypeRefreshToken),
		query.Eq("client", client),
	})
	if err != nil {
		return "", err
	}
	if len(existing) > 0 {
		cred.ID = existing[0].ID
	}

	if _, err := c.credentials.Add(ctx, []domain.Credential{cred}); err != nil {
		return "", err
	}
	metrics.TokensIssued.WithLabelValues("refresh").Inc()
	return refreshToken, nil
}

// makePasswordCredential hashea y persiste la credencial password del
// usuario, reemplazando la anterior si existe. El password vacío es
// válido: produce el hash del string vacío.
func (c *Coordinator) makePasswordCredential(ctx context.Context, userID, plain string) error {
	hashed, err := c.hasher.Hash(plain)
	if err != nil {
		return err
	}

	cred := domain.Credential{
		UserID: userID,
		Value:  hashed,
		Type:   domain.CredentialTypePassword,
	}

	existing, err := c.credentials.Search(ctx, query.Domain{
		query.Eq("user_id", userID),
		query.Eq("type", domain.CredentialTypePassword),
	})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		cred.ID = existing[0].ID
	}

	_, err = c.credentials.Add(ctx, []domain.Credential{cred})
	return err
}

// deny registra la causa real en debug y colapsa el error hacia el
// caller en domain.ErrAuth.
func (c *Coordinator) deny(cause error, stage string) error {
	metrics.AuthFailures.Inc()
	if !errors.Is(cause, domain.ErrAuth) {
		c.log.Debug("authentication denied", zap.String("stage", stage), zap.Error(cause))
	} else {
		c.log.Debug("authentication denied", zap.String("stage", stage))
	}
	return domain.ErrAuth
}
