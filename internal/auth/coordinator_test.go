package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/tenauth/internal/access"
	"github.com/dropDatabas3/tenauth/internal/domain"
	"github.com/dropDatabas3/tenauth/internal/query"
	"github.com/dropDatabas3/tenauth/internal/security/hash"
	"github.com/dropDatabas3/tenauth/internal/security/token"
	"github.com/dropDatabas3/tenauth/internal/store"
	"github.com/dropDatabas3/tenauth/internal/tenancy"
)

type coordinatorFixture struct {
	coordinator *Coordinator
	users       store.Repository[domain.User]
	credentials store.Repository[domain.Credential]
	refresh     *token.Service
	ctx         context.Context
}

func newFixture(t *testing.T, refreshTTL, renewalWindow time.Duration) *coordinatorFixture {
	t.Helper()

	tenant, err := tenancy.New("Default")
	require.NoError(t, err)
	ctx := tenancy.WithTenant(context.Background(), tenant)

	users := store.NewMemoryRepository[domain.User]()
	credentials := store.NewMemoryRepository[domain.Credential]()
	rankings := store.NewMemoryRepository[domain.Ranking]()
	roles := store.NewMemoryRepository[domain.Role]()
	dominions := store.NewMemoryRepository[domain.Dominion]()

	_, err = users.Add(ctx, []domain.User{
		{ID: "1", Username: "valenep", Email: "valenep@gmail.com"},
		{ID: "2", Username: "tebanep", Email: "tebanep@gmail.com"},
		{ID: "3", Username: "gabeche", Email: "gabeche@gmail.com"},
	})
	require.NoError(t, err)

	_, err = credentials.Add(ctx, []domain.Credential{
		{ID: "1", UserID: "1", Value: "hashed:PASS1", Type: domain.CredentialTypePassword},
		{ID: "2", UserID: "2", Value: "hashed:PASS2", Type: domain.CredentialTypePassword},
		{ID: "3", UserID: "3", Value: "hashed:PASS3", Type: domain.CredentialTypePassword},
	})
	require.NoError(t, err)

	accessTokens := token.NewService("ACCESS_SECRET", time.Hour, 0)
	refreshTokens := token.NewService("REFRESH_SECRET", refreshTTL, renewalWindow)

	coordinator := NewCoordinator(
		users, credentials, hash.Plain{},
		access.NewAssembler(rankings, roles, dominions),
		accessTokens, refreshTokens,
	)
	return &coordinatorFixture{
		coordinator: coordinator,
		users:       users,
		credentials: credentials,
		refresh:     refreshTokens,
		ctx:         ctx,
	}
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t, 168*time.Hour, 0)

	pair, err := f.coordinator.Authenticate(f.ctx, "tebanep", "PASS2", "mobile")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
}

func TestAuthenticate_ByEmail(t *testing.T) {
	f := newFixture(t, 168*time.Hour, 0)

	pair, err := f.coordinator.Authenticate(f.ctx, "tebanep@gmail.com", "PASS2", "mobile")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
}

func TestAuthenticate_Failures(t *testing.T) {
	f := newFixture(t, 168*time.Hour, 0)

	cases := []struct {
		name, identifier, password string
	}{
		{"wrong password", "tebanep", "WRONG"},
		{"unknown username", "nobody", "PASS2"},
		{"unknown email", "nobody@gmail.com", "PASS2"},
		{"password of another user", "valenep", "PASS2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.coordinator.Authenticate(f.ctx, tc.identifier, tc.password, "web")
			assert.ErrorIs(t, err, domain.ErrAuth)
		})
	}
}

func TestAuthenticate_PersistsRefreshCredential(t *testing.T) {
	f := newFixture(t, 168*time.Hour, 0)

	pair, err := f.coordinator.Authenticate(f.ctx, "tebanep", "PASS2", "mobile")
	require.NoError(t, err)

	creds, err := f.credentials.Search(f.ctx, query.Domain{
		query.Eq("user_id", "2"),
		query.Eq("type", domain.CredentialTypeRefreshToken),
	})
	require.NoError(t, err)
	require.Len(t, creds, 1)
	assert.Equal(t, pair.RefreshToken, creds[0].Value)
	assert.Equal(t, "mobile", creds[0].Client)
}

func TestAuthenticate_RefreshCredentialReplacedPerClient(t *testing.T) {
	f := newFixture(t, 168*time.Hour, 0)

	first, err := f.coordinator.Authenticate(f.ctx, "tebanep", "PASS2", "mobile")
	require.NoError(t, err)
	second, err := f.coordinator.Authenticate(f.ctx, "tebanep", "PASS2", "mobile")
	require.NoError(t, err)

	creds, err := f.credentials.Search(f.ctx, query.Domain{
		query.Eq("user_id", "2"),
		query.Eq("type", domain.CredentialTypeRefreshToken),
		query.Eq("client", "mobile"),
	})
	require.NoError(t, err)
	require.Len(t, creds, 1, "one refresh credential per (user, client)")
	assert.Equal(t, second.RefreshToken, creds[0].Value)
	assert.NotEqual(t, first.RefreshToken, "", "first login also issued a token")

	// Otro client del mismo usuario conserva su propia credencial.
	_, err = f.coordinator.Authenticate(f.ctx, "tebanep", "PASS2", "web")
	require.NoError(t, err)

	count, err := f.credentials.Count(f.ctx, query.Domain{
		query.Eq("user_id", "2"),
		query.Eq("type", domain.CredentialTypeRefreshToken),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRefreshAuthenticate(t *testing.T) {
	f := newFixture(t, 168*time.Hour, 0)

	pair, err := f.coordinator.Authenticate(f.ctx, "tebanep", "PASS2", "mobile")
	require.NoError(t, err)

	refreshed, err := f.coordinator.RefreshAuthenticate(f.ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.Empty(t, refreshed.RefreshToken, "outside the renewal window the token is not rotated")
}

func TestRefreshAuthenticate_RotatesInsideRenewalWindow(t *testing.T) {
	// La ventana cubre toda la vida útil: todo refresh rota.
	f := newFixture(t, time.Hour, time.Hour)

	pair, err := f.coordinator.Authenticate(f.ctx, "tebanep", "PASS2", "mobile")
	require.NoError(t, err)

	refreshed, err := f.coordinator.RefreshAuthenticate(f.ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, refreshed.RefreshToken)
	assert.NotEqual(t, pair.RefreshToken, refreshed.RefreshToken)

	// La credencial almacenada sigue siendo una sola, con el valor nuevo.
	creds, err := f.credentials.Search(f.ctx, query.Domain{
		query.Eq("user_id", "2"),
		query.Eq("type", domain.CredentialTypeRefreshToken),
	})
	require.NoError(t, err)
	require.Len(t, creds, 1)
	assert.Equal(t, refreshed.RefreshToken, creds[0].Value)

	// El token viejo quedó revocado por el reemplazo.
	_, err = f.coordinator.RefreshAuthenticate(f.ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrAuth)
}

func TestRefreshAuthenticate_Failures(t *testing.T) {
	f := newFixture(t, 168*time.Hour, 0)

	t.Run("garbage token", func(t *testing.T) {
		_, err := f.coordinator.RefreshAuthenticate(f.ctx, "not-a-token")
		assert.ErrorIs(t, err, domain.ErrAuth)
	})

	t.Run("valid signature but not stored", func(t *testing.T) {
		// Firmado con el secreto correcto pero nunca persistido: revocado.
		orphan, err := f.refresh.Generate(map[string]any{"sub": "2"})
		require.NoError(t, err)
		_, err = f.coordinator.RefreshAuthenticate(f.ctx, orphan)
		assert.ErrorIs(t, err, domain.ErrAuth)
	})

	t.Run("stored but user deleted", func(t *testing.T) {
		pair, err := f.coordinator.Authenticate(f.ctx, "gabeche", "PASS3", "web")
		require.NoError(t, err)

		_, err = f.users.Remove(f.ctx, []domain.User{{ID: "3"}})
		require.NoError(t, err)

		_, err = f.coordinator.RefreshAuthenticate(f.ctx, pair.RefreshToken)
		assert.ErrorIs(t, err, domain.ErrAuth)
	})
}

func TestRegister(t *testing.T) {
	f := newFixture(t, 168*time.Hour, 0)

	created, err := f.coordinator.Register(f.ctx, []Registration{{
		Username: "mvp",
		Email:    "mvp@gmail.com",
		Password: "PASS4",
		Name:     "Salvador Villa",
	}})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.NotEmpty(t, created[0].ID)
	assert.Equal(t, "mvp", created[0].Username)

	// Quedó la credencial password hasheada, y el login funciona.
	creds, err := f.credentials.Search(f.ctx, query.Domain{
		query.Eq("user_id", created[0].ID),
		query.Eq("type", domain.CredentialTypePassword),
	})
	require.NoError(t, err)
	require.Len(t, creds, 1)
	assert.Equal(t, "hashed:PASS4", creds[0].Value)

	_, err = f.coordinator.Authenticate(f.ctx, "mvp", "PASS4", "web")
	assert.NoError(t, err)
}

func TestRegister_EmptyPassword(t *testing.T) {
	f := newFixture(t, 168*time.Hour, 0)

	created, err := f.coordinator.Register(f.ctx, []Registration{{
		Username: "ghost", Email: "ghost@gmail.com",
	}})
	require.NoError(t, err)
	require.Len(t, created, 1)

	_, err = f.coordinator.Authenticate(f.ctx, "ghost", "", "web")
	assert.NoError(t, err)
}

func TestRegister_InvalidUsername(t *testing.T) {
	f := newFixture(t, 168*time.Hour, 0)

	for _, username := range []string{"mvp@gmail.com", "with space", "tilde~", ""} {
		_, err := f.coordinator.Register(f.ctx, []Registration{{
			Username: username, Email: "new@gmail.com", Password: "x",
		}})
		var creationErr *domain.UserCreationError
		require.ErrorAs(t, err, &creationErr, "username %q", username)
		assert.Equal(t, "username", creationErr.Field)
		assert.Contains(t, creationErr.Error(), "username")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t, 168*time.Hour, 0)

	_, err := f.coordinator.Register(f.ctx, []Registration{{
		Username: "fresh", Email: "tebanep@gmail.com", Password: "x",
	}})
	var creationErr *domain.UserCreationError
	require.ErrorAs(t, err, &creationErr)
	assert.Equal(t, "email", creationErr.Field)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	f := newFixture(t, 168*time.Hour, 0)

	_, err := f.coordinator.Register(f.ctx, []Registration{{
		Username: "tebanep", Email: "fresh@gmail.com", Password: "x",
	}})
	var creationErr *domain.UserCreationError
	require.ErrorAs(t, err, &creationErr)
	assert.Equal(t, "username", creationErr.Field)
}

func TestRegister_DuplicateBoth_ReportsEmail(t *testing.T) {
	f := newFixture(t, 168*time.Hour, 0)

	_, err := f.coordinator.Register(f.ctx, []Registration{{
		Username: "tebanep", Email: "tebanep@gmail.com", Password: "x",
	}})
	var creationErr *domain.UserCreationError
	require.ErrorAs(t, err, &creationErr)
	assert.Equal(t, "email", creationErr.Field, "email uniqueness is checked first")
}

func TestDeregister(t *testing.T) {
	f := newFixture(t, 168*time.Hour, 0)

	// Genera además una credencial refresh para verificar la limpieza.
	_, err := f.coordinator.Authenticate(f.ctx, "tebanep", "PASS2", "mobile")
	require.NoError(t, err)

	removed, err := f.coordinator.Deregister(f.ctx, "2")
	require.NoError(t, err)
	assert.True(t, removed)

	count, err := f.users.Count(f.ctx, query.Domain{query.Eq("id", "2")})
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = f.credentials.Count(f.ctx, query.Domain{query.Eq("user_id", "2")})
	require.NoError(t, err)
	assert.Zero(t, count, "all credentials of the user are removed")

	_, err = f.coordinator.Authenticate(f.ctx, "tebanep", "PASS2", "web")
	assert.ErrorIs(t, err, domain.ErrAuth)
}

// brokenCredentialStore falla todo Remove, para simular una falla de
// I/O a mitad de una baja.
type brokenCredentialStore struct {
	store.Repository[domain.Credential]
}

func (brokenCredentialStore) Remove(context.Context, []domain.Credential) (bool, error) {
	return false, errors.New("partition write failed")
}

func TestDeregister_CredentialSweepFailure(t *testing.T) {
	f := newFixture(t, 168*time.Hour, 0)

	_, err := f.coordinator.Authenticate(f.ctx, "tebanep", "PASS2", "mobile")
	require.NoError(t, err)

	broken := NewCoordinator(
		f.users, brokenCredentialStore{f.credentials}, hash.Plain{},
		access.NewAssembler(
			store.NewMemoryRepository[domain.Ranking](),
			store.NewMemoryRepository[domain.Role](),
			store.NewMemoryRepository[domain.Dominion](),
		),
		token.NewService("ACCESS_SECRET", time.Hour, 0),
		f.refresh,
	)

	// La cuenta cae primero: aunque el barrido de credenciales falle,
	// la baja del usuario ya se concretó y se reporta junto al error.
	removed, err := broken.Deregister(f.ctx, "2")
	require.Error(t, err)
	assert.True(t, removed)

	count, err := f.users.Count(f.ctx, query.Domain{query.Eq("id", "2")})
	require.NoError(t, err)
	assert.Zero(t, count, "the account must be gone before the sweep runs")
}

func TestDeregister_Missing(t *testing.T) {
	f := newFixture(t, 168*time.Hour, 0)

	removed, err := f.coordinator.Deregister(f.ctx, "999")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestDeregister_EmptyID(t *testing.T) {
	f := newFixture(t, 168*time.Hour, 0)

	removed, err := f.coordinator.Deregister(f.ctx, "")
	require.NoError(t, err)
	assert.False(t, removed)

	count, err := f.users.Count(f.ctx, query.Domain{})
	require.NoError(t, err)
	assert.Equal(t, 3, count, "nothing was touched")
}
