package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/tenauth/internal/domain"
	"github.com/dropDatabas3/tenauth/internal/store"
	"github.com/dropDatabas3/tenauth/internal/tenancy"
)

func fixture(t *testing.T) (*Assembler, context.Context) {
	t.Helper()

	tenant, err := tenancy.New("Default")
	require.NoError(t, err)
	ctx := tenancy.WithTenant(context.Background(), tenant)

	rankings := store.NewMemoryRepository[domain.Ranking]()
	roles := store.NewMemoryRepository[domain.Role]()
	dominions := store.NewMemoryRepository[domain.Dominion]()

	_, err = dominions.Add(ctx, []domain.Dominion{
		{ID: "1", Name: "Data Server", URL: "https://dataserver.nubark.cloud"},
		{ID: "2", Name: "Mail Gateway", URL: "https://mail.nubark.cloud"},
	})
	require.NoError(t, err)

	_, err = roles.Add(ctx, []domain.Role{
		{ID: "1", Name: "admin", DominionID: "1", Description: "Administrator"},
		{ID: "2", Name: "operator", DominionID: "1"},
		{ID: "3", Name: "sender", DominionID: "2"},
	})
	require.NoError(t, err)

	_, err = rankings.Add(ctx, []domain.Ranking{
		{ID: "1", UserID: "1", RoleID: "1"},
		{ID: "2", UserID: "1", RoleID: "2"},
		{ID: "3", UserID: "1", RoleID: "3"},
		{ID: "4", UserID: "2", RoleID: "2"},
	})
	require.NoError(t, err)

	return NewAssembler(rankings, roles, dominions), ctx
}

func TestGeneratePayload(t *testing.T) {
	assembler, ctx := fixture(t)
	user := domain.User{ID: "1", Username: "johndoe", Email: "johndoe@nubark.cloud"}

	payload, err := assembler.GeneratePayload(ctx, user)
	require.NoError(t, err)

	assert.Equal(t, "1", payload.Sub)
	assert.Equal(t, "johndoe@nubark.cloud", payload.Email)

	require.Contains(t, payload.Authorization, "Data Server")
	assert.Equal(t, []string{"admin", "operator"}, payload.Authorization["Data Server"].Roles)

	require.Contains(t, payload.Authorization, "Mail Gateway")
	assert.Equal(t, []string{"sender"}, payload.Authorization["Mail Gateway"].Roles)
}

func TestGeneratePayload_SingleDominion(t *testing.T) {
	assembler, ctx := fixture(t)
	user := domain.User{ID: "2", Username: "tebanep", Email: "tebanep@gmail.com"}

	payload, err := assembler.GeneratePayload(ctx, user)
	require.NoError(t, err)

	require.Len(t, payload.Authorization, 1)
	assert.Equal(t, []string{"operator"}, payload.Authorization["Data Server"].Roles)
}

func TestGeneratePayload_NoRoles(t *testing.T) {
	assembler, ctx := fixture(t)
	user := domain.User{ID: "99", Username: "ghost", Email: "ghost@nubark.cloud"}

	payload, err := assembler.GeneratePayload(ctx, user)
	require.NoError(t, err)

	assert.Empty(t, payload.Authorization, "no roles means empty map, not an error")
	assert.Equal(t, "99", payload.Sub)
}

func TestPayload_Claims(t *testing.T) {
	payload := Payload{
		Sub:   "1",
		Email: "johndoe@nubark.cloud",
		Authorization: map[string]Grant{
			"Data Server": {Roles: []string{"admin"}},
		},
	}

	claims := payload.Claims()
	assert.Equal(t, "1", claims["sub"])
	assert.Equal(t, "johndoe@nubark.cloud", claims["email"])

	authorization, ok := claims["authorization"].(map[string]any)
	require.True(t, ok)
	entry, ok := authorization["Data Server"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []string{"admin"}, entry["roles"])
}
