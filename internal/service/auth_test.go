package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
	domainerrors "github.com/ethereum-tag-service/ets-server/internal/errors"
)

func TestAuthService_Setup_Success(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	required, err := env.auth.IsSetupRequired(ctx)
	require.NoError(t, err)
	assert.True(t, required)

	res, err := env.auth.Setup(ctx, SetupRequest{Address: platform.String()})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, res.Account.Role)
	assert.NotEmpty(t, res.APIKey)
	assert.NotEmpty(t, res.AccessToken)

	claims, err := env.auth.VerifyAccessToken(ctx, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, platform, claims.Address)
	assert.True(t, claims.IsAdmin())

	required, err = env.auth.IsSetupRequired(ctx)
	require.NoError(t, err)
	assert.False(t, required)
}

func TestAuthService_Setup_OnlyOnceAndOnlyPlatform(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	_, err := env.auth.Setup(ctx, SetupRequest{Address: stranger.String()})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrForbidden))

	_, err = env.auth.Setup(ctx, SetupRequest{Address: platform.String()})
	require.NoError(t, err)

	_, err = env.auth.Setup(ctx, SetupRequest{Address: platform.String()})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrConflict))
}

func TestAuthService_Token(t *testing.T) {
	env := setupServices(t)
	env.addAdmin(t)
	ctx := context.Background()

	reg, err := env.relayers.Register(ctx, platform, RegisterRelayerRequest{Address: relayerA.String(), Name: "portal"})
	require.NoError(t, err)

	res, err := env.auth.Token(ctx, TokenRequest{Address: relayerA.String(), APIKey: reg.APIKey})
	require.NoError(t, err)
	assert.Empty(t, res.APIKey)

	claims, err := env.auth.VerifyAccessToken(ctx, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, relayerA, claims.Address)
	assert.Equal(t, domain.RoleRelayer, claims.Role)

	_, err = env.auth.Token(ctx, TokenRequest{Address: relayerA.String(), APIKey: "ets_wrong"})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrUnauthorized))

	_, err = env.auth.Token(ctx, TokenRequest{Address: stranger.String(), APIKey: reg.APIKey})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrUnauthorized))
}

func TestAuthService_VerifyAccessToken_Invalid(t *testing.T) {
	env := setupServices(t)
	_, err := env.auth.VerifyAccessToken(context.Background(), "v4.local.garbage")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrUnauthorized))
}
