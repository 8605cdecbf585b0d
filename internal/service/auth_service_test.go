package service

import (
	"context"
	"testing"
	"time"

	"github.com/DevilsWillCry/marketplace-artesanal/internal/dto"
	"github.com/DevilsWillCry/marketplace-artesanal/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthFixture() (*AuthService, *fakeUserRepo) {
	users := newFakeUserRepo()
	svc := NewAuthService(users, AuthConfig{
		Secret:     []byte("secreto-de-prueba"),
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		SessionCap: 5,
	})
	// reloj que avanza un segundo por llamada: cada firma produce un token distinto
	base := time.Now()
	step := 0
	svc.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Second)
	}
	return svc, users
}

var testClient = ClientInfo{IP: "10.0.0.1", UserAgent: "go-test"}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		svc, users := newAuthFixture()

		user, tokens, err := svc.Register(ctx, dto.RegisterRequest{
			Name: "Ana", Email: "ana@example.com", Password: "secreto1",
		}, testClient)
		require.NoError(t, err)

		assert.Equal(t, model.RoleUser, user.Role)
		assert.Equal(t, model.UserActive, user.Status)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("secreto1")))
		assert.NotEmpty(t, tokens.AccessToken)
		assert.NotEmpty(t, tokens.RefreshToken)

		stored := users.users[user.ID]
		require.Len(t, stored.Sessions, 1)
		assert.Equal(t, tokens.RefreshToken, stored.Sessions[0].Token)
		assert.Equal(t, "10.0.0.1", stored.Sessions[0].IP)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		svc, _ := newAuthFixture()
		_, _, err := svc.Register(ctx, dto.RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "secreto1"}, testClient)
		require.NoError(t, err)

		_, _, err = svc.Register(ctx, dto.RegisterRequest{Name: "Otra Ana", Email: "ana@example.com", Password: "secreto2"}, testClient)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Message, "registrado")
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	register := func(svc *AuthService) {
		_, _, err := svc.Register(ctx, dto.RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "secreto1"}, testClient)
		if err != nil {
			panic(err)
		}
	}

	t.Run("Success", func(t *testing.T) {
		svc, users := newAuthFixture()
		register(svc)

		user, tokens, err := svc.Login(ctx, dto.LoginRequest{Email: "ana@example.com", Password: "secreto1"}, testClient)
		require.NoError(t, err)
		assert.NotEmpty(t, tokens.AccessToken)
		assert.Len(t, users.users[user.ID].Sessions, 2) // registro + login

		claims, err := svc.ParseToken(tokens.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID.Hex(), claims.ID)
		assert.Equal(t, model.RoleUser, claims.Role)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		svc, _ := newAuthFixture()
		register(svc)

		_, _, err := svc.Login(ctx, dto.LoginRequest{Email: "ana@example.com", Password: "incorrecta"}, testClient)
		var ae *AuthError
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, "credenciales incorrectas", ae.Message)
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		svc, _ := newAuthFixture()

		_, _, err := svc.Login(ctx, dto.LoginRequest{Email: "nadie@example.com", Password: "x"}, testClient)
		var ae *AuthError
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, "credenciales incorrectas", ae.Message)
	})

	t.Run("DisabledUser", func(t *testing.T) {
		svc, users := newAuthFixture()
		register(svc)
		for _, u := range users.users {
			u.Status = model.UserInactive
		}

		_, _, err := svc.Login(ctx, dto.LoginRequest{Email: "ana@example.com", Password: "secreto1"}, testClient)
		var ae *AuthError
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, "usuario deshabilitado", ae.Message)
	})

	t.Run("SessionCapEvictsOldest", func(t *testing.T) {
		svc, users := newAuthFixture()
		register(svc)

		var first dto.TokenPair
		for i := 0; i < 6; i++ {
			_, tokens, err := svc.Login(ctx, dto.LoginRequest{Email: "ana@example.com", Password: "secreto1"}, testClient)
			require.NoError(t, err)
			if i == 0 {
				first = tokens
			}
		}

		for _, u := range users.users {
			assert.Len(t, u.Sessions, 5)
			for _, s := range u.Sessions {
				assert.NotEqual(t, first.RefreshToken, s.Token) // la más vieja salió
			}
		}
	})
}

func TestAuthService_Refresh(t *testing.T) {
	ctx := context.Background()

	t.Run("RotatesToken", func(t *testing.T) {
		svc, users := newAuthFixture()

		user, tokens, err := svc.Register(ctx, dto.RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "secreto1"}, testClient)
		require.NoError(t, err)

		_, rotated, err := svc.Refresh(ctx, tokens.RefreshToken, testClient)
		require.NoError(t, err)
		assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

		stored := users.users[user.ID]
		require.Len(t, stored.Sessions, 1)
		assert.Equal(t, rotated.RefreshToken, stored.Sessions[0].Token)

		// el token viejo ya no sirve
		_, _, err = svc.Refresh(ctx, tokens.RefreshToken, testClient)
		var ae *AuthError
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, "token de refresco inválido", ae.Message)
	})

	t.Run("UnknownToken", func(t *testing.T) {
		svc, _ := newAuthFixture()

		_, _, err := svc.Refresh(ctx, "token-inexistente", testClient)
		var ae *AuthError
		require.ErrorAs(t, err, &ae)
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		svc, _ := newAuthFixture()
		svc.now = func() time.Time { return time.Now().Add(-30 * 24 * time.Hour) }

		_, tokens, err := svc.Register(ctx, dto.RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "secreto1"}, testClient)
		require.NoError(t, err)

		svc.now = time.Now
		_, _, err = svc.Refresh(ctx, tokens.RefreshToken, testClient)
		var ae *AuthError
		assert.ErrorAs(t, err, &ae)
	})
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()
	svc, users := newAuthFixture()

	user, tokens, err := svc.Register(ctx, dto.RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "secreto1"}, testClient)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, _, err := svc.Login(ctx, dto.LoginRequest{Email: "ana@example.com", Password: "secreto1"}, testClient)
		require.NoError(t, err)
	}
	require.Len(t, users.users[user.ID].Sessions, 3)

	require.NoError(t, svc.Logout(ctx, user.ID, tokens.RefreshToken))
	assert.Len(t, users.users[user.ID].Sessions, 2)

	require.NoError(t, svc.LogoutAll(ctx, user.ID))
	assert.Empty(t, users.users[user.ID].Sessions)
}

func TestAuthService_ParseToken(t *testing.T) {
	svc, _ := newAuthFixture()
	user := newTestUser(model.RoleAdmin)

	t.Run("RoundTrip", func(t *testing.T) {
		tokens, err := svc.GenerateTokens(user)
		require.NoError(t, err)

		claims, err := svc.ParseToken(tokens.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID.Hex(), claims.ID)
		assert.Equal(t, model.RoleAdmin, claims.Role)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		other, _ := newAuthFixture()
		other.cfg.Secret = []byte("otro-secreto")

		tokens, err := other.GenerateTokens(user)
		require.NoError(t, err)

		_, err = svc.ParseToken(tokens.AccessToken)
		var ae *AuthError
		assert.ErrorAs(t, err, &ae)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := svc.ParseToken("xx.yy.zz")
		var ae *AuthError
		assert.ErrorAs(t, err, &ae)
	})
}

func TestAuthService_CurrentUser(t *testing.T) {
	ctx := context.Background()
	svc, users := newAuthFixture()

	user, tokens, err := svc.Register(ctx, dto.RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "secreto1"}, testClient)
	require.NoError(t, err)
	claims, err := svc.ParseToken(tokens.AccessToken)
	require.NoError(t, err)

	t.Run("Active", func(t *testing.T) {
		got, err := svc.CurrentUser(ctx, claims)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("Disabled", func(t *testing.T) {
		users.users[user.ID].Status = model.UserInactive
		_, err := svc.CurrentUser(ctx, claims)
		var ae *AuthError
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, "usuario deshabilitado", ae.Message)
	})
}

// Evita que el cap por defecto deje pasar configuraciones inválidas.
func TestNewAuthService_DefaultSessionCap(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo(), AuthConfig{Secret: []byte("s")})
	assert.Equal(t, 5, svc.cfg.SessionCap)
}

