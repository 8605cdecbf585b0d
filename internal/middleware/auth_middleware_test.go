package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DevilsWillCry/marketplace-artesanal/internal/model"
	"github.com/DevilsWillCry/marketplace-artesanal/internal/repository"
	"github.com/DevilsWillCry/marketplace-artesanal/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// stubUserRepo implementa lo mínimo de service.UserRepository para el middleware.
type stubUserRepo struct {
	user *model.User
}

func (s *stubUserRepo) Create(ctx context.Context, u *model.User) error { return nil }

func (s *stubUserRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	if s.user != nil && s.user.ID == id {
		return s.user, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, repository.ErrNotFound
}

func (s *stubUserRepo) FindBySessionToken(ctx context.Context, token string) (*model.User, error) {
	return nil, repository.ErrNotFound
}

func (s *stubUserRepo) AppendSession(ctx context.Context, id primitive.ObjectID, sess model.Session, cap int) error {
	return nil
}

func (s *stubUserRepo) ReplaceSession(ctx context.Context, id primitive.ObjectID, oldToken string, sess model.Session) error {
	return nil
}

func (s *stubUserRepo) RemoveSession(ctx context.Context, id primitive.ObjectID, token string) error {
	return nil
}

func (s *stubUserRepo) ClearSessions(ctx context.Context, id primitive.ObjectID) error {
	return nil
}

func newAuthTestSetup(user *model.User) (*service.AuthService, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	auth := service.NewAuthService(&stubUserRepo{user: user}, service.AuthConfig{
		Secret:    []byte("secreto-de-prueba"),
		AccessTTL: time.Minute,
	})

	r := gin.New()
	r.Use(AuthMiddleware(auth))
	r.GET("/perfil", func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": u.ID.Hex()})
	})
	return auth, r
}

func TestAuthMiddleware(t *testing.T) {
	user := &model.User{
		ID:     primitive.NewObjectID(),
		Name:   "Ana",
		Status: model.UserActive,
		Role:   model.RoleUser,
	}

	request := func(r *gin.Engine, header string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/perfil", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("ValidToken", func(t *testing.T) {
		auth, r := newAuthTestSetup(user)
		tokens, err := auth.GenerateTokens(user)
		require.NoError(t, err)

		w := request(r, "Bearer "+tokens.AccessToken)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), user.ID.Hex())
	})

	t.Run("MissingHeader", func(t *testing.T) {
		_, r := newAuthTestSetup(user)
		w := request(r, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("MalformedToken", func(t *testing.T) {
		_, r := newAuthTestSetup(user)
		w := request(r, "Bearer no-es-un-jwt")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("DisabledUser", func(t *testing.T) {
		disabled := *user
		disabled.Status = model.UserInactive
		auth, r := newAuthTestSetup(&disabled)
		tokens, err := auth.GenerateTokens(&disabled)
		require.NoError(t, err)

		w := request(r, "Bearer "+tokens.AccessToken)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAdminOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)

	routerWith := func(user *model.User) *gin.Engine {
		r := gin.New()
		r.Use(func(c *gin.Context) {
			if user != nil {
				c.Set(CtxUser, user)
			}
		})
		r.Use(AdminOnly())
		r.GET("/admin", func(c *gin.Context) { c.Status(http.StatusOK) })
		return r
	}

	get := func(r *gin.Engine) int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
		return w.Code
	}

	t.Run("AdminPasses", func(t *testing.T) {
		admin := &model.User{ID: primitive.NewObjectID(), Role: model.RoleAdmin}
		assert.Equal(t, http.StatusOK, get(routerWith(admin)))
	})

	t.Run("UserForbidden", func(t *testing.T) {
		user := &model.User{ID: primitive.NewObjectID(), Role: model.RoleUser}
		assert.Equal(t, http.StatusForbidden, get(routerWith(user)))
	})

	t.Run("AnonymousForbidden", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, get(routerWith(nil)))
	})
}
