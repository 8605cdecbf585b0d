package service

import (
	"context"
	"errors"
	"time"

	"github.com/DevilsWillCry/marketplace-artesanal/internal/dto"
	"github.com/DevilsWillCry/marketplace-artesanal/internal/model"
	"github.com/DevilsWillCry/marketplace-artesanal/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// Claims del par de tokens: id de usuario y rol, firmados con HS256.
type Claims struct {
	ID   string     `json:"id"`
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// ClientInfo son los metadatos del cliente que acompañan cada sesión.
type ClientInfo struct {
	IP        string
	UserAgent string
}

type AuthConfig struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	SessionCap int // sesiones vivas por usuario; la más vieja se descarta
}

type AuthService struct {
	users UserRepository
	cfg   AuthConfig
	now   func() time.Time
}

func NewAuthService(users UserRepository, cfg AuthConfig) *AuthService {
	if cfg.SessionCap <= 0 {
		cfg.SessionCap = 5
	}
	return &AuthService{users: users, cfg: cfg, now: time.Now}
}

func (s *AuthService) sign(userID primitive.ObjectID, role model.Role, ttl time.Duration) (string, error) {
	claims := Claims{
		ID:   userID.Hex(),
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(s.now()),
			ExpiresAt: jwt.NewNumericDate(s.now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.cfg.Secret)
}

// GenerateTokens emite el par acceso/refresco para el usuario.
func (s *AuthService) GenerateTokens(u *model.User) (dto.TokenPair, error) {
	access, err := s.sign(u.ID, u.Role, s.cfg.AccessTTL)
	if err != nil {
		return dto.TokenPair{}, err
	}
	refresh, err := s.sign(u.ID, u.Role, s.cfg.RefreshTTL)
	if err != nil {
		return dto.TokenPair{}, err
	}
	return dto.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// ParseToken verifica firma y vigencia y devuelve los claims.
func (s *AuthService) ParseToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("método de firma inesperado")
		}
		return s.cfg.Secret, nil
	})
	if err != nil {
		return nil, &AuthError{Message: "token inválido o expirado"}
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, &AuthError{Message: "token inválido o expirado"}
	}
	return claims, nil
}

func (s *AuthService) session(token string, client ClientInfo) model.Session {
	return model.Session{
		Token:     token,
		CreatedAt: s.now().UTC(),
		ExpiresAt: s.now().UTC().Add(s.cfg.RefreshTTL),
		IP:        client.IP,
		UserAgent: client.UserAgent,
	}
}

// Register crea el usuario con la contraseña hasheada y abre la primera sesión.
func (s *AuthService) Register(ctx context.Context, req dto.RegisterRequest, client ClientInfo) (*model.User, dto.TokenPair, error) {
	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, dto.TokenPair{}, &ValidationError{Message: "el correo ya está registrado"}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, dto.TokenPair{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, dto.TokenPair{}, err
	}

	user := &model.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hash),
		Status:   model.UserActive,
		Role:     model.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, dto.TokenPair{}, &ValidationError{Message: "el correo ya está registrado"}
		}
		return nil, dto.TokenPair{}, err
	}

	tokens, err := s.GenerateTokens(user)
	if err != nil {
		return nil, dto.TokenPair{}, err
	}
	if err := s.users.AppendSession(ctx, user.ID, s.session(tokens.RefreshToken, client), s.cfg.SessionCap); err != nil {
		return nil, dto.TokenPair{}, err
	}
	return user, tokens, nil
}

// Login valida credenciales y agrega una sesión nueva.
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest, client ClientInfo) (*model.User, dto.TokenPair, error) {
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, dto.TokenPair{}, &AuthError{Message: "credenciales incorrectas"}
		}
		return nil, dto.TokenPair{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return nil, dto.TokenPair{}, &AuthError{Message: "credenciales incorrectas"}
	}
	if user.Status != model.UserActive {
		return nil, dto.TokenPair{}, &AuthError{Message: "usuario deshabilitado"}
	}

	tokens, err := s.GenerateTokens(user)
	if err != nil {
		return nil, dto.TokenPair{}, err
	}
	if err := s.users.AppendSession(ctx, user.ID, s.session(tokens.RefreshToken, client), s.cfg.SessionCap); err != nil {
		return nil, dto.TokenPair{}, err
	}
	return user, tokens, nil
}

// Refresh rota el refresh token: el presentado debe existir entre las sesiones
// del usuario y se reemplaza atómicamente por el nuevo.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, client ClientInfo) (*model.User, dto.TokenPair, error) {
	user, err := s.users.FindBySessionToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, dto.TokenPair{}, &AuthError{Message: "token de refresco inválido"}
		}
		return nil, dto.TokenPair{}, err
	}

	if _, err := s.ParseToken(refreshToken); err != nil {
		return nil, dto.TokenPair{}, err
	}

	tokens, err := s.GenerateTokens(user)
	if err != nil {
		return nil, dto.TokenPair{}, err
	}
	if err := s.users.ReplaceSession(ctx, user.ID, refreshToken, s.session(tokens.RefreshToken, client)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, dto.TokenPair{}, &AuthError{Message: "token de refresco inválido"}
		}
		return nil, dto.TokenPair{}, err
	}
	return user, tokens, nil
}

// Logout elimina la sesión del token presentado.
func (s *AuthService) Logout(ctx context.Context, userID primitive.ObjectID, refreshToken string) error {
	err := s.users.RemoveSession(ctx, userID, refreshToken)
	if errors.Is(err, repository.ErrNotFound) {
		return &NotFoundError{Resource: "usuario", ID: userID.Hex()}
	}
	return err
}

// LogoutAll cierra la sesión en todos los dispositivos.
func (s *AuthService) LogoutAll(ctx context.Context, userID primitive.ObjectID) error {
	err := s.users.ClearSessions(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return &NotFoundError{Resource: "usuario", ID: userID.Hex()}
	}
	return err
}

// CurrentUser carga al dueño de los claims y exige que siga activo.
func (s *AuthService) CurrentUser(ctx context.Context, claims *Claims) (*model.User, error) {
	id, err := primitive.ObjectIDFromHex(claims.ID)
	if err != nil {
		return nil, &AuthError{Message: "token inválido o expirado"}
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &AuthError{Message: "usuario no encontrado"}
		}
		return nil, err
	}
	if user.Status != model.UserActive {
		return nil, &AuthError{Message: "usuario deshabilitado"}
	}
	return user, nil
}
