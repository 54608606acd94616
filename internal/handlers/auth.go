package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/devfolio/apiserver/config"
	"github.com/devfolio/apiserver/internal/services"
	"github.com/devfolio/apiserver/internal/store"
	"github.com/devfolio/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type contextKey string

const contextClaimsKey contextKey = "claims"

// Claims is the JWT payload and the identity attached to authenticated
// requests.
type Claims struct {
	ID    string     `json:"id"`
	Email string     `json:"email"`
	Role  types.Role `json:"role"`
	jwt.RegisteredClaims
}

// ClaimsFromContext returns the identity set by RequireAuth or OptionalAuth.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(contextClaimsKey).(Claims)
	return claims, ok
}

func isAdmin(ctx context.Context) bool {
	claims, ok := ClaimsFromContext(ctx)
	return ok && claims.Role.IsAdmin()
}

// Authenticator issues and verifies HS256 tokens and provides the auth
// middlewares.
type Authenticator struct {
	secret       []byte
	ttl          time.Duration
	cookieName   string
	cookieSecure bool
	now          func() time.Time
}

func NewAuthenticator(cfg config.AuthConfig) (*Authenticator, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	cookieName := cfg.CookieName
	if cookieName == "" {
		cookieName = "token"
	}
	return &Authenticator{
		secret:       []byte(secret),
		ttl:          ttl,
		cookieName:   cookieName,
		cookieSecure: cfg.CookieSecure,
		now:          time.Now,
	}, nil
}

// Issue signs a token for the given identity.
func (a *Authenticator) Issue(id, email string, role types.Role) (string, time.Time, error) {
	now := a.now()
	expires := now.Add(a.ttl)
	claims := Claims{
		ID:    id,
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expires, nil
}

// Parse verifies a token and returns its claims.
func (a *Authenticator) Parse(tokenString string) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return Claims{}, err
	}
	if !token.Valid {
		return Claims{}, errors.New("invalid token")
	}
	if strings.TrimSpace(claims.ID) == "" {
		return Claims{}, errors.New("missing subject")
	}
	return claims, nil
}

// RequireAuth rejects requests without a valid token with 401.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := a.requestToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		claims, err := a.Parse(tokenString)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		ctx := context.WithValue(r.Context(), contextClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuth attaches claims when a valid token is present and otherwise
// lets the request through anonymously.
func (a *Authenticator) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tokenString, err := a.requestToken(r); err == nil {
			if claims, err := a.Parse(tokenString); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), contextClaimsKey, claims))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin must run after RequireAuth.
func (a *Authenticator) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		if !claims.Role.IsAdmin() {
			writeError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Admin chains RequireAuth and RequireAdmin.
func (a *Authenticator) Admin(next http.Handler) http.Handler {
	return a.RequireAuth(a.RequireAdmin(next))
}

// requestToken prefers the Authorization header over the cookie.
func (a *Authenticator) requestToken(r *http.Request) (string, error) {
	if token, err := bearerToken(r); err == nil {
		return token, nil
	}
	cookie, err := r.Cookie(a.cookieName)
	if err != nil {
		return "", errors.New("missing token")
	}
	token := strings.TrimSpace(cookie.Value)
	if token == "" {
		return "", errors.New("missing token")
	}
	return token, nil
}

func (a *Authenticator) setCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(a.ttl.Seconds()),
		HttpOnly: true,
		Secure:   a.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *Authenticator) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}

// AuthHandler provides login and session endpoints.
type AuthHandler struct {
	userService *services.UserService
	auth        *Authenticator
	logger      *zap.Logger
}

func NewAuthHandler(userService *services.UserService, auth *Authenticator, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{userService: userService, auth: auth, logger: logger}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, userService *services.UserService, auth *Authenticator, logger *zap.Logger) {
	handler := NewAuthHandler(userService, auth, logger)

	r.Post("/login", handler.Login)
	r.Post("/logout", handler.Logout)
	r.With(auth.RequireAuth).Post("/refresh-token", handler.RefreshToken)
	r.With(auth.RequireAuth).Get("/me", handler.Me)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	User        types.User `json:"user"`
	AccessToken string     `json:"accessToken"`
}

// Login verifies credentials, returns a token and sets the session cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.userService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	h.respondWithToken(w, user)
}

// Logout clears the session cookie. It always succeeds.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.auth.clearCookie(w)
	writeMessage(w, http.StatusOK, "Logged out successfully")
}

// RefreshToken issues a fresh token for the caller. Name and role are
// reloaded so that role changes take effect.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	h.respondWithToken(w, user)
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	writeData(w, http.StatusOK, user)
}

func (h *AuthHandler) currentUser(w http.ResponseWriter, r *http.Request) (types.User, bool) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return types.User{}, false
	}
	user, err := h.userService.GetByID(r.Context(), claims.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "User not found")
			return types.User{}, false
		}
		h.logger.Error("load user failed", zap.String("id", claims.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load user")
		return types.User{}, false
	}
	return user, true
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, user types.User) {
	token, expires, err := h.auth.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		h.logger.Error("sign token failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create token")
		return
	}
	h.auth.setCookie(w, token, expires)
	writeData(w, http.StatusOK, AuthResponse{User: user, AccessToken: token})
}
