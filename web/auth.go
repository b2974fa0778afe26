package web

import (
	"context"
	"net/http"

	"cdr.dev/slog"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/xerrors"

	"activitytracker/entity"
	"activitytracker/query"
)

const SessionCookie = "session"

type credentials struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
}

type sessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type sessionKey struct{}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body credentials
	if !readJSON(w, r, &body, "Username and password required") {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error(ctx, "hash password", slog.Error(err))
		writeError(w, http.StatusInternalServerError, "Registration failed", "InternalError")
		return
	}
	err = s.store.CreateUser(ctx, entity.User{
		ID:           uuid.NewString(),
		Username:     body.Username,
		PasswordHash: string(hash),
		CreatedAt:    s.clock.Now(),
	})
	if xerrors.Is(err, query.ErrDuplicateUser) {
		writeError(w, http.StatusConflict, "Username already exists", "DuplicateUser")
		return
	}
	if err != nil {
		s.logger.Error(ctx, "create user", slog.F("username", body.Username), slog.Error(err))
		writeError(w, http.StatusInternalServerError, "Registration failed", "DatabaseError")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "User registered successfully"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body credentials
	if !readJSON(w, r, &body, "Username and password required") {
		return
	}

	user, err := s.store.UserByName(ctx, body.Username)
	if xerrors.Is(err, query.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials", "AuthError")
		return
	}
	if err != nil {
		s.logger.Error(ctx, "find user", slog.F("username", body.Username), slog.Error(err))
		writeError(w, http.StatusInternalServerError, "Login failed", "DatabaseError")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials", "AuthError")
		return
	}

	now := s.clock.Now()
	expires := now.Add(s.lifetime)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}).SignedString(s.secret)
	if err != nil {
		s.logger.Error(ctx, "sign session", slog.Error(err))
		writeError(w, http.StatusInternalServerError, "Login failed", "InternalError")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"user":    map[string]string{"id": user.ID, "username": user.Username},
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// requireSession rejects requests without a valid session cookie.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookie)
		if err != nil || cookie.Value == "" {
			writeError(w, http.StatusUnauthorized, "Authentication required", "AuthError")
			return
		}
		claims, err := s.parseSession(cookie.Value)
		if err != nil {
			s.logger.Debug(r.Context(), "reject session", slog.Error(err))
			writeError(w, http.StatusUnauthorized, "Authentication required", "AuthError")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, claims)))
	})
}

func (s *Server) parseSession(token string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	// Expiry is checked against the server clock below, not time.Now.
	parser := jwt.Parser{
		ValidMethods:         []string{jwt.SigningMethodHS256.Alg()},
		SkipClaimsValidation: true,
	}
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, xerrors.Errorf("parse session: %w", err)
	}
	if claims.ExpiresAt == nil || !s.clock.Now().Before(claims.ExpiresAt.Time) {
		return nil, xerrors.New("session expired")
	}
	return claims, nil
}
