package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/hlog"
	"golang.org/x/crypto/bcrypt"

	"frizerie/m/domain"
	"frizerie/m/internal/analytics"
)

type ctxKey string

const (
	ctxUser  ctxKey = "user"
	ctxActor ctxKey = "actor"
)

const (
	accessToken  = "access"
	refreshToken = "refresh"
)

// Authentication helpers

type authClaims struct {
	UserID    int64  `json:"user_id"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

func (h *Handler) generateToken(user domain.User, kind string) (string, error) {
	ttl := h.cfg.AccessTokenTTL
	if kind == refreshToken {
		ttl = h.cfg.RefreshTokenTTL
	}
	now := time.Now()
	claims := authClaims{
		UserID:    user.ID,
		Role:      user.Role,
		TokenType: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.Email,
			Issuer:    h.cfg.AppName,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.cfg.Secret))
}

func (h *Handler) parseToken(tokenString, kind string) (*authClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &authClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(h.cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*authClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.TokenType != kind {
		return nil, fmt.Errorf("expected %s token, got %q", kind, claims.TokenType)
	}
	return claims, nil
}

func (h *Handler) loadUser(ctx context.Context, id int64) (*domain.User, error) {
	var user domain.User
	err := h.db.GetContext(ctx, &user, `SELECT id, name, email, password, role, vip_level, loyalty_points, created_at, updated_at FROM users WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	respondError(w, http.StatusUnauthorized, message)
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			unauthorized(w, "missing bearer token")
			return
		}
		tokenString := strings.TrimSpace(header[len("Bearer "):])
		claims, err := h.parseToken(tokenString, accessToken)
		if err != nil {
			hlog.FromRequest(r).Debug().Err(err).Msg("rejected bearer token")
			unauthorized(w, "invalid token")
			return
		}
		// Roles are read from the database so promotions apply without a new token.
		user, err := h.loadUser(r.Context(), claims.UserID)
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Int64("user_id", claims.UserID).Msg("unable to load token user")
			respondError(w, http.StatusInternalServerError, "unable to load user")
			return
		}
		if user == nil {
			unauthorized(w, "invalid token")
			return
		}
		if a, ok := r.Context().Value(ctxActor).(*actor); ok {
			a.userID = &user.ID
		}
		ctx := context.WithValue(r.Context(), ctxUser, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func currentUser(r *http.Request) *domain.User {
	user, _ := r.Context().Value(ctxUser).(*domain.User)
	return user
}

// adminOnly lets through authenticated admins, answering 401 without a
// user and 403 for any other role.
func (h *Handler) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := currentUser(r)
		if user == nil {
			unauthorized(w, "not authenticated")
			return
		}
		if !user.IsAdmin() {
			respondError(w, http.StatusForbidden, "not enough permissions")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Auth Handlers

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=customer stylist"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	TokenType    string       `json:"token_type"`
	User         *domain.User `json:"user,omitempty"`
}

func (h *Handler) issueTokens(user domain.User) (tokenResponse, error) {
	access, err := h.generateToken(user, accessToken)
	if err != nil {
		return tokenResponse{}, err
	}
	refresh, err := h.generateToken(user, refreshToken)
	if err != nil {
		return tokenResponse{}, err
	}
	return tokenResponse{AccessToken: access, RefreshToken: refresh, TokenType: "bearer", User: &user}, nil
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	role := req.Role
	if role == "" {
		role = domain.RoleCustomer
	}

	var exists bool
	if err := h.db.GetContext(r.Context(), &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)`, email); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to check email")
		return
	}
	if exists {
		respondError(w, http.StatusConflict, "email already exists")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to secure password")
		return
	}

	res, err := h.db.ExecContext(r.Context(), `INSERT INTO users (name, email, password, role) VALUES (?, ?, ?, ?)`,
		strings.TrimSpace(req.Name), email, string(hashed), role)
	if err != nil {
		respondError(w, http.StatusConflict, "email already exists")
		return
	}
	userID, err := res.LastInsertId()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to complete registration")
		return
	}
	user, err := h.loadUser(r.Context(), userID)
	if err != nil || user == nil {
		respondError(w, http.StatusInternalServerError, "unable to complete registration")
		return
	}

	tokens, err := h.issueTokens(*user)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to generate token")
		return
	}

	h.recordEvent(r, analytics.Event{
		EventType:  analytics.UserRegistered,
		UserID:     &user.ID,
		Properties: analytics.Properties{"role": role},
	})
	respondJSON(w, http.StatusCreated, tokens)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var user domain.User
	err := h.db.GetContext(r.Context(), &user, `SELECT id, name, email, password, role, vip_level, loyalty_points, created_at, updated_at FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			hlog.FromRequest(r).Error().Err(err).Msg("login lookup failed")
		}
		unauthorized(w, "incorrect email or password")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		unauthorized(w, "incorrect email or password")
		return
	}

	tokens, err := h.issueTokens(user)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to generate token")
		return
	}

	h.recordEvent(r, analytics.Event{EventType: analytics.UserLogin, UserID: &user.ID})
	respondJSON(w, http.StatusOK, tokens)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	claims, err := h.parseToken(req.RefreshToken, refreshToken)
	if err != nil {
		unauthorized(w, "invalid refresh token")
		return
	}
	user, err := h.loadUser(r.Context(), claims.UserID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load user")
		return
	}
	if user == nil {
		unauthorized(w, "invalid refresh token")
		return
	}
	access, err := h.generateToken(*user, accessToken)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to generate token")
		return
	}
	respondJSON(w, http.StatusOK, tokenResponse{AccessToken: access, TokenType: "bearer"})
}

// logout is a no-op for stateless tokens; clients drop their copy.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"message": "successfully logged out"})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, currentUser(r))
}
