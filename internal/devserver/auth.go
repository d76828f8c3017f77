package devserver

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	pkgcrypto "github.com/and161185/flasheng/internal/crypto"
	"github.com/and161185/flasheng/internal/limiter"
	"github.com/and161185/flasheng/internal/logger"
	"github.com/and161185/flasheng/internal/model"
)

// registration is the POST /auth/register body.
type registration struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,max=255,email_loose"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,phone"`
	Password string `json:"password" validate:"required,min=6"`
}

// issueToken creates a signed HS256 JWT for the given user.
func (s *Server) issueToken(userID int64) (string, error) {
	jti, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		ID:        jti.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.JWTKey)
}

// parseToken verifies signature, algorithm and expiry.
func (s *Server) parseToken(raw string) (principal, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return s.cfg.JWTKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return principal{}, err
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return principal{}, errors.New("bad subject")
	}
	return principal{UserID: id, TokenID: claims.ID, Expires: claims.ExpiresAt.Time}, nil
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registration
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	req.Name, req.Email = strings.TrimSpace(req.Name), strings.TrimSpace(req.Email)
	if err := s.v.Struct(req); err != nil {
		s.fail(w, r, err)
		return
	}
	hash, err := pkgcrypto.HashPassword(req.Password, s.cfg.Hash)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := s.db.createAccount(account{
		Name: req.Name, Email: req.Email, Phone: req.Phone, PwdHash: hash, CreatedAt: s.now(),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	tok, err := s.issueToken(a.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("account registered", zap.Int64("user_id", a.ID))
	writeJSON(w, http.StatusCreated, a.auth(tok))
}

// login applies the attempt limiter by (email, client address).
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req model.Credentials
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.v.Struct(req); err != nil {
		s.fail(w, r, err)
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	ipHash := limiter.HashIP(clientIP(r))
	ctx := r.Context()

	allowed, retry, err := s.lim.Allow(ctx, email, ipHash)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !allowed {
		tooMany(w, retry)
		return
	}

	a, found := s.db.accountByEmail(email)
	ok := false
	if found {
		ok, _ = pkgcrypto.VerifyPassword(req.Password, a.PwdHash)
	}
	if !ok {
		if blocked, d, ferr := s.lim.Failure(ctx, email, ipHash); ferr == nil && blocked {
			logger.FromContext(ctx).Warn("login blocked", zap.Duration("for", d))
			tooMany(w, d)
			return
		}
		writeMessage(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	_ = s.lim.Success(ctx, email, ipHash)

	tok, err := s.issueToken(a.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.auth(tok))
}

func tooMany(w http.ResponseWriter, retry time.Duration) {
	if retry > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(retry.Round(time.Second).Seconds())))
	}
	writeMessage(w, http.StatusTooManyRequests, "Too many attempts, try again later")
}

func (s *Server) check(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	a, ok := s.db.account(p.UserID)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	writeJSON(w, http.StatusOK, a.auth(""))
}

// logout revokes the presented token.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	s.db.revoke(p)
	w.WriteHeader(http.StatusNoContent)
}
