package facade

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Claims is the minimal identity a caller's bearer token carries.
// Authorization itself (which pipelines a caller may run) is out of
// scope; this only establishes who is asking.
type Claims struct {
	Subject string `json:"sub"`
	jwt.RegisteredClaims
}

// TokenConfig configures the HMAC secret and issuer used to verify
// bearer tokens on the streaming RPC.
type TokenConfig struct {
	SecretKey string
	Issuer    string
}

// TokenVerifier validates bearer tokens against a shared secret.
type TokenVerifier struct {
	cfg TokenConfig
}

// NewTokenVerifier builds a TokenVerifier from cfg.
func NewTokenVerifier(cfg TokenConfig) *TokenVerifier {
	return &TokenVerifier{cfg: cfg}
}

// NewDevTokenVerifier builds a TokenVerifier whose HMAC key is derived
// from cfg.SecretKey via DeriveDevSecret rather than used as-is. Only
// ever call this for development deployments; production should
// configure a high-entropy secret_key and use NewTokenVerifier directly.
func NewDevTokenVerifier(cfg TokenConfig) (*TokenVerifier, error) {
	key, err := DeriveDevSecret(cfg.SecretKey, cfg.Issuer)
	if err != nil {
		return nil, err
	}
	return &TokenVerifier{cfg: TokenConfig{SecretKey: string(key), Issuer: cfg.Issuer}}, nil
}

// Verify parses and validates tokenString, returning its claims.
func (v *TokenVerifier) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(v.cfg.SecretKey), nil
	}, jwt.WithIssuer(v.cfg.Issuer))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// Sign issues a token for subject, valid for ttl. Used by tests and by
// any adjacent service minting tokens for this façade.
func (v *TokenVerifier) Sign(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Subject: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.cfg.Issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(v.cfg.SecretKey))
}

// DeriveDevSecret stretches a short, human-chosen passphrase into a
// 32-byte HMAC key via HKDF-SHA256, so a development deployment can
// set auth.secret_key to something memorable instead of a raw key.
// Production deployments should set a real high-entropy secret_key
// directly; this exists only to make `dev mode` setup painless, the
// way the teacher's pkg/passhash exists only to make local credential
// setup painless.
func DeriveDevSecret(passphrase, issuer string) ([]byte, error) {
	reader := hkdf.New(sha256.New, []byte(passphrase), []byte(issuer), []byte("rove-dev-secret"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("derive dev secret: %w", err)
	}
	return key, nil
}

type claimsKey struct{}

// ClaimsFromContext returns the claims StreamAuthInterceptor attached
// to ctx, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}

// StreamAuthInterceptor rejects any streaming call lacking a valid
// bearer token, then attaches its claims to the stream's context.
// Validate is the only streaming method this service exposes, so there
// is no public-method allowlist to consult.
func StreamAuthInterceptor(v *TokenVerifier) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		token, err := extractBearerToken(ss.Context())
		if err != nil {
			return err
		}
		claims, err := v.Verify(token)
		if err != nil {
			return status.Error(codes.Unauthenticated, "invalid token")
		}
		wrapped := &claimsServerStream{
			ServerStream: ss,
			ctx:          context.WithValue(ss.Context(), claimsKey{}, claims),
		}
		return handler(srv, wrapped)
	}
}

type claimsServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *claimsServerStream) Context() context.Context { return s.ctx }

func extractBearerToken(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "no metadata")
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		return "", status.Error(codes.Unauthenticated, "no authorization header")
	}
	token := strings.TrimPrefix(values[0], "Bearer ")
	if token == "" {
		return "", status.Error(codes.Unauthenticated, "empty token")
	}
	return token, nil
}
