// Package auth binds gRPC callers to ledger addresses using HS256 tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/campaigns/pkg/ledger"
	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	// MetadataKey carries the bearer token.
	MetadataKey  = "authorization"
	bearerPrefix = "bearer "
)

var (
	ErrMissingSigningKey = errors.New("auth: signing key is required")
	ErrMissingIssuer     = errors.New("auth: issuer is required")
	ErrInvalidToken      = errors.New("auth: invalid token")
)

type callerContextKey struct{}

// Issuer signs caller tokens.
type Issuer struct {
	signingKey []byte
	issuer     string
}

// NewIssuer builds an Issuer.
func NewIssuer(signingKey []byte, issuer string) (*Issuer, error) {
	if len(signingKey) == 0 {
		return nil, ErrMissingSigningKey
	}
	if strings.TrimSpace(issuer) == "" {
		return nil, ErrMissingIssuer
	}
	return &Issuer{signingKey: signingKey, issuer: issuer}, nil
}

// Issue returns a token whose subject is the caller address.
func (issuer *Issuer) Issue(caller ledger.Address, issuedAt time.Time, ttl time.Duration) (string, error) {
	if caller.IsZero() {
		return "", ledger.ErrInvalidAddress
	}
	claims := jwt.RegisteredClaims{
		Subject:   caller.String(),
		Issuer:    issuer.issuer,
		IssuedAt:  jwt.NewNumericDate(issuedAt.UTC()),
		ExpiresAt: jwt.NewNumericDate(issuedAt.UTC().Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(issuer.signingKey)
}

// Verifier validates caller tokens.
type Verifier struct {
	signingKey []byte
	issuer     string
}

// NewVerifier builds a Verifier.
func NewVerifier(signingKey []byte, issuer string) (*Verifier, error) {
	if len(signingKey) == 0 {
		return nil, ErrMissingSigningKey
	}
	if strings.TrimSpace(issuer) == "" {
		return nil, ErrMissingIssuer
	}
	return &Verifier{signingKey: signingKey, issuer: issuer}, nil
}

// Verify returns the caller address carried by a valid token.
func (verifier *Verifier) Verify(token string) (ledger.Address, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return verifier.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(verifier.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return ledger.Address{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	caller, err := ledger.NewAddress(claims.Subject)
	if err != nil {
		return ledger.Address{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return caller, nil
}

// WithCaller stores the authenticated caller.
func WithCaller(ctx context.Context, caller ledger.Address) context.Context {
	return context.WithValue(ctx, callerContextKey{}, caller)
}

// CallerFromContext returns the authenticated caller, if any.
func CallerFromContext(ctx context.Context) (ledger.Address, bool) {
	caller, ok := ctx.Value(callerContextKey{}).(ledger.Address)
	return caller, ok && !caller.IsZero()
}

// UnaryServerInterceptor authenticates bearer tokens. Requests without a token proceed anonymously.
func UnaryServerInterceptor(verifier *Verifier) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, request any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		token, present := bearerToken(ctx)
		if !present {
			return handler(ctx, request)
		}
		caller, err := verifier.Verify(token)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid_token")
		}
		return handler(WithCaller(ctx, caller), request)
	}
}

// OutgoingContext attaches a bearer token to an outgoing gRPC call.
func OutgoingContext(ctx context.Context, token string) context.Context {
	if strings.TrimSpace(token) == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, MetadataKey, "Bearer "+token)
}

// BearerFromHeader extracts the token from an HTTP Authorization header value.
func BearerFromHeader(header string) (string, bool) {
	trimmed := strings.TrimSpace(header)
	if len(trimmed) <= len(bearerPrefix) || !strings.EqualFold(trimmed[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(trimmed[len(bearerPrefix):])
	return token, token != ""
}

func bearerToken(ctx context.Context) (string, bool) {
	incoming, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}
	for _, value := range incoming.Get(MetadataKey) {
		if token, ok := BearerFromHeader(value); ok {
			return token, true
		}
	}
	return "", false
}
