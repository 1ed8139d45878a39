package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type FailureReason int

const (
	NoToken FailureReason = iota + 1
	BadSignature
	Expired
)

func (r FailureReason) String() string {
	switch r {
	case NoToken:
		return "no_token"
	case BadSignature:
		return "bad_signature"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// AuthFailure says why a request could not be authenticated.
type AuthFailure struct {
	Reason FailureReason
	Err    error
}

func (e *AuthFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("аутентификация не пройдена (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("аутентификация не пройдена (%s)", e.Reason)
}

func (e *AuthFailure) Unwrap() error {
	return e.Err
}

type AuthState int

const (
	Anonymous AuthState = iota
	Authenticated
	Invalid
)

func (s AuthState) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Invalid:
		return "invalid"
	default:
		return "anonymous"
	}
}

// Verification is the single outcome of reading a request's credentials.
// Callers decide whether Anonymous or Invalid is acceptable.
type Verification struct {
	State     AuthState
	SubjectID string
	Failure   *AuthFailure
}

type TokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenAuthenticator issues and checks HS256 bearer tokens. A token is
// accepted while now < exp.
type TokenAuthenticator struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenAuthenticator(secret string, ttl time.Duration, now func() time.Time) *TokenAuthenticator {
	if now == nil {
		now = time.Now
	}

	return &TokenAuthenticator{
		secret: []byte(secret),
		ttl:    ttl,
		now:    now,
	}
}

// Issue signs a token for subjectID. JWT dates have second precision, so
// expiry is rounded up to the next whole second and the token never lives
// less than ttl.
func (a *TokenAuthenticator) Issue(subjectID, email string) (string, time.Time, error) {
	issuedAt := a.now()
	expiresAt := issuedAt.Add(a.ttl)
	if whole := expiresAt.Truncate(time.Second); whole.Before(expiresAt) {
		expiresAt = whole.Add(time.Second)
	}

	claims := TokenClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("ошибка подписи токена: %w", err)
	}

	return tokenString, expiresAt, nil
}

// Verify returns the token's subject or an *AuthFailure.
func (a *TokenAuthenticator) Verify(tokenString string) (string, error) {
	if tokenString == "" {
		return "", &AuthFailure{Reason: NoToken}
	}

	claims := &TokenClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			return a.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", &AuthFailure{Reason: Expired, Err: err}
		}
		return "", &AuthFailure{Reason: BadSignature, Err: err}
	}

	if claims.Subject == "" {
		return "", &AuthFailure{Reason: BadSignature, Err: errors.New("токен без субъекта")}
	}

	return claims.Subject, nil
}

// Authenticate reads an Authorization header value. A missing header or a
// bare "Bearer" is Anonymous; anything that is not a valid bearer token is
// Invalid.
func (a *TokenAuthenticator) Authenticate(header string) Verification {
	header = strings.TrimSpace(header)
	if header == "" {
		return Verification{State: Anonymous, Failure: &AuthFailure{Reason: NoToken}}
	}

	scheme, token, _ := strings.Cut(header, " ")
	if !strings.EqualFold(scheme, "Bearer") {
		return Verification{
			State:   Invalid,
			Failure: &AuthFailure{Reason: BadSignature, Err: errors.New("неверный формат заголовка авторизации")},
		}
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return Verification{State: Anonymous, Failure: &AuthFailure{Reason: NoToken}}
	}

	subjectID, err := a.Verify(token)
	if err != nil {
		var failure *AuthFailure
		errors.As(err, &failure)
		return Verification{State: Invalid, Failure: failure}
	}

	return Verification{State: Authenticated, SubjectID: subjectID}
}

// Reason names the failure for logs; it is empty for Authenticated.
func (v Verification) Reason() string {
	if v.Failure == nil {
		return ""
	}
	return v.Failure.Reason.String()
}
