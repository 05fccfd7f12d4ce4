package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenTypeOperator     = "operator"
	TokenTypeConfirmation = "confirmation"

	operatorAudience     = "credential-operators"
	confirmationAudience = "issuance-confirmation"

	defaultOperatorTTL = 12 * time.Hour
	defaultTicketTTL   = 2 * time.Minute
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrWrongTokenType = errors.New("wrong token type")
	ErrInvalidSubject = errors.New("subject is required")
	ErrInvalidTicketN = errors.New("confirmation count must be positive")
	ErrSecretTooShort = errors.New("jwt secret must be at least 32 bytes")
)

// Claims are carried by operator bearer tokens.
type Claims struct {
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// ConfirmationClaims bind an operator's "yes" to one batch size.
type ConfirmationClaims struct {
	TokenType string `json:"typ"`
	Count     int    `json:"count"`
	jwt.RegisteredClaims
}

type JWTManager struct {
	issuer      string
	secret      []byte
	operatorTTL time.Duration
	ticketTTL   time.Duration
	now         func() time.Time
}

func NewJWTManager(issuer, secret string, operatorTTL, ticketTTL time.Duration) *JWTManager {
	if operatorTTL <= 0 {
		operatorTTL = defaultOperatorTTL
	}
	if ticketTTL <= 0 {
		ticketTTL = defaultTicketTTL
	}
	return &JWTManager{
		issuer:      issuer,
		secret:      []byte(secret),
		operatorTTL: operatorTTL,
		ticketTTL:   ticketTTL,
		now:         time.Now,
	}
}

func (m *JWTManager) TicketTTL() time.Duration { return m.ticketTTL }

func (m *JWTManager) SignOperatorToken(subject string) (string, time.Time, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", time.Time{}, ErrInvalidSubject
	}
	if len(m.secret) < 32 {
		return "", time.Time{}, ErrSecretTooShort
	}
	now := m.now().UTC()
	exp := now.Add(m.operatorTTL)
	claims := Claims{
		TokenType: TokenTypeOperator,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{operatorAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign operator token: %w", err)
	}
	return signed, exp, nil
}

func (m *JWTManager) ParseOperatorToken(raw string) (*Claims, error) {
	claims := &Claims{}
	if err := m.parse(raw, claims, operatorAudience); err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeOperator {
		return nil, ErrWrongTokenType
	}
	if claims.Subject == "" {
		return nil, ErrInvalidSubject
	}
	return claims, nil
}

// SignConfirmationTicket issues a short-lived ticket for one issuance of
// count credentials requested by subject.
func (m *JWTManager) SignConfirmationTicket(subject string, count int) (string, time.Time, error) {
	if count <= 0 {
		return "", time.Time{}, ErrInvalidTicketN
	}
	if len(m.secret) < 32 {
		return "", time.Time{}, ErrSecretTooShort
	}
	now := m.now().UTC()
	exp := now.Add(m.ticketTTL)
	claims := ConfirmationClaims{
		TokenType: TokenTypeConfirmation,
		Count:     count,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{confirmationAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign confirmation ticket: %w", err)
	}
	return signed, exp, nil
}

// ParseConfirmationTicket returns the count the ticket was issued for.
func (m *JWTManager) ParseConfirmationTicket(raw string) (int, error) {
	claims := &ConfirmationClaims{}
	if err := m.parse(raw, claims, confirmationAudience); err != nil {
		return 0, err
	}
	if claims.TokenType != TokenTypeConfirmation {
		return 0, ErrWrongTokenType
	}
	if claims.Count <= 0 {
		return 0, ErrInvalidTicketN
	}
	return claims.Count, nil
}

func (m *JWTManager) parse(raw string, claims jwt.Claims, audience string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
