// Package token выпускает и проверяет одноразовые токены подтверждения бронирования.
//
// Проверка двухуровневая: подпись и срок действия проверяются без обращения к хранилищу,
// а однократность погашения обеспечивается журналом использованных JTI.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/office_hours/internal/clock"
	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/Freeeeeet/office_hours/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTTL окно подтверждения бронирования преподавателем
const DefaultTTL = 48 * time.Hour

const issuer = "office_hours/confirmation"

var (
	ErrInvalidSignature = errors.New("invalid confirmation token")
	ErrExpired          = errors.New("confirmation token expired")
	ErrAlreadyUsed      = errors.New("confirmation token already used")
)

// Claims полезная нагрузка токена; JTI хранится в RegisteredClaims.ID
type Claims struct {
	BookingID   int64 `json:"booking_id"`
	ProfessorID int64 `json:"professor_id"`
	StudentID   int64 `json:"student_id"`
	jwt.RegisteredClaims
}

// JTI уникальный идентификатор токена
func (c *Claims) JTI() string {
	return c.ID
}

// Expiry момент истечения токена
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Issued выпущенный токен
type Issued struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

type Service struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
	parser *jwt.Parser
}

func NewService(secret []byte, ttl time.Duration, clk clock.Clock) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		secret: secret,
		ttl:    ttl,
		clock:  clk,
		// срок действия проверяем сами по инжектированным часам
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
}

// TTL возвращает время жизни выпускаемых токенов
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// ExpiryFrom срок действия токена, выпущенного в момент now.
// JWT хранит время с точностью до секунды.
func (s *Service) ExpiryFrom(now time.Time) time.Time {
	return now.Add(s.ttl).Truncate(time.Second)
}

// Issue выпускает токен, связывающий бронирование с решением преподавателя
func (s *Service) Issue(bookingID, professorID, studentID int64) (*Issued, error) {
	return s.IssueUntil(bookingID, professorID, studentID, s.ExpiryFrom(s.clock.Now()))
}

// IssueUntil выпускает токен с заранее вычисленным сроком действия,
// чтобы он совпадал с confirmation_expires_at бронирования
func (s *Service) IssueUntil(bookingID, professorID, studentID int64, expiresAt time.Time) (*Issued, error) {
	now := s.clock.Now()
	jti := uuid.NewString()

	claims := Claims{
		BookingID:   bookingID,
		ProfessorID: professorID,
		StudentID:   studentID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign confirmation token: %w", err)
	}

	return &Issued{Token: signed, JTI: jti, ExpiresAt: expiresAt}, nil
}

// Decode проверяет подпись и разбирает claims без проверки срока и журнала
func (s *Service) Decode(tokenString string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := s.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	if claims.Issuer != issuer || claims.ID == "" || claims.BookingID == 0 || claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing claims", ErrInvalidSignature)
	}

	return claims, nil
}

// Validate полная проверка: подпись, срок действия и журнал погашенных токенов
func (s *Service) Validate(ctx context.Context, ledger repository.UsedTokenRepository, tokenString string) (*Claims, error) {
	claims, err := s.Decode(tokenString)
	if err != nil {
		return nil, err
	}

	if s.clock.Now().After(claims.Expiry()) {
		return nil, ErrExpired
	}

	used, err := ledger.Exists(ctx, claims.JTI())
	if err != nil {
		return nil, fmt.Errorf("check token ledger: %w", err)
	}
	if used {
		return nil, ErrAlreadyUsed
	}

	return claims, nil
}

// MarkUsed гасит токен. Из двух конкурентных погашений успешно только одно.
func (s *Service) MarkUsed(ctx context.Context, ledger repository.UsedTokenRepository, jti string, bookingID int64) error {
	err := ledger.Insert(ctx, &model.UsedToken{
		JTI:       jti,
		BookingID: bookingID,
		UsedAt:    s.clock.Now(),
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return ErrAlreadyUsed
	}
	if err != nil {
		return fmt.Errorf("mark token used: %w", err)
	}
	return nil
}
