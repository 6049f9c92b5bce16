package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"weel-backend/internal/cache"
	"weel-backend/internal/ratelimiter"
)

var (
	ErrCodeUnknown = errors.New("verification code expired or unknown")
	ErrCodeInvalid = errors.New("verification code invalid")
	ErrLocked      = errors.New("too many attempts, temporarily locked")
)

// Настройки безопасности кодов верификации.
const (
	codeTTL     = 180 * time.Second // код живёт 3 минуты
	attemptsTTL = 300 * time.Second // окно счётчика попыток
	lockTTL     = 300 * time.Second // блокировка после исчерпания попыток
	maxAttempts = 4
)

// SMSGateway — отправка одного SMS за вызов (реализуется клиентом Eskiz).
type SMSGateway interface {
	SendSMS(ctx context.Context, phone, message string) error
}

// VerificationService — выписывает, проверяет и протухает одноразовые коды
// подтверждения номера. Всё состояние (код в обе стороны, счётчик попыток,
// блокировка) лежит в кэше под TTL; никакой долговременной записи нет.
type VerificationService struct {
	Cache   cache.Store
	SMS     SMSGateway
	Limiter *ratelimiter.FixedWindow
}

func NewVerificationService(store cache.Store, sms SMSGateway, limiter *ratelimiter.FixedWindow) *VerificationService {
	return &VerificationService{Cache: store, SMS: sms, Limiter: limiter}
}

func codeKey(code string) string   { return "verification_code:" + code }
func phoneKey(phone string) string { return "phone_number:" + phone }
func attemptsKey(phone string) string { return "attempts:" + phone }
func lockKey(phone string) string  { return "block:" + phone }

// generateCode — 4-значный код в диапазоне 1000–9999.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+1000), nil
}

// IssueCode — выписать код и отправить его по SMS. Коллизия с чужим кодом не
// исключается: новая пара отображений молча перезаписывает старую, устаревший
// код после этого просто не найдётся по verification_code-ключу.
// Если SMS не ушло — только что выписанный код откатывается.
func (s *VerificationService) IssueCode(ctx context.Context, phone string) (string, error) {
	if err := s.Limiter.Allow(ctx, "sms:"+phone); err != nil {
		return "", err
	}

	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}

	if err := s.Cache.Set(ctx, codeKey(code), phone, codeTTL); err != nil {
		return "", fmt.Errorf("save verification code: %w", err)
	}
	if err := s.Cache.Set(ctx, phoneKey(phone), code, codeTTL); err != nil {
		return "", fmt.Errorf("save verification code: %w", err)
	}

	message := fmt.Sprintf("Код верификации для входа в приложение WEEL: %s", code)
	if err := s.SMS.SendSMS(ctx, phone, message); err != nil {
		// откатываем код, чтобы непришедшее SMS нельзя было "угадать"
		_ = s.Cache.Delete(ctx, codeKey(code))
		_ = s.Cache.Delete(ctx, phoneKey(phone))
		return "", err
	}

	log.Printf("[verify][issue] code sent: phone=%s", phone)
	return code, nil
}

// VerifyCode — обратный поиск номера по коду. Отсутствие означает и
// "неизвестный", и "уже использованный": успешная проверка удаляет отображение.
func (s *VerificationService) VerifyCode(ctx context.Context, code string) (string, error) {
	phone, err := s.Cache.Get(ctx, codeKey(code))
	if errors.Is(err, cache.ErrKeyNotFound) {
		return "", ErrCodeUnknown
	}
	if err != nil {
		return "", fmt.Errorf("lookup verification code: %w", err)
	}
	return phone, nil
}

// IsLocked — активна ли блокировка по номеру.
func (s *VerificationService) IsLocked(ctx context.Context, phone string) (bool, error) {
	return s.Cache.Exists(ctx, lockKey(phone))
}

// CheckAttempt — сверка кода со счётом попыток. Блокировка проверяется ДО
// любой мутации счётчика: это осознанное ужесточение, в старых вариантах
// маршрутов проверка была разбросана и местами отсутствовала.
// Возврат: (0, nil) — подтверждено; (remaining, ErrCodeInvalid) — мимо, но
// попытки остались; (0, ErrLocked) — лимит исчерпан либо блокировка активна.
func (s *VerificationService) CheckAttempt(ctx context.Context, phone, code string) (int, error) {
	locked, err := s.IsLocked(ctx, phone)
	if err != nil {
		return 0, fmt.Errorf("check lock: %w", err)
	}
	if locked {
		return 0, ErrLocked
	}

	stored, err := s.Cache.Get(ctx, phoneKey(phone))
	if err != nil && !errors.Is(err, cache.ErrKeyNotFound) {
		return 0, fmt.Errorf("lookup stored code: %w", err)
	}

	if errors.Is(err, cache.ErrKeyNotFound) || stored != code {
		attempts, incErr := s.Cache.Incr(ctx, attemptsKey(phone))
		if incErr != nil {
			return 0, fmt.Errorf("increment attempts: %w", incErr)
		}
		// TTL обновляется на каждом инкременте — окно скользит от последней попытки
		if expErr := s.Cache.Expire(ctx, attemptsKey(phone), attemptsTTL); expErr != nil {
			return 0, fmt.Errorf("expire attempts: %w", expErr)
		}

		remaining := maxAttempts - int(attempts)
		if remaining > 0 {
			log.Printf("[verify][check] wrong code: phone=%s remaining=%d", phone, remaining)
			return remaining, ErrCodeInvalid
		}

		if lockErr := s.Cache.Set(ctx, lockKey(phone), "blocked", lockTTL); lockErr != nil {
			return 0, fmt.Errorf("set lock: %w", lockErr)
		}
		log.Printf("[verify][check] locked for %s: phone=%s", lockTTL, phone)
		return 0, ErrLocked
	}

	// Успех: сбрасываем счётчик и гасим код — он одноразовый
	_ = s.Cache.Delete(ctx, attemptsKey(phone))
	_ = s.Cache.Delete(ctx, codeKey(code))
	_ = s.Cache.Delete(ctx, phoneKey(phone))

	log.Printf("[verify][check] OK: phone=%s", phone)
	return 0, nil
}
