package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"weel-backend/internal/cache"
	"weel-backend/internal/models"
	"weel-backend/internal/upay"
	"weel-backend/internal/utils"
)

var (
	ErrCardAlreadyExists       = errors.New("card already exists")
	ErrConfirmationNotFound    = errors.New("confirmation id not found")
	ErrInvalidCardState        = errors.New("invalid card number or expiry date state")
	ErrCardNotLinked           = errors.New("card not linked")
	ErrCardNotConnectedToPhone = errors.New("card not connected to your phone number")
	ErrCardNotFound            = errors.New("card not found")
	ErrAlreadyInState          = errors.New("card already in requested blacklist state")
	ErrPersistenceFailed       = errors.New("failed to persist card")
)

// Открытые данные карты живут в кэше только до подтверждения.
const pendingLinkageTTL = 60 * time.Second

// CardStore — долговременное хранилище привязанных карт.
type CardStore interface {
	ExistsByNumberHash(hash string) (bool, error)
	Create(card *models.Card) error
	GetByID(id int64) (*models.Card, error)
	SetBlacklisted(id int64, blacklisted bool) error
	Delete(id int64) error
}

// PaymentService — конечный автомат привязки карты и оплаты:
// register -> confirm -> pay, с pending-состоянием в кэше на пользователя.
// Вызовы провайдера всегда одиночные, без автоматических повторов.
type PaymentService struct {
	Cache   cache.Store
	Gateway upay.Gateway
	Cards   CardStore
	Hasher  *utils.CardHasher
}

func NewPaymentService(store cache.Store, gateway upay.Gateway, cards CardStore, hasher *utils.CardHasher) *PaymentService {
	return &PaymentService{Cache: store, Gateway: gateway, Cards: cards, Hasher: hasher}
}

func linkageKey(userID uuid.UUID) string { return "card_linkage:" + userID.String() }

func (s *PaymentService) loadLinkage(ctx context.Context, userID uuid.UUID) (*models.CardLinkage, error) {
	raw, err := s.Cache.Get(ctx, linkageKey(userID))
	if errors.Is(err, cache.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load card linkage: %w", err)
	}
	var linkage models.CardLinkage
	if err := json.Unmarshal([]byte(raw), &linkage); err != nil {
		return nil, fmt.Errorf("decode card linkage: %w", err)
	}
	return &linkage, nil
}

func (s *PaymentService) saveLinkage(ctx context.Context, userID uuid.UUID, linkage *models.CardLinkage, ttl time.Duration) error {
	raw, err := json.Marshal(linkage)
	if err != nil {
		return fmt.Errorf("encode card linkage: %w", err)
	}
	if err := s.Cache.Set(ctx, linkageKey(userID), string(raw), ttl); err != nil {
		return fmt.Errorf("save card linkage: %w", err)
	}
	return nil
}

// StartCardRegistration — шаг 1: дедупликация по хэшу, транспозиция срока
// действия MMYY->YYMM, partnerRegisterCard, сохранение confirm_id вместе с
// открытыми данными карты под коротким TTL до подтверждения.
func (s *PaymentService) StartCardRegistration(ctx context.Context, userID uuid.UUID, cardNumber, expiryDate string) error {
	numberHash := s.Hasher.Hash(cardNumber)
	exists, err := s.Cards.ExistsByNumberHash(numberHash)
	if err != nil {
		return fmt.Errorf("card lookup: %w", err)
	}
	if exists {
		return ErrCardAlreadyExists
	}

	formattedExpiry, err := upay.ConvertExpiryDate(expiryDate)
	if err != nil {
		return err
	}

	res, err := s.Gateway.RegisterCard(ctx, cardNumber, formattedExpiry)
	if err != nil {
		return err
	}

	linkage := &models.CardLinkage{
		ConfirmID:  res.ConfirmID,
		CardNumber: cardNumber,
		ExpiryDate: formattedExpiry,
	}
	if err := s.saveLinkage(ctx, userID, linkage, pendingLinkageTTL); err != nil {
		return err
	}

	log.Printf("[payments][register] sms code sent: user=%s", userID)
	return nil
}

// ConfirmCardRegistration — шаг 2: partnerConfirmCard по confirm_id, затем
// долговременная запись Card с хэшами. Падение записи не оставляет частичной
// карты: вставка единственная, pending-состояние остаётся на повтор.
func (s *PaymentService) ConfirmCardRegistration(ctx context.Context, userID uuid.UUID, verifyCode string) error {
	linkage, err := s.loadLinkage(ctx, userID)
	if err != nil {
		return err
	}
	if linkage == nil || linkage.ConfirmID == "" {
		return ErrConfirmationNotFound
	}

	res, err := s.Gateway.ConfirmCard(ctx, linkage.ConfirmID, verifyCode)
	if err != nil {
		return err
	}

	// открытые данные могли истечь раньше confirm_id — это сломанное состояние
	if linkage.CardNumber == "" || linkage.ExpiryDate == "" {
		return ErrInvalidCardState
	}

	card := &models.Card{
		UserID:           userID,
		CardNumberHashed: s.Hasher.Hash(linkage.CardNumber),
		ExpiryDateHashed: s.Hasher.Hash(linkage.ExpiryDate),
		IsBlacklisted:    false,
	}
	if err := s.Cards.Create(card); err != nil {
		log.Printf("[payments][confirm] persist card failed: user=%s err=%v", userID, err)
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	// перезаписываем привязку без открытых данных; бессрочно, как и запись карты
	confirmed := &models.CardLinkage{
		ConfirmID: linkage.ConfirmID,
		UzcardID:  res.UzcardID,
		CardPhone: res.CardPhone,
		Balance:   res.Balance,
	}
	if err := s.saveLinkage(ctx, userID, confirmed, 0); err != nil {
		return err
	}

	log.Printf("[payments][confirm] card linked: user=%s", userID)
	return nil
}

// Pay — шаг 3: partnerPayment. TransactionId сохраняется независимо от
// исхода (для последующей сверки), а Confirmed=="false" — бизнес-отказ
// при успешном на уровне протокола вызове.
func (s *PaymentService) Pay(ctx context.Context, userID uuid.UUID, amountTiyin int64) error {
	linkage, err := s.loadLinkage(ctx, userID)
	if err != nil {
		return err
	}
	if linkage == nil || linkage.UzcardID == "" || linkage.CardPhone == "" {
		return ErrCardNotLinked
	}

	res, err := s.Gateway.Payment(ctx, linkage.UzcardID, linkage.CardPhone, userID.String(), amountTiyin)
	if err != nil {
		return err
	}

	linkage.TransactionID = res.TransactionID
	if err := s.saveLinkage(ctx, userID, linkage, 0); err != nil {
		return err
	}

	if res.Confirmed == "false" {
		log.Printf("[payments][pay] card not connected to phone: user=%s tx=%s", userID, res.TransactionID)
		return ErrCardNotConnectedToPhone
	}

	log.Printf("[payments][pay] OK: user=%s tx=%s amount=%d", userID, res.TransactionID, amountTiyin)
	return nil
}

// ListCards — partnerCardList по сохранённому uzcard_id.
func (s *PaymentService) ListCards(ctx context.Context, userID uuid.UUID) (*upay.CardListResult, error) {
	linkage, err := s.loadLinkage(ctx, userID)
	if err != nil {
		return nil, err
	}
	if linkage == nil || linkage.UzcardID == "" {
		return nil, ErrCardNotLinked
	}
	return s.Gateway.CardList(ctx, linkage.UzcardID)
}

// SetBlacklist — идемпотентный переключатель с отказом на no-op переходе:
// повторный вызов в том же направлении сигнализирует о случайном дубле.
func (s *PaymentService) SetBlacklist(cardID int64, blacklisted bool) error {
	card, err := s.Cards.GetByID(cardID)
	if err != nil {
		return fmt.Errorf("card lookup: %w", err)
	}
	if card == nil {
		return ErrCardNotFound
	}
	if card.IsBlacklisted == blacklisted {
		return ErrAlreadyInState
	}
	if err := s.Cards.SetBlacklisted(cardID, blacklisted); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	log.Printf("[payments][blacklist] card=%d blacklisted=%v", cardID, blacklisted)
	return nil
}

// DeleteCard — удалить долговременную запись карты.
func (s *PaymentService) DeleteCard(cardID int64) error {
	card, err := s.Cards.GetByID(cardID)
	if err != nil {
		return fmt.Errorf("card lookup: %w", err)
	}
	if card == nil {
		return ErrCardNotFound
	}
	return s.Cards.Delete(cardID)
}

// Card — карта по идентификатору (для проверок владения в хендлерах).
func (s *PaymentService) Card(cardID int64) (*models.Card, error) {
	card, err := s.Cards.GetByID(cardID)
	if err != nil {
		return nil, fmt.Errorf("card lookup: %w", err)
	}
	if card == nil {
		return nil, ErrCardNotFound
	}
	return card, nil
}
