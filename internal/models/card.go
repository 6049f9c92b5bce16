package models

import (
	"time"

	"github.com/google/uuid"
)

// Card — долговременная запись о привязанной карте. Номер и срок действия
// хранятся только в виде HMAC-хэшей: это ключ дедупликации, а не защита
// содержимого.
type Card struct {
	ID               int64     `json:"id"`
	UserID           uuid.UUID `json:"user_id"`
	CardNumberHashed string    `json:"-"`
	ExpiryDateHashed string    `json:"-"`
	IsBlacklisted    bool      `json:"is_blacklisted"`
	CreatedAt        time.Time `json:"created_at"`
}

// CardLinkage — pending-состояние многошаговой привязки карты, одна JSON-запись
// на пользователя в кэше. Открытые CardNumber/ExpiryDate живут только до
// подтверждения (короткий TTL), после подтверждения запись переписывается
// без них.
type CardLinkage struct {
	ConfirmID     string `json:"confirm_id,omitempty"`
	CardNumber    string `json:"card_number,omitempty"`
	ExpiryDate    string `json:"expiry_date,omitempty"`
	UzcardID      string `json:"uzcard_id,omitempty"`
	CardPhone     string `json:"card_phone,omitempty"`
	Balance       string `json:"balance,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
}

type AddCardRequest struct {
	CardNumber string `json:"card_number" binding:"required"`
	ExpiryDate string `json:"expiry_date" binding:"required"` // MMYY
}

type ConfirmCardRequest struct {
	VerifyCode string `json:"verify_code" binding:"required"`
}

type PayRequest struct {
	AmountTiyin int64 `json:"amount_tiyin" binding:"required"`
}
