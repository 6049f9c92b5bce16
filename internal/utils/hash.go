package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// CardHasher — детерминированный HMAC-SHA256 для номера и срока действия
// карты. Это ключ дедупликации ("такая карта уже привязана"), а не средство
// конфиденциальности: одинаковый вход даёт одинаковый хэш умышленно.
type CardHasher struct {
	key []byte
}

func NewCardHasher(key string) *CardHasher {
	return &CardHasher{key: []byte(key)}
}

func (h *CardHasher) Hash(data string) string {
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}
