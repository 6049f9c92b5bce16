package upay

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
)

// ErrInvalidExpiryFormat — срок действия карты задан не четырьмя символами MMYY.
var ErrInvalidExpiryFormat = errors.New("invalid expiry date format, expected MMYY")

// AccessToken каждой операции — MD5 от конкатенации login + поля операции +
// password. Состав и порядок полей зафиксированы контрактом UPAY, менять
// или сортировать их нельзя.

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// RegisterToken — токен для partnerRegisterCard.
func RegisterToken(login, cardNumber, exDate, password string) string {
	return md5hex(login + cardNumber + exDate + password)
}

// ConfirmToken — токен для partnerConfirmCard.
func ConfirmToken(login, confirmID, verifyCode, password string) string {
	return md5hex(login + confirmID + verifyCode + password)
}

// CardListToken — токен для partnerCardList.
func CardListToken(login, uzcardID, password string) string {
	return md5hex(login + uzcardID + password)
}

// PaymentToken — токен для partnerPayment.
func PaymentToken(login, cardPhone, uzcardID, serviceID, personalAccount, amountTiyin, password string) string {
	return md5hex(login + cardPhone + uzcardID + serviceID + personalAccount + amountTiyin + password)
}

// ConvertExpiryDate — переводит срок действия из пользовательского MMYY в
// провайдерский YYMM ("1225" -> "2512"). Транспозиция обязательна: в таком
// виде поле уходит и в подпись, и в конверт запроса.
func ConvertExpiryDate(expiryDate string) (string, error) {
	if len(expiryDate) != 4 {
		return "", ErrInvalidExpiryFormat
	}
	month := expiryDate[:2]
	year := expiryDate[2:]
	return year + month, nil
}
