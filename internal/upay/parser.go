package upay

import (
	"encoding/xml"
	"errors"
	"fmt"
)

var (
	// ErrResponseParse — ответ провайдера не разобрался: либо XML битый, либо
	// в нём нет ожидаемого поля. Конкретика — в обёрнутом сообщении, чтобы
	// по логам было видно "провайдер лежит" против "провайдер сменил контракт".
	ErrResponseParse = errors.New("upay: response parse error")
)

// ProviderError — ответ пришёл и разобрался, но Result/code != "OK".
// Description отдаётся вызывающему дословно.
type ProviderError struct {
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("upay: provider rejected: code=%s description=%s", e.Code, e.Description)
}

type Result struct {
	Code        string `xml:"code"`
	Description string `xml:"Description"`
}

type CardInfo struct {
	UzcardID   string `xml:"UzcardId"`
	CardNumber string `xml:"CardNumber"`
	CardPhone  string `xml:"CardPhone"`
	ExDate     string `xml:"ExDate"`
	Balance    string `xml:"Balance"`
}

type RegisterCardResult struct {
	ConfirmID string
}

type ConfirmCardResult struct {
	UzcardID  string
	CardPhone string
	Balance   string
}

type CardListResult struct {
	Cards []CardInfo
}

type PaymentResult struct {
	TransactionID string
	Confirmed     string
}

// Полезная нагрузка return одинакова по форме у всех четырёх операций,
// различается набором заполненных полей.
type returnPayload struct {
	Result    *Result `xml:"Result"`
	ConfirmID string  `xml:"ConfirmId"`
	UzcardID  string  `xml:"UzcardId"`
	CardPhone string  `xml:"CardPhone"`
	Balance   string  `xml:"Balance"`

	TransactionID string `xml:"TransactionId"`
	Confirmed     string `xml:"Confirmed"`

	CardList struct {
		CardList []CardInfo `xml:"CardList"`
	} `xml:"CardList"`
}

// SOAP-конверт ответа. encoding/xml сопоставляет элементы по локальным именам,
// поэтому префиксы s:/ns2: провайдера здесь не мешают.
type envelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		RegisterCard *struct {
			Return returnPayload `xml:"return"`
		} `xml:"partnerRegisterCardResponse"`
		ConfirmCard *struct {
			Return returnPayload `xml:"return"`
		} `xml:"partnerConfirmCardResponse"`
		CardList *struct {
			Return returnPayload `xml:"return"`
		} `xml:"partnerCardListResponse"`
		Payment *struct {
			Return returnPayload `xml:"return"`
		} `xml:"partnerPaymentResponse"`
	} `xml:"Body"`
}

func decodeEnvelope(raw []byte) (*envelope, error) {
	var env envelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: malformed xml: %v", ErrResponseParse, err)
	}
	return &env, nil
}

// checkResult — общий разбор Result/code. Отсутствие Result — ошибка парсинга,
// любой код кроме "OK" — отказ провайдера.
func checkResult(ret *returnPayload, op string) error {
	if ret.Result == nil {
		return fmt.Errorf("%w: Result not found in %s response", ErrResponseParse, op)
	}
	if ret.Result.Code != "OK" {
		return &ProviderError{Code: ret.Result.Code, Description: ret.Result.Description}
	}
	return nil
}

func parseRegisterCard(raw []byte) (*RegisterCardResult, error) {
	env, err := decodeEnvelope(raw)
	if err != nil {
		return nil, err
	}
	if env.Body.RegisterCard == nil {
		return nil, fmt.Errorf("%w: partnerRegisterCardResponse not found", ErrResponseParse)
	}
	ret := &env.Body.RegisterCard.Return
	if err := checkResult(ret, "partnerRegisterCard"); err != nil {
		return nil, err
	}
	if ret.ConfirmID == "" {
		return nil, fmt.Errorf("%w: ConfirmId not found in response", ErrResponseParse)
	}
	return &RegisterCardResult{ConfirmID: ret.ConfirmID}, nil
}

func parseConfirmCard(raw []byte) (*ConfirmCardResult, error) {
	env, err := decodeEnvelope(raw)
	if err != nil {
		return nil, err
	}
	if env.Body.ConfirmCard == nil {
		return nil, fmt.Errorf("%w: partnerConfirmCardResponse not found", ErrResponseParse)
	}
	ret := &env.Body.ConfirmCard.Return
	if err := checkResult(ret, "partnerConfirmCard"); err != nil {
		return nil, err
	}
	if ret.UzcardID == "" {
		return nil, fmt.Errorf("%w: UzcardId not found in response", ErrResponseParse)
	}
	if ret.CardPhone == "" {
		return nil, fmt.Errorf("%w: CardPhone not found in response", ErrResponseParse)
	}
	return &ConfirmCardResult{
		UzcardID:  ret.UzcardID,
		CardPhone: ret.CardPhone,
		Balance:   ret.Balance,
	}, nil
}

func parseCardList(raw []byte) (*CardListResult, error) {
	env, err := decodeEnvelope(raw)
	if err != nil {
		return nil, err
	}
	if env.Body.CardList == nil {
		return nil, fmt.Errorf("%w: partnerCardListResponse not found", ErrResponseParse)
	}
	ret := &env.Body.CardList.Return
	if err := checkResult(ret, "partnerCardList"); err != nil {
		return nil, err
	}
	return &CardListResult{Cards: ret.CardList.CardList}, nil
}

func parsePayment(raw []byte) (*PaymentResult, error) {
	env, err := decodeEnvelope(raw)
	if err != nil {
		return nil, err
	}
	if env.Body.Payment == nil {
		return nil, fmt.Errorf("%w: partnerPaymentResponse not found", ErrResponseParse)
	}
	ret := &env.Body.Payment.Return
	if err := checkResult(ret, "partnerPayment"); err != nil {
		return nil, err
	}
	if ret.TransactionID == "" {
		return nil, fmt.Errorf("%w: TransactionId not found in response", ErrResponseParse)
	}
	if ret.Confirmed == "" {
		return nil, fmt.Errorf("%w: Confirmed not found in response", ErrResponseParse)
	}
	return &PaymentResult{TransactionID: ret.TransactionID, Confirmed: ret.Confirmed}, nil
}
