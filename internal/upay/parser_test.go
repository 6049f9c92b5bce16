package upay

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// soapResponse собирает конверт в том виде, в каком его отдаёт STAPI:
// префиксы S:/ns2: с живого стенда, разбор идёт по локальным именам.
func soapResponse(op, inner string) []byte {
	return []byte(fmt.Sprintf(`<S:Envelope xmlns:S="http://schemas.xmlsoap.org/soap/envelope/">
  <S:Body>
    <ns2:%sResponse xmlns:ns2="http://st.apus.com/">
      <return>%s</return>
    </ns2:%sResponse>
  </S:Body>
</S:Envelope>`, op, inner, op))
}

const resultOK = `<Result><code>OK</code><Description>success</Description></Result>`

func TestParseRegisterCard(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		raw := soapResponse("partnerRegisterCard", resultOK+`<ConfirmId>169425</ConfirmId>`)
		res, err := parseRegisterCard(raw)
		require.NoError(t, err)
		assert.Equal(t, "169425", res.ConfirmID)
	})

	t.Run("provider rejection keeps description verbatim", func(t *testing.T) {
		raw := soapResponse("partnerRegisterCard",
			`<Result><code>ERROR</code><Description>Карта заблокирована</Description></Result>`)
		_, err := parseRegisterCard(raw)
		var provErr *ProviderError
		require.ErrorAs(t, err, &provErr)
		assert.Equal(t, "ERROR", provErr.Code)
		assert.Equal(t, "Карта заблокирована", provErr.Description)
	})

	t.Run("missing ConfirmId", func(t *testing.T) {
		raw := soapResponse("partnerRegisterCard", resultOK)
		_, err := parseRegisterCard(raw)
		assert.ErrorIs(t, err, ErrResponseParse)
	})

	t.Run("malformed xml", func(t *testing.T) {
		_, err := parseRegisterCard([]byte(`<S:Envelope`))
		assert.ErrorIs(t, err, ErrResponseParse)
	})

	t.Run("wrong operation in body", func(t *testing.T) {
		raw := soapResponse("partnerConfirmCard", resultOK+`<ConfirmId>169425</ConfirmId>`)
		_, err := parseRegisterCard(raw)
		assert.ErrorIs(t, err, ErrResponseParse)
	})
}

func TestParseConfirmCard(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		raw := soapResponse("partnerConfirmCard",
			resultOK+`<UzcardId>16942587410</UzcardId><CardPhone>998901234567</CardPhone><Balance>2500000</Balance>`)
		res, err := parseConfirmCard(raw)
		require.NoError(t, err)
		assert.Equal(t, "16942587410", res.UzcardID)
		assert.Equal(t, "998901234567", res.CardPhone)
		assert.Equal(t, "2500000", res.Balance)
	})

	t.Run("missing UzcardId", func(t *testing.T) {
		raw := soapResponse("partnerConfirmCard", resultOK+`<CardPhone>998901234567</CardPhone>`)
		_, err := parseConfirmCard(raw)
		assert.ErrorIs(t, err, ErrResponseParse)
	})

	t.Run("missing Result", func(t *testing.T) {
		raw := soapResponse("partnerConfirmCard", `<UzcardId>16942587410</UzcardId>`)
		_, err := parseConfirmCard(raw)
		assert.ErrorIs(t, err, ErrResponseParse)
	})
}

func TestParseCardList(t *testing.T) {
	t.Run("two cards", func(t *testing.T) {
		raw := soapResponse("partnerCardList", resultOK+`<CardList>
  <CardList><UzcardId>111</UzcardId><CardNumber>860012******9012</CardNumber><CardPhone>998901234567</CardPhone><ExDate>2512</ExDate><Balance>100000</Balance></CardList>
  <CardList><UzcardId>222</UzcardId><CardNumber>860098******1234</CardNumber><CardPhone>998907654321</CardPhone><ExDate>2601</ExDate><Balance>0</Balance></CardList>
</CardList>`)
		res, err := parseCardList(raw)
		require.NoError(t, err)
		require.Len(t, res.Cards, 2)
		assert.Equal(t, "111", res.Cards[0].UzcardID)
		assert.Equal(t, "860012******9012", res.Cards[0].CardNumber)
		assert.Equal(t, "222", res.Cards[1].UzcardID)
		assert.Equal(t, "2601", res.Cards[1].ExDate)
	})

	t.Run("empty list is not an error", func(t *testing.T) {
		raw := soapResponse("partnerCardList", resultOK)
		res, err := parseCardList(raw)
		require.NoError(t, err)
		assert.Empty(t, res.Cards)
	})
}

func TestParsePayment(t *testing.T) {
	t.Run("confirmed", func(t *testing.T) {
		raw := soapResponse("partnerPayment",
			resultOK+`<TransactionId>874512369</TransactionId><Confirmed>true</Confirmed>`)
		res, err := parsePayment(raw)
		require.NoError(t, err)
		assert.Equal(t, "874512369", res.TransactionID)
		assert.Equal(t, "true", res.Confirmed)
	})

	// Confirmed=false — валидный ответ, решение за сервисным слоем.
	t.Run("not confirmed still parses", func(t *testing.T) {
		raw := soapResponse("partnerPayment",
			resultOK+`<TransactionId>874512369</TransactionId><Confirmed>false</Confirmed>`)
		res, err := parsePayment(raw)
		require.NoError(t, err)
		assert.Equal(t, "false", res.Confirmed)
	})

	t.Run("missing TransactionId", func(t *testing.T) {
		raw := soapResponse("partnerPayment", resultOK+`<Confirmed>true</Confirmed>`)
		_, err := parsePayment(raw)
		assert.ErrorIs(t, err, ErrResponseParse)
	})
}
