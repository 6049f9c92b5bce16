package upay

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"weel-backend/internal/config"
)

// Gateway — четыре операции партнёрского API UPAY. Каждая — единственная
// попытка: повтор мутации у платёжного провайдера грозит двойным списанием,
// поэтому ретраи остаются на усмотрение вызывающего.
type Gateway interface {
	RegisterCard(ctx context.Context, cardNumber, exDate string) (*RegisterCardResult, error)
	ConfirmCard(ctx context.Context, confirmID, verifyCode string) (*ConfirmCardResult, error)
	CardList(ctx context.Context, uzcardID string) (*CardListResult, error)
	Payment(ctx context.Context, uzcardID, cardPhone, personalAccount string, amountTiyin int64) (*PaymentResult, error)
}

type Client struct {
	url        string
	partnerKey string
	login      string
	password   string
	serviceID  string
	http       *http.Client
}

func NewClient(cfg *config.UpayConfig) *Client {
	return &Client{
		url:        cfg.URL,
		partnerKey: cfg.PartnerKey,
		login:      cfg.Login,
		password:   cfg.Password,
		serviceID:  cfg.ServiceID,
		http:       &http.Client{Timeout: 30 * time.Second},
	}
}

// post — отправка SOAP-конверта. Не-200 статус — транспортная ошибка,
// отличная от отказа провайдера на уровне Result/code.
func (c *Client) post(ctx context.Context, body string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("upay: build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upay: request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("upay: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upay: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return raw, nil
}

const registerCardTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:st="http://st.apus.com/">
   <soapenv:Header/>
   <soapenv:Body>
      <st:partnerRegisterCard>
        <partnerRegisterCardRequest>
            <StPimsApiPartnerKey>%s</StPimsApiPartnerKey>
            <AccessToken>%s</AccessToken>
            <CardNumber>%s</CardNumber>
            <ExDate>%s</ExDate>
            <Version>1</Version>
            <Lang>ru</Lang>
        </partnerRegisterCardRequest>
      </st:partnerRegisterCard>
   </soapenv:Body>
</soapenv:Envelope>`

func (c *Client) RegisterCard(ctx context.Context, cardNumber, exDate string) (*RegisterCardResult, error) {
	token := RegisterToken(c.login, cardNumber, exDate, c.password)
	body := fmt.Sprintf(registerCardTemplate, c.partnerKey, token, cardNumber, exDate)

	raw, err := c.post(ctx, body)
	if err != nil {
		log.Printf("[upay][register] request failed: err=%v", err)
		return nil, err
	}
	return parseRegisterCard(raw)
}

const confirmCardTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:st="http://st.apus.com/">
    <soapenv:Header/>
    <soapenv:Body>
        <st:partnerConfirmCard>
            <partnerConfirmCardRequest>
                <StPimsApiPartnerKey>%s</StPimsApiPartnerKey>
                <AccessToken>%s</AccessToken>
                <ConfirmId>%s</ConfirmId>
                <VerifyCode>%s</VerifyCode>
                <Version>1</Version>
                <Lang>ru</Lang>
            </partnerConfirmCardRequest>
        </st:partnerConfirmCard>
    </soapenv:Body>
</soapenv:Envelope>`

func (c *Client) ConfirmCard(ctx context.Context, confirmID, verifyCode string) (*ConfirmCardResult, error) {
	token := ConfirmToken(c.login, confirmID, verifyCode, c.password)
	body := fmt.Sprintf(confirmCardTemplate, c.partnerKey, token, confirmID, verifyCode)

	raw, err := c.post(ctx, body)
	if err != nil {
		log.Printf("[upay][confirm] request failed: err=%v", err)
		return nil, err
	}
	return parseConfirmCard(raw)
}

const cardListTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:st="http://st.apus.com/">
    <soapenv:Header/>
    <soapenv:Body>
        <st:partnerCardList>
            <partnerCardListRequest>
                <StPimsApiPartnerKey>%s</StPimsApiPartnerKey>
                <AccessToken>%s</AccessToken>
                <CardList>%s</CardList>
                <Version>1</Version>
                <Lang>ru</Lang>
            </partnerCardListRequest>
        </st:partnerCardList>
    </soapenv:Body>
</soapenv:Envelope>`

func (c *Client) CardList(ctx context.Context, uzcardID string) (*CardListResult, error) {
	token := CardListToken(c.login, uzcardID, c.password)
	body := fmt.Sprintf(cardListTemplate, c.partnerKey, token, uzcardID)

	raw, err := c.post(ctx, body)
	if err != nil {
		log.Printf("[upay][cardlist] request failed: err=%v", err)
		return nil, err
	}
	return parseCardList(raw)
}

const paymentTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:st="http://st.apus.com/">
    <soapenv:Header/>
    <soapenv:Body>
        <st:partnerPayment>
            <partnerPaymentRequest>
                <StPimsApiPartnerKey>%s</StPimsApiPartnerKey>
                <AccessToken>%s</AccessToken>
                <CardPhone>%s</CardPhone>
                <UzcardId>%s</UzcardId>
                <ServiceId>%s</ServiceId>
                <PaymentType></PaymentType>
                <PersonalAccount>%s</PersonalAccount>
                <AmountInTiyin>%d</AmountInTiyin>
                <RegionId></RegionId>
                <SubRegionId></SubRegionId>
                <Version>1</Version>
                <Lang>ru</Lang>
            </partnerPaymentRequest>
        </st:partnerPayment>
    </soapenv:Body>
</soapenv:Envelope>`

func (c *Client) Payment(ctx context.Context, uzcardID, cardPhone, personalAccount string, amountTiyin int64) (*PaymentResult, error) {
	amount := fmt.Sprintf("%d", amountTiyin)
	token := PaymentToken(c.login, cardPhone, uzcardID, c.serviceID, personalAccount, amount, c.password)
	body := fmt.Sprintf(paymentTemplate, c.partnerKey, token, cardPhone, uzcardID, c.serviceID, personalAccount, amountTiyin)

	raw, err := c.post(ctx, body)
	if err != nil {
		log.Printf("[upay][payment] request failed: err=%v", err)
		return nil, err
	}
	return parsePayment(raw)
}
