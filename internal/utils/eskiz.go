package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"weel-backend/internal/cache"
	"weel-backend/internal/config"
)

var (
	// ErrEskizAuth — шлюз не выдал токен (не-200 или нет data.token в ответе).
	ErrEskizAuth = errors.New("eskiz: authentication failed")
	// ErrSMSSendFailed — шлюз принял запрос, но отправка не удалась;
	// детали провайдера в обёрнутом сообщении.
	ErrSMSSendFailed = errors.New("eskiz: sms send failed")
)

const (
	eskizLoginURL = "https://notify.eskiz.uz/api/auth/login"
	eskizSendURL  = "https://notify.eskiz.uz/api/message/sms/send"

	eskizTokenKey = "eskiz_token"
	eskizTokenTTL = 3600 * time.Second
)

// EskizClient — клиент SMS-шлюза Eskiz. Bearer-токен кэшируется в Redis
// на час, чтобы не логиниться на каждую отправку.
type EskizClient struct {
	email    string
	password string
	from     string
	dryRun   bool

	loginURL string
	sendURL  string

	cache cache.Store
	http  *http.Client
}

func NewEskizClient(cfg *config.EskizConfig, store cache.Store) *EskizClient {
	return &EskizClient{
		email:    cfg.Email,
		password: cfg.Password,
		from:     cfg.From,
		dryRun:   cfg.DryRun,
		loginURL: eskizLoginURL,
		sendURL:  eskizSendURL,
		cache:    store,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

type eskizLoginResponse struct {
	Data struct {
		Token string `json:"token"`
	} `json:"data"`
}

// GetToken — вернуть кэшированный токен, либо залогиниться и закэшировать новый.
func (c *EskizClient) GetToken(ctx context.Context) (string, error) {
	token, err := c.cache.Get(ctx, eskizTokenKey)
	if err == nil && token != "" {
		return token, nil
	}
	if err != nil && !errors.Is(err, cache.ErrKeyNotFound) {
		return "", fmt.Errorf("eskiz: token cache: %w", err)
	}

	form := url.Values{
		"email":    {c.email},
		"password": {c.password},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.loginURL, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("eskiz: build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("eskiz: login request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	var loginResp eskizLoginResponse
	if resp.StatusCode != http.StatusOK || json.Unmarshal(body, &loginResp) != nil || loginResp.Data.Token == "" {
		log.Printf("[sms][auth] eskiz login failed: status=%d", resp.StatusCode)
		return "", ErrEskizAuth
	}

	if err := c.cache.Set(ctx, eskizTokenKey, loginResp.Data.Token, eskizTokenTTL); err != nil {
		// токен рабочий, просто не закэшировался
		log.Printf("[sms][auth] store eskiz token failed: err=%v", err)
	}
	log.Printf("[sms][auth] new eskiz token obtained")
	return loginResp.Data.Token, nil
}

// SendSMS — ровно одна отправка за вызов. Любой не-200 ответ превращается в
// ErrSMSSendFailed с detail провайдера, чтобы вызывающий мог откатить своё
// состояние (например удалить только что выписанный код).
func (c *EskizClient) SendSMS(ctx context.Context, phone, message string) error {
	if c.dryRun {
		log.Printf("[sms][send][dry-run] to=%s text=%q", phone, message)
		return nil
	}

	token, err := c.GetToken(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]string{
		"mobile_phone": phone,
		"message":      message,
		"from":         c.from,
	})
	if err != nil {
		return fmt.Errorf("eskiz: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.sendURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("eskiz: build send request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("eskiz: send request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		detail := "Failed to send SMS"
		var errResp struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(body, &errResp) == nil && errResp.Detail != "" {
			detail = errResp.Detail
		}
		log.Printf("[sms][send] failed: to=%s status=%d detail=%s", phone, resp.StatusCode, detail)
		return fmt.Errorf("%w: %s", ErrSMSSendFailed, detail)
	}

	log.Printf("[sms][send] ok: to=%s", phone)
	return nil
}
