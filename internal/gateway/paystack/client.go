package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ゲートウェイが通貨を受け付けなかった（フォールバック通貨で再試行できる）
	ErrUnsupportedCurrency = errors.New("currency not supported by gateway")
	// リトライ後も回復しなかった一時障害
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)

const (
	verifyAttempts = 3
	verifyBackoff  = 500 * time.Millisecond
)

type Client struct {
	baseURL       string
	secretKey     string
	webhookSecret string
	httpClient    *http.Client
}

func NewClient(baseURL string, secretKey string, webhookSecret string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		httpClient:    httpClient,
	}
}

type InitializeInput struct {
	Reference     string
	Email         string
	Amount        int64 // 最小通貨単位
	Currency      string
	CallbackURL   string
	CustomerName  string
	CustomerPhone string
	OrderNumber   string
}

type InitializeResult struct {
	Reference        string
	AuthorizationURL string
	AccessCode       string
}

type VerifyResult struct {
	Status    string // success / failed / abandoned
	Reference string
	Amount    int64
	Currency  string
}

// Paystackの共通レスポンス外枠
type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// POST /transaction/initialize
func (c *Client) InitializeTransaction(ctx context.Context, in InitializeInput) (InitializeResult, error) {
	body := map[string]interface{}{
		"reference":    in.Reference,
		"email":        in.Email,
		"amount":       in.Amount,
		"currency":     in.Currency,
		"callback_url": in.CallbackURL,
		"metadata": map[string]string{
			"order_number":   in.OrderNumber,
			"customer_name":  in.CustomerName,
			"customer_phone": in.CustomerPhone,
		},
	}

	env, err := c.post(ctx, "/transaction/initialize", body)
	if err != nil {
		return InitializeResult{}, err
	}
	if !env.Status {
		if isUnsupportedCurrencyMessage(env.Message) {
			return InitializeResult{}, ErrUnsupportedCurrency
		}
		return InitializeResult{}, fmt.Errorf("initialize failed: %s", env.Message)
	}

	var data struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return InitializeResult{}, err
	}

	return InitializeResult{
		Reference:        data.Reference,
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
	}, nil
}

// GET /transaction/verify/:reference
// 一時障害（ネットワーク/5xx）は回数限定でリトライする。
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (VerifyResult, error) {
	var lastErr error

	for attempt := 1; attempt <= verifyAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return VerifyResult{}, ctx.Err()
			case <-time.After(time.Duration(attempt-1) * verifyBackoff):
			}
		}

		env, err := c.get(ctx, "/transaction/verify/"+reference)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return VerifyResult{}, err
			}
			lastErr = err
			continue
		}
		if !env.Status {
			return VerifyResult{}, fmt.Errorf("verify failed: %s", env.Message)
		}

		var data struct {
			Status    string `json:"status"`
			Reference string `json:"reference"`
			Amount    int64  `json:"amount"`
			Currency  string `json:"currency"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return VerifyResult{}, err
		}

		return VerifyResult{
			Status:    data.Status,
			Reference: data.Reference,
			Amount:    data.Amount,
			Currency:  data.Currency,
		}, nil
	}

	return VerifyResult{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, lastErr)
}

// webhook本文のHMAC-SHA512署名を検証する。秘密鍵は必須（fail closed）。
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	if c.webhookSecret == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha512.New, []byte(c.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

func (c *Client) post(ctx context.Context, path string, body interface{}) (apiEnvelope, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return apiEnvelope{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return apiEnvelope{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

func (c *Client) get(ctx context.Context, path string) (apiEnvelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return apiEnvelope{}, err
	}

	return c.do(req)
}

func (c *Client) do(req *http.Request) (apiEnvelope, error) {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apiEnvelope{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apiEnvelope{}, err
	}

	if resp.StatusCode >= 500 {
		return apiEnvelope{}, fmt.Errorf("gateway returned %d", resp.StatusCode)
	}

	var env apiEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return apiEnvelope{}, fmt.Errorf("invalid gateway response: %w", err)
	}
	return env, nil
}

func isUnsupportedCurrencyMessage(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "currency") && (strings.Contains(m, "not supported") || strings.Contains(m, "unsupported"))
}
