package paystack

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitializeTransaction_Success(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": true,
			"message": "Authorization URL created",
			"data": {
				"authorization_url": "https://checkout.paystack.com/abc123",
				"access_code": "abc123",
				"reference": "ORDER-1748779200000-AABBCCDD-A1B2C3"
			}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test_xxx", "whsec", nil)

	res, err := c.InitializeTransaction(context.Background(), InitializeInput{
		Reference:   "ORDER-1748779200000-AABBCCDD-A1B2C3",
		Email:       "taro@example.com",
		Amount:      2000,
		Currency:    "NGN",
		CallbackURL: "https://shop.example.com/payment/callback",
		OrderNumber: "ORDER-1748779200000-AABBCCDD",
	})

	assert.NoError(t, err)
	assert.Equal(t, "https://checkout.paystack.com/abc123", res.AuthorizationURL)
	assert.Equal(t, "ORDER-1748779200000-AABBCCDD-A1B2C3", res.Reference)
	assert.Equal(t, "Bearer sk_test_xxx", gotAuth)
	assert.Equal(t, "taro@example.com", gotBody["email"])
	assert.Equal(t, float64(2000), gotBody["amount"])
	//注文番号はmetadataに入れて送る
	meta := gotBody["metadata"].(map[string]interface{})
	assert.Equal(t, "ORDER-1748779200000-AABBCCDD", meta["order_number"])
}

func TestInitializeTransaction_UnsupportedCurrency(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": false, "message": "Currency not supported by merchant"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test_xxx", "whsec", nil)

	_, err := c.InitializeTransaction(context.Background(), InitializeInput{
		Reference: "ref", Email: "taro@example.com", Amount: 2000, Currency: "USD",
	})

	assert.ErrorIs(t, err, ErrUnsupportedCurrency)
}

func TestVerifyTransaction_RetriesOn5xx(t *testing.T) {
	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/verify/ORDER-1748779200000-AABBCCDD-A1B2C3", r.URL.Path)

		//最初の2回は一時障害、3回目で成功
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{
			"status": true,
			"message": "Verification successful",
			"data": {
				"status": "success",
				"reference": "ORDER-1748779200000-AABBCCDD-A1B2C3",
				"amount": 2000,
				"currency": "NGN"
			}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test_xxx", "whsec", nil)

	res, err := c.VerifyTransaction(context.Background(), "ORDER-1748779200000-AABBCCDD-A1B2C3")

	assert.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, int64(2000), res.Amount)
	assert.Equal(t, "NGN", res.Currency)
}

func TestVerifyTransaction_GivesUpAfterRetries(t *testing.T) {
	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test_xxx", "whsec", nil)

	_, err := c.VerifyTransaction(context.Background(), "ref")

	assert.ErrorIs(t, err, ErrGatewayUnavailable)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestVerifyWebhookSignature(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"event":"charge.success","data":{"reference":"ref"}}`)

	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	valid := hex.EncodeToString(mac.Sum(nil))

	c := NewClient("https://api.paystack.co", "sk_test_xxx", secret, nil)

	assert.True(t, c.VerifyWebhookSignature(body, valid))
	//大文字HEXでも通す
	assert.True(t, c.VerifyWebhookSignature(body, strings.ToUpper(valid)))
	assert.False(t, c.VerifyWebhookSignature(body, "deadbeef"))
	assert.False(t, c.VerifyWebhookSignature([]byte(`tampered`), valid))
	assert.False(t, c.VerifyWebhookSignature(body, ""))

	//秘密鍵未設定なら常に拒否（fail closed）
	open := NewClient("https://api.paystack.co", "sk_test_xxx", "", nil)
	assert.False(t, open.VerifyWebhookSignature(body, valid))
}
