package config

import (
	"fmt"
	"os"
)

// Configはアプリ全体の設定
type Config struct {
	Port string

	JWTSecret string

	PaystackSecretKey     string // ゲートウェイAPIキー
	PaystackWebhookSecret string // webhook署名検証（必須・fail closed）
	PaystackBaseURL       string
	PaymentCallbackURL    string // 決済完了後に戻るフロントURL
	DefaultCurrency       string // 通貨フォールバック先
	ExchangeRateURL       string

	GoEnv string // dev/prod
}

// Loadは環境変数から読み込む
func Load() (Config, error) {
	cfg := Config{
		Port: os.Getenv("PORT"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		PaystackSecretKey:     os.Getenv("PAYSTACK_SECRET_KEY"),
		PaystackWebhookSecret: os.Getenv("PAYSTACK_WEBHOOK_SECRET"),
		PaystackBaseURL:       getenv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
		PaymentCallbackURL:    os.Getenv("PAYMENT_CALLBACK_URL"),
		DefaultCurrency:       getenv("DEFAULT_CURRENCY", "NGN"),
		ExchangeRateURL:       os.Getenv("EXCHANGE_RATE_URL"),

		GoEnv: getenv("GO_ENV", "dev"),
	}

	//必須チェック
	if cfg.Port == "" {
		return Config{}, fmt.Errorf("PORT is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.PaystackSecretKey == "" {
		return Config{}, fmt.Errorf("PAYSTACK_SECRET_KEY is required")
	}
	if cfg.PaystackWebhookSecret == "" {
		// 未設定を黙認しない。署名検証はスキップ不可。
		return Config{}, fmt.Errorf("PAYSTACK_WEBHOOK_SECRET is required")
	}
	if cfg.PaymentCallbackURL == "" {
		return Config{}, fmt.Errorf("PAYMENT_CALLBACK_URL is required")
	}
	if cfg.ExchangeRateURL == "" {
		return Config{}, fmt.Errorf("EXCHANGE_RATE_URL is required")
	}

	return cfg, nil
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
