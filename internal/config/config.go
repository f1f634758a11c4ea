package config

import "os"

type StripeConfig struct {
	SecretKey       string
	WebhookSecret   string
	PriceMonthly    string
	PriceYearly     string
	PriceCreditPack string
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PublicURL       string
}

type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type Config struct {
	Port        string
	FrontendURL string
	Stripe      StripeConfig
	R2          R2Config
	LLM         LLMConfig
}

// LoadConfig reads the environment into a typed config. Secrets stay in the
// struct and are never logged.
func LoadConfig() *Config {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
	}

	cfg.Stripe.SecretKey = os.Getenv("STRIPE_SECRET_KEY")
	cfg.Stripe.WebhookSecret = os.Getenv("STRIPE_WEBHOOK_SECRET")
	cfg.Stripe.PriceMonthly = os.Getenv("STRIPE_PRICE_MONTHLY")
	cfg.Stripe.PriceYearly = os.Getenv("STRIPE_PRICE_YEARLY")
	cfg.Stripe.PriceCreditPack = os.Getenv("STRIPE_PRICE_CREDIT_PACK")

	cfg.R2.AccountID = os.Getenv("R2_ACCOUNT_ID")
	cfg.R2.AccessKeyID = os.Getenv("R2_ACCESS_KEY_ID")
	cfg.R2.SecretAccessKey = os.Getenv("R2_SECRET_ACCESS_KEY")
	cfg.R2.Bucket = os.Getenv("R2_BUCKET")
	cfg.R2.PublicURL = os.Getenv("R2_PUBLIC_URL")

	cfg.LLM.APIKey = os.Getenv("LLM_API_KEY")
	cfg.LLM.BaseURL = getEnv("LLM_BASE_URL", "https://api.openai.com/v1")
	cfg.LLM.Model = getEnv("LLM_MODEL", "gpt-4o-mini")

	return cfg
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
