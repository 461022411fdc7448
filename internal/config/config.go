package config

import (
	"fmt"

	env "github.com/caarlos0/env/v11"
)

type Config struct {
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv   string `env:"APP_ENV" envDefault:"production"`

	MollieAPIKey     string `env:"MOLLIE_API_KEY,required"`
	MollieWebhookURL string `env:"MOLLIE_WEBHOOK_URL,required"`

	// Razorpay is optional; the adapter is only registered when both keys
	// are present.
	RazorpayKeyID     string `env:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret string `env:"RAZORPAY_KEY_SECRET"`

	AdminPassword string `env:"ADMIN_CANCEL_PASSWORD,required"`

	// Missing sink credentials degrade that sink to a no-op, not an error.
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   string `env:"TELEGRAM_CHAT_ID"`
	BrevoAPIKey      string `env:"BREVO_API_KEY"`

	EmailSenderName    string `env:"EMAIL_SENDER_NAME" envDefault:"Support Team"`
	EmailSenderAddress string `env:"EMAIL_SENDER_ADDRESS"`
	AdminCopyEmail     string `env:"ADMIN_COPY_EMAIL"`

	DedupTTLSeconds          int `env:"DEDUP_TTL_SECONDS" envDefault:"120"`
	SubscriptionDelaySeconds int `env:"SUBSCRIPTION_DELAY_SECONDS" envDefault:"8"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}
