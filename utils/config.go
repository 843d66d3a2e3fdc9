package utils

import (
	"crypto/tls"
	"net"
	"net/http"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

var (
	DBDriver             string = envOr("DB_DRIVER", "sqlite")
	DBName               string = envOr("DB_DATABASE", "rampgate.db")
	DBUsername           string = os.Getenv("DB_USERNAME")
	DBPassword           string = os.Getenv("DB_PASSWORD")
	DBPort               string = envOr("DB_PORT", "5432")
	DBHost               string = envOr("DB_HOST", "localhost")
	JWTSecret            string = os.Getenv("JWT_SECRET")
	JWTIssuer            string = envOr("JWT_ISSUER", "rampgate")
	MoonpayBaseURL       string = envOr("MOONPAY_BASE_URL", "https://api.moonpay.com")
	MoonpayAPIKey        string = os.Getenv("MOONPAY_API_KEY")
	MoonpayWebhookSecret string = os.Getenv("MOONPAY_WEBHOOK_SECRET")
	EventsDriver         string = envOr("EVENTS_DRIVER", "none")
	NATSURL              string = os.Getenv("NATS_URL")
	AMQPURL              string = os.Getenv("AMQP_URL")
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewHTTPClient returns the tuned client used for processor calls.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
			DisableKeepAlives:   false,
			ForceAttemptHTTP2:   true,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}

type Config struct {
	Port     int
	Env      string
	LogLevel string
	DB       struct {
		Driver   string
		Name     string
		Host     string
		Port     string
		Username string
		Password string
	}
	JWT struct {
		Secret string
		Issuer string
	}
	RateLimiter struct {
		Rps     int
		Burst   int
		Enabled bool
	}
	Moonpay struct {
		BaseURL       string
		APIKey        string
		WebhookSecret string
		Timeout       time.Duration
	}
	Events struct {
		Driver  string
		NATSURL string
		Subject string
		AMQPURL string
	}
	Reconcile struct {
		Interval time.Duration
		Batch    int
	}
}
