package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string
	DatabaseURL   string

	CORSAllowedOrigins []string

	ClinicName     string
	ClinicPhone    string
	ClinicTimezone string

	// Redis (OTP store)
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Email channel
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string
	SESFromName       string
	AWSRegion         string

	// WhatsApp channel
	WhatsAppAccessToken   string
	WhatsAppPhoneNumberID string
	WhatsAppBaseURL       string
	WhatsAppTemplateLang  string

	// Notification dispatch
	ProviderTimeout time.Duration

	// OTP registry
	OTPTTL         time.Duration
	OTPMaxAttempts int

	// Reminder worker
	ReminderPollInterval time.Duration
	DailySummaryHour     int

	StaffJWTSecret string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", nil),

		ClinicName:     getEnv("CLINIC_NAME", "Carebook Clinic"),
		ClinicPhone:    getEnv("CLINIC_PHONE", ""),
		ClinicTimezone: getEnv("CLINIC_TZ", "UTC"),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "sendgrid"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Carebook Clinic"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		SESFromName:       getEnv("SES_FROM_NAME", "Carebook Clinic"),
		AWSRegion:         getEnv("AWS_REGION", "us-east-1"),

		WhatsAppAccessToken:   getEnv("WHATSAPP_ACCESS_TOKEN", ""),
		WhatsAppPhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
		WhatsAppBaseURL:       getEnv("WHATSAPP_BASE_URL", "https://graph.facebook.com/v18.0"),
		WhatsAppTemplateLang:  getEnv("WHATSAPP_TEMPLATE_LANG", "en_US"),

		ProviderTimeout: getEnvAsDuration("PROVIDER_TIMEOUT", 15*time.Second),

		OTPTTL:         getEnvAsDuration("OTP_TTL", 10*time.Minute),
		OTPMaxAttempts: getEnvAsInt("OTP_MAX_ATTEMPTS", 3),

		ReminderPollInterval: getEnvAsDuration("REMINDER_POLL_INTERVAL", 5*time.Minute),
		DailySummaryHour:     getEnvAsInt("DAILY_SUMMARY_HOUR", 18),

		StaffJWTSecret: getEnv("STAFF_JWT_SECRET", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsSlice retrieves a comma-separated environment variable as a slice
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
