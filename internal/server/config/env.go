package config

import (
	"os"
	"strconv"
	"strings"
)

// parseEnv overlays configuration from environment variables. The
// encryption key and the OTP bypass flag are env-only on purpose: the key
// never belongs on a command line, and the bypass is an operational switch.
func parseEnv(config *Config) {
	if v := os.Getenv("ADDRESS"); v != "" {
		config.EndpointAddrHTTP = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		config.DatabaseDSN = v
	}
	if v := os.Getenv("SECRET_KEY"); v != "" {
		config.SecretKey = strings.TrimSpace(v)
	}
	if v := os.Getenv("ENCRYPTION_KEY"); v != "" {
		config.EncryptionKey = strings.TrimSpace(v)
	}
	if v := os.Getenv("RSA_KEY_DIR"); v != "" {
		config.RSAKeyDir = v
	}
	if v := os.Getenv("OTP_BYPASS"); v != "" {
		config.OTPBypass = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("SMTP_HOST"); v != "" {
		config.SMTPHost = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.SMTPPort = port
		}
	}
	if v := os.Getenv("SMTP_USERNAME"); v != "" {
		config.SMTPUsername = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		config.SMTPPassword = v
	}
	if v := os.Getenv("SMTP_SENDER"); v != "" {
		config.SMTPSender = v
	}
}
