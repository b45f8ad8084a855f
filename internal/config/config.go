package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	AppEnv        string `env:"APP_ENV" envDefault:"production"`
	HTTPPort      string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL   string `env:"DATABASE_URL,required,notEmpty"`
	DBAutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`

	JWTSecret string        `env:"JWT_SECRET,required,notEmpty"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"1h"`
	JWTIssuer string        `env:"JWT_ISSUER" envDefault:"notes-otp"`

	OTPTTL           time.Duration `env:"OTP_TTL" envDefault:"5m"`
	OTPSweepInterval time.Duration `env:"OTP_SWEEP_INTERVAL" envDefault:"1m"`
	OTPSweepOnIssue  bool          `env:"OTP_SWEEP_ON_ISSUE" envDefault:"true"`

	SMTPHost     string        `env:"SMTP_HOST"`
	SMTPPort     int           `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string        `env:"SMTP_USER"`
	SMTPPass     string        `env:"SMTP_PASS"`
	SMTPFrom     string        `env:"SMTP_FROM"`
	SMTPFromName string        `env:"SMTP_FROM_NAME" envDefault:"Notes App"`
	SMTPUseTLS   bool          `env:"SMTP_USE_TLS" envDefault:"false"`
	SMTPTimeout  time.Duration `env:"SMTP_TIMEOUT" envDefault:"10s"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	// Gmail y la mayoria de proveedores exigen que el remitente coincida con la cuenta.
	if cfg.SMTPFrom == "" {
		cfg.SMTPFrom = cfg.SMTPUser
	}
	return &cfg, nil
}

// IsDevelopment indica si el proceso corre en modo desarrollo.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development" || c.AppEnv == "dev"
}
