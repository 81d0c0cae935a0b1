package config

import (
	"github.com/caarlos0/env/v11"
)

type Config struct {
	Env  string `env:"STORE_ENV" envDefault:"dev"`
	Port int    `env:"STORE_PORT" envDefault:"5000"`

	DatabaseURL   string `env:"DATABASE_URL"`
	MigrationsDir string `env:"MIGRATIONS_DIR" envDefault:"db/migrations"`

	JWTSecret string `env:"STORE_JWT_SECRET"`
	LogJSON   bool   `env:"STORE_LOG_JSON" envDefault:"false"`

	StripeSecretKey     string `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	CheckoutSuccessURL  string `env:"CHECKOUT_SUCCESS_URL" envDefault:"http://localhost:3000/checkout/success"`
	CheckoutCancelURL   string `env:"CHECKOUT_CANCEL_URL" envDefault:"http://localhost:3000/cart"`

	LearnAPIBaseURL string `env:"LEARN_API_BASE_URL" envDefault:"http://127.0.0.1:8090"`
	LearnAPIToken   string `env:"LEARN_API_TOKEN"`

	SMTPHost string `env:"SMTP_HOST"`
	SMTPPort string `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser string `env:"SMTP_USER"`
	SMTPPass string `env:"SMTP_PASSWORD"`
	MailFrom string `env:"MAIL_FROM"`

	Refund RefundPolicy
}

// RefundPolicy holds the policy knobs that gate and price refunds. It is
// injected into the eligibility and refund services at construction so tests
// can run alternate windows and fee schedules without touching process state.
type RefundPolicy struct {
	CourseEligibleDays    int     `env:"REFUND_COURSE_ELIGIBLE_DAYS" envDefault:"30"`
	BundleEligibleDays    int     `env:"REFUND_BUNDLE_ELIGIBLE_DAYS" envDefault:"30"`
	CourseSectionLimit    int     `env:"REFUND_COURSE_SECTION_LIMIT" envDefault:"2"`
	UnitProgressRateLimit float64 `env:"REFUND_UNIT_PROGRESS_RATE_LIMIT" envDefault:"0.8"`
	ApplyProcessingFee    bool    `env:"REFUND_APPLY_PROCESSING_FEE" envDefault:"true"`
	ProcessingFeePercent  float64 `env:"REFUND_PROCESSING_FEE_PERCENT" envDefault:"0.05"`
}

// EligibleDays returns the refund window for a product type.
func (p RefundPolicy) EligibleDays(course bool) int {
	if course {
		return p.CourseEligibleDays
	}
	return p.BundleEligibleDays
}

// FromEnv builds the config from environment variables, falling back to the
// envDefault values above.
func FromEnv() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, err
	}
	return c, nil
}
