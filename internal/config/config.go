package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Mail transport drivers.
const (
	MailDriverSendGrid = "sendgrid"
	MailDriverSMTP     = "smtp"
)

// OTP store drivers.
const (
	OTPStoreMemory = "memory"
	OTPStoreRedis  = "redis"
	OTPStoreDynamo = "dynamo"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	LogLevel       string
	LogFormat      string
	AllowedOrigins []string // CORS allowed origins
	PublicBaseURL  string

	OTPTTL         time.Duration
	OTPStoreDriver string
	RedisURL       string

	AWSRegion       string
	AWSEndpointURL  string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID  string
	AWSSecretKey    string
	DynamoTables    DynamoTables
	DynamoBootstrap bool
	S3BucketName    string // empty disables the pass archive
	SNSTopicARN     string // empty disables pass events

	Pass2UAPIKey          string
	Pass2UModelID         string
	Pass2UBaseURL         string
	Pass2UDistributionURL string
	PassAttachFile        bool
	PassFallbackImageURL  string
	Timeouts              StageTimeouts

	MailDriver     string
	SendGridAPIKey string
	MailFrom       string
	SMTPHost       string
	SMTPPort       string
	SMTPUsername   string
	SMTPPassword   string

	JWTPrivateKeyPath      string
	JWTPublicKeyPath       string
	JWTExpiry              time.Duration
	RequireVerifiedSession bool
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	OTPs string
}

// StageTimeouts bounds each external call of the provisioning pipeline.
type StageTimeouts struct {
	Fetch    time.Duration
	Upload   time.Duration
	Create   time.Duration
	Download time.Duration
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "5002"),
		AppEnv:         getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		PublicBaseURL:  strings.TrimSuffix(getEnv("PUBLIC_BASE_URL", "http://localhost:5002"), "/"),

		OTPTTL:         getEnvDuration("OTP_TTL", 5*time.Minute),
		OTPStoreDriver: getEnv("OTP_STORE_DRIVER", OTPStoreMemory),
		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379/0"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			OTPs: getEnv("DYNAMO_TABLE_OTPS", "otp_codes"),
		},
		DynamoBootstrap: getEnvBool("DYNAMO_BOOTSTRAP", true),
		S3BucketName:    getEnv("S3_BUCKET_NAME", ""),
		SNSTopicARN:     getEnv("SNS_TOPIC_ARN", ""),

		Pass2UAPIKey:          getEnv("PASS2U_API_KEY", ""),
		Pass2UModelID:         getEnv("PASS2U_MODEL_ID", ""),
		Pass2UBaseURL:         strings.TrimSuffix(getEnv("PASS2U_BASE_URL", "https://api.pass2u.net/v2"), "/"),
		Pass2UDistributionURL: strings.TrimSuffix(getEnv("PASS2U_DISTRIBUTION_URL", "https://www.pass2u.net/d"), "/"),
		PassAttachFile:        getEnvBool("PASS_ATTACH_FILE", false),
		PassFallbackImageURL: getEnv("PASS_FALLBACK_IMAGE_URL",
			"https://upload.wikimedia.org/wikipedia/en/thumb/5/53/Tennessee_State_University_seal.svg/300px-Tennessee_State_University_seal.svg.png"),
		Timeouts: StageTimeouts{
			Fetch:    getEnvDuration("FETCH_TIMEOUT", 5*time.Second),
			Upload:   getEnvDuration("UPLOAD_TIMEOUT", 10*time.Second),
			Create:   getEnvDuration("CREATE_TIMEOUT", 10*time.Second),
			Download: getEnvDuration("DOWNLOAD_TIMEOUT", 10*time.Second),
		},

		MailDriver:     strings.ToLower(getEnv("MAIL_DRIVER", MailDriverSendGrid)),
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		MailFrom:       getEnv("MAIL_FROM", getEnv("SENDGRID_FROM_EMAIL", "")),
		SMTPHost:       getEnv("SMTP_HOST", "localhost"),
		SMTPPort:       getEnv("SMTP_PORT", "1025"),
		SMTPUsername:   getEnv("SMTP_USERNAME", ""),
		SMTPPassword:   getEnv("SMTP_PASSWORD", ""),

		JWTPrivateKeyPath:      getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:       getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:              getEnvDuration("JWT_EXPIRY", 15*time.Minute),
		RequireVerifiedSession: getEnvBool("REQUIRE_VERIFIED_SESSION", false),
	}
}

// Validate reports every missing or unsupported setting the service cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Pass2UAPIKey == "" {
		errs = append(errs, errors.New("PASS2U_API_KEY is not set"))
	}
	if c.Pass2UModelID == "" {
		errs = append(errs, errors.New("PASS2U_MODEL_ID is not set"))
	}
	if c.MailFrom == "" {
		errs = append(errs, errors.New("MAIL_FROM is not set"))
	}
	switch c.MailDriver {
	case MailDriverSendGrid:
		if c.SendGridAPIKey == "" {
			errs = append(errs, errors.New("SENDGRID_API_KEY is not set"))
		}
	case MailDriverSMTP:
	default:
		errs = append(errs, errors.New("MAIL_DRIVER must be sendgrid or smtp"))
	}
	switch c.OTPStoreDriver {
	case OTPStoreMemory, OTPStoreRedis, OTPStoreDynamo:
	default:
		errs = append(errs, errors.New("OTP_STORE_DRIVER must be memory, redis or dynamo"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("90s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
