package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv 读取 .env，已有环境变量不会被覆盖
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

type Config struct {
	HTTPAddr string

	DBDriver                 string
	DBDSN                    string
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeSeconds int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTAccessSecret  string
	JWTRefreshSecret string
	AccessTTL        time.Duration
	RefreshTTL       time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	KafkaBrokers []string
	KafkaTopic   string

	CloudinaryCloudName    string
	CloudinaryUploadPreset string
	CloudinaryFolder       string
	CloudinaryBaseURL      string

	CORSOrigins       []string
	OutboxInterval    time.Duration
	ReconcileInterval time.Duration
}

func Default() Config {
	return Config{
		HTTPAddr:                 ":8080",
		DBDriver:                 "mysql",
		DBDSN:                    "user:password@tcp(127.0.0.1:3306)/gamehub?charset=utf8mb4&parseTime=True",
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           10,
		DBConnMaxLifetimeSeconds: 300,
		RedisAddr:                "127.0.0.1:6379",
		JWTAccessSecret:          "secret-key",
		JWTRefreshSecret:         "refresh-key",
		AccessTTL:                30 * time.Minute,
		RefreshTTL:               24 * time.Hour,
		SMTPPort:                 587,
		SMTPFrom:                 "GameHub <no-reply@example.com>",
		KafkaTopic:               "gamehub-events",
		CloudinaryUploadPreset:   "ml_default",
		CloudinaryFolder:         "games",
		CloudinaryBaseURL:        "https://api.cloudinary.com",
		CORSOrigins:              []string{"*"},
		OutboxInterval:           time.Second,
		ReconcileInterval:        5 * time.Minute,
	}
}

func Load() Config {
	cfg := Default()
	if raw := os.Getenv("HTTP_ADDR"); raw != "" {
		cfg.HTTPAddr = raw
	}
	if raw := os.Getenv("DB_DRIVER"); raw != "" {
		cfg.DBDriver = strings.ToLower(raw)
	}
	if raw := os.Getenv("DB_DSN"); raw != "" {
		cfg.DBDSN = raw
	}
	if raw := os.Getenv("DB_MAX_OPEN_CONNS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBMaxOpenConns = value
		}
	}
	if raw := os.Getenv("DB_MAX_IDLE_CONNS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBMaxIdleConns = value
		}
	}
	if raw := os.Getenv("DB_CONN_MAX_LIFETIME_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBConnMaxLifetimeSeconds = value
		}
	}
	if raw := os.Getenv("REDIS_ADDR"); raw != "" {
		cfg.RedisAddr = raw
	}
	if raw := os.Getenv("REDIS_PASSWORD"); raw != "" {
		cfg.RedisPassword = raw
	}
	if raw := os.Getenv("REDIS_DB"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			cfg.RedisDB = value
		}
	}
	if raw := os.Getenv("JWT_ACCESS_SECRET"); raw != "" {
		cfg.JWTAccessSecret = raw
	}
	if raw := os.Getenv("JWT_REFRESH_SECRET"); raw != "" {
		cfg.JWTRefreshSecret = raw
	}
	if raw := os.Getenv("ACCESS_TTL_MINUTES"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.AccessTTL = time.Duration(value) * time.Minute
		}
	}
	if raw := os.Getenv("REFRESH_TTL_HOURS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.RefreshTTL = time.Duration(value) * time.Hour
		}
	}
	if raw := os.Getenv("SMTP_HOST"); raw != "" {
		cfg.SMTPHost = raw
	}
	if raw := os.Getenv("SMTP_PORT"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.SMTPPort = value
		}
	}
	if raw := os.Getenv("SMTP_USERNAME"); raw != "" {
		cfg.SMTPUsername = raw
	}
	if raw := os.Getenv("SMTP_PASSWORD"); raw != "" {
		cfg.SMTPPassword = raw
	}
	if raw := os.Getenv("SMTP_FROM"); raw != "" {
		cfg.SMTPFrom = raw
	}
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		cfg.KafkaBrokers = splitList(raw)
	}
	if raw := os.Getenv("KAFKA_TOPIC"); raw != "" {
		cfg.KafkaTopic = raw
	}
	if raw := os.Getenv("CLOUDINARY_CLOUD_NAME"); raw != "" {
		cfg.CloudinaryCloudName = raw
	}
	if raw := os.Getenv("CLOUDINARY_UPLOAD_PRESET"); raw != "" {
		cfg.CloudinaryUploadPreset = raw
	}
	if raw := os.Getenv("CLOUDINARY_FOLDER"); raw != "" {
		cfg.CloudinaryFolder = raw
	}
	if raw := os.Getenv("CLOUDINARY_BASE_URL"); raw != "" {
		cfg.CloudinaryBaseURL = strings.TrimRight(raw, "/")
	}
	if raw := os.Getenv("CORS_ORIGINS"); raw != "" {
		cfg.CORSOrigins = splitList(raw)
	}
	if raw := os.Getenv("OUTBOX_INTERVAL_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.OutboxInterval = time.Duration(value) * time.Second
		}
	}
	if raw := os.Getenv("RECONCILE_INTERVAL_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.ReconcileInterval = time.Duration(value) * time.Second
		}
	}
	return cfg
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
