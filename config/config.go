package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"immoflow/models"
	pgstore "immoflow/store/postgres"
)

var (
	DB        *gorm.DB
	AppConfig Config
	envLoaded bool
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"-"`
	DB       int    `json:"db"`
}

type EvolutionConfig struct {
	URL      string `json:"url"`
	APIKey   string `json:"-"`
	Instance string `json:"instance"`
}

type MediaConfig struct {
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"-"`
	SecretKey string `json:"-"`
	Bucket    string `json:"bucket"`
	UseSSL    bool   `json:"use_ssl"`
	PublicURL string `json:"public_url"`
}

type Config struct {
	Environment    string          `json:"environment"`
	ServerPort     string          `json:"server_port"`
	StoreDriver    string          `json:"store_driver"`
	DemoMode       bool            `json:"demo_mode"`
	DBHost         string          `json:"db_host"`
	DBPort         string          `json:"db_port"`
	DBUser         string          `json:"db_user"`
	DBPassword     string          `json:"-"`
	DBName         string          `json:"db_name"`
	DBSSLMode      string          `json:"db_ssl_mode"`
	DBMaxIdleConns int             `json:"db_max_idle_conns"`
	DBMaxOpenConns int             `json:"db_max_open_conns"`
	APIKey         string          `json:"-"`
	SessionSecret  string          `json:"-"`
	AllowedOrigins []string        `json:"allowed_origins"`
	RateLimitMax   int             `json:"rate_limit_max"`
	Redis          RedisConfig     `json:"redis"`
	SentryDSN      string          `json:"-"`
	Evolution      EvolutionConfig `json:"evolution"`
	Media          MediaConfig     `json:"media"`
	SMTPHost       string          `json:"smtp_host"`
	SMTPPort       int             `json:"smtp_port"`
	SMTPUsername   string          `json:"smtp_username"`
	SMTPPassword   string          `json:"-"`
	FromEmail      string          `json:"from_email"`
	// Pending tasks due within this window trigger a reminder
	ReminderLookahead time.Duration `json:"reminder_lookahead"`
}

func init() {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()
	envLoaded = true
}

func LoadConfig() error {
	AppConfig = Config{
		Environment:    getEnv("ENVIRONMENT", "development"),
		ServerPort:     getEnv("SERVER_PORT", "3001"),
		StoreDriver:    getEnv("STORE_DRIVER", DriverPostgres),
		DemoMode:       getEnvAsBool("DEMO_MODE", false),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "immoflow"),
		DBSSLMode:      getEnv("DB_SSL_MODE", "disable"),
		DBMaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
		APIKey:         getEnv("API_KEY", ""),
		SessionSecret:  getEnv("SESSION_SECRET", ""),
		AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		RateLimitMax:   getEnvAsInt("RATE_LIMIT_MAX", 120),
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		SentryDSN: getEnv("SENTRY_DSN", ""),
		Evolution: EvolutionConfig{
			URL:      getEnv("EVOLUTION_API_URL", ""),
			APIKey:   getEnv("EVOLUTION_API_KEY", ""),
			Instance: getEnv("EVOLUTION_INSTANCE", ""),
		},
		Media: MediaConfig{
			Endpoint:  getEnv("MEDIA_ENDPOINT", ""),
			AccessKey: getEnv("MEDIA_ACCESS_KEY", ""),
			SecretKey: getEnv("MEDIA_SECRET_KEY", ""),
			Bucket:    getEnv("MEDIA_BUCKET", "assets"),
			UseSSL:    getEnvAsBool("MEDIA_USE_SSL", false),
			PublicURL: getEnv("MEDIA_PUBLIC_URL", ""),
		},
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		FromEmail:         getEnv("FROM_EMAIL", ""),
		ReminderLookahead: time.Duration(getEnvAsInt("REMINDER_LOOKAHEAD_MINUTES", 15)) * time.Minute,
	}

	// Validate required configurations
	switch AppConfig.StoreDriver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q", DriverPostgres, DriverMemory)
	}
	if AppConfig.UsesDatabase() && AppConfig.DBPassword == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if AppConfig.Environment == "production" {
		if AppConfig.SessionSecret == "" {
			return fmt.Errorf("SESSION_SECRET is required in production")
		}
		if AppConfig.APIKey == "" {
			logrus.Warn("⚠️ API_KEY is not set, the chatbot API is open")
		}
	}

	logConfig()
	return nil
}

// UsesDatabase reports whether a Postgres connection is needed.
func (c Config) UsesDatabase() bool {
	return !c.DemoMode && c.StoreDriver == DriverPostgres
}

// DSN is the keyword/value connection string shared by gorm and pgx.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost,
		c.DBPort,
		c.DBUser,
		c.DBPassword,
		c.DBName,
		c.DBSSLMode,
	)
}

func ConnectDB() error {
	logrus.Info("Attempting to connect to database...")

	dsn := AppConfig.DSN()
	logrus.Infof("Using connection string: %s", maskPassword(dsn))

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get DB instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(AppConfig.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(AppConfig.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	logrus.Info("✅ Successfully connected to the database")
	logrus.Info("🔄 Starting database migration...")
	if err := migrateDB(DB); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	logrus.Info("✅ Database migration completed")
	return nil
}

// Helper functions
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	if !envLoaded && fallback == "" {
		logrus.Warnf("⚠️ Environment variable %s not found and no fallback provided", key)
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsList(key string, fallback []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func maskPassword(dsn string) string {
	const passwordMarker = "password="
	startIdx := strings.Index(dsn, passwordMarker)
	if startIdx == -1 {
		return dsn
	}

	startIdx += len(passwordMarker)
	endIdx := strings.IndexAny(dsn[startIdx:], " ")
	if endIdx == -1 {
		return dsn[:startIdx] + "*****"
	}
	return dsn[:startIdx] + "*****" + dsn[startIdx+endIdx:]
}

func logConfig() {
	log := logrus.WithFields(logrus.Fields{
		"environment":  AppConfig.Environment,
		"server_port":  AppConfig.ServerPort,
		"store_driver": AppConfig.StoreDriver,
		"demo_mode":    AppConfig.DemoMode,
	})
	if AppConfig.UsesDatabase() {
		log = log.WithField("database", fmt.Sprintf("%s@%s:%s/%s",
			AppConfig.DBUser,
			AppConfig.DBHost,
			AppConfig.DBPort,
			AppConfig.DBName))
	}
	log.WithFields(logrus.Fields{
		"api_key":  AppConfig.APIKey != "",
		"redis":    AppConfig.Redis.Enabled,
		"whatsapp": AppConfig.Evolution.URL != "",
		"media":    AppConfig.Media.Endpoint != "",
		"smtp":     AppConfig.SMTPHost != "",
		"sentry":   AppConfig.SentryDSN != "",
	}).Info("🔧 Loaded configuration")
}

// Tables whose inserts are pushed to realtime subscribers
var realtimeTables = []string{"messages"}

func migrateDB(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
		return fmt.Errorf("failed to enable pgcrypto: %w", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.PipelineStage{},
		&models.LeadSource{},
		&models.Lead{},
		&models.Property{},
		&models.Task{},
		&models.Sale{},
		&models.IncomeExpense{},
		&models.Message{},
		&models.Appointment{},
		&models.Settings{},
	); err != nil {
		return err
	}

	if err := pgstore.InstallReferences(db, models.References...); err != nil {
		return err
	}
	if err := pgstore.InstallRealtime(db, realtimeTables...); err != nil {
		return err
	}
	return models.SeedDefaults(db)
}
