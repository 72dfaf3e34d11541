package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends understood by StorageConfig.Backend.
const (
	StorageLocal = "local"
	StorageCloud = "cloud"
)

// Store drivers understood by Config.DBDriver.
const (
	DriverMySQL = "mysql"
	DriverMongo = "mongo"
)

// AdminConfig describes the single built-in administrator.  The admin is not
// a row in the users table; it only exists here.
type AdminConfig struct {
	Username     string // login name reserved for the admin
	PasswordHash string // bcrypt hash of the admin password
	Email        string // informational, returned by /me
}

// CloudConfig holds credentials for the S3-compatible image host.
type CloudConfig struct {
	Bucket    string
	Region    string
	Endpoint  string // empty means AWS; set for MinIO, B2, R2 and friends
	KeyID     string
	Secret    string
	Folder    string // logical folder every image key lives under
	PublicURL string // base URL clients fetch images from; derived when empty
}

// StorageConfig selects and configures the image storage backend.
type StorageConfig struct {
	Backend       string // "local" or "cloud"
	UploadDir     string // local backend directory, also served under /uploads
	MaxBytes      int64  // upload size limit in bytes
	PublicBaseURL string // scheme://host prefix for local image URLs
	Cloud         CloudConfig
}

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Values are read once at startup.
type Config struct {
	Env      string // application environment (e.g. "development", "production")
	Port     string // HTTP port to listen on
	LogLevel string // logrus level name

	DBDriver string // "mysql" or "mongo"
	DBUser   string // database username
	DBPass   string // database password (optional)
	DBHost   string // database host address
	DBPort   string // database port number
	DBName   string // database name
	MongoURI string // MongoDB connection string
	MongoDB  string // MongoDB database name

	JWTSecret  string        // secret used to sign JWTs
	TokenTTL   time.Duration // session token lifetime
	BcryptCost int           // bcrypt cost for password hashing
	Admin      AdminConfig

	LedgerBackend       string        // "store" or "redis"
	LedgerPruneInterval time.Duration // 0 disables the background sweep

	Storage StorageConfig

	AMQPURL      string // RabbitMQ URL; empty disables catalog events
	AuditLogPath string // file the catalog event consumer appends to
}

// IsProduction reports whether error details must be hidden from clients.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production") || strings.EqualFold(c.Env, "prod")
}

// Load reads configuration values from environment variables and returns a
// Config.  A .env file in the working directory is loaded first when
// present.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	_ = godotenv.Load() // .env is optional

	port := envStr("APP_PORT", "5000")
	cfg := Config{
		Env:      envStr("APP_ENV", "development"),
		Port:     port,
		LogLevel: envStr("LOG_LEVEL", "info"),

		DBDriver: strings.ToLower(envStr("DB_DRIVER", DriverMySQL)),
		MongoDB:  envStr("MONGO_DB", "shop"),

		JWTSecret:  must("JWT_SECRET"),
		TokenTTL:   envDur("TOKEN_TTL", 2*time.Hour),
		BcryptCost: envInt("BCRYPT_COST", 10),
		Admin: AdminConfig{
			Username:     must("ADMIN_USERNAME"),
			PasswordHash: must("ADMIN_PASSWORD_HASH"),
			Email:        os.Getenv("ADMIN_EMAIL"),
		},

		LedgerBackend:       strings.ToLower(envStr("LEDGER_BACKEND", "store")),
		LedgerPruneInterval: envDur("LEDGER_PRUNE_INTERVAL", time.Hour),

		Storage: StorageConfig{
			Backend:       strings.ToLower(envStr("STORAGE_BACKEND", StorageLocal)),
			UploadDir:     envStr("UPLOAD_DIR", "uploads"),
			MaxBytes:      envInt64("UPLOAD_MAX_BYTES", 5<<20),
			PublicBaseURL: strings.TrimRight(envStr("PUBLIC_BASE_URL", "http://localhost:"+port), "/"),
		},

		AMQPURL:      firstEnv("RABBITMQ_URL", "AMQP_URL"),
		AuditLogPath: envStr("CATALOG_AUDIT_LOG", "logs/catalog.log"),
	}

	switch cfg.DBDriver {
	case DriverMySQL:
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	case DriverMongo:
		cfg.MongoURI = must("MONGO_URI")
	default:
		log.Fatalf("unsupported DB_DRIVER: %q", cfg.DBDriver)
	}

	if cfg.Storage.Backend == StorageCloud {
		cfg.Storage.Cloud = CloudConfig{
			Bucket:    must("CLOUD_BUCKET"),
			Region:    envStr("CLOUD_REGION", "us-east-1"),
			Endpoint:  os.Getenv("CLOUD_ENDPOINT"),
			KeyID:     must("CLOUD_KEY_ID"),
			Secret:    must("CLOUD_SECRET"),
			Folder:    strings.Trim(envStr("CLOUD_FOLDER", "products"), "/"),
			PublicURL: strings.TrimRight(os.Getenv("CLOUD_PUBLIC_URL"), "/"),
		}
	}
	return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
