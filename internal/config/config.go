package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreBackendPostgres = "postgres"
	StoreBackendMongo    = "mongo"

	AssetBackendMinIO = "minio"
	AssetBackendDisk  = "disk"
)

type DB struct {
	Driver     string
	DbHOST     string
	DbPORT     string
	DbUSER     string
	DbPASSWORD string
	DbNAME     string
	DbSSLMODE  string
}

type Mongo struct {
	URI      string
	Database string
}

type MinIO struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	BucketName string
	UseSSL     bool
	Region     string
}

type Redis struct {
	Addr             string
	Password         string
	LoginMaxAttempts int
	LoginWindow      time.Duration
}

type Config struct {
	ServerPort         int
	StoreBackend       string
	AssetBackend       string
	AssetDir           string
	DB                 DB
	Mongo              Mongo
	MinIO              MinIO
	Redis              Redis
	JWTSecretKey       string
	TokenTTL           time.Duration
	BcryptCost         int
	PageSize           int
	MaxUploadSize      int64
	CORSAllowedOrigins []string
	LogLevel           string
	LogFormat          string
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(value)
	if err != nil || duration <= 0 {
		return fallback
	}
	return duration
}

func parseMaxUploadSize(value string) int64 {
	size, err := strconv.ParseInt(value, 10, 64)
	if err != nil || size <= 0 {
		return 10 * 1024 * 1024
	}
	return size
}

func LoadDB() DB {
	return DB{
		Driver:     getEnv("DB_DRIVER", "postgres"),
		DbHOST:     getEnv("DB_HOST", "localhost"),
		DbPORT:     getEnv("DB_PORT", "5432"),
		DbUSER:     getEnv("DB_USER", "postgres"),
		DbPASSWORD: getEnv("DB_PASSWORD", "password"),
		DbNAME:     getEnv("DB_NAME", "postfeed"),
		DbSSLMODE:  getEnv("DB_SSLMODE", "disable"),
	}
}

func LoadMongo() Mongo {
	return Mongo{
		URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		Database: getEnv("MONGO_DB", "postfeed"),
	}
}

func LoadMinIO() MinIO {
	return MinIO{
		Endpoint:   getEnv("MINIO_ENDPOINT", "localhost:9000"),
		AccessKey:  getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		SecretKey:  getEnv("MINIO_SECRET_KEY", "minioadmin"),
		BucketName: getEnv("MINIO_BUCKET_NAME", "images"),
		UseSSL:     getEnvBool("MINIO_USE_SSL", false),
		Region:     getEnv("MINIO_REGION", "us-east-1"),
	}
}

// LoadRedis leaves Addr empty unless REDIS_ADDR is set; login throttling is
// disabled in that case.
func LoadRedis() Redis {
	return Redis{
		Addr:             getEnv("REDIS_ADDR", ""),
		Password:         getEnv("REDIS_PASSWORD", ""),
		LoginMaxAttempts: getEnvAsInt("LOGIN_MAX_ATTEMPTS", 5),
		LoginWindow:      parseDuration(getEnv("LOGIN_WINDOW", "15m"), 15*time.Minute),
	}
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	return &Config{
		ServerPort:         getEnvAsInt("SERVER_PORT", 8080),
		StoreBackend:       getEnv("STORE_BACKEND", StoreBackendPostgres),
		AssetBackend:       getEnv("ASSET_BACKEND", AssetBackendMinIO),
		AssetDir:           getEnv("ASSET_DIR", "images"),
		DB:                 LoadDB(),
		Mongo:              LoadMongo(),
		MinIO:              LoadMinIO(),
		Redis:              LoadRedis(),
		JWTSecretKey:       getEnv("JWT_SECRET_KEY", ""),
		TokenTTL:           parseDuration(getEnv("TOKEN_TTL", "1h"), time.Hour),
		BcryptCost:         getEnvAsInt("BCRYPT_COST", 12),
		PageSize:           getEnvAsInt("PAGE_SIZE", 2),
		MaxUploadSize:      parseMaxUploadSize(getEnv("MAX_UPLOAD_SIZE", "10485760")),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
	}
}
