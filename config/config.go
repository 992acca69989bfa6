package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

// Config 结构体用于存储应用程序的配置信息
type Config struct {
	ServerAddr  string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	JWTSecret   string
	LogLevel    string
	FrontendURL string
	BackendURL  string

	Currency             string
	OrderCodePrefix      string
	ManualConfirmEnabled bool // 演示模式下允许客户自行确认支付

	MoMoEndpoint    string
	MoMoPartnerCode string
	MoMoAccessKey   string
	MoMoSecretKey   string
	MoMoRedirectURL string
	MoMoIPNURL      string
	MoMoTimeout     time.Duration

	BankWebhookAPIKey string
	WebhookRateLimit  float64 // 每个 IP 每秒请求数
	WebhookBurst      int

	RedisHost       string
	RedisPassword   string
	ReplayGuardPath string
	ReplayTTL       time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string

	ArchiveBackend     string // local | s3 | gcs
	LocalStoragePath   string
	S3Region           string
	S3Bucket           string
	GCSProjectID       string
	GCSBucketName      string
	GCSCredentialsFile string

	Debug bool // 是否开启调试模式
}

// AppConfig 是全局配置变量，只在 main 和 cmd 中读取
var AppConfig Config

// Init 函数用于初始化配置
func Init() {
	// 加载 .env 文件
	err := godotenv.Load()
	if err != nil {
		log.Printf("警告：无法加载 .env 文件: %v", err)
	}

	AppConfig = Load()

	if err := AppConfig.Validate(); err != nil {
		log.Fatalf("错误：%v", err)
	}

	if AppConfig.Debug {
		gin.SetMode(gin.DebugMode)
		log.Println("应用程序运行在调试模式")
	} else {
		gin.SetMode(gin.ReleaseMode)
		log.Println("应用程序运行在生产模式")
	}

	log.Printf("配置加载完成。数据库：%s:%s", AppConfig.DBHost, AppConfig.DBPort)
}

// Load 从环境变量中读取配置
func Load() Config {
	return Config{
		ServerAddr:  getEnv("SERVER_ADDR", ":8080"),
		DBHost:      getEnv("DB_HOST", ""),
		DBPort:      getEnv("DB_PORT", "3306"),
		DBUser:      getEnv("DB_USER", ""),
		DBPassword:  getEnv("DB_PASSWORD", ""),
		DBName:      getEnv("DB_NAME", ""),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		BackendURL:  getEnv("BACKEND_URL", "http://localhost:8080"),

		Currency:             getEnv("CURRENCY", "VND"),
		OrderCodePrefix:      getEnv("ORDER_CODE_PREFIX", "ORD"),
		ManualConfirmEnabled: getEnvAsBool("MANUAL_CONFIRM_ENABLED", false),

		MoMoEndpoint:    getEnv("MOMO_ENDPOINT", "https://test-payment.momo.vn/v2/gateway/api/create"),
		MoMoPartnerCode: getEnv("MOMO_PARTNER_CODE", ""),
		MoMoAccessKey:   getEnv("MOMO_ACCESS_KEY", ""),
		MoMoSecretKey:   getEnv("MOMO_SECRET_KEY", ""),
		MoMoRedirectURL: getEnv("MOMO_REDIRECT_URL", "http://localhost:5173/payment/result"),
		MoMoIPNURL:      getEnv("MOMO_IPN_URL", "http://localhost:8080/webhook/momo"),
		MoMoTimeout:     getEnvAsDuration("MOMO_TIMEOUT", 10*time.Second),

		BankWebhookAPIKey: getEnv("BANK_WEBHOOK_API_KEY", ""),
		WebhookRateLimit:  getEnvAsFloat("WEBHOOK_RATE_LIMIT", 20),
		WebhookBurst:      getEnvAsInt("WEBHOOK_BURST", 40),

		RedisHost:       getEnv("REDIS_HOST", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		ReplayGuardPath: getEnv("REPLAY_GUARD_PATH", "./data/replay.db"),
		ReplayTTL:       getEnvAsDuration("REPLAY_TTL", 72*time.Hour),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 465),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		ArchiveBackend:     getEnv("ARCHIVE_BACKEND", "local"),
		LocalStoragePath:   getEnv("LOCAL_STORAGE_PATH", "./data"),
		S3Region:           getEnv("S3_REGION", "ap-southeast-1"),
		S3Bucket:           getEnv("S3_BUCKET", ""),
		GCSProjectID:       getEnv("GCS_PROJECT_ID", ""),
		GCSBucketName:      getEnv("GCS_BUCKET_NAME", ""),
		GCSCredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),

		Debug: getEnvAsBool("DEBUG", false),
	}
}

// DSN 返回 MySQL 连接字符串
func (c Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// Validate 检查必填配置
func (c Config) Validate() error {
	if c.DBHost == "" || c.DBUser == "" || c.DBName == "" {
		return fmt.Errorf("数据库配置不完整")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT密钥未设置")
	}
	if c.MoMoPartnerCode != "" && (c.MoMoAccessKey == "" || c.MoMoSecretKey == "") {
		return fmt.Errorf("MoMo 配置不完整")
	}
	switch c.ArchiveBackend {
	case "local", "":
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET 未设置")
		}
	case "gcs":
		if c.GCSBucketName == "" {
			return fmt.Errorf("GCS_BUCKET_NAME 未设置")
		}
	default:
		return fmt.Errorf("未知的归档后端: %s", c.ArchiveBackend)
	}
	return nil
}

// MoMoEnabled 是否配置了 MoMo 钱包
func (c Config) MoMoEnabled() bool {
	return c.MoMoPartnerCode != ""
}

// SMTPEnabled 是否配置了邮件发送
func (c Config) SMTPEnabled() bool {
	return c.SMTPHost != "" && c.SMTPUsername != ""
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultVal int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	valStr := getEnv(key, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	valStr := getEnv(key, "")
	if val, err := time.ParseDuration(valStr); err == nil {
		return val
	}
	return defaultVal
}
