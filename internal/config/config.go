package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Sms      SmsConfig
	OAPush   OAPushConfig
	Worker   WorkerConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type SmsConfig struct {
	Enabled         bool
	Provider        string
	AccessKeyID     string
	AccessKeySecret string
	SignName        string
	TemplateCode    string
	RegionID        string
}

// FieldMapping maps one OA form field to a candidate/application source path.
// Source is "application.<key>", "candidate.<key>" or "constant.<literal>".
type FieldMapping struct {
	OAField string `json:"oa_field"`
	Source  string `json:"source"`
	Default string `json:"default"`
	Raw     bool   `json:"raw"`
}

type OAPushConfig struct {
	Enabled             bool
	BaseURL             string
	AppID               string
	Secret              string
	PublicKey           string
	UserID              string
	WorkflowID          string
	TokenTTL            time.Duration
	RequestTimeout      time.Duration
	AutoRetryTimes      int
	ContentType         string
	RequestNameTemplate string
	RemarkTemplate      string
	RequestLevel        string
	MainFieldMappings   []FieldMapping
}

type WorkerConfig struct {
	Concurrency          int
	RecoveryPollInterval time.Duration
	RecoveryPendingAge   time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using default values.")
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "3000"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "recruitflow"),
		},
		Sms: SmsConfig{
			Enabled:         getEnvAsBool("INTERVIEW_SMS_ENABLED", false),
			Provider:        getEnv("INTERVIEW_SMS_PROVIDER", "aliyun"),
			AccessKeyID:     getEnv("ALIYUN_SMS_ACCESS_KEY_ID", ""),
			AccessKeySecret: getEnv("ALIYUN_SMS_ACCESS_KEY_SECRET", ""),
			SignName:        getEnv("ALIYUN_SMS_SIGN_NAME", ""),
			TemplateCode:    getEnv("ALIYUN_SMS_TEMPLATE_CODE", ""),
			RegionID:        getEnv("ALIYUN_SMS_REGION_ID", "cn-hangzhou"),
		},
		OAPush: OAPushConfig{
			Enabled:             getEnvAsBool("OA_PUSH_ENABLED", false),
			BaseURL:             getEnv("OA_PUSH_BASE_URL", ""),
			AppID:               getEnv("OA_PUSH_APP_ID", ""),
			Secret:              getEnv("OA_PUSH_SECRET", ""),
			PublicKey:           getEnv("OA_PUSH_SPK", ""),
			UserID:              getEnv("OA_PUSH_USER_ID", ""),
			WorkflowID:          getEnv("OA_PUSH_WORKFLOW_ID", ""),
			TokenTTL:            getEnvAsSeconds("OA_PUSH_TOKEN_TTL_SECONDS", 1800*time.Second),
			RequestTimeout:      getEnvAsSeconds("OA_PUSH_REQUEST_TIMEOUT_SECONDS", 10*time.Second),
			AutoRetryTimes:      getEnvAsInt("OA_PUSH_AUTO_RETRY_TIMES", 1),
			ContentType:         getEnv("OA_PUSH_CONTENT_TYPE", "application/x-www-form-urlencoded; charset=utf-8"),
			RequestNameTemplate: getEnv("OA_PUSH_REQUEST_NAME_TEMPLATE", "Hire confirmation - {name}"),
			RemarkTemplate:      getEnv("OA_PUSH_REMARK_TEMPLATE", ""),
			RequestLevel:        getEnv("OA_PUSH_REQUEST_LEVEL", ""),
			MainFieldMappings:   getEnvAsFieldMappings("OA_PUSH_MAIN_FIELD_MAPPINGS", defaultMainFieldMappings()),
		},
		Worker: WorkerConfig{
			Concurrency:          getEnvAsInt("WORKER_CONCURRENCY", 2),
			RecoveryPollInterval: getEnvAsDuration("RECOVERY_POLL_INTERVAL", "30s"),
			RecoveryPendingAge:   getEnvAsDuration("RECOVERY_PENDING_AGE", "5m"),
		},
	}
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

func defaultMainFieldMappings() []FieldMapping {
	return []FieldMapping{
		{OAField: "name", Source: "application.name"},
		{OAField: "phone", Source: "application.phone"},
		{OAField: "job", Source: "application.job_title"},
		{OAField: "round", Source: "candidate.round"},
		{OAField: "hiredAt", Source: "candidate.hired_at"},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSeconds(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil && value > 0 {
		return time.Duration(value) * time.Second
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

func getEnvAsFieldMappings(key string, defaultValue []FieldMapping) []FieldMapping {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var mappings []FieldMapping
	if err := json.Unmarshal([]byte(valueStr), &mappings); err != nil {
		log.Printf("Invalid %s, falling back to defaults: %v", key, err)
		return defaultValue
	}
	return mappings
}
