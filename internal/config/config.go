// internal/config/config.go
package config

import (
	"fmt"
	"log"

	"github.com/spf13/viper"
)

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type JWTConfig struct {
	SecretKey string `mapstructure:"secret_key"`
}

// AppConfig は証明書とは無関係な「完了扱い」の一般的なしきい値を持ちます
type AppConfig struct {
	CompletionThreshold int `mapstructure:"completion_threshold"` // この%以上でユニットを完了扱いにする
}

// CertificateConfig は証明書判定のしきい値設定です。
// InteractiveWeight + ActivitiesWeight == 100 を起動時に検証する。
type CertificateConfig struct {
	VirtualThreshold  int  `mapstructure:"virtual_threshold"`
	CompleteThreshold int  `mapstructure:"complete_threshold"`
	InteractiveWeight int  `mapstructure:"interactive_weight"`
	ActivitiesWeight  int  `mapstructure:"activities_weight"`
	AllowRetry        bool `mapstructure:"allow_retry"`
	AutoGenerate      bool `mapstructure:"auto_generate"`
}

type SESConfig struct {
	Region          string `mapstructure:"region"`
	AuthType        string `mapstructure:"auth_type"` // static_credentials | iam_role
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

type MailConfig struct {
	Provider string `mapstructure:"provider"` // log | ses
	From     string `mapstructure:"from"`
	NotifyTo string `mapstructure:"notify_to"` // 証明書発行通知の宛先（未設定なら通知しない）
}

type Config struct {
	Database    DatabaseConfig    `mapstructure:"database"`
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Redis       RedisConfig       `mapstructure:"redis"`
	CORS        CORSConfig        `mapstructure:"cors"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	App         AppConfig         `mapstructure:"app"`
	Certificate CertificateConfig `mapstructure:"certificate"`
	Mail        MailConfig        `mapstructure:"mail"`
	SES         SESConfig         `mapstructure:"ses"`
}

var Cfg Config

func LoadConfig(path string) error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(path)
	viper.AddConfigPath(".")

	// 環境変数での上書き (例: APP_DATABASE_URL, APP_JWT_SECRET_KEY)
	viper.SetEnvPrefix("APP")
	viper.AutomaticEnv()
	viper.BindEnv("database.url", "DATABASE_URL")
	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("redis.addr", "REDIS_ADDR")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("Warning: Config file not found. Using default settings or environment variables if available.")
		} else {
			log.Printf("Error reading config file: %s\n", err)
			return err
		}
	}

	if err := viper.Unmarshal(&Cfg); err != nil {
		log.Printf("Error unmarshalling config: %s\n", err)
		return err
	}

	// --- デフォルト値の設定 ---
	if Cfg.Server.Port == "" {
		log.Printf("Server port not set, using default '%s'", DefaultServerPort)
		Cfg.Server.Port = DefaultServerPort
	}
	if Cfg.Log.Level == "" {
		Cfg.Log.Level = DefaultLogLevel
	}
	if Cfg.Log.Format == "" {
		Cfg.Log.Format = DefaultLogFormat
	}
	if Cfg.App.CompletionThreshold <= 0 || Cfg.App.CompletionThreshold > 100 {
		log.Printf("App completion threshold not set or invalid, using default '%d'", DefaultCompletionThreshold)
		Cfg.App.CompletionThreshold = DefaultCompletionThreshold
	}
	if Cfg.Certificate.VirtualThreshold <= 0 {
		Cfg.Certificate.VirtualThreshold = DefaultVirtualThreshold
	}
	if Cfg.Certificate.CompleteThreshold <= 0 {
		Cfg.Certificate.CompleteThreshold = DefaultCompleteThreshold
	}
	if Cfg.Certificate.InteractiveWeight == 0 && Cfg.Certificate.ActivitiesWeight == 0 {
		Cfg.Certificate.InteractiveWeight = DefaultInteractiveWeight
		Cfg.Certificate.ActivitiesWeight = DefaultActivitiesWeight
	}
	if Cfg.Mail.Provider == "" {
		Cfg.Mail.Provider = "log"
	}
	if Cfg.Database.URL == "" {
		log.Println("Warning: Database URL is not set in config.")
	}

	// --- 不変条件の検証 ---
	// 重みの合計が100でない設定は証明書の最終スコアを歪めるため起動エラーにする
	if sum := Cfg.Certificate.InteractiveWeight + Cfg.Certificate.ActivitiesWeight; sum != 100 {
		return fmt.Errorf("certificate weights must sum to 100, got %d (interactive=%d, activities=%d)",
			sum, Cfg.Certificate.InteractiveWeight, Cfg.Certificate.ActivitiesWeight)
	}

	log.Println("Config loaded successfully")
	log.Printf("Server Port: %s", Cfg.Server.Port)
	log.Printf("Completion Threshold: %d", Cfg.App.CompletionThreshold)
	log.Printf("Certificate Thresholds: virtual=%d complete=%d weights=%d/%d",
		Cfg.Certificate.VirtualThreshold, Cfg.Certificate.CompleteThreshold,
		Cfg.Certificate.InteractiveWeight, Cfg.Certificate.ActivitiesWeight)

	return nil
}
