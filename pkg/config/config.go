package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	GRPC    GRPCConfig    `mapstructure:"grpc"`
	Data    DataConfig    `mapstructure:"data"`
	Storage StorageConfig `mapstructure:"storage"`
	Session SessionConfig `mapstructure:"session"`
	Redis   RedisConfig   `mapstructure:"redis"`
	MySQL   MySQLConfig   `mapstructure:"mysql"`
	MongoDB MongoDBConfig `mapstructure:"mongodb"`
	Etcd    EtcdConfig    `mapstructure:"etcd"`
	Mail    MailConfig    `mapstructure:"mail"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Shop    ShopConfig    `mapstructure:"shop"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Name string `mapstructure:"name"`
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

type GRPCConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Host    string `mapstructure:"host"`
}

type DataConfig struct {
	Dir         string `mapstructure:"dir"`
	FallbackDir string `mapstructure:"fallback_dir"`
}

type StorageConfig struct {
	// Orders selects the order history backend: "file" or "mysql".
	Orders string `mapstructure:"orders"`
}

type SessionConfig struct {
	// Store selects the session backend: "memory" or "redis".
	Store      string        `mapstructure:"store"`
	CookieName string        `mapstructure:"cookie_name"`
	TTL        time.Duration `mapstructure:"ttl"`
	Secure     bool          `mapstructure:"secure"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type MongoDBConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

type EtcdConfig struct {
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Prefix      string        `mapstructure:"prefix"`
	LeaseTTL    int64         `mapstructure:"lease_ttl"`
}

type MailConfig struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	EnableSSL   bool          `mapstructure:"enable_ssl"`
	UserName    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	FromAddress string        `mapstructure:"from_address"`
	FromName    string        `mapstructure:"from_name"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	AdminRole string `mapstructure:"admin_role"`
}

type ShopConfig struct {
	VATRate     float64  `mapstructure:"vat_rate"`
	LegacySeeds []string `mapstructure:"legacy_seeds"`
	ImageDir    string   `mapstructure:"image_dir"`
}

type LogConfig struct {
	Level       string   `mapstructure:"level"`
	Encoding    string   `mapstructure:"encoding"`
	OutputPaths []string `mapstructure:"output_paths"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "hottub-shop")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("grpc.port", 9090)
	v.SetDefault("grpc.host", "0.0.0.0")
	v.SetDefault("data.dir", "App_Data")
	v.SetDefault("storage.orders", "file")
	v.SetDefault("session.store", "memory")
	v.SetDefault("session.cookie_name", "hottub_sid")
	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("mongodb.database", "hottubshop")
	v.SetDefault("mongodb.collection", "audit_logs")
	v.SetDefault("etcd.dial_timeout", 5)
	v.SetDefault("etcd.prefix", "/services/")
	v.SetDefault("etcd.lease_ttl", 30)
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.enable_ssl", true)
	v.SetDefault("mail.from_name", "hottub-shop24")
	v.SetDefault("mail.timeout", 30*time.Second)
	v.SetDefault("auth.admin_role", "admin")
	v.SetDefault("shop.vat_rate", 0.19)
	v.SetDefault("shop.legacy_seeds", []string{"arctic-zen", "fjord-lounge"})
	v.SetDefault("shop.image_dir", "wwwroot/img")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.output_paths", []string{"stdout"})

	// registered so that AutomaticEnv can override them
	for _, key := range []string{
		"auth.jwt_secret", "mail.host", "mail.username", "mail.password", "mail.from_address",
		"mysql.host", "mysql.username", "mysql.password", "mysql.database",
		"redis.password", "mongodb.uri",
	} {
		v.SetDefault(key, "")
	}
}

// Load reads the YAML file at configPath. Values from a .env file and HOTTUB_* environment
// variables override the file (server.port -> HOTTUB_SERVER_PORT).
func Load(configPath string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("hottub")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")

		// Read config file
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects settings the shop cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Orders {
	case "file", "mysql":
	default:
		return fmt.Errorf("invalid storage.orders %q", c.Storage.Orders)
	}
	switch c.Session.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid session.store %q", c.Session.Store)
	}
	if c.Shop.VATRate < 0 {
		return fmt.Errorf("invalid shop.vat_rate %v", c.Shop.VATRate)
	}
	return nil
}

func (c *MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.Username, c.Password, c.Host, c.Port, c.Database)
}

func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *GRPCConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
