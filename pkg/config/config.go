package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Generator  GeneratorConfig  `mapstructure:"generator"`
	Reconciler ReconcilerConfig `mapstructure:"reconciler"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

type GeneratorConfig struct {
	Locale          string `mapstructure:"locale"`
	Organizations   int    `mapstructure:"organizations"`
	Personnel       int    `mapstructure:"personnel"`
	Users           int    `mapstructure:"users"`
	Conversations   int    `mapstructure:"conversations"`
	Tags            int    `mapstructure:"tags"`
	MessageTags     int    `mapstructure:"message_tags"`
	MinMessagePairs int    `mapstructure:"min_message_pairs"`
	MaxMessagePairs int    `mapstructure:"max_message_pairs"`
	BatchSize       int    `mapstructure:"batch_size"`
	RetryCeiling    int    `mapstructure:"retry_ceiling"`
}

type ReconcilerConfig struct {
	PageSize int `mapstructure:"page_size"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	// Remove leading slash from path to get database name
	dbName := strings.TrimPrefix(u.Path, "/")

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   dbName,
		SSLMode:  "disable",
	}, nil
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.use_in_memory", false)
	v.SetDefault("generator.locale", "ja")
	v.SetDefault("generator.organizations", 100)
	v.SetDefault("generator.personnel", 400)
	v.SetDefault("generator.users", 1000)
	v.SetDefault("generator.conversations", 2500)
	v.SetDefault("generator.tags", 100)
	v.SetDefault("generator.message_tags", 500)
	v.SetDefault("generator.min_message_pairs", 1)
	v.SetDefault("generator.max_message_pairs", 7)
	v.SetDefault("generator.batch_size", 200)
	v.SetDefault("generator.retry_ceiling", 50)
	v.SetDefault("reconciler.page_size", 500)

	// Enable environment variable support
	v.AutomaticEnv()

	// Read the config file
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %v", err)
		}
		config.Database = dbConfig
	}

	return &config, nil
}
