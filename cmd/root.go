package cmd

import (
	"errors"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/workhive/internal/logger"
)

const (
	app       = "workhive"
	envPrefix = "WORKHIVE"
)

type Config struct {
	HTTP     *HTTPConfig     `mapstructure:"http"`
	AI       *AIConfig       `mapstructure:"ai"`
	Matching *MatchingConfig `mapstructure:"matching"`
	Redis    *RedisConfig    `mapstructure:"redis"`
	Profiles *ProfilesConfig `mapstructure:"profiles"`
	Identity *IdentityConfig `mapstructure:"identity"`
	Payments *PaymentsConfig `mapstructure:"payments"`
	Chat     *ChatConfig     `mapstructure:"chat"`
	Locale   string          `mapstructure:"locale"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`
}

type AIConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type MatchingConfig struct {
	// Catalog is a JSON file of freelancers; empty uses the built-in one.
	Catalog     string        `mapstructure:"catalog"`
	Concurrency int           `mapstructure:"concurrency"`
	CacheTTL    time.Duration `mapstructure:"cache-ttl"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type ProfilesConfig struct {
	Backend  string          `mapstructure:"backend"`
	Postgres *PostgresConfig `mapstructure:"postgres"`
	Supabase *SupabaseConfig `mapstructure:"supabase"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

type SupabaseConfig struct {
	URL          string        `mapstructure:"url"`
	Key          string        `mapstructure:"key"`
	KeyFile      string        `mapstructure:"key-file"`
	PollInterval time.Duration `mapstructure:"poll-interval"`
}

type IdentityConfig struct {
	Provider string        `mapstructure:"provider"`
	Timeout  time.Duration `mapstructure:"timeout"`
	JWT      *JWTConfig    `mapstructure:"jwt"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	SecretFile string        `mapstructure:"secret-file"`
	TTL        time.Duration `mapstructure:"ttl"`
}

type PaymentsConfig struct {
	MerchantName string          `mapstructure:"merchant-name"`
	FlowTTL      time.Duration   `mapstructure:"flow-ttl"`
	Sweep        time.Duration   `mapstructure:"sweep"`
	Razorpay     *RazorpayConfig `mapstructure:"razorpay"`
}

type RazorpayConfig struct {
	KeyID         string `mapstructure:"key-id"`
	KeySecret     string `mapstructure:"key-secret"`
	KeySecretFile string `mapstructure:"key-secret-file"`
	APIURL        string `mapstructure:"api-url"`
}

type ChatConfig struct {
	IdleTTL time.Duration `mapstructure:"idle-ttl"`
	Sweep   time.Duration `mapstructure:"sweep"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "workhive matches freelancers to jobs with Gemini and serves the marketplace API",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is workhive.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults(viper.GetViper())
}

// setDefaults registers every key so that WORKHIVE_* variables are picked
// up by Unmarshal even when the config file does not mention them.
func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown-timeout", 10*time.Second)

	v.SetDefault("ai.enabled", true)
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.gemini.api-key", "")
	v.SetDefault("ai.gemini.api-key-file", "")
	v.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	v.SetDefault("ai.gemini.max-retries", 1)
	v.SetDefault("ai.gemini.max-log-length", 200)

	v.SetDefault("matching.catalog", "")
	v.SetDefault("matching.concurrency", 0)
	v.SetDefault("matching.cache-ttl", 10*time.Minute)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", app+":")

	v.SetDefault("profiles.backend", "memory")
	v.SetDefault("profiles.postgres.dsn", "")
	v.SetDefault("profiles.supabase.url", "")
	v.SetDefault("profiles.supabase.key", "")
	v.SetDefault("profiles.supabase.key-file", "")
	v.SetDefault("profiles.supabase.poll-interval", 3*time.Second)

	v.SetDefault("identity.provider", "local")
	v.SetDefault("identity.timeout", 15*time.Second)
	v.SetDefault("identity.jwt.secret", "")
	v.SetDefault("identity.jwt.secret-file", "")
	v.SetDefault("identity.jwt.ttl", 24*time.Hour)

	v.SetDefault("payments.merchant-name", "Work Hive")
	v.SetDefault("payments.flow-ttl", 24*time.Hour)
	v.SetDefault("payments.sweep", 10*time.Minute)
	v.SetDefault("payments.razorpay.key-id", "")
	v.SetDefault("payments.razorpay.key-secret", "")
	v.SetDefault("payments.razorpay.key-secret-file", "")
	v.SetDefault("payments.razorpay.api-url", "")

	v.SetDefault("chat.idle-ttl", 30*time.Minute)
	v.SetDefault("chat.sweep", 5*time.Minute)

	v.SetDefault("locale", "en")
}

// bindEnv maps keys like ai.gemini.api-key to WORKHIVE_AI_GEMINI_API_KEY.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

func initConfig() {
	// A missing .env is fine; a broken one is not.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	bindEnv(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Without an explicit --config the defaults and environment suffice.
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	err := v.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}

// newLogger builds the process logger. Interactive commands log to stderr
// so that prompts own stdout.
func newLogger(interactive bool) *zap.Logger {
	opts := logger.Options{JSON: viper.GetBool("json"), Debug: viper.GetBool("debug")}
	if interactive {
		opts.Output = "stderr"
	}

	l, err := logger.New(opts)
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return l
}
