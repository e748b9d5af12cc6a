package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// defaultAdminEmails is the allow-list of editors that may change the timeline.
var defaultAdminEmails = []string{
	"admin@lichsu.vn",
	"bientap@lichsu.vn",
}

type (
	ServerConfig struct {
		Host               string
		Address            string
		DebugHost          string
		DisableReqLogs     bool
		ReadTimeout        time.Duration
		WriteTimeout       time.Duration
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string // postgres | sqlite | memory
		Host          string
		Port          string
		Name          string // file path (or :memory:) for sqlite
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	SeedConfig struct {
		Dir   string
		Watch bool
	}

	Config struct {
		Env              string
		Debug            bool
		TestMode         bool
		AppName          string
		Build            string
		SecretKey        string
		FrontendBaseURL  string
		AdminEmails      []string
		RollbarToken     string
		SendgridAPIKey   string
		defaultFromEmail string

		Server   ServerConfig
		Database DatabaseConfig
		Seed     SeedConfig
	}
)

// Address returns the "host:port" of the database server.
func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c DatabaseConfig) IsSQLite() bool {
	return c.Engine == "sqlite"
}

// IsMemory reports whether the timeline lives in process memory only (demos, previews).
func (c DatabaseConfig) IsMemory() bool {
	return c.Engine == "memory"
}

func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: "noreply@localhost"}
	}
	if addr.Name == "" {
		addr.Name = c.AppName
	}
	return *addr
}

// IsAdmin reports whether email is on the admin allow-list.
func (c *Config) IsAdmin(email string) bool {
	email = CleanString(email, true /* lower */)
	if email == "" {
		return false
	}
	for _, adm := range c.AdminEmails {
		if CleanString(adm, true) == email {
			return true
		}
	}
	return false
}

// NewConfig loads the configuration from the environment.
// ENV selects the environment (DEV by default) and its variables prefix, e.g. DEV_DATABASE_NAME.
func NewConfig() *Config {
	v := viper.New()

	v.SetDefault("debug", true)
	v.SetDefault("appName", "Lịch Sử")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "k2v$9p!x7z-ls(hq)4c+8n&w1d@r6f^y0t#b5m=e3j")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("adminEmails", strings.Join(defaultAdminEmails, ","))
	v.SetDefault("defaultFromEmail", "Lịch Sử <noreply@localhost>")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.disableReqLogs", false)
	v.SetDefault("server.readTimeout", 5*time.Second)
	v.SetDefault("server.writeTimeout", 10*time.Second)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)

	v.SetDefault("database.engine", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "lichsu.db")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("seed.dir", "")
	v.SetDefault("seed.watch", false)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return configFromViper(v, env)
}

func configFromViper(v *viper.Viper, env string) *Config {
	conf := &Config{
		Env:              env,
		Debug:            v.GetBool("debug"),
		TestMode:         env == "TEST",
		AppName:          v.GetString("appName"),
		Build:            v.GetString("build"),
		SecretKey:        v.GetString("secretKey"),
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		AdminEmails:      splitList(v.GetString("adminEmails")),
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridAPIKey:   v.GetString("sendgridApiKey"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Host:               v.GetString("server.host"),
			Address:            v.GetString("server.address"),
			DebugHost:          v.GetString("server.debugHost"),
			DisableReqLogs:     v.GetBool("server.disableReqLogs"),
			ReadTimeout:        v.GetDuration("server.readTimeout"),
			WriteTimeout:       v.GetDuration("server.writeTimeout"),
			ShutdownTimeout:    v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta: v.GetDuration("server.jwtExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        strings.ToLower(v.GetString("database.engine")),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Seed: SeedConfig{
			Dir:   v.GetString("seed.dir"),
			Watch: v.GetBool("seed.watch"),
		},
	}
	if conf.TestMode {
		conf.Debug = true
	}
	return conf
}

// NewTestConfig returns a configuration suitable for tests: in-memory sqlite, no external services.
func NewTestConfig() *Config {
	v := viper.New()
	v.Set("adminEmails", strings.Join(defaultAdminEmails, ","))
	conf := configFromViper(v, "TEST")
	conf.AppName = "Lịch Sử"
	conf.SecretKey = "test-secret"
	conf.Server.DisableReqLogs = true
	conf.Server.JWTExpirationDelta = time.Hour
	conf.Database = DatabaseConfig{Engine: "sqlite", Name: ":memory:"}
	return conf
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (c *Config) String() string {
	return fmt.Sprintf("%s (%s) env=%s db=%s", c.AppName, c.Build, c.Env, c.Database.Engine)
}
