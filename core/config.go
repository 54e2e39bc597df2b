package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host               string
		Port               string
		CORSOrigin         string
		JWTExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	EmailConfig struct {
		SendgridAPIKey string

		// SMTP (Gmail app-password or generic relay)
		SMTPHost     string
		SMTPPort     string
		SMTPUser     string
		SMTPPassword string
	}

	Config struct {
		Debug    bool
		TestMode bool
		Env      string
		Build    string

		AppName          string
		SecretKey        string
		FrontendBaseURL  string
		DefaultFromEmail string
		UploadDir        string
		RollbarToken     string

		PasswordResetTimeout time.Duration

		Server   ServerConfig
		Database DatabaseConfig
		Email    EmailConfig
	}
)

func (c DatabaseConfig) Address() string { return c.Host + ":" + c.Port }
func (c ServerConfig) Address() string   { return c.Host + ":" + c.Port }

// NewConfig loads the app configuration from the environment.
// A config/.env.<env> file is loaded first when present.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "ClassOptima")
	v.SetDefault("secretKey", "y)ku#07$vy0o-77)a&2%ch@sher#an!1=vy5=4kzuip+)9&m(e")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@classoptima.com")
	v.SetDefault("uploadDir", "uploads")
	v.SetDefault("jwtExpirationDelta", 24*time.Hour)
	v.SetDefault("passwordResetTimeout", time.Hour)
	v.SetDefault("serverHost", "0.0.0.0")
	v.SetDefault("serverPort", "8000")
	v.SetDefault("corsOrigin", "http://localhost:3000")
	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", "5432")
	v.SetDefault("dbName", "classoptima")
	v.SetDefault("dbUser", "classoptima")
	v.SetDefault("dbDisableTLS", true)
	v.SetDefault("smtpPort", "587")

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err = godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Debug:                v.GetBool("debug"),
		TestMode:             v.GetBool("testMode"),
		Env:                  env,
		Build:                v.GetString("build"),
		AppName:              v.GetString("appName"),
		SecretKey:            v.GetString("secretKey"),
		FrontendBaseURL:      v.GetString("frontendBaseURL"),
		DefaultFromEmail:     v.GetString("defaultFromEmail"),
		UploadDir:            v.GetString("uploadDir"),
		RollbarToken:         v.GetString("rollbarToken"),
		PasswordResetTimeout: v.GetDuration("passwordResetTimeout"),
		Server: ServerConfig{
			Host:               v.GetString("serverHost"),
			Port:               v.GetString("serverPort"),
			CORSOrigin:         v.GetString("corsOrigin"),
			JWTExpirationDelta: v.GetDuration("jwtExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("dbEngine"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetString("dbPort"),
			Name:          v.GetString("dbName"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			DisableTLS:    v.GetBool("dbDisableTLS"),
		},
		Email: EmailConfig{
			SendgridAPIKey: v.GetString("sendgridApiKey"),
			SMTPHost:       v.GetString("smtpHost"),
			SMTPPort:       v.GetString("smtpPort"),
			SMTPUser:       v.GetString("smtpUser"),
			SMTPPassword:   v.GetString("smtpPassword"),
		},
	}
}

// NewTestConfig returns a Config suitable for unit tests.
func NewTestConfig() *Config {
	conf := NewConfig()
	conf.Debug = true
	conf.TestMode = true
	return conf
}
