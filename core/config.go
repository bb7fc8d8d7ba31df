package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kat-co/vala"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Debug           bool
		TestMode        bool
		AppName         string
		Env             string // DEV (local; default), TEST, QA, PROD
		Build           string
		SecretKey       string
		RollbarToken    string
		FrontendBaseURL string
		Server          ServerConfig
		Database        DatabaseConfig
		Email           EmailConfig
		Review          ReviewConfig
	}

	ServerConfig struct {
		Host               string
		Address            string
		DebugHost          string
		DisableReqLogs     bool
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	EmailConfig struct {
		Backend        string // console, sendgrid, smtp
		FromName       string
		FromAddress    string
		SendgridApiKey string
		SMTPHost       string
		SMTPPort       int
		SMTPUser       string
		SMTPPassword   string
	}

	ReviewConfig struct {
		// RequireAssignment restricts reviews to reviewers assigned to the abstract,
		// on top of conference membership.
		RequireAssignment bool
		ReconcileSchedule string        // cron spec; empty disables the job
		InvitationTimeout time.Duration // validity of reviewer invitation links
	}
)

func (db DatabaseConfig) Address() string {
	return net.JoinHostPort(db.Host, strconv.Itoa(db.Port))
}

func (conf *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: conf.Email.FromName, Address: conf.Email.FromAddress}
}

// NewConfig loads the configuration for the current ENV.
// Values are read from defaults, then `config/.env.<env>` (if present), then the environment
// prefixed with the ENV name, e.g. PROD_DATABASE_HOST.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Confhub")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "m2#k9@vq!x7p$wz+3c)r8fh(t0&ne5ul=y4b*gs1d6j_a")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.disableReqLogs", false)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "confhub")
	v.SetDefault("database.user", "confhub")
	v.SetDefault("database.password", "confhub")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("email.backend", "console")
	v.SetDefault("email.fromName", "Confhub")
	v.SetDefault("email.fromAddress", "noreply@localhost")
	v.SetDefault("email.sendgridApiKey", "")
	v.SetDefault("email.smtpHost", "")
	v.SetDefault("email.smtpPort", 587)
	v.SetDefault("email.smtpUser", "")
	v.SetDefault("email.smtpPassword", "")

	v.SetDefault("review.requireAssignment", true)
	v.SetDefault("review.reconcileSchedule", "@every 15m")
	v.SetDefault("review.invitationTimeout", 14*24*time.Hour)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	v.SetDefault("testMode", env == "TEST")
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	if wd, err := os.Getwd(); err == nil {
		dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
			}
		} else if !os.IsNotExist(err) {
			log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
		}
	}
	v.AutomaticEnv()

	conf := &Config{
		Debug:           v.GetBool("debug"),
		TestMode:        v.GetBool("testMode"),
		AppName:         v.GetString("appName"),
		Env:             env,
		Build:           v.GetString("build"),
		SecretKey:       v.GetString("secretKey"),
		RollbarToken:    v.GetString("rollbarToken"),
		FrontendBaseURL: strings.TrimRight(v.GetString("frontendBaseURL"), "/"),
		Server: ServerConfig{
			Host:               v.GetString("server.host"),
			Address:            v.GetString("server.address"),
			DebugHost:          v.GetString("server.debugHost"),
			DisableReqLogs:     v.GetBool("server.disableReqLogs"),
			ShutdownTimeout:    v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta: v.GetDuration("server.jwtExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Email: EmailConfig{
			Backend:        strings.ToLower(v.GetString("email.backend")),
			FromName:       v.GetString("email.fromName"),
			FromAddress:    v.GetString("email.fromAddress"),
			SendgridApiKey: v.GetString("email.sendgridApiKey"),
			SMTPHost:       v.GetString("email.smtpHost"),
			SMTPPort:       v.GetInt("email.smtpPort"),
			SMTPUser:       v.GetString("email.smtpUser"),
			SMTPPassword:   v.GetString("email.smtpPassword"),
		},
		Review: ReviewConfig{
			RequireAssignment: v.GetBool("review.requireAssignment"),
			ReconcileSchedule: v.GetString("review.reconcileSchedule"),
			InvitationTimeout: v.GetDuration("review.invitationTimeout"),
		},
	}
	if err := conf.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	return conf
}

// Validate reports the first missing mandatory setting.
func (conf *Config) Validate() error {
	checks := []vala.Checker{
		vala.StringNotEmpty(conf.AppName, "appName"),
		vala.StringNotEmpty(conf.SecretKey, "secretKey"),
		vala.StringNotEmpty(conf.Database.Engine, "database.engine"),
		vala.StringNotEmpty(conf.Database.Name, "database.name"),
		vala.GreaterThan(conf.Database.Port, 0, "database.port"),
		vala.StringNotEmpty(conf.Email.FromAddress, "email.fromAddress"),
	}
	switch conf.Email.Backend {
	case "sendgrid":
		checks = append(checks, vala.StringNotEmpty(conf.Email.SendgridApiKey, "email.sendgridApiKey"))
	case "smtp":
		checks = append(checks,
			vala.StringNotEmpty(conf.Email.SMTPHost, "email.smtpHost"),
			vala.GreaterThan(conf.Email.SMTPPort, 0, "email.smtpPort"),
		)
	}
	return vala.BeginValidation().Validate(checks...).Check()
}
