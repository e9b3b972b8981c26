package main

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/koizuka/sitrapesca"
	"github.com/spf13/viper"
)

const envPrefix = "SITRAPESCA"

// accountSettings is one entry of the accounts list in the config file.
type accountSettings struct {
	Name      string `mapstructure:"name"`
	CompanyID string `mapstructure:"company_id"`
	UserID    string `mapstructure:"user_id"`
	Secret    string `mapstructure:"secret"`
	Panel     int    `mapstructure:"panel"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// DOWNLOAD_DIR is what the cron jobs already export
	_ = v.BindEnv("output", envPrefix+"_OUTPUT", "DOWNLOAD_DIR")

	v.SetConfigName("sitrapesca")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/sitrapesca")
	return v
}

// readConfigFile loads the config file; not having one is fine.
func readConfigFile(v *viper.Viper) error {
	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err != nil && !errors.As(err, &notFound) {
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// loadSettings builds the run configuration from flags, environment and
// config file, in that order of precedence.
func loadSettings(v *viper.Viper, now time.Time) (sitrapesca.Config, []sitrapesca.Account, error) {
	cfg := sitrapesca.DefaultConfig()

	dates, err := sitrapesca.NewDateRange(v.GetString("start"), v.GetString("end"), now)
	if err != nil {
		return cfg, nil, err
	}
	cfg.DateRange = dates

	if s := v.GetString("output"); s != "" {
		cfg.OutputDir = s
	}
	if s := v.GetString("portal-url"); s != "" {
		cfg.PortalURL = s
	}
	if s := v.GetString("locale"); s != "" {
		cfg.Locale = s
	}
	if v.IsSet("headless") {
		cfg.Headless = v.GetBool("headless")
	}
	if v.IsSet("dwell") {
		cfg.Dwell = v.GetDuration("dwell")
	}
	if v.IsSet("keystroke-delay") {
		cfg.KeystrokeDelay = v.GetDuration("keystroke-delay")
	}
	cfg.Debug = v.GetBool("verbose")

	if cfg.ClickStyle, err = sitrapesca.ParseClickStyle(v.GetString("click")); err != nil {
		return cfg, nil, err
	}
	if cfg.TypingStyle, err = sitrapesca.ParseTypingStyle(v.GetString("typing")); err != nil {
		return cfg, nil, err
	}

	if cfg, err = cfg.Validate(); err != nil {
		return cfg, nil, err
	}

	accounts, err := loadAccounts(v)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, accounts, nil
}

// loadAccounts reads the accounts list, falling back to the default
// companies. Secrets missing from the file come from the environment.
func loadAccounts(v *viper.Viper) ([]sitrapesca.Account, error) {
	var entries []accountSettings
	if err := v.UnmarshalKey("accounts", &entries); err != nil {
		return nil, fmt.Errorf("accounts: %w", err)
	}
	if len(entries) == 0 {
		for _, a := range sitrapesca.DefaultAccounts() {
			entries = append(entries, accountSettings{Name: a.Name, CompanyID: a.CompanyID, UserID: a.UserID, Panel: a.Panel})
		}
	}

	accounts := make([]sitrapesca.Account, 0, len(entries))
	for i, e := range entries {
		if e.Name == "" {
			e.Name = fmt.Sprintf("account%d", i+1)
		}
		if e.Secret == "" {
			e.Secret = v.GetString(secretKey(e.Name))
		}
		if e.Secret == "" {
			return nil, sitrapesca.ConfigError{
				Field:   e.Name + ".secret",
				Message: fmt.Sprintf("not in the config file nor in %v", secretEnv(e.Name)),
			}
		}
		account := sitrapesca.Account{
			Name:      e.Name,
			CompanyID: e.CompanyID,
			UserID:    e.UserID,
			Secret:    e.Secret,
			Panel:     e.Panel,
		}
		if err := account.Validate(); err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

// secretKey is the viper key whose environment variable holds the secret of
// the named account: "Pesquera Alfa" reads SITRAPESCA_SECRET_PESQUERA_ALFA.
func secretKey(name string) string {
	key := strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return unicode.ToLower(r)
		}
		return '_'
	}, name)
	return "secret_" + key
}

func secretEnv(name string) string {
	return strings.ToUpper(envPrefix + "_" + secretKey(name))
}
