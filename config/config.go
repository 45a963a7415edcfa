// Package config builds the bot's configuration from defaults, a YAML file,
// environment variables and secrets kept in AWS SSM Parameter Store.
package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string `yaml:"port" validate:"required"`

	SlackToken         string `yaml:"slack_token" validate:"required"`
	SlackSigningSecret string `yaml:"slack_signing_secret" validate:"required"`

	SpreadsheetID      string `yaml:"spreadsheet_id" validate:"required"`
	TemplateSheetID    int64  `yaml:"template_sheet_id" validate:"gte=0"`
	SheetsBackend      string `yaml:"sheets_backend" validate:"oneof=google xlsx"`
	ExplicitSheetCheck bool   `yaml:"explicit_sheet_check"`
	// Credentials are checked when the first command builds the backend.
	GoogleCredentialsFile string `yaml:"google_credentials_file"`
	GoogleCredentialsJSON string `yaml:"google_credentials_json"`

	MemberStore   string `yaml:"member_store" validate:"oneof=csv mysql"`
	MemberCSVPath string `yaml:"member_csv_path" validate:"required_if=MemberStore csv"`
	MySQLUser     string `yaml:"mysql_user" validate:"required_if=MemberStore mysql"`
	MySQLPassword string `yaml:"mysql_password"`
	MySQLProtocol string `yaml:"mysql_protocol"`
	MySQLAddress  string `yaml:"mysql_address" validate:"required_if=MemberStore mysql"`
	MySQLDBName   string `yaml:"mysql_db_name" validate:"required_if=MemberStore mysql"`

	Timezone       string        `yaml:"timezone" validate:"required"`
	LockBackend    string        `yaml:"lock_backend" validate:"oneof=none local redis"`
	RedisAddr      string        `yaml:"redis_addr" validate:"required_if=LockBackend redis"`
	LockTTL        time.Duration `yaml:"lock_ttl" validate:"gte=0"`
	CommandTimeout time.Duration `yaml:"command_timeout" validate:"gt=0"`

	DefaultTimeIn      string `yaml:"default_time_in" validate:"required"`
	DefaultTimeOut     string `yaml:"default_time_out" validate:"required"`
	DefaultTimeOutLate string `yaml:"default_time_out_late" validate:"required"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Port:               "8080",
		TemplateSheetID:    0,
		SheetsBackend:      "google",
		MemberStore:        "csv",
		MemberCSVPath:      "secrets/MemberData.csv",
		MySQLProtocol:      "tcp",
		Timezone:           "Asia/Kolkata",
		LockBackend:        "local",
		LockTTL:            30 * time.Second,
		CommandTimeout:     30 * time.Second,
		DefaultTimeIn:      "17:30",
		DefaultTimeOut:     "21:00",
		DefaultTimeOutLate: "22:00",
	}
}

// ParameterGetter is the part of the SSM client LoadSecrets needs.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Load applies CONFIG_FILE, then the environment, then the SSM parameter
// named by SSM_SECRETS_PARAMETER through newSSM, and validates the result.
func Load(ctx context.Context, newSSM func(ctx context.Context) (ParameterGetter, error)) (*Config, error) {
	c := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := c.LoadFile(path); err != nil {
			return nil, fmt.Errorf("load file: %w", err)
		}
	}

	c.LoadEnv()

	if name := os.Getenv("SSM_SECRETS_PARAMETER"); name != "" {
		client, err := newSSM(ctx)
		if err != nil {
			return nil, fmt.Errorf("new ssm client: %w", err)
		}
		if err := c.LoadSecrets(ctx, client, name); err != nil {
			return nil, fmt.Errorf("load secrets: %w", err)
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	return c, nil
}

func (c *Config) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("unmarshal yaml: %w", err)
	}

	return nil
}

// LoadSecrets overlays the YAML document stored in the SSM parameter name.
func (c *Config) LoadSecrets(ctx context.Context, client ParameterGetter, name string) error {
	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("get parameter %s: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return fmt.Errorf("parameter %s is empty", name)
	}

	if err := yaml.Unmarshal([]byte(*out.Parameter.Value), c); err != nil {
		return fmt.Errorf("unmarshal yaml: %w", err)
	}

	return nil
}

func (c *Config) LoadEnv() {
	setString(&c.Port, "PORT")
	setString(&c.SlackToken, "SLACK_TOKEN")
	setString(&c.SlackSigningSecret, "SLACK_SIGNING_SECRET")
	setString(&c.SpreadsheetID, "SPREADSHEET_ID")
	setInt64(&c.TemplateSheetID, "TEMPLATE_SHEET_ID")
	setString(&c.SheetsBackend, "SHEETS_BACKEND")
	setBool(&c.ExplicitSheetCheck, "EXPLICIT_SHEET_CHECK")
	setString(&c.GoogleCredentialsFile, "GOOGLE_CREDENTIALS_FILE")
	setString(&c.GoogleCredentialsJSON, "GOOGLE_CREDENTIALS_JSON")
	setString(&c.MemberStore, "MEMBER_STORE")
	setString(&c.MemberCSVPath, "MEMBER_CSV_PATH")
	setString(&c.MySQLUser, "MYSQL_USER")
	setString(&c.MySQLPassword, "MYSQL_PASSWORD")
	setString(&c.MySQLProtocol, "MYSQL_PROTOCOL")
	setString(&c.MySQLAddress, "MYSQL_ADDRESS")
	setString(&c.MySQLDBName, "MYSQL_DB_NAME")
	setString(&c.Timezone, "TIMEZONE")
	setString(&c.LockBackend, "LOCK_BACKEND")
	setString(&c.RedisAddr, "REDIS_ADDR")
	setDuration(&c.LockTTL, "LOCK_TTL")
	setDuration(&c.CommandTimeout, "COMMAND_TIMEOUT")
	setString(&c.DefaultTimeIn, "DEFAULT_TIME_IN")
	setString(&c.DefaultTimeOut, "DEFAULT_TIME_OUT")
	setString(&c.DefaultTimeOutLate, "DEFAULT_TIME_OUT_LATE")
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}

	return nil
}

// Location is the fixed zone day sheets are named in.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load location %q: %w", c.Timezone, err)
	}

	return loc, nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt64(dst *int64, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Printf("Invalid int for %s: %v, using %d.", key, err, *dst)
		return
	}
	*dst = n
}

func setBool(dst *bool, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("Invalid bool for %s: %v, using %t.", key, err, *dst)
		return
	}
	*dst = b
}

func setDuration(dst *time.Duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("Invalid duration for %s: %v, using %s.", key, err, *dst)
		return
	}
	*dst = d
}
