package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // Asia/Tokyo default must load on hosts without zoneinfo

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/zawa-kun/zawa-tools/internal/schedule"
	"github.com/zawa-kun/zawa-tools/internal/sheet"
)

// GoogleCredentials represents the structure of Google OAuth credentials JSON file.
type GoogleCredentials struct {
	Installed struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	} `json:"installed"`
	Web struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	} `json:"web"`
}

// LoadGoogleCredentials loads Google OAuth credentials from a JSON file.
func LoadGoogleCredentials(path string) (clientID, clientSecret string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read credentials file: %w", err)
	}

	var creds GoogleCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return "", "", fmt.Errorf("failed to parse credentials file: %w", err)
	}

	// Try "installed" first (for desktop apps), then "web"
	if creds.Installed.ClientID != "" {
		return creds.Installed.ClientID, creds.Installed.ClientSecret, nil
	}
	if creds.Web.ClientID != "" {
		return creds.Web.ClientID, creds.Web.ClientSecret, nil
	}

	return "", "", fmt.Errorf("no client_id found in credentials file (expected 'installed' or 'web' section)")
}

const (
	ProviderGoogle = "google"
	ProviderCalDAV = "caldav"
	ProviderCSV    = "csv"
)

// Defaults for values the config file may leave out.
const (
	DefaultCalendarID      = "primary"
	DefaultSheetName       = "kokochan"
	DefaultHeaderRows      = 1
	DefaultReminderMinutes = 60
	DefaultTimezone        = "Asia/Tokyo"
	DefaultTokenPath       = "token.json"
)

// CalendarConfig selects and configures the calendar the schedule is written to.
type CalendarConfig struct {
	Provider   string `json:"provider,omitempty" toml:"provider" yaml:"provider"` // "google" or "caldav"
	CalendarID string `json:"calendar_id,omitempty" toml:"calendar_id" yaml:"calendar_id"`

	// CalDAV specific fields. CalendarID is then the collection path.
	ServerURL string `json:"server_url,omitempty" toml:"server_url" yaml:"server_url"`
	Username  string `json:"username,omitempty" toml:"username" yaml:"username"`
	Password  string `json:"password,omitempty" toml:"password" yaml:"password"` // App-specific password for iCloud

	// ReminderMinutes is the popup reminder on created entries. -1 disables it.
	ReminderMinutes int `json:"reminder_minutes,omitempty" toml:"reminder_minutes" yaml:"reminder_minutes"`
}

// SheetConfig selects and configures the row store.
type SheetConfig struct {
	Provider      string `json:"provider,omitempty" toml:"provider" yaml:"provider"` // "google" or "csv"
	SpreadsheetID string `json:"spreadsheet_id,omitempty" toml:"spreadsheet_id" yaml:"spreadsheet_id"`
	SheetName     string `json:"sheet_name,omitempty" toml:"sheet_name" yaml:"sheet_name"`
	CSVPath       string `json:"csv_path,omitempty" toml:"csv_path" yaml:"csv_path"`
	HeaderRows    int    `json:"header_rows,omitempty" toml:"header_rows" yaml:"header_rows"`
}

// ColumnsConfig places each field in the sheet, as letters ("L") or numbers ("12").
type ColumnsConfig struct {
	Company     string `json:"company,omitempty" toml:"company" yaml:"company"`
	Start       string `json:"start,omitempty" toml:"start" yaml:"start"`
	End         string `json:"end,omitempty" toml:"end" yaml:"end"`
	Status      string `json:"status,omitempty" toml:"status" yaml:"status"`
	Description string `json:"description,omitempty" toml:"description" yaml:"description"`
	Location    string `json:"location,omitempty" toml:"location" yaml:"location"`
	EventID     string `json:"event_id,omitempty" toml:"event_id" yaml:"event_id"`
	PrevStatus  string `json:"prev_status,omitempty" toml:"prev_status" yaml:"prev_status"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level      string `json:"level,omitempty" toml:"level" yaml:"level"`
	File       string `json:"file,omitempty" toml:"file" yaml:"file"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty" toml:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `json:"max_backups,omitempty" toml:"max_backups" yaml:"max_backups"`
}

// Config holds the configuration for the schedule sync tool.
type Config struct {
	GoogleCredentialsPath string `json:"google_credentials_path,omitempty" toml:"google_credentials_path" yaml:"google_credentials_path"`
	TokenPath             string `json:"token_path,omitempty" toml:"token_path" yaml:"token_path"`
	// TokenDB stores the OAuth token in SQLite instead of TokenPath.
	TokenDB string `json:"token_db,omitempty" toml:"token_db" yaml:"token_db"`

	Calendar CalendarConfig `json:"calendar" toml:"calendar" yaml:"calendar"`
	Sheet    SheetConfig    `json:"sheet" toml:"sheet" yaml:"sheet"`
	Columns  ColumnsConfig  `json:"columns" toml:"columns" yaml:"columns"`

	TriggerPhases []string            `json:"trigger_phases,omitempty" toml:"trigger_phases" yaml:"trigger_phases"`
	Title         schedule.TitleMarks `json:"title" toml:"title" yaml:"title"`
	Timezone      string              `json:"timezone,omitempty" toml:"timezone" yaml:"timezone"`

	Log LogConfig `json:"log" toml:"log" yaml:"log"`

	location *time.Location
	columns  sheet.Columns
}

// Overrides are values given on the command line. Empty fields are ignored.
type Overrides struct {
	GoogleCredentialsPath string
	TokenPath             string
	SpreadsheetID         string
	SheetName             string
	CSVPath               string
	CalendarID            string
	Timezone              string
	LogLevel              string
}

// LoadConfigFromFile loads configuration from a JSON, TOML or YAML file,
// chosen by extension. Unknown extensions are read as JSON.
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &config)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// LoadConfig loads configuration with the following precedence (highest to lowest):
// 1. Command-line flags
// 2. Environment variables
// 3. Config file
// 4. Defaults
// Returns an error if any required value is missing.
func LoadConfig(configFile string, flags Overrides) (*Config, error) {
	var config Config

	// Step 1: Load from config file if provided
	if configFile != "" {
		fileConfig, err := LoadConfigFromFile(configFile)
		if err != nil {
			return nil, err
		}
		config = *fileConfig
	}

	// Step 2: Override with environment variables
	config.applyEnv()

	// Step 3: Override with command-line flags (highest priority)
	config.applyOverrides(flags)

	// Step 4: Apply defaults and validate required fields
	config.applyDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyEnv() {
	setFromEnv(&c.GoogleCredentialsPath, "GOOGLE_CREDENTIALS_PATH")
	setFromEnv(&c.TokenPath, "TOKEN_PATH")
	setFromEnv(&c.Sheet.SpreadsheetID, "SPREADSHEET_ID")
	setFromEnv(&c.Calendar.CalendarID, "CALENDAR_ID")
	setFromEnv(&c.Timezone, "GSS_TIMEZONE")
	// Keeps the app-specific password out of the config file.
	setFromEnv(&c.Calendar.Password, "CALDAV_PASSWORD")
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) applyOverrides(flags Overrides) {
	setIfNotEmpty(&c.GoogleCredentialsPath, flags.GoogleCredentialsPath)
	setIfNotEmpty(&c.TokenPath, flags.TokenPath)
	setIfNotEmpty(&c.Sheet.SpreadsheetID, flags.SpreadsheetID)
	setIfNotEmpty(&c.Sheet.SheetName, flags.SheetName)
	setIfNotEmpty(&c.Calendar.CalendarID, flags.CalendarID)
	setIfNotEmpty(&c.Timezone, flags.Timezone)
	setIfNotEmpty(&c.Log.Level, flags.LogLevel)

	// A CSV path on the command line implies the CSV store.
	if flags.CSVPath != "" {
		c.Sheet.CSVPath = flags.CSVPath
		c.Sheet.Provider = ProviderCSV
	}
}

func setIfNotEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func (c *Config) applyDefaults() {
	if c.Calendar.Provider == "" {
		c.Calendar.Provider = ProviderGoogle
	}
	if c.Calendar.CalendarID == "" && c.Calendar.Provider == ProviderGoogle {
		c.Calendar.CalendarID = DefaultCalendarID
	}
	if c.Calendar.ReminderMinutes == 0 {
		c.Calendar.ReminderMinutes = DefaultReminderMinutes
	}

	if c.Sheet.Provider == "" {
		c.Sheet.Provider = ProviderGoogle
	}
	if c.Sheet.SheetName == "" {
		c.Sheet.SheetName = DefaultSheetName
	}
	if c.Sheet.HeaderRows == 0 {
		c.Sheet.HeaderRows = DefaultHeaderRows
	}

	if len(c.TriggerPhases) == 0 {
		c.TriggerPhases = append([]string(nil), schedule.DefaultPhases...)
	}
	c.Title = mergeTitleMarks(c.Title, schedule.DefaultTitleMarks())
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.TokenPath == "" && c.TokenDB == "" {
		c.TokenPath = DefaultTokenPath
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func mergeTitleMarks(m, defaults schedule.TitleMarks) schedule.TitleMarks {
	setIfNotEmpty(&defaults.OnlineLocation, m.OnlineLocation)
	setIfNotEmpty(&defaults.OnlineMark, m.OnlineMark)
	setIfNotEmpty(&defaults.InPersonMark, m.InPersonMark)
	setIfNotEmpty(&defaults.BriefingStatus, m.BriefingStatus)
	setIfNotEmpty(&defaults.BriefingMark, m.BriefingMark)
	return defaults
}

func (c *Config) validate() error {
	switch c.Calendar.Provider {
	case ProviderGoogle:
	case ProviderCalDAV:
		if c.Calendar.ServerURL == "" {
			return fmt.Errorf("calendar.server_url must be provided for the caldav calendar")
		}
		if c.Calendar.CalendarID == "" {
			return fmt.Errorf("calendar.calendar_id must be provided for the caldav calendar (the calendar collection path)")
		}
	default:
		return fmt.Errorf("calendar.provider must be 'google' or 'caldav', got '%s'", c.Calendar.Provider)
	}
	if c.Calendar.ReminderMinutes < -1 {
		return fmt.Errorf("calendar.reminder_minutes must be -1 (disabled) or positive, got %d", c.Calendar.ReminderMinutes)
	}

	switch c.Sheet.Provider {
	case ProviderGoogle:
		if c.Sheet.SpreadsheetID == "" {
			return fmt.Errorf("sheet.spreadsheet_id must be provided via --spreadsheet-id flag, SPREADSHEET_ID environment variable, or config file")
		}
	case ProviderCSV:
		if c.Sheet.CSVPath == "" {
			return fmt.Errorf("sheet.csv_path must be provided via --csv flag or config file")
		}
	default:
		return fmt.Errorf("sheet.provider must be 'google' or 'csv', got '%s'", c.Sheet.Provider)
	}
	if c.Sheet.HeaderRows < 0 {
		return fmt.Errorf("sheet.header_rows must not be negative, got %d", c.Sheet.HeaderRows)
	}

	if c.UsesGoogle() && c.GoogleCredentialsPath == "" {
		return fmt.Errorf("google_credentials_path must be provided via --google-credentials-path flag, GOOGLE_CREDENTIALS_PATH environment variable, or config file")
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone '%s': %w", c.Timezone, err)
	}
	c.location = loc

	columns, err := c.Columns.resolve()
	if err != nil {
		return err
	}
	c.columns = columns

	return nil
}

// resolve converts the configured columns, filling in the default layout.
func (cc ColumnsConfig) resolve() (sheet.Columns, error) {
	columns := sheet.DefaultColumns()
	set := map[schedule.Field]string{
		schedule.FieldCompany:     cc.Company,
		schedule.FieldStart:       cc.Start,
		schedule.FieldEnd:         cc.End,
		schedule.FieldStatus:      cc.Status,
		schedule.FieldDescription: cc.Description,
		schedule.FieldLocation:    cc.Location,
		schedule.FieldEventID:     cc.EventID,
		schedule.FieldPrevStatus:  cc.PrevStatus,
	}
	for field, value := range set {
		if value == "" {
			continue
		}
		col, err := sheet.ParseColumn(value)
		if err != nil {
			return nil, fmt.Errorf("columns.%s: %w", field, err)
		}
		columns[field] = col
	}
	if err := columns.Validate(); err != nil {
		return nil, fmt.Errorf("invalid columns: %w", err)
	}
	return columns, nil
}

// UsesGoogle reports whether any Google API is used, which requires OAuth.
func (c *Config) UsesGoogle() bool {
	return c.Calendar.Provider == ProviderGoogle || c.Sheet.Provider == ProviderGoogle
}

// Location returns the time zone schedule cells are read in.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// SheetColumns returns the resolved column layout.
func (c *Config) SheetColumns() sheet.Columns {
	if c.columns == nil {
		return sheet.DefaultColumns()
	}
	return c.columns
}

// ReminderMinutes returns the reminder for created entries; -1 means none.
func (c *Config) ReminderMinutes() int {
	if c.Calendar.ReminderMinutes < 0 {
		return -1
	}
	return c.Calendar.ReminderMinutes
}

// Schedule returns the immutable settings the sync core runs with.
func (c *Config) Schedule() schedule.Settings {
	return schedule.Settings{
		Phases:   schedule.NewPhaseSet(c.TriggerPhases...),
		Title:    c.Title,
		Location: c.Location(),
	}
}

// String summarizes the config for logging without secrets.
func (c *Config) String() string {
	return fmt.Sprintf("calendar=%s(%s) sheet=%s(%s) timezone=%s phases=%s reminder=%s",
		c.Calendar.Provider, c.Calendar.CalendarID,
		c.Sheet.Provider, c.sheetSource(),
		c.Timezone, strings.Join(c.TriggerPhases, ","), strconv.Itoa(c.ReminderMinutes())+"m")
}

func (c *Config) sheetSource() string {
	if c.Sheet.Provider == ProviderCSV {
		return c.Sheet.CSVPath
	}
	return c.Sheet.SpreadsheetID + "/" + c.Sheet.SheetName
}
