// Package config resolves workpanel settings. Each value comes from the
// environment, then from the conf file, then from a built-in default.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Keys understood in the environment and in the conf file.
const (
	KeyBackendURL           = "WORKPANEL_BACKEND_URL"
	KeyCredentialsPath      = "WORKPANEL_CREDENTIALS_PATH"
	KeyLogLevel             = "WORKPANEL_LOG_LEVEL"
	KeyLogPath              = "WORKPANEL_LOG_PATH"
	KeyTheme                = "WORKPANEL_THEME"
	KeyRequestTimeout       = "WORKPANEL_REQUEST_TIMEOUT"
	KeyLogoutOnUnauthorized = "WORKPANEL_LOGOUT_ON_UNAUTHORIZED"
	// KeyToken is read from the environment only, never from the conf file.
	KeyToken = "WORKPANEL_TOKEN"
)

const (
	DefaultBackendURL = "http://localhost:8000"
	DefaultLogLevel   = "WARN"
	DefaultTheme      = "classic"
)

type Config struct {
	BackendURL           string
	CredentialsPath      string
	LogLevel             string
	LogPath              string
	Theme                string
	RequestTimeout       time.Duration
	LogoutOnUnauthorized bool
	// ConfFile is the file the values were read from.
	ConfFile string
}

// Loader reads configuration. The zero value uses the process environment
// and the user's config directory.
type Loader struct {
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
	// Dir holds workpanel.conf. Defaults to $XDG_CONFIG_HOME/workpanel.
	Dir string
	// Home replaces the user's home directory in default paths.
	Home string
}

// Load reads the configuration with the zero Loader.
func Load() (Config, error) {
	return Loader{}.Load()
}

// Load resolves every setting. A missing conf file is created holding the
// defaults.
func (ld Loader) Load() (Config, error) {
	getenv := ld.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	home := ld.Home
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	dir := ld.Dir
	if dir == "" {
		cfgDir, err := os.UserConfigDir()
		if err != nil {
			return Config{}, fmt.Errorf("config dir: %w", err)
		}
		dir = filepath.Join(cfgDir, "workpanel")
	}
	defaults := defaultValues(home)

	confFile := filepath.Join(dir, "workpanel.conf")
	if _, err := os.Stat(confFile); err != nil {
		if err := writeDefaults(confFile, defaults); err != nil {
			return Config{}, err
		}
	}
	fromFile, err := godotenv.Read(confFile)
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", confFile, err)
	}

	get := func(key string) string {
		return coalesce(getenv(key), fromFile[key], defaults[key])
	}

	cfg := Config{
		BackendURL:      strings.TrimRight(get(KeyBackendURL), "/"),
		CredentialsPath: get(KeyCredentialsPath),
		LogLevel:        get(KeyLogLevel),
		LogPath:         get(KeyLogPath),
		Theme:           strings.ToLower(get(KeyTheme)),
		ConfFile:        confFile,
	}
	if cfg.RequestTimeout, err = parseTimeout(get(KeyRequestTimeout)); err != nil {
		return Config{}, err
	}
	if cfg.LogoutOnUnauthorized, err = parseBool(KeyLogoutOnUnauthorized, get(KeyLogoutOnUnauthorized)); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaultValues(home string) map[string]string {
	return map[string]string{
		KeyBackendURL:           DefaultBackendURL,
		KeyCredentialsPath:      filepath.Join(home, ".workpanel", "credentials.json"),
		KeyLogLevel:             DefaultLogLevel,
		KeyLogPath:              filepath.Join(home, ".workpanel", "workpanel.log"),
		KeyTheme:                DefaultTheme,
		KeyRequestTimeout:       "0",
		KeyLogoutOnUnauthorized: "false",
	}
}

// fileKeys is the order keys are written to a fresh conf file.
var fileKeys = []string{
	KeyBackendURL,
	KeyCredentialsPath,
	KeyLogLevel,
	KeyLogPath,
	KeyTheme,
	KeyRequestTimeout,
	KeyLogoutOnUnauthorized,
}

func writeDefaults(confFile string, defaults map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(confFile), 0o700); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	values := make(map[string]string, len(fileKeys))
	for _, k := range fileKeys {
		values[k] = defaults[k]
	}
	content, err := godotenv.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode defaults: %w", err)
	}
	if err := os.WriteFile(confFile, []byte(content+"\n"), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", confFile, err)
	}
	return nil
}

func parseTimeout(s string) (time.Duration, error) {
	if s == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%s: %q is not a duration like 10s", KeyRequestTimeout, s)
	}
	return d, nil
}

func parseBool(key, s string) (bool, error) {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%s: %q is not true or false", key, s)
	}
	return b, nil
}

func coalesce(args ...string) string {
	for _, s := range args {
		if s != "" {
			return s
		}
	}
	return ""
}
