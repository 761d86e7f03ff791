package config

import (
	"os"
	"path"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// DBConfig Database config
type DBConfig struct {
	Type     string `yaml:"type"` // postgres or sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
	Debug    bool   `yaml:"debug"`
}

// SysConfig System config
type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Debug    bool   `yaml:"debug"`
}

// WebConfig Web server config
type WebConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	PageSize    int    `yaml:"page_size"`     // ads per listing page
	MaxUploadMB int    `yaml:"max_upload_mb"` // request body limit, also caps image uploads
}

// LogConfig Logger config
type LogConfig struct {
	Mode       string `yaml:"mode"` // development or production
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

// MediaConfig uploaded image storage
type MediaConfig struct {
	Dir       string `yaml:"dir"`        // relative to workdir unless absolute
	URLPrefix string `yaml:"url_prefix"` // public prefix the files are served under
}

type AppConfig struct {
	System   SysConfig   `yaml:"system"`
	Web      WebConfig   `yaml:"web"`
	Database DBConfig    `yaml:"database"`
	Logger   LogConfig   `yaml:"logger"`
	Media    MediaConfig `yaml:"media"`
}

func (c *AppConfig) GetDataDir() string {
	return path.Join(c.System.Workdir, "data")
}

func (c *AppConfig) GetLogDir() string {
	return path.Join(c.System.Workdir, "logs")
}

// GetMediaDir returns the absolute directory holding uploaded images
func (c *AppConfig) GetMediaDir() string {
	if path.IsAbs(c.Media.Dir) {
		return c.Media.Dir
	}
	return path.Join(c.System.Workdir, c.Media.Dir)
}

func (c *AppConfig) initDirs() error {
	for _, dir := range []string{c.GetDataDir(), c.GetLogDir(), c.GetMediaDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create dir %s", dir)
		}
	}
	return nil
}

// DefaultAppConfig returns the built-in configuration
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		System: SysConfig{
			Appid:    "adboard",
			Location: "Europe/Moscow",
			Workdir:  "/var/adboard",
			Debug:    true,
		},
		Web: WebConfig{
			Host:        "0.0.0.0",
			Port:        8000,
			PageSize:    10,
			MaxUploadMB: 10,
		},
		Database: DBConfig{
			Type:     "postgres",
			Host:     "127.0.0.1",
			Port:     5432,
			Name:     "adboard",
			User:     "postgres",
			Passwd:   "postgres",
			MaxConn:  100,
			IdleConn: 10,
			Debug:    false,
		},
		Logger: LogConfig{
			Mode:       "development",
			FileEnable: false,
			Filename:   "/var/adboard/logs/adboard.log",
		},
		Media: MediaConfig{
			Dir:       "media",
			URLPrefix: "/media/",
		},
	}
}

// LoadConfig reads the yaml file at cfile over the defaults, applies
// ADBOARD_* environment overrides and creates the working directories.
// An empty cfile skips the file.
func LoadConfig(cfile string) (*AppConfig, error) {
	cfg := DefaultAppConfig()
	if cfile != "" {
		data, err := os.ReadFile(cfile)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", cfile)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", cfile)
		}
	}

	applyEnv(cfg)

	if !strings.HasSuffix(cfg.Media.URLPrefix, "/") {
		cfg.Media.URLPrefix += "/"
	}
	if cfg.Web.PageSize <= 0 {
		cfg.Web.PageSize = 10
	}

	if err := cfg.initDirs(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *AppConfig) {
	setEnvValue("ADBOARD_SYSTEM_WORKER_DIR", &cfg.System.Workdir)
	setEnvValue("ADBOARD_SYSTEM_LOCATION", &cfg.System.Location)
	setEnvBoolValue("ADBOARD_SYSTEM_DEBUG", &cfg.System.Debug)

	setEnvValue("ADBOARD_WEB_HOST", &cfg.Web.Host)
	setEnvIntValue("ADBOARD_WEB_PORT", &cfg.Web.Port)
	setEnvIntValue("ADBOARD_WEB_PAGE_SIZE", &cfg.Web.PageSize)
	setEnvIntValue("ADBOARD_WEB_MAX_UPLOAD_MB", &cfg.Web.MaxUploadMB)

	setEnvValue("ADBOARD_DB_TYPE", &cfg.Database.Type)
	setEnvValue("ADBOARD_DB_HOST", &cfg.Database.Host)
	setEnvIntValue("ADBOARD_DB_PORT", &cfg.Database.Port)
	setEnvValue("ADBOARD_DB_NAME", &cfg.Database.Name)
	setEnvValue("ADBOARD_DB_USER", &cfg.Database.User)
	setEnvValue("ADBOARD_DB_PWD", &cfg.Database.Passwd)
	setEnvBoolValue("ADBOARD_DB_DEBUG", &cfg.Database.Debug)

	setEnvValue("ADBOARD_LOGGER_MODE", &cfg.Logger.Mode)
	setEnvBoolValue("ADBOARD_LOGGER_FILE_ENABLE", &cfg.Logger.FileEnable)

	setEnvValue("ADBOARD_MEDIA_DIR", &cfg.Media.Dir)
	setEnvValue("ADBOARD_MEDIA_URL_PREFIX", &cfg.Media.URLPrefix)
}

func setEnvValue(name string, val *string) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		*val = evalue
	}
}

func setEnvBoolValue(name string, val *bool) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		*val = cast.ToBool(evalue)
	}
}

func setEnvIntValue(name string, val *int) {
	var evalue = os.Getenv(name)
	if evalue == "" {
		return
	}
	if v, err := cast.ToIntE(evalue); err == nil {
		*val = v
	}
}
