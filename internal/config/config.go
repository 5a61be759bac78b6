package config

import (
	"fmt"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/go-mizu/tablemap"
)

const (
	defaultExtension = "yaml"
	defaultTagName   = "yaml"
)

type Binder interface {
	Bind(v *viper.Viper) error
}

type Loader interface {
	Load(name, path, envPrefix string, binder Binder) (Config, error)
}

type Config struct {
	Database Database `yaml:"database"`
	Mapper   Mapper   `yaml:"mapper"`
	LogLevel string   `yaml:"log_level"`
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Database, validation.Required),
		validation.Field(&c.Mapper),
		validation.Field(&c.LogLevel, validation.By(validLogLevel)),
	)
}

type Database struct {
	Driver             string `yaml:"driver"`
	DSN                string `yaml:"dsn"`
	MaxOpenConnections int    `yaml:"max_open_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections"`
}

func (d Database) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Driver, validation.Required, validation.In("postgres", "mysql", "sqlite3")),
		validation.Field(&d.DSN, validation.Required),
		validation.Field(&d.MaxOpenConnections, validation.Min(0)),
		validation.Field(&d.MaxIdleConnections, validation.Min(0)),
	)
}

// Mapper configures the tablemap.Handler. Empty values fall back to the
// dialect's defaults; Dialect defaults to the database driver.
type Mapper struct {
	Dialect        string `yaml:"dialect"`
	IdentifierCase string `yaml:"identifier_case"`
	Placeholder    string `yaml:"placeholder"`
	EmptyUpdate    string `yaml:"empty_update"`
	Audit          Audit  `yaml:"audit"`
}

func (m Mapper) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Dialect, validation.By(knownDialect)),
		validation.Field(&m.IdentifierCase, validation.In("dialect", "upper", "lower", "preserve")),
		validation.Field(&m.Placeholder, validation.In("question", "dollar", "atp", "colon")),
		validation.Field(&m.EmptyUpdate, validation.In("skip", "execute")),
	)
}

type Audit struct {
	CreateColumn string `yaml:"create_column"`
	UpdateColumn string `yaml:"update_column"`
}

// knownDialect accepts every dialect or driver name tablemap.DialectFor
// resolves, so "sqlite3" and "sqlite" are both valid.
func knownDialect(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	_, err := tablemap.DialectFor(s)
	return err
}

func validLogLevel(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	_, err := zerolog.ParseLevel(s)
	return err
}

// Level returns the configured log level, Info when unset.
func (c Config) Level() zerolog.Level {
	l, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return l
}

// Dialect resolves the mapper dialect, falling back to the database driver.
func (c Config) Dialect() (tablemap.Dialect, error) {
	name := c.Mapper.Dialect
	if name == "" {
		name = c.Database.Driver
	}
	return tablemap.DialectFor(name)
}

// HandlerOptions turns the mapper section into tablemap options.
func (c Config) HandlerOptions() ([]tablemap.Option, error) {
	var opts []tablemap.Option

	ic, err := tablemap.ParseIdentifierCase(c.Mapper.IdentifierCase)
	if err != nil {
		return nil, err
	}
	opts = append(opts, tablemap.WithIdentifierCase(ic))

	if c.Mapper.Placeholder != "" {
		ph, err := tablemap.ParsePlaceholder(c.Mapper.Placeholder)
		if err != nil {
			return nil, err
		}
		opts = append(opts, tablemap.WithPlaceholder(ph))
	}

	eu, err := tablemap.ParseEmptyUpdate(c.Mapper.EmptyUpdate)
	if err != nil {
		return nil, err
	}
	opts = append(opts, tablemap.WithEmptyUpdate(eu))

	if c.Mapper.Audit.CreateColumn != "" || c.Mapper.Audit.UpdateColumn != "" {
		opts = append(opts, tablemap.WithAudit(c.Mapper.Audit.CreateColumn, c.Mapper.Audit.UpdateColumn))
	}

	return opts, nil
}

type FileParts struct {
	FileName string
	Path     string
}

func ProcessConfigPath(configFile string) (FileParts, error) {
	absolutePath, err := filepath.Abs(configFile)
	if err != nil {
		return FileParts{}, fmt.Errorf("convert to absolute path: %w", err)
	}

	fileName := filepath.Base(absolutePath)
	path := filepath.Dir(absolutePath)
	extension := filepath.Ext(fileName)

	if strings.ReplaceAll(strings.ToLower(extension), ".", "") != defaultExtension {
		return FileParts{}, fmt.Errorf("config file must have extension %s, got: %s", defaultExtension, extension)
	}

	return FileParts{
		FileName: fileName[:len(fileName)-len(extension)],
		Path:     path,
	}, nil
}

func NewFileSystemLoader() *FileSystemLoader {
	return &FileSystemLoader{}
}

type FileSystemLoader struct{}

func (fs *FileSystemLoader) Load(name, path, envPrefix string, b Binder) (Config, error) {
	v := viper.New()

	v.AddConfigPath(path)
	v.SetConfigName(name)
	v.SetConfigType(defaultExtension)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if b != nil {
		err := b.Bind(v)
		if err != nil {
			return Config{}, err
		}
	}

	err := v.ReadInConfig()
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var config Config

	err = v.Unmarshal(&config, func(cfg *mapstructure.DecoderConfig) {
		cfg.TagName = defaultTagName
	})
	if err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	return config, nil
}

type EnvBinder struct {
	binders map[string]string
}

func (e *EnvBinder) Bind(v *viper.Viper) error {
	for envVar, key := range e.binders {
		err := v.BindEnv(key, envVar)
		if err != nil {
			return fmt.Errorf("bind env var %s to key %s: %w", envVar, key, err)
		}
	}

	return nil
}

func NewEnvBinder(binders map[string]string) *EnvBinder {
	return &EnvBinder{
		binders: binders,
	}
}

func NewDefaultEnvBinder() *EnvBinder {
	return NewEnvBinder(map[string]string{
		"DATABASE_URL": "database.dsn",
	})
}
