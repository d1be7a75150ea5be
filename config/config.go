package config

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Plex    Plex    `json:"plex" yaml:"plex" mapstructure:"plex"`
	Sync    Sync    `json:"sync" yaml:"sync" mapstructure:"sync"`
	Artwork Artwork `json:"artwork" yaml:"artwork" mapstructure:"artwork"`
	Storage Storage `json:"storage" yaml:"storage" mapstructure:"storage"`
}

type Plex struct {
	Scheme      string        `json:"scheme" yaml:"scheme" mapstructure:"scheme" validate:"required,oneof=http https"`
	Host        string        `json:"host" yaml:"host" mapstructure:"host" validate:"required"`
	Token       string        `json:"token" yaml:"token" mapstructure:"token" validate:"required"`
	BaseBackoff time.Duration `json:"backoff" yaml:"backoff" mapstructure:"backoff"`
	MaxRetries  int           `json:"maxRetries" yaml:"maxRetries" mapstructure:"maxRetries"`
}

// Sync controls how a reconciliation run behaves.
type Sync struct {
	ScanPath    string        `json:"scanPath" yaml:"scanPath" mapstructure:"scanPath" validate:"required"`
	DryRun      bool          `json:"dryRun" yaml:"dryRun" mapstructure:"dryRun"`
	AllowUnlock bool          `json:"allowUnlock" yaml:"allowUnlock" mapstructure:"allowUnlock"`
	Unattended  bool          `json:"unattended" yaml:"unattended" mapstructure:"unattended"`
	Delay       time.Duration `json:"delay" yaml:"delay" mapstructure:"delay" validate:"min=0"`
}

type Artwork struct {
	Update       bool     `json:"update" yaml:"update" mapstructure:"update"`
	AlwaysUpdate bool     `json:"alwaysUpdate" yaml:"alwaysUpdate" mapstructure:"alwaysUpdate"`
	Extensions   []string `json:"extensions" yaml:"extensions" mapstructure:"extensions"`
}

// Storage configuration is assumed to be for sqlite database only currently
type Storage struct {
	FilePath string `json:"filePath" yaml:"filePath" mapstructure:"filePath"`
}

type ConfigUnmarshaler interface {
	ReadInConfig() error
	Unmarshal(any, ...viper.DecoderConfigOption) error
	ConfigFileUsed() string
}

// New reads a new configuration
func New(cu ConfigUnmarshaler) (Config, error) {
	var c Config

	if cu.ConfigFileUsed() != "" {
		err := cu.ReadInConfig()
		if err != nil {
			return c, err
		}
	}

	err := cu.Unmarshal(&c)
	return c, err
}

// Validate checks that the configuration is usable for a run.
func (c Config) Validate() error {
	return validator.New(validator.WithRequiredStructEnabled()).Struct(c)
}
