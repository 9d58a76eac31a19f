package config

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// AppConfig holds the application-level configuration
type AppConfig struct {
	Raster           RasterConfig  `mapstructure:"raster"`
	Storage          StorageConfig `mapstructure:"storage"`
	Drive            DriveConfig   `mapstructure:"drive"`
	CatalogPath      string        `mapstructure:"catalog_path"`
	ParallelismRatio int           `mapstructure:"parallelism_ratio"`
	DecodeWindow     int           `mapstructure:"decode_window"`
	Debug            bool          `mapstructure:"debug"`
}

// RasterConfig fixes the geometry and image format of every container.
// Readers must use the values the group was written with.
type RasterConfig struct {
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
	Format string `mapstructure:"format"`
}

type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

type DriveConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	TokenFile       string `mapstructure:"token_file"`
	// ConvertToDocs uploads containers as native Google Docs. Off by
	// default, in which case every container counts against the Drive
	// storage quota. Groups must be read back with the same setting.
	ConvertToDocs bool `mapstructure:"convert_to_docs"`
}

// storage backends
const (
	BackendLocal = "local"
	BackendDrive = "drive"
)

var Config *AppConfig

// LoadConfig reads config.yaml from path into Config. A missing file
// leaves the defaults in place.
func LoadConfig(path string) {
	appConfig, err := Load(path)
	if err != nil {
		log.Fatalf("❌ Unable to load config: %v", err)
	}
	Config = appConfig
}

// Load reads config.yaml from path, overlays PIXELVAULT_* environment
// variables and returns the result.
func Load(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.SetEnvPrefix("pixelvault")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("raster.width", 2000)
	v.SetDefault("raster.height", 2000)
	v.SetDefault("raster.format", "png")
	v.SetDefault("parallelism_ratio", 2)
	v.SetDefault("decode_window", 4)
	v.SetDefault("storage.backend", BackendLocal)
	v.SetDefault("storage.path", "./data/groups")
	v.SetDefault("catalog_path", "./data/catalog")
	v.SetDefault("drive.credentials_file", "credentials.json")
	v.SetDefault("drive.token_file", "token.json")
	v.SetDefault("drive.convert_to_docs", false)
	v.SetDefault("debug", false)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		log.Printf("⚠️ Could not read config file, using defaults: %v", err)
	}

	var appConfig AppConfig
	if err := v.Unmarshal(&appConfig); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := appConfig.Validate(); err != nil {
		return nil, err
	}
	return &appConfig, nil
}

// Validate rejects values no run could use.
func (c *AppConfig) Validate() error {
	if c.Raster.Width <= 0 || c.Raster.Height <= 0 {
		return fmt.Errorf("raster dimensions must be positive, got %dx%d", c.Raster.Width, c.Raster.Height)
	}
	if c.ParallelismRatio <= 0 {
		return fmt.Errorf("parallelism_ratio must be positive, got %d", c.ParallelismRatio)
	}
	switch c.Storage.Backend {
	case BackendLocal, BackendDrive:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

// Warnings lists settings that are valid but likely to surprise.
func (c *AppConfig) Warnings() []string {
	var out []string
	if c.Storage.Backend == BackendDrive && !c.Drive.ConvertToDocs {
		out = append(out, "drive.convert_to_docs is off: uploaded containers count against the Drive storage quota")
	}
	return out
}

// Workers is the encode worker count derived from the CPU count.
func (c *AppConfig) Workers() int {
	n := runtime.NumCPU() / c.ParallelismRatio
	if n < 1 {
		n = 1
	}
	return n
}
