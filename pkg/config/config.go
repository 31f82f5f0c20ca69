package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/TiberiousDoom/sensor-analysis-tool/pkg/classify"
)

const (
	// EnvPrefix is the prefix for environment variable overrides, e.g.
	// SENSORTOOL_GLOBAL_LOG_LEVEL=debug.
	EnvPrefix = "SENSORTOOL"

	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"

	// DefaultResultsDir is the default directory for generated reports.
	DefaultResultsDir = "./results"

	// DefaultProfile is the threshold profile used when none is selected.
	DefaultProfile = classify.ProfileStandard

	// DefaultListenAddr is the default API server listen address.
	DefaultListenAddr = ":8080"

	// DefaultSQLitePath is the default results database location.
	DefaultSQLitePath = "./sensortool.db"
)

// Config is the root configuration for sensortool.
type Config struct {
	Global   GlobalConfig   `yaml:"global" mapstructure:"global"`
	Dataset  DatasetConfig  `yaml:"dataset" mapstructure:"dataset"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Report   ReportConfig   `yaml:"report" mapstructure:"report"`
	Upload   UploadConfig   `yaml:"upload,omitempty" mapstructure:"upload"`
	API      APIConfig      `yaml:"api,omitempty" mapstructure:"api"`
}

// GlobalConfig contains global application settings.
type GlobalConfig struct {
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
}

// DatasetConfig locates the input measurement data.
type DatasetConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// AnalysisConfig selects thresholds for classification. Profiles declared
// here extend or override the built-in set.
type AnalysisConfig struct {
	DefaultProfile string                      `yaml:"default_profile" mapstructure:"default_profile"`
	Profiles       map[string]classify.Profile `yaml:"profiles,omitempty" mapstructure:"profiles"`
}

// ReportConfig contains report generation settings.
type ReportConfig struct {
	ResultsDir string `yaml:"results_dir" mapstructure:"results_dir"`
	Markdown   bool   `yaml:"markdown" mapstructure:"markdown"`
}

// UploadConfig contains report upload settings.
type UploadConfig struct {
	S3 *S3Config `yaml:"s3,omitempty" mapstructure:"s3"`
}

// S3Config contains S3-compatible storage settings for report uploads.
type S3Config struct {
	Enabled         bool   `yaml:"enabled" mapstructure:"enabled"`
	EndpointURL     string `yaml:"endpoint_url,omitempty" mapstructure:"endpoint_url"`
	Region          string `yaml:"region,omitempty" mapstructure:"region"`
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	Prefix          string `yaml:"prefix,omitempty" mapstructure:"prefix"`
	AccessKeyID     string `yaml:"access_key_id,omitempty" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `yaml:"force_path_style" mapstructure:"force_path_style"`
}

// Load reads a configuration file and applies environment variable
// overrides with the SENSORTOOL_ prefix.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults registered here so env overrides apply even when the key
	// is absent from the file.
	v.SetDefault("global.log_level", DefaultLogLevel)
	v.SetDefault("analysis.default_profile", DefaultProfile)
	v.SetDefault("report.results_dir", DefaultResultsDir)
	v.SetDefault("report.markdown", true)
	v.SetDefault("api.server.listen", DefaultListenAddr)
	v.SetDefault("api.database.driver", "sqlite")
	v.SetDefault("api.database.sqlite.path", DefaultSQLitePath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	reg, err := classify.NewRegistry(c.Analysis.Profiles)
	if err != nil {
		return fmt.Errorf("analysis.profiles: %w", err)
	}

	if _, err := reg.Get(c.Analysis.DefaultProfile); err != nil {
		return fmt.Errorf("analysis.default_profile: %w", err)
	}

	if c.Report.ResultsDir != "" {
		dir := filepath.Dir(c.Report.ResultsDir)
		if dir != "." && dir != ".." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("results directory parent %q does not exist", dir)
			}
		}
	}

	if s3 := c.Upload.S3; s3 != nil && s3.Enabled && s3.Bucket == "" {
		return fmt.Errorf("upload.s3.bucket is required when S3 upload is enabled")
	}

	return c.API.Validate()
}

// Registry builds the threshold profile registry from the built-in
// profiles plus any configured extras.
func (c *Config) Registry() (*classify.Registry, error) {
	return classify.NewRegistry(c.Analysis.Profiles)
}

// Example returns a commented starter configuration document.
func Example() ([]byte, error) {
	cfg := Config{
		Global:  GlobalConfig{LogLevel: DefaultLogLevel},
		Dataset: DatasetConfig{Path: "./data/readings.csv"},
		Analysis: AnalysisConfig{
			DefaultProfile: DefaultProfile,
		},
		Report: ReportConfig{
			ResultsDir: DefaultResultsDir,
			Markdown:   true,
		},
		API: APIConfig{
			Server: APIServerConfig{Listen: DefaultListenAddr},
			Database: APIDatabaseConfig{
				Driver: "sqlite",
				SQLite: SQLiteDatabaseConfig{Path: DefaultSQLitePath},
			},
		},
	}

	out, err := yaml.Marshal(&cfg)
	if err != nil {
		return nil, fmt.Errorf("rendering example config: %w", err)
	}

	return out, nil
}
