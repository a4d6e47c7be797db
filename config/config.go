// Package config loads pipeline settings from flags, an optional config
// file and LITHIUM_* environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const EnvPrefix = "LITHIUM"

type Config struct {
	DataDir   string          `yaml:"data_dir" mapstructure:"data_dir"`
	Verbose   bool            `yaml:"verbose" mapstructure:"verbose"`
	Debug     bool            `yaml:"debug" mapstructure:"debug"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	Join      JoinConfig      `yaml:"join" mapstructure:"join"`
	Aggregate AggregateConfig `yaml:"aggregate" mapstructure:"aggregate"`
	Load      LoadConfig      `yaml:"load" mapstructure:"load"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// ExtractConfig configures the raster extractor.
type ExtractConfig struct {
	DomesticRaster string `yaml:"domestic_raster" mapstructure:"domestic_raster"`
	PublicRaster   string `yaml:"public_raster" mapstructure:"public_raster"`
	Output         string `yaml:"output" mapstructure:"output"`
	Format         string `yaml:"format" mapstructure:"format"`
	NumWorkers     int    `yaml:"num_workers" mapstructure:"num_workers"`
}

// JoinConfig configures the county joiner. An empty Input reads the
// extractor's output.
type JoinConfig struct {
	Input         string `yaml:"input" mapstructure:"input"`
	Boundaries    string `yaml:"boundaries" mapstructure:"boundaries"`
	Output        string `yaml:"output" mapstructure:"output"`
	CodeField     string `yaml:"code_field" mapstructure:"code_field"`
	NameField     string `yaml:"name_field" mapstructure:"name_field"`
	IndexMaxLevel int    `yaml:"index_max_level" mapstructure:"index_max_level"`
	IndexMaxCells int    `yaml:"index_max_cells" mapstructure:"index_max_cells"`
}

type AggregateConfig struct {
	Input  string `yaml:"input" mapstructure:"input"`
	Output string `yaml:"output" mapstructure:"output"`
}

// LoadConfig configures the database loader.
type LoadConfig struct {
	Dir        string   `yaml:"dir" mapstructure:"dir"`
	Driver     string   `yaml:"driver" mapstructure:"driver"`
	DSN        string   `yaml:"dsn" mapstructure:"dsn"`
	Extensions []string `yaml:"extensions" mapstructure:"extensions"`
	Exclude    []string `yaml:"exclude" mapstructure:"exclude"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", ".")
	v.SetDefault("verbose", false)
	v.SetDefault("debug", false)
	v.SetDefault("extract.domestic_raster", "Li_class_dom.tif")
	v.SetDefault("extract.public_raster", "Li_class_pub.tif")
	v.SetDefault("extract.output", "lithium_categories.csv")
	v.SetDefault("extract.format", "csv")
	v.SetDefault("extract.num_workers", 4)
	v.SetDefault("join.input", "")
	v.SetDefault("join.boundaries", filepath.Join("tl_2025_us_county", "tl_2025_us_county.shp"))
	v.SetDefault("join.output", "lithium_categories_with_counties.csv")
	v.SetDefault("join.code_field", "GEOID")
	v.SetDefault("join.name_field", "NAME")
	v.SetDefault("join.index_max_level", 10)
	v.SetDefault("join.index_max_cells", 16)
	v.SetDefault("aggregate.input", "")
	v.SetDefault("aggregate.output", "lithium_aggregated_by_county.csv")
	v.SetDefault("load.dir", "")
	v.SetDefault("load.driver", "duckdb")
	v.SetDefault("load.dsn", "data.duckdb")
	v.SetDefault("load.extensions", []string{".csv", ".xls", ".tsv", ".xlsx"})
	v.SetDefault("load.exclude", []string{"lithium_categories.csv", "lithium_categories_with_counties.csv"})
	v.SetDefault("log.level", "")
	v.SetDefault("log.format", "text")
}

// Load reads an optional .env file, then the config file named by the
// "config" key (or lithium.yaml in the working directory), with LITHIUM_*
// environment variables taking precedence.
func Load(v *viper.Viper) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, eris.Wrap(err, "config: read .env")
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("lithium")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	} else {
		logrus.Debugf("Using config file %s", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if cfg.Join.Input == "" {
		cfg.Join.Input = cfg.Extract.Output
	}
	if cfg.Aggregate.Input == "" {
		cfg.Aggregate.Input = cfg.Join.Output
	}
	if cfg.Load.Dir == "" {
		cfg.Load.Dir = "."
	}
	return &cfg, nil
}

// Path resolves p against DataDir unless it is absolute.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

// InitLogger configures the logrus formatter and level. An explicit
// level wins; otherwise debug and verbose select Debug and Info, and the
// default is Warn.
func InitLogger(cfg LogConfig, verbose, debug bool) error {
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return eris.Errorf("config: unknown log format %q", cfg.Format)
	}

	if cfg.Level != "" {
		level, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return eris.Wrap(err, "config: parse log level")
		}
		logrus.SetLevel(level)
		return nil
	}

	switch {
	case debug:
		logrus.SetLevel(logrus.DebugLevel)
	case verbose:
		logrus.SetLevel(logrus.InfoLevel)
	default:
		logrus.SetLevel(logrus.WarnLevel)
	}
	return nil
}
