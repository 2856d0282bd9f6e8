package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/afero"

	"github.com/Blackdeer1524/ISAMStore/src/storage/isam"
	"github.com/Blackdeer1524/ISAMStore/src/storage/record"
)

const (
	EnvPrefix = "ISAM"

	DefaultEnvFile = ".env"
)

const (
	EnvDev  Environment = "dev"
	EnvProd Environment = "prod"

	DefaultEnv = EnvDev
)

type Environment string

func (e Environment) Validate() error {
	if e != EnvDev && e != EnvProd {
		return errors.New("environment must be either dev or prod")
	}

	return nil
}

// Config is read from ISAM_* variables, e.g. ISAM_DATA_PATH.
type Config struct {
	Environment Environment `split_words:"true" default:"dev"`

	DataPath    string `split_words:"true" default:"sales.dat"`
	IndexPath   string `split_words:"true" default:"sales.idx"`
	CatalogPath string `split_words:"true" default:"sales.catalog.json"`
	SchemaPath  string `split_words:"true"`

	BlockFactor    int                 `split_words:"true" default:"3"`
	OverflowPolicy isam.OverflowPolicy `split_words:"true" default:"split"`
	CachePages     int                 `split_words:"true" default:"0"`

	CSVSeparator string `envconfig:"CSV_SEPARATOR" default:";"`

	Tracing Tracing `split_words:"true"`
}

// Tracing configures span export over OTLP, e.g. ISAM_TRACING_ENABLED.
type Tracing struct {
	Enabled  bool   `default:"false"`
	Endpoint string `default:"localhost:4318"`
	Protocol string `default:"http"`
}

func (t Tracing) Validate() error {
	if !t.Enabled {
		return nil
	}
	if t.Endpoint == "" {
		return errors.New("tracing endpoint must not be empty")
	}
	if t.Protocol != "http" && t.Protocol != "grpc" {
		return fmt.Errorf("tracing protocol must be http or grpc, got %q", t.Protocol)
	}
	return nil
}

// Load reads envPath into the process environment and then processes the
// ISAM_* variables. An empty envPath means an optional .env in the working
// directory; an explicit one must exist. Variables already set win over
// the file.
func Load(envPath string) (Config, error) {
	if err := loadEnvFile(envPath); err != nil {
		return Config{}, err
	}

	var c Config
	if err := envconfig.Process(EnvPrefix, &c); err != nil {
		return Config{}, fmt.Errorf("envconfig processing: %w", err)
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func loadEnvFile(envPath string) error {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			return fmt.Errorf("failed to load %s: %w", envPath, err)
		}
		return nil
	}

	err := godotenv.Load(DefaultEnvFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", DefaultEnvFile, err)
	}
	return nil
}

func (c Config) Validate() error {
	if err := c.Environment.Validate(); err != nil {
		return fmt.Errorf("environment validation: %w", err)
	}
	if c.DataPath == "" {
		return errors.New("data path must not be empty")
	}
	if c.BlockFactor <= 0 {
		return fmt.Errorf("block factor must be positive, got %d", c.BlockFactor)
	}
	if err := c.OverflowPolicy.Validate(); err != nil {
		return err
	}
	if c.CachePages < 0 {
		return fmt.Errorf("cache pages must not be negative, got %d", c.CachePages)
	}
	if utf8.RuneCountInString(c.CSVSeparator) != 1 {
		return fmt.Errorf("csv separator must be one character, got %q", c.CSVSeparator)
	}
	if err := c.Tracing.Validate(); err != nil {
		return fmt.Errorf("tracing validation: %w", err)
	}
	return nil
}

// Separator returns the CSV separator as a rune.
func (c Config) Separator() rune {
	r, _ := utf8.DecodeRuneInString(c.CSVSeparator)
	return r
}

// StoreOptions resolves the schema and returns the options to open the
// sequential file with. Without a schema path the sales schema is used.
func (c Config) StoreOptions(fsys afero.Fs) (isam.Options, error) {
	schema := record.SalesSchema()
	if c.SchemaPath != "" {
		loaded, err := record.LoadSchema(fsys, c.SchemaPath)
		if err != nil {
			return isam.Options{}, err
		}
		schema = loaded
	}

	return isam.Options{
		DataPath:    c.DataPath,
		IndexPath:   c.IndexPath,
		CatalogPath: c.CatalogPath,
		Schema:      schema,
		BlockFactor: c.BlockFactor,
		Policy:      c.OverflowPolicy,
		CachePages:  c.CachePages,
	}, nil
}
