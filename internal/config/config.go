// Package config provides configuration management for CSV reading, writing
// and the surrounding runtime (logging, metrics).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Encoding names accepted by Read.Encoding.
const (
	EncodingUTF8      = "utf8"
	EncodingLossyUTF8 = "lossy_utf8"
)

// Default configuration values
const (
	DefaultReadBatchSize   = 32
	DefaultWriteBatchSize  = 1000
	DefaultSampleSize      = 1024
	DefaultDelimiter       = ","
	DefaultDateFormat      = "2006-01-02"
	DefaultTimeFormat      = "15:04:05.999999"
	DefaultTimestampFormat = "2006-01-02T15:04:05.999999Z07:00"
	DefaultLogLevel        = "info"
	DefaultLogEncoding     = "console"
)

// Config represents the global configuration for colcsv operations
type Config struct {
	Read    Read    `json:"read" yaml:"read"`
	Write   Write   `json:"write" yaml:"write"`
	Logging Logging `json:"logging" yaml:"logging"`

	MetricsCollection bool `json:"metrics_collection" yaml:"metrics_collection"` // Enable metrics collection
}

// Read holds the options of one CSV read. The zero value is not usable;
// start from NewConfig().Read or DefaultRead().
type Read struct {
	HasHeader          bool              `json:"has_header" yaml:"has_header"`
	Delimiter          string            `json:"delimiter" yaml:"delimiter"`                       // Single byte
	SkipRows           int               `json:"skip_rows" yaml:"skip_rows"`                       // Lines skipped before the header
	BatchSize          int               `json:"batch_size" yaml:"batch_size"`                     // Rows per parsed batch
	Rechunk            bool              `json:"rechunk" yaml:"rechunk"`                           // Coalesce columns into one array
	IgnoreParserErrors bool              `json:"ignore_parser_errors" yaml:"ignore_parser_errors"` // Drop malformed rows
	Encoding           string            `json:"encoding" yaml:"encoding"`                         // utf8 or lossy_utf8
	Threads            int               `json:"threads" yaml:"threads"`                           // 0 = runtime.NumCPU()
	SampleSize         int               `json:"sample_size" yaml:"sample_size"`                   // Rows sampled for inference
	MaxRecords         int               `json:"max_records" yaml:"max_records"`                   // Inference cap, 0 = SampleSize
	DTypes             map[string]string `json:"dtypes" yaml:"dtypes"`                             // Per-column type overrides
	Columns            []string          `json:"columns" yaml:"columns"`                           // Projection by name
	Projection         []int             `json:"projection" yaml:"projection"`                     // Projection by index
	StopAfterNRows     int               `json:"stop_after_n_rows" yaml:"stop_after_n_rows"`       // 0 = read to end
}

// Write holds the options of one CSV write.
type Write struct {
	Header          bool   `json:"header" yaml:"header"`
	Delimiter       string `json:"delimiter" yaml:"delimiter"`
	DateFormat      string `json:"date_format" yaml:"date_format"`
	TimeFormat      string `json:"time_format" yaml:"time_format"`
	TimestampFormat string `json:"timestamp_format" yaml:"timestamp_format"`
	BatchSize       int    `json:"batch_size" yaml:"batch_size"`
}

// Logging configures the zap logger built by internal/logging.
type Logging struct {
	Level    string `json:"level" yaml:"level"`
	Encoding string `json:"encoding" yaml:"encoding"` // json or console
}

// Global configuration instance
var (
	globalConfig Config
	configMutex  sync.RWMutex
)

func init() {
	globalConfig = NewConfig()
}

// NewConfig creates a new configuration with default values
func NewConfig() Config {
	return Config{
		Read:  DefaultRead(),
		Write: DefaultWrite(),
		Logging: Logging{
			Level:    DefaultLogLevel,
			Encoding: DefaultLogEncoding,
		},
		MetricsCollection: false,
	}
}

// DefaultRead returns the default read options.
func DefaultRead() Read {
	return Read{
		HasHeader:  true,
		Delimiter:  DefaultDelimiter,
		BatchSize:  DefaultReadBatchSize,
		Rechunk:    true,
		Encoding:   EncodingUTF8,
		SampleSize: DefaultSampleSize,
	}
}

// DefaultWrite returns the default write options.
func DefaultWrite() Write {
	return Write{
		Header:          true,
		Delimiter:       DefaultDelimiter,
		DateFormat:      DefaultDateFormat,
		TimeFormat:      DefaultTimeFormat,
		TimestampFormat: DefaultTimestampFormat,
		BatchSize:       DefaultWriteBatchSize,
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if err := c.Read.Validate(); err != nil {
		return err
	}
	if err := c.Write.Validate(); err != nil {
		return err
	}
	switch c.Logging.Encoding {
	case "json", "console":
	default:
		return fmt.Errorf("logging encoding must be json or console, got %q", c.Logging.Encoding)
	}
	return nil
}

// Validate checks the read options once, before any byte is read.
func (r *Read) Validate() error {
	if _, err := delimiterByte(r.Delimiter); err != nil {
		return err
	}
	if r.SkipRows < 0 {
		return fmt.Errorf("SkipRows must be non-negative, got %d", r.SkipRows)
	}
	if r.BatchSize <= 0 {
		return fmt.Errorf("BatchSize must be positive, got %d", r.BatchSize)
	}
	if r.Threads < 0 {
		return fmt.Errorf("Threads must be non-negative, got %d", r.Threads)
	}
	if r.SampleSize <= 0 {
		return fmt.Errorf("SampleSize must be positive, got %d", r.SampleSize)
	}
	if r.MaxRecords < 0 {
		return fmt.Errorf("MaxRecords must be non-negative, got %d", r.MaxRecords)
	}
	if r.StopAfterNRows < 0 {
		return fmt.Errorf("StopAfterNRows must be non-negative, got %d", r.StopAfterNRows)
	}
	if len(r.Columns) > 0 && len(r.Projection) > 0 {
		return fmt.Errorf("Columns and Projection are mutually exclusive")
	}
	for _, idx := range r.Projection {
		if idx < 0 {
			return fmt.Errorf("Projection indices must be non-negative, got %d", idx)
		}
	}
	switch r.Encoding {
	case EncodingUTF8, EncodingLossyUTF8:
	default:
		return fmt.Errorf("Encoding must be %q or %q, got %q", EncodingUTF8, EncodingLossyUTF8, r.Encoding)
	}
	return nil
}

// DelimiterByte returns the validated field delimiter.
func (r *Read) DelimiterByte() byte {
	b, _ := delimiterByte(r.Delimiter)
	return b
}

// ThreadCount resolves Threads, mapping 0 to the number of CPUs.
func (r *Read) ThreadCount() int {
	if r.Threads <= 0 {
		return runtime.NumCPU()
	}
	return r.Threads
}

// InferenceLimit is the number of rows sampled for schema inference.
func (r *Read) InferenceLimit() int {
	if r.MaxRecords > 0 && r.MaxRecords < r.SampleSize {
		return r.MaxRecords
	}
	return r.SampleSize
}

// Lossy reports whether invalid UTF-8 is replaced instead of rejected.
func (r *Read) Lossy() bool {
	return r.Encoding == EncodingLossyUTF8
}

// Validate checks the write options.
func (w *Write) Validate() error {
	if _, err := delimiterByte(w.Delimiter); err != nil {
		return err
	}
	if w.BatchSize <= 0 {
		return fmt.Errorf("BatchSize must be positive, got %d", w.BatchSize)
	}
	return nil
}

// DelimiterByte returns the validated field delimiter.
func (w *Write) DelimiterByte() byte {
	b, _ := delimiterByte(w.Delimiter)
	return b
}

func delimiterByte(s string) (byte, error) {
	if s == `\t` {
		return '\t', nil
	}
	if len(s) != 1 {
		return 0, fmt.Errorf("Delimiter must be a single byte, got %q", s)
	}
	switch s[0] {
	case '"', '\r', '\n':
		return 0, fmt.Errorf("Delimiter cannot be %q", s)
	}
	if s[0] >= 0x80 {
		return 0, fmt.Errorf("Delimiter must be ASCII, got %q", s)
	}
	return s[0], nil
}

// SetGlobalConfig sets the global configuration
func SetGlobalConfig(config Config) {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = config
}

// GetGlobalConfig returns the current global configuration
func GetGlobalConfig() Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}

// LoadFromJSON loads configuration from JSON data. Keys absent from data keep
// their default values.
func LoadFromJSON(data []byte) (Config, error) {
	config := NewConfig()
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing JSON configuration: %w", err)
	}
	return config, nil
}

// LoadFromYAML loads configuration from YAML data. Keys absent from data keep
// their default values.
func LoadFromYAML(data []byte) (Config, error) {
	config := NewConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing YAML configuration: %w", err)
	}
	return config, nil
}

// LoadFromFile loads configuration from a file (supports JSON, YAML)
func LoadFromFile(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", filename, err)
	}

	var config Config
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".json":
		config, err = LoadFromJSON(data)
	case ".yaml", ".yml":
		config, err = LoadFromYAML(data)
	default:
		return Config{}, fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", filename, err)
	}

	return config, nil
}

// LoadFromEnv overlays COLCSV_* environment variables onto the defaults.
// Malformed values are ignored.
func LoadFromEnv() Config {
	return ApplyEnv(NewConfig())
}

// ApplyEnv overlays COLCSV_* environment variables onto config.
func ApplyEnv(config Config) Config {
	envBool("COLCSV_HAS_HEADER", &config.Read.HasHeader)
	envString("COLCSV_DELIMITER", &config.Read.Delimiter)
	envInt("COLCSV_SKIP_ROWS", &config.Read.SkipRows)
	envInt("COLCSV_BATCH_SIZE", &config.Read.BatchSize)
	envBool("COLCSV_RECHUNK", &config.Read.Rechunk)
	envBool("COLCSV_IGNORE_PARSER_ERRORS", &config.Read.IgnoreParserErrors)
	envString("COLCSV_ENCODING", &config.Read.Encoding)
	envInt("COLCSV_THREADS", &config.Read.Threads)
	envInt("COLCSV_SAMPLE_SIZE", &config.Read.SampleSize)
	envInt("COLCSV_MAX_RECORDS", &config.Read.MaxRecords)
	envInt("COLCSV_STOP_AFTER_N_ROWS", &config.Read.StopAfterNRows)

	envBool("COLCSV_WRITE_HEADER", &config.Write.Header)
	envString("COLCSV_WRITE_DELIMITER", &config.Write.Delimiter)
	envString("COLCSV_DATE_FORMAT", &config.Write.DateFormat)
	envString("COLCSV_TIME_FORMAT", &config.Write.TimeFormat)
	envString("COLCSV_TIMESTAMP_FORMAT", &config.Write.TimestampFormat)
	envInt("COLCSV_WRITE_BATCH_SIZE", &config.Write.BatchSize)

	envString("COLCSV_LOG_LEVEL", &config.Logging.Level)
	envString("COLCSV_LOG_ENCODING", &config.Logging.Encoding)
	envBool("COLCSV_METRICS_COLLECTION", &config.MetricsCollection)

	return config
}

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			*dst = parsed
		}
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			*dst = parsed
		}
	}
}
