package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/paveg/colcsv/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_DefaultValues(t *testing.T) {
	cfg := config.NewConfig()

	assert.True(t, cfg.Read.HasHeader)
	assert.Equal(t, ",", cfg.Read.Delimiter)
	assert.Equal(t, 0, cfg.Read.SkipRows)
	assert.Equal(t, 32, cfg.Read.BatchSize)
	assert.True(t, cfg.Read.Rechunk)
	assert.False(t, cfg.Read.IgnoreParserErrors)
	assert.Equal(t, config.EncodingUTF8, cfg.Read.Encoding)
	assert.Equal(t, 0, cfg.Read.Threads)
	assert.Equal(t, 1024, cfg.Read.SampleSize)
	assert.Equal(t, 0, cfg.Read.StopAfterNRows)

	assert.True(t, cfg.Write.Header)
	assert.Equal(t, 1000, cfg.Write.BatchSize)
	assert.Equal(t, "2006-01-02", cfg.Write.DateFormat)

	assert.False(t, cfg.MetricsCollection)
	require.NoError(t, cfg.Validate())
}

func TestRead_Validate(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(r *config.Read)
		expectedError string
	}{
		{
			name:   "valid defaults",
			mutate: func(_ *config.Read) {},
		},
		{
			name:          "multi byte delimiter",
			mutate:        func(r *config.Read) { r.Delimiter = "::" },
			expectedError: `Delimiter must be a single byte, got "::"`,
		},
		{
			name:          "quote delimiter",
			mutate:        func(r *config.Read) { r.Delimiter = `"` },
			expectedError: `Delimiter cannot be "\""`,
		},
		{
			name:          "zero batch size",
			mutate:        func(r *config.Read) { r.BatchSize = 0 },
			expectedError: "BatchSize must be positive, got 0",
		},
		{
			name:          "negative threads",
			mutate:        func(r *config.Read) { r.Threads = -2 },
			expectedError: "Threads must be non-negative, got -2",
		},
		{
			name:          "negative skip rows",
			mutate:        func(r *config.Read) { r.SkipRows = -1 },
			expectedError: "SkipRows must be non-negative, got -1",
		},
		{
			name: "columns and projection together",
			mutate: func(r *config.Read) {
				r.Columns = []string{"a"}
				r.Projection = []int{0}
			},
			expectedError: "Columns and Projection are mutually exclusive",
		},
		{
			name:          "unknown encoding",
			mutate:        func(r *config.Read) { r.Encoding = "latin1" },
			expectedError: `Encoding must be "utf8" or "lossy_utf8", got "latin1"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := config.DefaultRead()
			tt.mutate(&r)
			err := r.Validate()
			if tt.expectedError == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.expectedError, err.Error())
		})
	}
}

func TestRead_Helpers(t *testing.T) {
	r := config.DefaultRead()
	assert.Equal(t, byte(','), r.DelimiterByte())
	assert.Equal(t, runtime.NumCPU(), r.ThreadCount())
	assert.Equal(t, 1024, r.InferenceLimit())
	assert.False(t, r.Lossy())

	r.Delimiter = `\t`
	r.Threads = 3
	r.MaxRecords = 100
	r.Encoding = config.EncodingLossyUTF8
	assert.Equal(t, byte('\t'), r.DelimiterByte())
	assert.Equal(t, 3, r.ThreadCount())
	assert.Equal(t, 100, r.InferenceLimit())
	assert.True(t, r.Lossy())
}

func TestWrite_Validate(t *testing.T) {
	w := config.DefaultWrite()
	require.NoError(t, w.Validate())

	w.BatchSize = -5
	assert.EqualError(t, w.Validate(), "BatchSize must be positive, got -5")
}

func TestConfig_LoadFromJSON(t *testing.T) {
	cfg, err := config.LoadFromJSON([]byte(`{"read": {"batch_size": 64, "threads": 2}}`))
	require.NoError(t, err)

	assert.Equal(t, 64, cfg.Read.BatchSize)
	assert.Equal(t, 2, cfg.Read.Threads)
	// Absent keys keep their defaults
	assert.True(t, cfg.Read.HasHeader)
	assert.Equal(t, 1000, cfg.Write.BatchSize)
}

func TestConfig_LoadFromFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(dir, "colcsv.yaml")
		yamlData := `
read:
  has_header: false
  delimiter: ";"
  ignore_parser_errors: true
  dtypes:
    price: float64
  columns: [id, price]
write:
  date_format: "02/01/2006"
metrics_collection: true
`
		require.NoError(t, os.WriteFile(path, []byte(yamlData), 0o600))

		cfg, err := config.LoadFromFile(path)
		require.NoError(t, err)

		assert.False(t, cfg.Read.HasHeader)
		assert.Equal(t, ";", cfg.Read.Delimiter)
		assert.True(t, cfg.Read.IgnoreParserErrors)
		assert.Equal(t, map[string]string{"price": "float64"}, cfg.Read.DTypes)
		assert.Equal(t, []string{"id", "price"}, cfg.Read.Columns)
		assert.Equal(t, "02/01/2006", cfg.Write.DateFormat)
		assert.True(t, cfg.Read.Rechunk)
		assert.True(t, cfg.MetricsCollection)
	})

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(dir, "colcsv.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"read": {"sample_size": 10}}`), 0o600))

		cfg, err := config.LoadFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, 10, cfg.Read.SampleSize)
	})

	t.Run("unsupported format", func(t *testing.T) {
		path := filepath.Join(dir, "colcsv.toml")
		require.NoError(t, os.WriteFile(path, []byte(`x = 1`), 0o600))

		_, err := config.LoadFromFile(path)
		assert.EqualError(t, err, "unsupported config file format: .toml")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := config.LoadFromFile(filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(dir, "broken.yml")
		require.NoError(t, os.WriteFile(path, []byte("read: [unterminated"), 0o600))

		_, err := config.LoadFromFile(path)
		assert.Error(t, err)
	})
}

func TestConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("COLCSV_BATCH_SIZE", "128")
	t.Setenv("COLCSV_HAS_HEADER", "false")
	t.Setenv("COLCSV_ENCODING", "lossy_utf8")
	t.Setenv("COLCSV_THREADS", "not-a-number")
	t.Setenv("COLCSV_WRITE_DELIMITER", "|")

	cfg := config.LoadFromEnv()

	assert.Equal(t, 128, cfg.Read.BatchSize)
	assert.False(t, cfg.Read.HasHeader)
	assert.Equal(t, config.EncodingLossyUTF8, cfg.Read.Encoding)
	assert.Equal(t, 0, cfg.Read.Threads) // malformed value ignored
	assert.Equal(t, "|", cfg.Write.Delimiter)
}

func TestGlobalConfig_SetAndGet(t *testing.T) {
	original := config.GetGlobalConfig()
	defer config.SetGlobalConfig(original)

	cfg := config.NewConfig()
	cfg.Read.Threads = 7
	config.SetGlobalConfig(cfg)

	assert.Equal(t, 7, config.GetGlobalConfig().Read.Threads)
}

func TestConfig_ValidateLogging(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Logging.Encoding = "xml"
	assert.EqualError(t, cfg.Validate(), `logging encoding must be json or console, got "xml"`)
}
