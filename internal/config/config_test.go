package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-tag-service/ets-server/internal/logger"
	"github.com/ethereum-tag-service/ets-server/internal/tagging"
)

const testPlatform = "0x00000000000000000000000000000000000000f0"

func validConfig() *Config {
	return &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Data:   DataConfig{Path: "/some/path", Backend: BackendBadger},
		Auth:   AuthConfig{AccessTokenDuration: time.Hour},
		Protocol: ProtocolConfig{
			PlatformAddress:     testPlatform,
			TaggingFee:          "0",
			PlatformPercentage:  20,
			RelayerPercentage:   30,
			MaxRecordTypeLength: 32,
			TagMinLength:        2,
			TagMaxLength:        32,
		},
	}
}

// isolateEnv clears every variable Load reads so the host environment
// cannot leak into a test.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ENV", "LOG_LEVEL", "DATA_PATH", "STORE_BACKEND", "SERVER_PORT",
		"SERVER_READ_TIMEOUT", "SERVER_WRITE_TIMEOUT", "SERVER_IDLE_TIMEOUT",
		"CORS_ALLOWED_ORIGINS", "ACCESS_TOKEN_DURATION", "PROTOCOL_FILE",
		"PLATFORM_ADDRESS", "TAGGING_FEE", "PLATFORM_PERCENTAGE", "RELAYER_PERCENTAGE",
		"MAX_RECORD_TYPE_LENGTH", "TAG_MIN_LENGTH", "TAG_MAX_LENGTH",
	} {
		t.Setenv(key, "")
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env
			if tt.valid {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := map[string]func(*Config){
		"log level":            func(c *Config) { c.Logger.Level = "verbose" },
		"empty data path":      func(c *Config) { c.Data.Path = "" },
		"backend":              func(c *Config) { c.Data.Backend = "postgres" },
		"token duration":       func(c *Config) { c.Auth.AccessTokenDuration = 0 },
		"missing platform":     func(c *Config) { c.Protocol.PlatformAddress = "" },
		"bad platform":         func(c *Config) { c.Protocol.PlatformAddress = "0x1234" },
		"fractional fee":       func(c *Config) { c.Protocol.TaggingFee = "0.5" },
		"negative fee":         func(c *Config) { c.Protocol.TaggingFee = "-1" },
		"percentages over 100": func(c *Config) { c.Protocol.PlatformPercentage = 80 },
		"tag bounds":           func(c *Config) { c.Protocol.TagMinLength = 40 },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestProtocolConfig_Params(t *testing.T) {
	cfg := validConfig().Protocol
	cfg.TaggingFee = "100000000000000000"

	p, err := cfg.Params()
	require.NoError(t, err)
	assert.Equal(t, testPlatform, p.Platform.String())
	assert.Equal(t, "100000000000000000", p.TaggingFee.String())
	assert.Equal(t, 20, p.PlatformPercentage)
	assert.Equal(t, 30, p.RelayerPercentage)
}

func TestLoad_Defaults(t *testing.T) {
	isolateEnv(t)
	t.Setenv("PLATFORM_ADDRESS", testPlatform)

	cfg, err := Load([]string{"-env-file", filepath.Join(t.TempDir(), "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, BackendBadger, cfg.Data.Backend)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout)
	assert.Equal(t, time.Hour, cfg.Auth.AccessTokenDuration)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSAllowedOrigins)
	assert.True(t, filepath.IsAbs(cfg.Data.Path))
	assert.Equal(t, filepath.Join("ETS", "data"), filepath.Join(filepath.Base(filepath.Dir(cfg.Data.Path)), filepath.Base(cfg.Data.Path)))

	params, err := cfg.Protocol.Params()
	require.NoError(t, err)
	assert.Equal(t, tagging.DefaultParams().TaggingFee.String(), params.TaggingFee.String())
}

func TestLoad_Precedence(t *testing.T) {
	isolateEnv(t)
	t.Setenv("PLATFORM_ADDRESS", testPlatform)
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("TAGGING_FEE", "5")
	t.Setenv("STORE_BACKEND", "SQLite")

	cfg, err := Load([]string{
		"-env-file", filepath.Join(t.TempDir(), "missing.env"),
		"-port", "9100",
		"-cors-allowed-origins", "https://app.ets.xyz, https://ets.xyz",
	})
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port, "flag beats env")
	assert.Equal(t, "5", cfg.Protocol.TaggingFee, "env beats default")
	assert.Equal(t, BackendSQLite, cfg.Data.Backend)
	assert.Equal(t, []string{"https://app.ets.xyz", "https://ets.xyz"}, cfg.Server.CORSAllowedOrigins)
}

func TestLoad_ProtocolFileOverridesEnv(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "protocol.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
platform_address: "0x00000000000000000000000000000000000000f0"
tagging_fee: "1000"
relayer_percentage: 40
`), 0o644))

	t.Setenv("TAGGING_FEE", "5")
	t.Setenv("PROTOCOL_FILE", file)

	cfg, err := Load([]string{"-env-file", filepath.Join(dir, "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, "1000", cfg.Protocol.TaggingFee)
	assert.Equal(t, 40, cfg.Protocol.RelayerPercentage)
	assert.Equal(t, 20, cfg.Protocol.PlatformPercentage)
	assert.Equal(t, "5", cfg.ProtocolBase.TaggingFee)
}

func TestLoad_InvalidDuration(t *testing.T) {
	isolateEnv(t)
	t.Setenv("PLATFORM_ADDRESS", testPlatform)
	t.Setenv("ACCESS_TOKEN_DURATION", "soon")

	_, err := Load([]string{"-env-file", filepath.Join(t.TempDir(), "missing.env")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ACCESS_TOKEN_DURATION")
}

func TestLoadProtocolFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("unknown key", func(t *testing.T) {
		path := filepath.Join(dir, "typo.yaml")
		require.NoError(t, os.WriteFile(path, []byte("taging_fee: \"1\"\n"), 0o644))
		_, err := LoadProtocolFile(path)
		assert.Error(t, err)
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(dir, "empty.yaml")
		require.NoError(t, os.WriteFile(path, nil, 0o644))
		f, err := LoadProtocolFile(path)
		require.NoError(t, err)
		assert.Equal(t, validConfig().Protocol, validConfig().Protocol.Merge(f))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadProtocolFile(filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
	})
}

type recordingApplier struct {
	mu     sync.Mutex
	params []tagging.Params
}

func (r *recordingApplier) ApplyParams(p tagging.Params) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.params = append(r.params, p)
	return nil
}

func (r *recordingApplier) last() (tagging.Params, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.params) == 0 {
		return tagging.Params{}, false
	}
	return r.params[len(r.params)-1], true
}

func (r *recordingApplier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.params)
}

func TestProtocolReloader_Reload(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "protocol.yaml")
	require.NoError(t, os.WriteFile(file, []byte("tagging_fee: \"7\"\n"), 0o644))

	base := validConfig().Protocol
	base.File = file
	applier := &recordingApplier{}

	r, err := NewProtocolReloader(base, applier, logger.Discard().Logger)
	require.NoError(t, err)

	require.NoError(t, r.Reload())
	require.Equal(t, 1, applier.count())
	assert.Equal(t, "7", applier.params[0].TaggingFee.String())

	// An invalid file is rejected and nothing is applied.
	require.NoError(t, os.WriteFile(file, []byte("platform_percentage: 90\n"), 0o644))
	assert.Error(t, r.Reload())
	assert.Equal(t, 1, applier.count())
}

func TestProtocolReloader_RunAppliesFileChanges(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "protocol.yaml")
	require.NoError(t, os.WriteFile(file, []byte("tagging_fee: \"7\"\n"), 0o644))

	base := validConfig().Protocol
	base.File = file
	applier := &recordingApplier{}

	r, err := NewProtocolReloader(base, applier, logger.Discard().Logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	require.NoError(t, os.WriteFile(file, []byte("tagging_fee: \"42\"\nrelayer_percentage: 25\n"), 0o644))

	require.Eventually(t, func() bool {
		p, ok := applier.last()
		return ok && p.TaggingFee.String() == "42"
	}, 5*time.Second, 20*time.Millisecond)

	p, _ := applier.last()
	assert.Equal(t, 25, p.RelayerPercentage)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandPath("~/ETS/data", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "ETS", "data"), got)

	got, err = expandPath("", "/default")
	require.NoError(t, err)
	assert.Equal(t, "/default", got)

	got, err = expandPath("relative/dir", "")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
}

func TestGetConfigValue_Precedence(t *testing.T) {
	t.Setenv("TEST_KEY", "env-value")

	assert.Equal(t, "flag-value", getConfigValue("flag-value", "TEST_KEY", "default-value"))
	assert.Equal(t, "env-value", getConfigValue("", "TEST_KEY", "default-value"))
	assert.Equal(t, "default-value", getConfigValue("", "NONEXISTENT_KEY", "default-value"))
}

func TestGetIntConfigValue(t *testing.T) {
	t.Setenv("TEST_INT", "not-a-number")
	assert.Equal(t, 7, getIntConfigValue("", "TEST_INT", 7))
	assert.Equal(t, 12, getIntConfigValue("12", "TEST_INT", 7))
}

func TestLoadEnvFile_ValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	content := `# Test env file
ENV_FILE_LEVEL=debug
ENV_FILE_PATH=/test/path
# Comment line
ENV_FILE_QUOTED="some value"
ENV_FILE_SINGLE='another value'
`
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o644))

	for _, k := range []string{"ENV_FILE_LEVEL", "ENV_FILE_PATH", "ENV_FILE_QUOTED", "ENV_FILE_SINGLE"} {
		t.Setenv(k, "")
	}

	require.NoError(t, loadEnvFile(envFile))

	assert.Equal(t, "debug", os.Getenv("ENV_FILE_LEVEL"))
	assert.Equal(t, "/test/path", os.Getenv("ENV_FILE_PATH"))
	assert.Equal(t, "some value", os.Getenv("ENV_FILE_QUOTED"))
	assert.Equal(t, "another value", os.Getenv("ENV_FILE_SINGLE"))
}

func TestLoadEnvFile_InvalidFormat(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("VALID_KEY=valid_value\nINVALID LINE WITHOUT EQUALS\n"), 0o644))

	err := loadEnvFile(envFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestLoadEnvFile_NonExistentFile(t *testing.T) {
	assert.Error(t, loadEnvFile("/nonexistent/file/.env"))
}

func TestLoadEnvFile_ExistingEnvVarsNotOverwritten(t *testing.T) {
	t.Setenv("TEST_VAR", "original-value")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(`TEST_VAR=new-value`), 0o644))

	require.NoError(t, loadEnvFile(envFile))
	assert.Equal(t, "original-value", os.Getenv("TEST_VAR"))
}

func TestLoadEnvFile_Whitespace(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(`  KEY_WITH_SPACES  =  value with spaces  `), 0o644))
	t.Setenv("KEY_WITH_SPACES", "")

	require.NoError(t, loadEnvFile(envFile))
	assert.Equal(t, "value with spaces", os.Getenv("KEY_WITH_SPACES"))
}
