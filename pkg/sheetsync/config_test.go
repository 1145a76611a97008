package sheetsync

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConfigDefaults 默认值与合并
func TestConfigDefaults(t *testing.T) {
	cfg, err := mergeConfig(&Config{BaseURL: "http://gw:8080", RefetchInterval: time.Second})
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.RefetchInterval)
	assert.Equal(t, 2*time.Second, cfg.SuppressionBuffer)
	assert.Equal(t, 4*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 10*time.Second, cfg.SendTimeout)
	assert.Equal(t, 20, cfg.MaxRecent)
	assert.False(t, cfg.SuppressOnAdd)
	assert.Equal(t, 3*time.Second, cfg.SuppressionWindow())
}

// TestConfigValidate 校验失败
func TestConfigValidate(t *testing.T) {
	var nilCfg *Config
	assert.ErrorIs(t, nilCfg.Validate(), ErrNilConfig)

	cfg := DefaultConfig()
	cfg.BaseURL = "::"
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidConfig))

	cfg = DefaultConfig()
	cfg.FetchTimeout = 0
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidConfig))

	assert.NoError(t, DefaultConfig().Validate())
}
