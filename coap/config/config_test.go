package coapconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesRFC7252(t *testing.T) {
	cfg := Default()
	assert.Equal(t, int64(2000), cfg.AckTimeoutMS)
	assert.Equal(t, 1.5, cfg.AckRandomFactor)
	assert.Equal(t, 4, cfg.MaxRetransmit)
	assert.Equal(t, int64(247000), cfg.ExchangeLifeMS)
	assert.Equal(t, 8, cfg.MaxTokenLength)
	require.NoError(t, cfg.Validate())
}

func TestFromMapOverridesDefaults(t *testing.T) {
	cfg, err := FromMap(map[string]interface{}{
		"ack_timeout_ms": 5000,
		"max_retransmit": 2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5000), cfg.AckTimeoutMS)
	assert.Equal(t, 2, cfg.MaxRetransmit)
	// Untouched fields keep their defaults.
	assert.Equal(t, 1.5, cfg.AckRandomFactor)
}

func TestFromMapRejectsInvalidTokenLength(t *testing.T) {
	_, err := FromMap(map[string]interface{}{"max_token_length": 99})
	assert.Error(t, err)
}

func TestFromMapRejectsNonPositiveTimeout(t *testing.T) {
	_, err := FromMap(map[string]interface{}{"ack_timeout_ms": 0})
	assert.Error(t, err)
}

func TestAckTimeoutAndExchangeLifetimeConversions(t *testing.T) {
	cfg := Default()
	assert.Equal(t, float64(2), cfg.AckTimeout().Seconds())
	assert.Equal(t, float64(247), cfg.ExchangeLifetime().Seconds())
}
