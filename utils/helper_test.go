package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("HELPER_TEST_KEY", "  value  ")
	assert.Equal(t, "value", EnvOrDefault("HELPER_TEST_KEY", "fallback"))

	t.Setenv("HELPER_TEST_KEY", "   ")
	assert.Equal(t, "fallback", EnvOrDefault("HELPER_TEST_KEY", "fallback"))
}

func TestEnvBoolDefault(t *testing.T) {
	t.Setenv("HELPER_BOOL_KEY", "Yes")
	assert.True(t, EnvBoolDefault("HELPER_BOOL_KEY", false))

	t.Setenv("HELPER_BOOL_KEY", "off")
	assert.False(t, EnvBoolDefault("HELPER_BOOL_KEY", true))

	t.Setenv("HELPER_BOOL_KEY", "maybe")
	assert.True(t, EnvBoolDefault("HELPER_BOOL_KEY", true))
}

func TestParseDateOrNow(t *testing.T) {
	parsed := ParseDateOrNow("2026-03-15")
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), parsed)

	parsed = ParseDateOrNow("2026-03-15T10:30:00Z")
	assert.Equal(t, 10, parsed.Hour())

	// Garbage and blanks fall back to now.
	assert.WithinDuration(t, time.Now(), ParseDateOrNow("not-a-date"), time.Minute)
	assert.WithinDuration(t, time.Now(), ParseDateOrNow(""), time.Minute)
}

func TestContextIds(t *testing.T) {
	ctx := context.Background()

	_, ok := GetProfileIdFromContext(ctx)
	assert.False(t, ok)

	ctx = SetProfileIdInContext(ctx, "p1")
	ctx = SetDeviceIdInContext(ctx, "d1")
	ctx = SetCorrelationIdInContext(ctx, "corr-1")

	profileId, ok := GetProfileIdFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "p1", profileId)

	deviceId, ok := GetDeviceIdFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "d1", deviceId)

	correlationId, ok := GetCorrelationIdFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "corr-1", correlationId)
}

func TestDeviceKeyRoundTrip(t *testing.T) {
	hashed, err := HashDeviceKey("shop-key-1")
	require.NoError(t, err)

	require.NoError(t, CompareDeviceKey(string(hashed), "shop-key-1"))
	assert.Error(t, CompareDeviceKey(string(hashed), "wrong-key"))
}
