package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	log, err := New("arena-service", "test")
	require.NoError(t, err)
	require.NotNil(t, log)

	log, err = New("arena-service", "local", "warn")
	require.NoError(t, err)
	require.False(t, log.Core().Enabled(-1)) // debug desligado

	_, err = New("arena-service", "prod", "loud")
	require.Error(t, err)
}
