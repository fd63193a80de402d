package kafka

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBrokers(t *testing.T) {
	require.Equal(t, []string{"a:9092", "b:9092"}, Brokers(" a:9092, ,b:9092,"))
	require.Nil(t, Brokers(""))
}
