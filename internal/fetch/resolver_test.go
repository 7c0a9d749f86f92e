package fetch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResolverNormalizesServerPorts(t *testing.T) {
	t.Parallel()

	r := NewRoundRobinResolver([]string{"8.8.8.8", "1.1.1.1:5353"}, time.Second)
	require.Equal(t, []string{"8.8.8.8:53", "1.1.1.1:5353"}, r.servers)
}

func TestResolverRoundRobinRotation(t *testing.T) {
	t.Parallel()

	r := NewRoundRobinResolver([]string{"8.8.8.8", "1.1.1.1", "9.9.9.9"}, time.Second)
	var picked []string
	for i := 0; i < 7; i++ {
		picked = append(picked, r.pick())
	}
	require.Equal(t, []string{
		"8.8.8.8:53", "1.1.1.1:53", "9.9.9.9:53",
		"8.8.8.8:53", "1.1.1.1:53", "9.9.9.9:53",
		"8.8.8.8:53",
	}, picked)
}

func TestResolverNoServers(t *testing.T) {
	t.Parallel()

	r := NewRoundRobinResolver(nil, time.Second)
	_, err := r.Resolve(context.Background(), "rc.majlis.ir")
	require.Error(t, err)
}
