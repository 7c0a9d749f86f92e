package detector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parsalaw/lawfetch/internal/fetch"
)

func TestClassifyBlockedStatuses(t *testing.T) {
	t.Parallel()

	d := New(nil)
	body := []byte(strings.Repeat("x", 1000))
	for _, status := range []int{403, 429, 503} {
		require.Equal(t, fetch.VerdictBlocked, d.Classify(status, body, 500), "status %d", status)
	}
	require.Equal(t, fetch.VerdictValid, d.Classify(200, body, 500))
	require.Equal(t, fetch.VerdictValid, d.Classify(404, body, 500))
}

func TestClassifyStatusTakesPriorityOverLength(t *testing.T) {
	t.Parallel()

	d := New(nil)
	// A 403 with a tiny body is Blocked, not Empty.
	require.Equal(t, fetch.VerdictBlocked, d.Classify(403, []byte("no"), 500))
}

func TestClassifyEmptyBoundary(t *testing.T) {
	t.Parallel()

	d := New(nil)
	require.Equal(t, fetch.VerdictEmpty, d.Classify(200, []byte(strings.Repeat("x", 499)), 500))
	require.Equal(t, fetch.VerdictValid, d.Classify(200, []byte(strings.Repeat("x", 500)), 500))
}

func TestClassifyMarkersCaseInsensitive(t *testing.T) {
	t.Parallel()

	d := New(nil)
	pad := strings.Repeat(" lorem ipsum", 100)
	tests := []string{
		"One moment please, CloudFlare is checking",
		"protected by ArvanCloud edge",
		"Just a Moment...",
		"دسترسی شما به این سایت محدود شده است",
		`<iframe src="http://peyvandha.ir"></iframe>`,
	}
	for _, body := range tests {
		require.Equal(t, fetch.VerdictBlocked, d.Classify(200, []byte(body+pad), 500), "body %q", body)
	}
}

func TestClassifyCustomMarkers(t *testing.T) {
	t.Parallel()

	d := New([]string{"custom-wall"})
	pad := strings.Repeat("z", 600)
	require.Equal(t, fetch.VerdictBlocked, d.Classify(200, []byte("CUSTOM-WALL"+pad), 500))
	// Custom marker lists replace the defaults entirely.
	require.Equal(t, fetch.VerdictValid, d.Classify(200, []byte("cloudflare"+pad), 500))
}
