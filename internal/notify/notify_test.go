package notify

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/require"
)

func TestWebhookNotifierPostsJSON(t *testing.T) {
	received := make(chan []byte, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received <- body
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL)
	n.Notify(SeverityCritical, "order notional safety limit", "refused BTCUSDT buy")

	var payload webhookPayload
	require.NoError(t, sonic.ConfigFastest.Unmarshal(<-received, &payload))
	require.Equal(t, "critical", payload.Severity)
	require.Equal(t, "order notional safety limit", payload.Title)
	require.NotZero(t, payload.TimeMs)
}

func TestSeverityString(t *testing.T) {
	require.Equal(t, "info", SeverityInfo.String())
	require.Equal(t, "warn", SeverityWarn.String())
	require.Equal(t, "critical", SeverityCritical.String())
}
