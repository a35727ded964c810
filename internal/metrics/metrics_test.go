package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesRegisteredMetrics(t *testing.T) {
	m := New()
	m.ConnectionsOpen.Set(3)
	m.PacketsReceived.WithLabelValues("chat_message_sb").Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "mcserver_connections_open 3")
	assert.Contains(t, body, "mcserver_packets_received_total")
}
