package utils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondError(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, http.StatusNotFound, "session not found")

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"session not found"}`, rr.Body.String())
}

func TestSendSSEEvent(t *testing.T) {
	rr := httptest.NewRecorder()
	SetupSSEHeaders(rr)

	require.NoError(t, SendSSEEvent(rr, rr, "typing", map[string]bool{"isTyping": true}))

	assert.Equal(t, "text/event-stream", rr.Header().Get("Content-Type"))
	assert.Equal(t, "event: typing\ndata: {\"isTyping\":true}\n\n", rr.Body.String())
	assert.True(t, rr.Flushed)
}

func TestDecodeJSONRejectsGarbage(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	var dst map[string]string
	assert.Error(t, DecodeJSON(req, &dst))
}
