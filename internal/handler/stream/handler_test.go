package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/zhouzirui/lavajato/backend/internal/analysis/keyword"
	"github.com/zhouzirui/lavajato/backend/internal/model/rulebook"
	chatservice "github.com/zhouzirui/lavajato/backend/internal/service/chat"
	"github.com/zhouzirui/lavajato/backend/internal/service/widget"
	"github.com/zhouzirui/lavajato/backend/internal/service/widget/widgettest"
)

type sseEvent struct {
	name string
	data string
}

func readEvent(t *testing.T, reader *bufio.Reader) sseEvent {
	t.Helper()
	var ev sseEvent
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			return ev
		case strings.HasPrefix(line, "event: "):
			ev.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			ev.data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestStreamDeliversTurnEvents(t *testing.T) {
	defer goleak.VerifyNone(t)

	sched := widgettest.NewManualScheduler()
	chatSvc := chatservice.NewService(keyword.NewResolver(rulebook.Seed()), chatservice.Config{Scheduler: sched})
	defer chatSvc.Shutdown()

	r := chi.NewRouter()
	New(chatSvc, nil).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	session, ctrl, err := chatSvc.CreateSession(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/stream/"+session.ID, nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	reader := bufio.NewReader(resp.Body)
	first := readEvent(t, reader)
	require.Equal(t, "snapshot", first.name)

	var snap widget.Snapshot
	require.NoError(t, json.Unmarshal([]byte(first.data), &snap))
	assert.Len(t, snap.Messages, 1)

	require.True(t, ctrl.Submit("qual a região?"))
	sched.Advance(widget.DefaultReplyDelay)

	var names []string
	var last widget.Event
	for len(names) < 4 {
		ev := readEvent(t, reader)
		names = append(names, ev.name)
		require.NoError(t, json.Unmarshal([]byte(ev.data), &last))
		if ev.name == "message" {
			assert.Equal(t, len(names)/2+2, last.Message.ID)
		}
	}
	assert.Equal(t, []string{"message", "typing", "message", "typing"}, names)
	assert.False(t, last.State.IsTyping)
}

func TestStreamUnknownSession(t *testing.T) {
	chatSvc := chatservice.NewService(keyword.NewResolver(rulebook.Seed()), chatservice.Config{})
	r := chi.NewRouter()
	New(chatSvc, nil).RegisterRoutes(r)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/stream/missing", nil))

	assert.Equal(t, http.StatusNotFound, resp.Code)
}
