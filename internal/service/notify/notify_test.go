package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMultiFansOut(t *testing.T) {
	var got []string
	record := func(tag string) Notifier {
		return Func(func(_ context.Context, sessionID string, toast Toast) {
			got = append(got, tag+":"+sessionID+":"+toast.Title)
		})
	}

	Multi{record("a"), nil, record("b")}.Notify(context.Background(), "s1", Toast{Title: "t"})

	assert.Equal(t, []string{"a:s1:t", "b:s1:t"}, got)
}

func TestLogNotifierWritesFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewLogNotifier(zap.New(core))

	n.Notify(context.Background(), "s1", Toast{Title: "Informações recebidas!", Description: "Obrigado, Ana!"})

	entries := logs.FilterMessage("toast raised").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "s1", fields["session"])
	assert.Equal(t, "Obrigado, Ana!", fields["description"])
}
