package conversation_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/lavajato/backend/internal/model/chat"
	"github.com/zhouzirui/lavajato/backend/internal/service/conversation"
)

func fixedNow() time.Time {
	return time.Date(2024, 5, 10, 9, 7, 0, 0, time.UTC)
}

func TestNewSeedsGreeting(t *testing.T) {
	conv := conversation.New("Olá!", fixedNow)

	all := conv.All()
	require.Len(t, all, 1)
	assert.Equal(t, 1, all[0].ID)
	assert.Equal(t, chat.SenderBot, all[0].Sender)
	assert.Equal(t, "Olá!", all[0].Text)
	assert.Equal(t, "09:07", all[0].Clock())
}

func TestAppendAssignsIncreasingIDs(t *testing.T) {
	conv := conversation.New("Olá!", fixedNow)

	user := conv.Append(chat.SenderUser, "  oi  ")
	bot := conv.Append(chat.SenderBot, "resposta")

	assert.Equal(t, 2, user.ID)
	assert.Equal(t, "  oi  ", user.Text)
	assert.Equal(t, 3, bot.ID)

	last, ok := conv.Last()
	require.True(t, ok)
	assert.Equal(t, bot, last)
	assert.Equal(t, 3, conv.Len())
}

func TestAllReturnsCopy(t *testing.T) {
	conv := conversation.New("Olá!", fixedNow)

	all := conv.All()
	all[0].Text = "mutated"

	assert.Equal(t, "Olá!", conv.All()[0].Text)
}

func TestConcurrentAppendKeepsOrder(t *testing.T) {
	conv := conversation.New("Olá!", nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conv.Append(chat.SenderBot, "x")
		}()
	}
	wg.Wait()

	all := conv.All()
	require.Len(t, all, 51)
	for i, msg := range all {
		assert.Equal(t, i+1, msg.ID)
	}
}
