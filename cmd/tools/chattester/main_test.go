package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zhouzirui/lavajato/backend/internal/model/rulebook"
)

func TestResolveExplain(t *testing.T) {
	t.Setenv("CHAT_RULES_FILE", "")
	var out bytes.Buffer
	cmd := newRootCmd(strings.NewReader(""), &out)
	cmd.SetArgs([]string{"resolve", "--explain", "Qual", "o", "preço", "do", "serviço?"})

	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "keyword: serviço", lines[0])
	assert.Contains(t, lines[1], "Oferecemos lavagem básica")
}

func TestRunChatConversation(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader("   \nformas de pagamento\n/name Ana\n/quit\n")

	err := runChat(context.Background(), in, &out, rulebook.Seed(), time.Millisecond, zap.NewNop())
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Bem-vindo ao LavaJato Mobile")
	assert.Contains(t, text, "PIX e transferência bancária")
	assert.Contains(t, text, "[Informações recebidas!] Obrigado, Ana!")
	assert.Contains(t, text, "Obrigado, Ana! Entraremos em contato em breve para confirmar")
	assert.Equal(t, 1, strings.Count(text, "..."))
}
