package anthropic

import (
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseText(t *testing.T) {
	resp := &MessageResponse{
		Content: []ContentBlock{
			{Type: "text", Text: "hello "},
			{Type: "tool_use", Text: "ignored"},
			{Type: "text", Text: "world"},
		},
	}
	assert.Equal(t, "hello world", resp.Text())
}

func TestBuildCachedSystemBlocks(t *testing.T) {
	blocks := BuildCachedSystemBlocks("system prompt")
	require.Len(t, blocks, 1)
	assert.Equal(t, "system prompt", blocks[0].Text)
	require.NotNil(t, blocks[0].CacheControl)
	assert.Equal(t, "1h", blocks[0].CacheControl.TTL)
}

func TestToSDKParams(t *testing.T) {
	temp := 0.2
	req := MessageRequest{
		Model:     "test-model",
		MaxTokens: 2048,
		System:    BuildCachedSystemBlocks("sys"),
		Messages: []Message{
			{Role: "user", Content: "question"},
			{Role: "assistant", Content: "answer"},
		},
		Temperature: &temp,
	}

	params := toSDKParams(req)
	assert.Equal(t, sdk.Model("test-model"), params.Model)
	assert.Equal(t, int64(2048), params.MaxTokens)
	require.Len(t, params.Messages, 2)
	require.Len(t, params.System, 1)
	assert.Equal(t, "sys", params.System[0].Text)
	assert.Equal(t, sdk.CacheControlEphemeralTTL("1h"), params.System[0].CacheControl.TTL)
	assert.True(t, params.Temperature.Valid())
}

func TestFromSDKMessage(t *testing.T) {
	msg := &sdk.Message{
		ID:    "msg-1",
		Model: "test-model",
		Content: []sdk.ContentBlockUnion{
			{Type: "text", Text: "generated"},
		},
		StopReason: "end_turn",
	}
	msg.Usage.InputTokens = 100
	msg.Usage.OutputTokens = 50

	resp := fromSDKMessage(msg)
	assert.Equal(t, "msg-1", resp.ID)
	assert.Equal(t, "generated", resp.Text())
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, int64(100), resp.Usage.InputTokens)
	assert.Equal(t, int64(50), resp.Usage.OutputTokens)
}
