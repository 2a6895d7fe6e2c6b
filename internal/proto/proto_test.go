package proto

import (
	"testing"

	"github.com/charmbracelet/x/exp/golden"
	"github.com/stretchr/testify/require"
)

func TestConversationString(t *testing.T) {
	convo := Conversation{
		{Role: RoleSystem, Content: "you are a campaign assistant"},
		{Role: RoleUser, Content: "How many campaigns are active?"},
		{
			Role: RoleAssistant,
			ToolCalls: []ToolCall{{
				ID:       "call_1",
				Function: Function{Name: "scope3_list_campaigns", Arguments: []byte(`{}`)},
			}},
		},
		{
			Role:      RoleTool,
			Content:   `{"campaigns": 3}`,
			ToolCalls: []ToolCall{{ID: "call_1", Function: Function{Name: "scope3_list_campaigns"}}},
		},
		{Role: RoleAssistant, Content: "You have 3 active campaigns."},
		{Role: RoleUser, Content: "thanks!"},
		{Role: RoleAssistant, Content: "Anytime."},
	}

	golden.RequireEqual(t, []byte(convo.String()))
}

func TestLastAssistantText(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		require.Empty(t, LastAssistantText(nil))
	})

	t.Run("no assistant", func(t *testing.T) {
		messages := []Message{{Role: RoleUser, Content: "hi"}}
		require.Empty(t, LastAssistantText(messages))
	})

	t.Run("last wins", func(t *testing.T) {
		messages := []Message{
			{Role: RoleAssistant, Content: "first"},
			{Role: RoleUser, Content: "again"},
			{Role: RoleAssistant, Content: "second"},
		}
		require.Equal(t, "second", LastAssistantText(messages))
	})
}
