package domain

type ChatRole string

const (
	ChatRoleSystem    ChatRole = "system"
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is one entry of an agent's private generation history.
// Source carries the speaking role for assistant turns; it is not sent on
// the wire.
type ChatMessage struct {
	Role    ChatRole
	Source  string
	Content string
}

func SystemChatMessage(content string) ChatMessage {
	return ChatMessage{Role: ChatRoleSystem, Content: content}
}

func UserChatMessage(source, content string) ChatMessage {
	return ChatMessage{Role: ChatRoleUser, Source: source, Content: content}
}

func AssistantChatMessage(source, content string) ChatMessage {
	return ChatMessage{Role: ChatRoleAssistant, Source: source, Content: content}
}
