package agentwire

import "encoding/json"

// OpenAI Realtime event types the proxy maps the agent protocol onto.
// The proxy keeps JSON on text frames and raw PCM on binary frames; the
// binary channel never carries JSON-encoded events.
const (
	OpenAISessionUpdate          = "session.update"
	OpenAIConversationItemCreate = "conversation.item.create"
	OpenAIResponseCreate         = "response.create"
	OpenAIResponseDone           = "response.done"
)

// OpenAIContentPart is one part of a conversation item's content.
type OpenAIContentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// OpenAIConversationItem is the item payload of conversation.item.create.
// On reconnect the proxy replays prior turns as these items so the session
// keeps its context.
type OpenAIConversationItem struct {
	Type    string              `json:"type"`
	Role    string              `json:"role"`
	Content []OpenAIContentPart `json:"content"`
}

// OpenAIConversationItemCreateEvent is the full conversation.item.create event.
type OpenAIConversationItemCreateEvent struct {
	Type string                 `json:"type"`
	Item OpenAIConversationItem `json:"item"`
}

// NewConversationItem builds a conversation.item.create event for one
// transcript turn.
func NewConversationItem(role, text string) OpenAIConversationItemCreateEvent {
	return OpenAIConversationItemCreateEvent{
		Type: OpenAIConversationItemCreate,
		Item: OpenAIConversationItem{
			Type: "message",
			Role: role,
			Content: []OpenAIContentPart{
				{Type: "input_text", Text: text},
			},
		},
	}
}

// OpenAISessionUpdateEvent configures the realtime session.
type OpenAISessionUpdateEvent struct {
	Type    string          `json:"type"`
	Session json.RawMessage `json:"session"`
}

// OpenAIResponseCreateEvent asks the model to produce a response.
type OpenAIResponseCreateEvent struct {
	Type string `json:"type"`
}

// ItemText flattens the text content of a conversation item.
func (it OpenAIConversationItem) ItemText() string {
	var out string
	for _, part := range it.Content {
		out += part.Text
	}
	return out
}
