// Package domain holds the value types shared by every layer of the
// orchestration core: requests, responses, configuration, the error
// taxonomy, and the event envelope.
package domain

import "strings"

// Role identifies the speaker of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a chat-shaped request. Content is either a single
// string or an ordered sequence of strings (joined with no separator when
// coerced to text); empty strings are dropped from a sequence at
// construction time.
type Message struct {
	Role    Role
	Content []string
}

// NewMessage builds a Message from a single content string.
func NewMessage(role Role, content string) Message {
	return Message{Role: Role(strings.TrimSpace(string(role))), Content: dropEmpty([]string{content})}
}

// NewMessageSequence builds a Message from an ordered content sequence.
func NewMessageSequence(role Role, content []string) Message {
	return Message{Role: Role(strings.TrimSpace(string(role))), Content: dropEmpty(content)}
}

// Text concatenates the message's content parts with no separator.
func (m Message) Text() string {
	return strings.Join(m.Content, "")
}

func dropEmpty(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ProviderRequest is the immutable request handed to a provider. Construct
// one via NewProviderRequest so the derived views stay consistent with the
// stored fields.
type ProviderRequest struct {
	Model       string
	Prompt      string
	Messages    []Message
	Options     map[string]interface{}
	Metadata    map[string]string
	MaxTokens   *int
	Temperature *float64
	TopP        *float64
	Stop        []string
	TimeoutS    float64

	promptText   string
	chatMessages []Message
}

// DefaultTimeoutSeconds is used when a request omits TimeoutS.
const DefaultTimeoutSeconds = 30.0

// ProviderRequestParams collects the constructor arguments for
// NewProviderRequest; zero values take their documented defaults.
type ProviderRequestParams struct {
	Model       string
	Prompt      string
	Messages    []Message
	Options     map[string]interface{}
	Metadata    map[string]string
	MaxTokens   *int
	Temperature *float64
	TopP        *float64
	Stop        []string
	TimeoutS    float64
}

// NewProviderRequest builds a ProviderRequest and precomputes its derived
// views (prompt_text, chat_messages) per spec §3.
func NewProviderRequest(p ProviderRequestParams) ProviderRequest {
	req := ProviderRequest{
		Model:       strings.TrimSpace(p.Model),
		Prompt:      p.Prompt,
		Messages:    normalizeMessages(p.Messages),
		Options:     p.Options,
		Metadata:    p.Metadata,
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
		TopP:        p.TopP,
		Stop:        normalizeStop(p.Stop),
		TimeoutS:    p.TimeoutS,
	}
	if req.TimeoutS <= 0 {
		req.TimeoutS = DefaultTimeoutSeconds
	}

	if trimmed := strings.TrimSpace(req.Prompt); trimmed != "" {
		req.promptText = trimmed
	} else {
		for _, m := range req.Messages {
			if m.Role == RoleUser {
				req.promptText = strings.TrimSpace(m.Text())
				break
			}
		}
	}

	if len(req.Messages) > 0 {
		req.chatMessages = req.Messages
	} else if req.promptText != "" {
		req.chatMessages = []Message{NewMessage(RoleUser, req.promptText)}
	}

	return req
}

// PromptText returns the cached prompt_text derived view.
func (r ProviderRequest) PromptText() string { return r.promptText }

// ChatMessages returns the cached chat_messages derived view.
func (r ProviderRequest) ChatMessages() []Message { return r.chatMessages }

func normalizeMessages(in []Message) []Message {
	out := make([]Message, 0, len(in))
	for _, m := range in {
		role := Role(strings.TrimSpace(string(m.Role)))
		content := dropEmpty(m.Content)
		out = append(out, Message{Role: role, Content: content})
	}
	return out
}

func normalizeStop(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		trimmed := strings.TrimSpace(s)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
