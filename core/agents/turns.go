// Package agents defines the conversation model exchanged with a remote
// reasoning agent: role-tagged turns made of typed content blocks, the tools
// the agent may invoke, and the options accepted by an exchange.
package agents

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// Role describes who a turn is from.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Turn is a single entry in the conversation history. Turns are never mutated
// after creation, only appended to or removed from the history.
type Turn struct {
	ID      string
	Role    Role
	Content []ContentBlock
}

// ContentBlock is one typed piece of a turn's content. The variant set is
// closed: text, tool use, tool result, image.
type ContentBlock interface {
	contentBlock()
}

// TextBlock is plain prose.
type TextBlock struct {
	Text string
}

// ToolUseBlock is the agent requesting a tool invocation. Input is the raw
// JSON argument object as produced by the agent.
type ToolUseBlock struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// ToolResultBlock carries the outcome of a tool invocation back to the agent.
// Image is set when the tool produced a screenshot alongside its text output.
type ToolResultBlock struct {
	ToolUseID string
	Content   string
	IsError   bool
	Image     *ImageBlock
}

// ImageBlock is a base64-encoded image, typically a screenshot taken by a
// tool.
type ImageBlock struct {
	MediaType string
	Data      string
}

func (TextBlock) contentBlock()       {}
func (ToolUseBlock) contentBlock()    {}
func (ToolResultBlock) contentBlock() {}
func (ImageBlock) contentBlock()      {}

func newTurn(role Role, content []ContentBlock) Turn {
	return Turn{ID: uuid.NewString(), Role: role, Content: content}
}

// NewUserTurn builds a user turn from the given blocks.
func NewUserTurn(content ...ContentBlock) Turn {
	return newTurn(RoleUser, content)
}

// NewAssistantTurn builds an assistant turn from the given blocks.
func NewAssistantTurn(content ...ContentBlock) Turn {
	return newTurn(RoleAssistant, content)
}

// NewToolTurn builds a tool turn carrying one or more tool results.
func NewToolTurn(content ...ContentBlock) Turn {
	return newTurn(RoleTool, content)
}

// HasToolUse reports whether the turn requests any tool invocation. An
// assistant turn for which this holds must be followed by a tool turn
// resolving it before the next user turn.
func (t Turn) HasToolUse() bool {
	for _, block := range t.Content {
		if _, ok := block.(ToolUseBlock); ok {
			return true
		}
	}
	return false
}

// Text joins the turn's text blocks into one string.
func (t Turn) Text() string {
	var b strings.Builder
	for _, block := range t.Content {
		if text, ok := block.(TextBlock); ok {
			b.WriteString(text.Text)
		}
	}
	return b.String()
}
