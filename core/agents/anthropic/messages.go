package anthropic

import (
	"encoding/json"

	"github.com/invopop/jsonschema"

	"github.com/voiceos-labs/voiceos-core/core/agents"
)

type message struct {
	Role    messageRole    `json:"role"`
	Content []contentBlock `json:"content"`
}

type messageRole string

const (
	messageRoleUser      messageRole = "user"
	messageRoleAssistant messageRole = "assistant"
)

// contentBlock is the wire-level union of all block shapes. Which fields are
// populated depends on Type.
type contentBlock struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string         `json:"tool_use_id,omitempty"`
	Content   []contentBlock `json:"content,omitempty"`
	IsError   bool           `json:"is_error,omitempty"`

	// image
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

const (
	blockTypeText       = "text"
	blockTypeToolUse    = "tool_use"
	blockTypeToolResult = "tool_result"
	blockTypeImage      = "image"
)

type tool struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"input_schema"`
}

func imageBlock(img agents.ImageBlock) contentBlock {
	return contentBlock{
		Type: blockTypeImage,
		Source: &imageSource{
			Type:      "base64",
			MediaType: img.MediaType,
			Data:      img.Data,
		},
	}
}

// toMessages flattens history turns into wire messages. The protocol only
// knows user and assistant roles, so tool turns travel as user messages
// carrying tool_result blocks.
func toMessages(turns []agents.Turn) []message {
	messages := []message{}
	for _, turn := range turns {
		var role messageRole
		switch turn.Role {
		case agents.RoleAssistant:
			role = messageRoleAssistant
		default:
			role = messageRoleUser
		}

		msg := message{Role: role}
		for _, block := range turn.Content {
			switch block := block.(type) {
			case agents.TextBlock:
				msg.Content = append(msg.Content, contentBlock{
					Type: blockTypeText,
					Text: block.Text,
				})
			case agents.ToolUseBlock:
				msg.Content = append(msg.Content, contentBlock{
					Type:  blockTypeToolUse,
					ID:    block.ID,
					Name:  block.Name,
					Input: block.Input,
				})
			case agents.ToolResultBlock:
				result := contentBlock{
					Type:      blockTypeToolResult,
					ToolUseID: block.ToolUseID,
					IsError:   block.IsError,
				}
				if block.Content != "" {
					result.Content = append(result.Content, contentBlock{
						Type: blockTypeText,
						Text: block.Content,
					})
				}
				if block.Image != nil {
					result.Content = append(result.Content, imageBlock(*block.Image))
				}
				msg.Content = append(msg.Content, result)
			case agents.ImageBlock:
				msg.Content = append(msg.Content, imageBlock(block))
			}
		}
		if len(msg.Content) > 0 {
			messages = append(messages, msg)
		}
	}
	return messages
}

// filterRecentImages strips all but the keep most recent image blocks from
// the outgoing messages, both standalone and nested inside tool results.
// Older screenshots carry little signal once the screen has moved on, and
// they dominate request size.
func filterRecentImages(messages []message, keep int) []message {
	total := 0
	for _, msg := range messages {
		for _, block := range msg.Content {
			total += countImages(block)
		}
	}
	toRemove := total - keep
	if toRemove <= 0 {
		return messages
	}

	filtered := make([]message, 0, len(messages))
	for _, msg := range messages {
		content := make([]contentBlock, 0, len(msg.Content))
		for _, block := range msg.Content {
			block, removed := dropImages(block, toRemove)
			toRemove -= removed
			if block != nil {
				content = append(content, *block)
			}
		}
		msg.Content = content
		if len(msg.Content) > 0 {
			filtered = append(filtered, msg)
		}
	}
	return filtered
}

func countImages(block contentBlock) int {
	if block.Type == blockTypeImage {
		return 1
	}
	count := 0
	for _, nested := range block.Content {
		count += countImages(nested)
	}
	return count
}

// dropImages removes up to limit image blocks from the given block, walking
// nested tool-result content. It returns the surviving block (nil if the
// block itself was an image that got dropped) and how many were removed.
func dropImages(block contentBlock, limit int) (*contentBlock, int) {
	if limit <= 0 {
		return &block, 0
	}
	if block.Type == blockTypeImage {
		return nil, 1
	}
	if len(block.Content) == 0 {
		return &block, 0
	}

	removed := 0
	content := make([]contentBlock, 0, len(block.Content))
	for _, nested := range block.Content {
		kept, n := dropImages(nested, limit-removed)
		removed += n
		if kept != nil {
			content = append(content, *kept)
		}
	}
	block.Content = content
	return &block, removed
}
