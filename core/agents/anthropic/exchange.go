// Package anthropic implements the remote agent boundary against an
// Anthropic-style messages API: one exchange streams assistant responses,
// executes requested tools locally and feeds their results back until the
// agent stops asking for tools.
package anthropic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/jinzhu/copier"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/voiceos-labs/voiceos-core/core/agents"
)

// DefaultModel is the model used when an exchange does not name one.
const DefaultModel = "claude-3-5-sonnet-20241022"

const (
	defaultBaseURL = "https://api.anthropic.com/v1/messages"
	apiVersion     = "2023-06-01"

	defaultMaxTokens = 4096

	chunkPrefix = "data:"

	eventContentBlockStart = "content_block_start"
	eventContentBlockDelta = "content_block_delta"
	eventContentBlockStop  = "content_block_stop"
	eventMessageDelta      = "message_delta"
	eventMessageStop       = "message_stop"
)

const defaultSystemPrompt = `You are a macOS assistant controlling the user's computer through the provided tools.
Prefer the simplest action that satisfies the request. When a System Note in the user's message says an action was already performed locally, do not repeat it.
Keep spoken-style responses short; they are read aloud to the user.`

// Client talks to an Anthropic-style messages endpoint.
type Client struct {
	apiKey       string
	baseURL      string
	systemPrompt string
	httpClient   *http.Client
}

type ClientOption func(*Client)

// WithBaseURL points the client at a different endpoint.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithSystemPrompt replaces the default base system prompt.
func WithSystemPrompt(prompt string) ClientOption {
	return func(c *Client) {
		c.systemPrompt = prompt
	}
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(apiKey string, opts ...ClientOption) *Client {
	client := &Client{
		apiKey:       apiKey,
		baseURL:      defaultBaseURL,
		systemPrompt: defaultSystemPrompt,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
				return operationName + " " + request.URL.Path
			}),
		)}
	}
	return client
}

// RunExchange runs one full exchange: it streams an assistant response for
// the given history, executes any requested tools, appends the tool results
// and repeats until the agent responds without tool use. Every produced turn
// is reported through the OnTurn committer before the exchange moves on, so
// an interrupted exchange leaves the caller holding exactly the turns that
// were completed. Cancellation is observed at the streaming and iteration
// boundaries; the returned error is ctx.Err() in that case.
func (c *Client) RunExchange(ctx context.Context, history []agents.Turn, opts ...agents.ExchangeOption) ([]agents.Turn, error) {
	ctx, span := tracer.Start(ctx, "run exchange")
	defer span.End()

	options := agents.ExchangeOptions{
		Model:     DefaultModel,
		MaxTokens: defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(&options)
	}

	span.SetAttributes(
		attribute.String("request.model", options.Model),
		attribute.Int("request.history_length", len(history)),
	)

	var tools []tool
	if options.Tools != nil {
		copier.Copy(&tools, options.Tools)
	}

	turns := slices.Clone(history)
	for {
		content, stopReason, err := c.streamMessage(ctx, turns, tools, options)
		if err != nil {
			err = fmt.Errorf("failed to stream response: %w", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return turns, err
		}

		assistantTurn := agents.NewAssistantTurn(content...)
		turns = append(turns, assistantTurn)
		if options.OnTurn != nil {
			options.OnTurn(assistantTurn)
		}

		if !assistantTurn.HasToolUse() {
			if stopReason != nil {
				span.SetAttributes(attribute.String("response.stop_reason", *stopReason))
			}
			return turns, nil
		}

		var results []agents.ContentBlock
		for _, block := range content {
			toolUse, ok := block.(agents.ToolUseBlock)
			if !ok {
				continue
			}
			result := executeTool(ctx, options.Tools, toolUse)
			if options.OnToolOutput != nil {
				options.OnToolOutput(toolUse.Name, result)
			}
			results = append(results, result)
		}

		toolTurn := agents.NewToolTurn(results...)
		turns = append(turns, toolTurn)
		if options.OnTurn != nil {
			options.OnTurn(toolTurn)
		}

		if err := ctx.Err(); err != nil {
			span.AddEvent("exchange cancelled between iterations")
			return turns, err
		}
	}
}

func executeTool(ctx context.Context, tools []agents.Tool, toolUse agents.ToolUseBlock) agents.ToolResultBlock {
	_, span := tracer.Start(ctx, "execute tool")
	defer span.End()
	span.SetAttributes(attribute.String("tool.name", toolUse.Name))

	for _, tool := range tools {
		if tool.Name != toolUse.Name {
			continue
		}
		output, err := tool.Execute(ctx, toolUse.Input)
		if err != nil {
			err = fmt.Errorf("failed to execute tool %q: %w", toolUse.Name, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return agents.ToolResultBlock{
				ToolUseID: toolUse.ID,
				Content:   err.Error(),
				IsError:   true,
			}
		}
		return agents.ToolResultBlock{
			ToolUseID: toolUse.ID,
			Content:   output.Text,
			Image:     output.Image,
		}
	}

	err := fmt.Errorf("tool not found: %s", toolUse.Name)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return agents.ToolResultBlock{
		ToolUseID: toolUse.ID,
		Content:   err.Error(),
		IsError:   true,
	}
}

type requestBody struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
	Tools     []tool    `json:"tools,omitempty"`
	Stream    bool      `json:"stream"`
}

type streamEvent struct {
	Type         string `json:"type"`
	Index        int    `json:"index"`
	ContentBlock *struct {
		Type  string          `json:"type"`
		ID    string          `json:"id"`
		Name  string          `json:"name"`
		Input json.RawMessage `json:"input"`
		Text  string          `json:"text"`
	} `json:"content_block,omitempty"`
	Delta *struct {
		Type        string  `json:"type"`
		Text        string  `json:"text"`
		PartialJSON string  `json:"partial_json"`
		StopReason  *string `json:"stop_reason"`
	} `json:"delta,omitempty"`
	Usage *struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// pendingBlock accumulates one content block across its start/delta/stop
// events.
type pendingBlock struct {
	blockType string
	id        string
	name      string
	text      strings.Builder
	inputJSON strings.Builder
	input     json.RawMessage
}

func (b *pendingBlock) finalize() agents.ContentBlock {
	switch b.blockType {
	case blockTypeToolUse:
		input := b.input
		if b.inputJSON.Len() > 0 {
			input = json.RawMessage(b.inputJSON.String())
		}
		return agents.ToolUseBlock{ID: b.id, Name: b.name, Input: input}
	default:
		return agents.TextBlock{Text: b.text.String()}
	}
}

// streamMessage issues one streaming request and assembles the response's
// content blocks, reporting each completed block through OnProgress. This is
// the exchange's suspension point: the request carries ctx and every scanned
// chunk checks it.
func (c *Client) streamMessage(ctx context.Context, turns []agents.Turn, tools []tool, options agents.ExchangeOptions) ([]agents.ContentBlock, *string, error) {
	ctx, span := tracer.Start(ctx, "stream message")
	defer span.End()

	requestToFirstTokenTime := time.Time{}
	setRequestToFirstTokenTime := func() {
		if requestToFirstTokenTime.IsZero() {
			return
		}
		span.SetAttributes(attribute.Float64("response.request_to_first_token_time", time.Since(requestToFirstTokenTime).Seconds()))
		span.AddEvent("received first chunk")
		requestToFirstTokenTime = time.Time{}
	}

	var toolNames []string
	for _, tool := range tools {
		toolNames = append(toolNames, tool.Name)
	}
	span.SetAttributes(attribute.StringSlice("request.available_tools", toolNames))

	system := c.systemPrompt
	if options.SystemPromptSuffix != "" {
		system = system + "\n" + options.SystemPromptSuffix
	}

	messages := toMessages(turns)
	if options.ImageRetentionLimit > 0 {
		messages = filterRecentImages(messages, options.ImageRetentionLimit)
	}

	reqBody := requestBody{
		Model:     options.Model,
		MaxTokens: options.MaxTokens,
		System:    system,
		Messages:  messages,
		Tools:     tools,
		Stream:    true,
	}

	requestBodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		err = fmt.Errorf("error marshalling JSON: %w", err)
		span.RecordError(err)
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		err = fmt.Errorf("error creating HTTP request: %w", err)
		span.RecordError(err)
		return nil, nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Anthropic-Version", apiVersion)

	span.SetAttributes(attribute.String("request.url", req.URL.String()))
	requestToFirstTokenTime = time.Now()
	span.AddEvent("request started")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		err = fmt.Errorf("error sending request: %w", err)
		span.RecordError(err)
		return nil, nil, err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		if errorBody, err := io.ReadAll(resp.Body); err == nil {
			span.SetAttributes(attribute.String("response.error", string(errorBody)))
		}
		err := fmt.Errorf("non-OK HTTP status: %s", resp.Status)
		span.RecordError(err)
		return nil, nil, err
	}

	var (
		content    []agents.ContentBlock
		pending    = map[int]*pendingBlock{}
		stopReason *string
	)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, chunkPrefix) {
			continue
		}
		chunk := strings.TrimSpace(strings.TrimPrefix(line, chunkPrefix))
		setRequestToFirstTokenTime()
		if len(chunk) == 0 {
			continue
		}

		var event streamEvent
		if err := json.Unmarshal([]byte(chunk), &event); err != nil {
			err = fmt.Errorf("error unmarshalling JSON: %w", err)
			span.RecordError(err)
			continue
		}

		switch event.Type {
		case eventContentBlockStart:
			block := &pendingBlock{}
			if event.ContentBlock != nil {
				block.blockType = event.ContentBlock.Type
				block.id = event.ContentBlock.ID
				block.name = event.ContentBlock.Name
				block.input = event.ContentBlock.Input
				block.text.WriteString(event.ContentBlock.Text)
			}
			pending[event.Index] = block

		case eventContentBlockDelta:
			block, ok := pending[event.Index]
			if !ok || event.Delta == nil {
				continue
			}
			block.text.WriteString(event.Delta.Text)
			block.inputJSON.WriteString(event.Delta.PartialJSON)

		case eventContentBlockStop:
			block, ok := pending[event.Index]
			if !ok {
				continue
			}
			delete(pending, event.Index)
			finalized := block.finalize()
			content = append(content, finalized)
			if options.OnProgress != nil {
				options.OnProgress(finalized)
			}

		case eventMessageDelta:
			if event.Delta != nil && event.Delta.StopReason != nil {
				stopReason = event.Delta.StopReason
			}
			if event.Usage != nil {
				span.SetAttributes(
					attribute.Int("usage.input", event.Usage.InputTokens),
					attribute.Int("usage.output", event.Usage.OutputTokens),
				)
			}

		case eventMessageStop:
			return content, stopReason, nil

		default:
			if event.Error != nil {
				err := fmt.Errorf("stream error: %s: %s", event.Error.Type, event.Error.Message)
				span.RecordError(err)
				return nil, nil, err
			}
		}
	}

	if err := scanner.Err(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		return nil, nil, fmt.Errorf("error reading streamed response: %w", err)
	}
	return nil, nil, fmt.Errorf("stream ended without message completion")
}
