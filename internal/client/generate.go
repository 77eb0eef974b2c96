package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/benvon/smart-calendar/internal/models"
)

// generateChunk is one object of a generation response. Streaming backends
// send one per line.
type generateChunk struct {
	Response *string `json:"response"`
	Done     bool    `json:"done"`
}

// Generate asks the backend's assistant endpoint for a reply to prompt
func (c *Client) Generate(ctx context.Context, prompt string, history []models.ChatMessage) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("prompt is required")
	}
	var raw []byte
	req := models.GenerateRequest{Prompt: prompt, History: history}
	if err := c.do(ctx, http.MethodPost, pathGenerate, req, &raw, "assistant.generate"); err != nil {
		return "", err
	}
	return ParseGenerateBody(raw), nil
}

// ParseGenerateBody turns a generation response into text. It accepts a single
// {"response": ...} object, newline-delimited chunks of that shape, or plain
// text.
func ParseGenerateBody(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}
	if trimmed[0] != '{' {
		return string(trimmed)
	}

	var single generateChunk
	if err := json.Unmarshal(trimmed, &single); err == nil && single.Response != nil {
		return *single.Response
	}

	var sb strings.Builder
	matched := false
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	scanner.Buffer(make([]byte, 0, 64*1024), maxBodyBytes)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		line = bytes.TrimPrefix(line, []byte("data:"))
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var chunk generateChunk
		if err := json.Unmarshal(line, &chunk); err != nil || chunk.Response == nil {
			continue
		}
		matched = true
		sb.WriteString(*chunk.Response)
		if chunk.Done {
			break
		}
	}
	if !matched {
		return string(trimmed)
	}
	return sb.String()
}
