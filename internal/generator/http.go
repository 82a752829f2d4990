package generator

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
)

// HTTPGenerator forwards prompts to a self-hosted text-generation endpoint.
// The endpoint receives {"messages": [...]} and answers with a JSON document,
// plain text, or a text/event-stream / ndjson stream of chunks.
type HTTPGenerator struct {
	url    string
	client *http.Client
}

// replyFields are the JSON keys a reply may carry its text under, by priority.
var replyFields = [...]string{"text", "delta", "output", "message", "content"}

// sseFields are event-stream lines that never carry reply text.
var sseFields = [...]string{"event:", "id:", "retry:"}

func NewHTTPGenerator(url string, timeout time.Duration) *HTTPGenerator {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPGenerator{
		url:    strings.TrimSpace(url),
		client: &http.Client{Timeout: timeout},
	}
}

func (g *HTTPGenerator) Generate(ctx context.Context, req Request) (Completion, error) {
	text, err := g.post(ctx, req)
	if err != nil {
		return Completion{}, classify(ProviderHTTP, err)
	}
	return Completion{Text: text, Provider: ProviderHTTP}, nil
}

func (g *HTTPGenerator) post(ctx context.Context, req Request) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode prompt: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json, text/event-stream, application/x-ndjson, text/plain")

	res, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("post %s: %w", g.url, err)
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return "", &statusError{code: res.StatusCode, body: strings.TrimSpace(string(snippet))}
	}

	switch mediaType(res.Header.Get("Content-Type")) {
	case "text/event-stream", "application/x-ndjson":
		return readChunks(res.Body)
	default:
		return readDocument(res.Body)
	}
}

func mediaType(header string) string {
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return mt
}

// readDocument decodes a single-body reply. A JSON object must carry one of
// replyFields as a string; anything that is not a JSON object is the reply.
func readDocument(r io.Reader) (string, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read reply: %w", err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return "", fmt.Errorf("%w: empty body", errMalformedReply)
	}
	if body[0] != '{' {
		return string(body), nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return string(body), nil
	}
	text, ok := pickText(fields)
	if !ok {
		return "", fmt.Errorf("%w: no text field in %s", errMalformedReply, truncate(string(body), 200))
	}
	return text, nil
}

// readChunks concatenates the text of every chunk until the stream ends or
// sends [DONE]. A stream that yields no text is malformed.
func readChunks(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), 4<<20)

	var reply strings.Builder
	for scanner.Scan() {
		data, ok := chunkData(scanner.Text())
		if !ok {
			continue
		}
		if data == "[DONE]" {
			break
		}
		reply.WriteString(chunkText(data))
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read stream: %w", err)
	}
	if strings.TrimSpace(reply.String()) == "" {
		return "", fmt.Errorf("%w: stream carried no text", errMalformedReply)
	}
	return reply.String(), nil
}

// chunkData returns the payload of one stream line, or false for lines that
// carry none (blanks, comments, SSE metadata).
func chunkData(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || line[0] == ':' {
		return "", false
	}
	for _, f := range sseFields {
		if strings.HasPrefix(line, f) {
			return "", false
		}
	}
	if rest, ok := strings.CutPrefix(line, "data:"); ok {
		line = strings.TrimSpace(rest)
	}
	return line, line != ""
}

func chunkText(data string) string {
	if data[0] != '{' {
		return data
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(data), &fields); err != nil {
		return data
	}
	text, _ := pickText(fields)
	return text
}

func pickText(fields map[string]json.RawMessage) (string, bool) {
	for _, key := range replyFields {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s, true
		}
	}
	return "", false
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
