package main

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	defaultSSEEvent = "message"
	sseDoneSentinel = "[DONE]"
)

var (
	sseBlockSeparator = regexp.MustCompile(`\r?\n\r?\n`)
	lineSeparator     = regexp.MustCompile(`\r?\n`)
)

// SSEEvent is a single dispatched server-sent event.
type SSEEvent struct {
	Event string
	Data  string
}

// parseSSE splits body into blank-line delimited blocks and returns one event
// for every block that carried at least one data line.
func parseSSE(body string) []SSEEvent {
	var events []SSEEvent

	for _, block := range sseBlockSeparator.Split(body, -1) {
		if strings.TrimSpace(block) == "" {
			continue
		}

		eventType := defaultSSEEvent
		var dataLines []string
		for _, line := range lineSeparator.Split(block, -1) {
			if line == "" || strings.HasPrefix(line, ":") {
				continue
			}
			field, value, _ := strings.Cut(line, ":")
			value = strings.TrimPrefix(value, " ")

			switch field {
			case "event":
				eventType = value
			case "data":
				dataLines = append(dataLines, value)
			}
		}

		if len(dataLines) > 0 {
			events = append(events, SSEEvent{
				Event: eventType,
				Data:  strings.Join(dataLines, "\n"),
			})
		}
	}

	return events
}

// extractText returns the trimmed, non-empty text entries of a tools/call
// result. Anything that is not valid JSON yields nothing.
func extractText(payload string) []string {
	if !gjson.Valid(payload) {
		return nil
	}
	content := gjson.Get(payload, "result.content")
	if !content.IsArray() {
		return nil
	}

	var texts []string
	content.ForEach(func(_, item gjson.Result) bool {
		kind := item.Get("type")
		text := item.Get("text")
		if kind.Type != gjson.String || kind.Str != "text" || text.Type != gjson.String {
			return true
		}
		if trimmed := strings.TrimSpace(text.Str); trimmed != "" {
			texts = append(texts, trimmed)
		}
		return true
	})
	return texts
}

// parseResponseBody extracts text from either an SSE stream or a single JSON
// document. It never fails: when nothing can be extracted the raw body is
// returned as the only element.
func parseResponseBody(body string) []string {
	events := parseSSE(body)
	if len(events) == 0 {
		if texts := extractText(body); len(texts) > 0 {
			return texts
		}
		return []string{body}
	}

	var texts []string
	for _, evt := range events {
		if evt.Data == sseDoneSentinel {
			continue
		}
		texts = append(texts, extractText(evt.Data)...)
	}
	if len(texts) > 0 {
		return texts
	}
	return []string{body}
}
