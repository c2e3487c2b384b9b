package session

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// StreamParser handles parsing of the Server-Sent Events completion stream.
// The upstream interleaves many event types; only text deltas and the stop
// sentinel matter here, and individually malformed payloads are skipped
// rather than aborting the read (a scan protocol, not an all-or-nothing
// parse).
type StreamParser struct {
	scanner *bufio.Scanner
}

// NewStreamParser creates a new stream parser.
func NewStreamParser(reader io.Reader) *StreamParser {
	scanner := bufio.NewScanner(reader)
	// Deltas are small but some metadata events carry whole message bodies.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &StreamParser{scanner: scanner}
}

// StreamChunk represents a single chunk from the stream.
type StreamChunk struct {
	Text string
	Done bool
}

// streamEvent is the upstream event envelope. Shape fixed by observation of
// the service, not by any published contract.
type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
}

// Next reads the next meaningful chunk from the stream. Done is set on the
// message_stop sentinel or on end of stream.
func (p *StreamParser) Next() (*StreamChunk, error) {
	for p.scanner.Scan() {
		line := p.scanner.Text()

		if !strings.HasPrefix(line, "data:") {
			continue
		}

		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))

		var event streamEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			// Skip invalid JSON payloads
			continue
		}

		switch event.Type {
		case "content_block_delta":
			if event.Delta.Type == "text_delta" && event.Delta.Text != "" {
				return &StreamChunk{Text: event.Delta.Text}, nil
			}
		case "message_stop":
			return &StreamChunk{Done: true}, nil
		}
	}

	if err := p.scanner.Err(); err != nil {
		return nil, err
	}

	// End of stream without a stop sentinel.
	return &StreamChunk{Done: true}, nil
}

// Accumulate folds the stream into the ordered concatenation of all text
// fragments, stopping at the stop sentinel. On a read error it returns the
// text gathered so far alongside the error, so a dropped connection still
// yields whatever the model produced.
func (p *StreamParser) Accumulate() (string, error) {
	var sb strings.Builder
	for {
		chunk, err := p.Next()
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(chunk.Text)
		if chunk.Done {
			return sb.String(), nil
		}
	}
}
