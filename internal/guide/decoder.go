package guide

import (
	"bytes"
	"encoding/json"
)

var (
	dataPrefix   = []byte("data: ")
	doneSentinel = []byte("[DONE]")
)

// Decoder turns raw completion stream bytes into content deltas. It buffers bytes rather
// than decoded text, so a multi-byte character split between two reads is reassembled
// before it is interpreted.
type Decoder struct {
	pending []byte
}

// Feed consumes the next chunk and returns the non-empty deltas carried by every line
// completed by it, in order. An unterminated tail is held back until a later chunk ends
// it.
func (d *Decoder) Feed(chunk []byte) []string {
	d.pending = append(d.pending, chunk...)

	var deltas []string
	rest := d.pending
	for {
		idx := bytes.IndexByte(rest, '\n')
		if idx < 0 {
			break
		}
		line := bytes.TrimSuffix(rest[:idx], []byte("\r"))
		rest = rest[idx+1:]

		if delta, ok := parseFrame(line); ok {
			deltas = append(deltas, delta)
		}
	}

	n := copy(d.pending, rest)
	d.pending = d.pending[:n]
	return deltas
}

// Pending reports how many bytes of an unterminated line are buffered.
func (d *Decoder) Pending() int {
	return len(d.pending)
}

// streamFrame holds only the path that carries text. Other fields of a chunk are never
// type-checked, so a provider that sends e.g. a numeric id still has its deltas kept.
type streamFrame struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// parseFrame extracts the first choice's delta content from a "data: " line. Comments,
// the [DONE] terminator, undecodable payloads and empty deltas all yield ok=false.
func parseFrame(line []byte) (string, bool) {
	if !bytes.HasPrefix(line, dataPrefix) {
		return "", false
	}
	payload := line[len(dataPrefix):]
	if bytes.Equal(payload, doneSentinel) {
		return "", false
	}

	var frame streamFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		return "", false
	}
	if len(frame.Choices) == 0 {
		return "", false
	}

	content := frame.Choices[0].Delta.Content
	if content == "" {
		return "", false
	}
	return content, true
}
