package types

import (
	"encoding/json"
	"fmt"
)

// SegmentType discriminates the content segment variants on the wire.
type SegmentType string

const (
	SegmentText       SegmentType = "text"
	SegmentToolUse    SegmentType = "tool_use"
	SegmentToolResult SegmentType = "tool_result"
)

// ContentSegment is one typed unit of a message's payload. The variant set
// is closed: Text, ToolUse and ToolResult. Deserialization fails on an
// unknown type tag instead of silently degrading to text.
type ContentSegment interface {
	SegmentType() SegmentType

	// sealed prevents variants outside this package, keeping
	// serialization matching exhaustive.
	sealed()
}

// Text is a plain text segment.
type Text struct {
	Text string `json:"text"`
}

func (Text) SegmentType() SegmentType { return SegmentText }
func (Text) sealed()                  {}

// MarshalJSON adds the type discriminator.
func (t Text) MarshalJSON() ([]byte, error) {
	type alias Text
	return json.Marshal(struct {
		Type SegmentType `json:"type"`
		alias
	}{SegmentText, alias(t)})
}

// ToolUse is a tool invocation request emitted by the model.
type ToolUse struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input,omitempty"`
}

func (ToolUse) SegmentType() SegmentType { return SegmentToolUse }
func (ToolUse) sealed()                  {}

func (u ToolUse) MarshalJSON() ([]byte, error) {
	type alias ToolUse
	return json.Marshal(struct {
		Type SegmentType `json:"type"`
		alias
	}{SegmentToolUse, alias(u)})
}

// ToolResult carries the outcome of a tool invocation back to the model.
type ToolResult struct {
	ToolUseID string `json:"tool_use_id"`
	Content   []Text `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

func (ToolResult) SegmentType() SegmentType { return SegmentToolResult }
func (ToolResult) sealed()                  {}

func (r ToolResult) MarshalJSON() ([]byte, error) {
	type alias ToolResult
	return json.Marshal(struct {
		Type SegmentType `json:"type"`
		alias
	}{SegmentToolResult, alias(r)})
}

// Segments is an ordered sequence of content segments with polymorphic
// JSON decoding keyed on the "type" field.
type Segments []ContentSegment

// UnmarshalJSON decodes each element by its type tag. An unrecognized tag
// is an error.
func (s *Segments) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}

	out := make(Segments, 0, len(raws))
	for i, raw := range raws {
		var head struct {
			Type SegmentType `json:"type"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			return fmt.Errorf("content segment %d: %w", i, err)
		}

		switch head.Type {
		case SegmentText:
			var t Text
			if err := json.Unmarshal(raw, &t); err != nil {
				return fmt.Errorf("content segment %d: %w", i, err)
			}
			out = append(out, t)
		case SegmentToolUse:
			var u ToolUse
			if err := json.Unmarshal(raw, &u); err != nil {
				return fmt.Errorf("content segment %d: %w", i, err)
			}
			out = append(out, u)
		case SegmentToolResult:
			var r ToolResult
			if err := json.Unmarshal(raw, &r); err != nil {
				return fmt.Errorf("content segment %d: %w", i, err)
			}
			out = append(out, r)
		default:
			return fmt.Errorf("content segment %d: unknown type %q", i, head.Type)
		}
	}

	*s = out
	return nil
}
