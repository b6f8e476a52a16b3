package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// Block is one entry of a rich-text body. The set of block types is open:
// the CMS may introduce new ones at any time.
type Block interface {
	// BlockType is the CMS `_type` tag.
	BlockType() string
	BlockKey() string
	// Kind is the rendering kind, e.g. "heading" or "list-item".
	Kind() string
}

// BlockDecoder turns the raw JSON of one block into a Block.
type BlockDecoder func(raw json.RawMessage) (Block, error)

var (
	blockMu       sync.RWMutex
	blockDecoders = map[string]BlockDecoder{
		"block": decodeTextBlock,
		"image": decodeImageBlock,
	}
)

// RegisterBlockType installs a decoder for a CMS block `_type`.
func RegisterBlockType(typ string, dec BlockDecoder) {
	blockMu.Lock()
	defer blockMu.Unlock()
	blockDecoders[typ] = dec
}

func lookupBlockDecoder(typ string) (BlockDecoder, bool) {
	blockMu.RLock()
	defer blockMu.RUnlock()
	dec, ok := blockDecoders[typ]
	return dec, ok
}

// Body is a rich-text document: a sequence of heterogeneous blocks.
type Body []Block

// UnmarshalJSON dispatches every element on its `_type`. Blocks of unknown
// type, or known blocks that fail to decode, become *UnknownBlock so one odd
// block never fails the whole document.
func (b *Body) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*b = nil
		return nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return fmt.Errorf("failed to decode body: %w", err)
	}

	out := make(Body, 0, len(raws))
	for _, raw := range raws {
		out = append(out, decodeBlock(raw))
	}
	*b = out
	return nil
}

func decodeBlock(raw json.RawMessage) Block {
	var head struct {
		Type string `json:"_type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return newUnknownBlock("", raw)
	}
	dec, ok := lookupBlockDecoder(head.Type)
	if !ok {
		return newUnknownBlock(head.Type, raw)
	}
	blk, err := dec(raw)
	if err != nil || blk == nil {
		return newUnknownBlock(head.Type, raw)
	}
	return blk
}

// Span is an inline run of text inside a TextBlock.
type Span struct {
	Type  string   `json:"_type"`
	Key   string   `json:"_key,omitempty"`
	Text  string   `json:"text"`
	Marks []string `json:"marks,omitempty"`
}

// MarkDef defines an annotation referenced from Span.Marks by key.
type MarkDef struct {
	Type  string `json:"_type"`
	Key   string `json:"_key"`
	Href  string `json:"href,omitempty"`
	Blank bool   `json:"blank,omitempty"`
}

// TextBlock covers paragraphs, headings, quotes and list items.
type TextBlock struct {
	Type     string    `json:"_type"`
	Key      string    `json:"_key,omitempty"`
	Style    string    `json:"style,omitempty"`
	ListItem string    `json:"listItem,omitempty"`
	Level    int       `json:"level,omitempty"`
	Children []Span    `json:"children"`
	MarkDefs []MarkDef `json:"markDefs,omitempty"`
}

func decodeTextBlock(raw json.RawMessage) (Block, error) {
	var tb TextBlock
	if err := json.Unmarshal(raw, &tb); err != nil {
		return nil, err
	}
	return &tb, nil
}

func (b *TextBlock) BlockType() string { return b.Type }
func (b *TextBlock) BlockKey() string  { return b.Key }

func (b *TextBlock) Kind() string {
	if b.ListItem != "" {
		return "list-item"
	}
	switch b.Style {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return "heading"
	case "blockquote":
		return "blockquote"
	default:
		return "paragraph"
	}
}

// MarkDef returns the annotation with the given key.
func (b *TextBlock) MarkDef(key string) (MarkDef, bool) {
	for _, md := range b.MarkDefs {
		if md.Key == key {
			return md, true
		}
	}
	return MarkDef{}, false
}

// PlainText concatenates the text of all spans.
func (b *TextBlock) PlainText() string {
	var sb strings.Builder
	for _, s := range b.Children {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// ImageBlock is an inline image.
type ImageBlock struct {
	Type    string `json:"_type"`
	Key     string `json:"_key,omitempty"`
	Asset   Asset  `json:"asset"`
	Alt     string `json:"alt,omitempty"`
	Caption string `json:"caption,omitempty"`
}

func decodeImageBlock(raw json.RawMessage) (Block, error) {
	var ib ImageBlock
	if err := json.Unmarshal(raw, &ib); err != nil {
		return nil, err
	}
	return &ib, nil
}

func (b *ImageBlock) BlockType() string { return b.Type }
func (b *ImageBlock) BlockKey() string  { return b.Key }
func (b *ImageBlock) Kind() string      { return "image" }

// UnknownBlock preserves a block this application has no decoder for.
type UnknownBlock struct {
	Type string
	Key  string
	Raw  json.RawMessage
}

func newUnknownBlock(typ string, raw json.RawMessage) *UnknownBlock {
	ub := &UnknownBlock{Type: typ, Raw: append(json.RawMessage(nil), raw...)}
	var head struct {
		Key string `json:"_key"`
	}
	if json.Unmarshal(raw, &head) == nil {
		ub.Key = head.Key
	}
	return ub
}

func (b *UnknownBlock) BlockType() string { return b.Type }
func (b *UnknownBlock) BlockKey() string  { return b.Key }
func (b *UnknownBlock) Kind() string      { return b.Type }

// MarshalJSON writes the block back exactly as it was received.
func (b *UnknownBlock) MarshalJSON() ([]byte, error) {
	if len(b.Raw) == 0 {
		return []byte("null"), nil
	}
	return b.Raw, nil
}

// PlainText extracts span text if the block carries portable-text children.
func (b *UnknownBlock) PlainText() string {
	var body struct {
		Children []Span `json:"children"`
		Text     string `json:"text"`
	}
	if err := json.Unmarshal(b.Raw, &body); err != nil {
		return ""
	}
	if len(body.Children) == 0 {
		return body.Text
	}
	var sb strings.Builder
	for _, s := range body.Children {
		sb.WriteString(s.Text)
	}
	return sb.String()
}
