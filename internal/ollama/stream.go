// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
)

// =============================================================================
// CHUNK DECODING
// =============================================================================

// ChunkKind tags the outcome of decoding one stream chunk.
type ChunkKind int

const (
	// ChunkEmpty carries no extractable text. It contributes no fragment
	// but does not terminate the stream (unless Done is also set).
	ChunkEmpty ChunkKind = iota

	// ChunkParsed carries a text delta extracted from a JSON object.
	ChunkParsed

	// ChunkRawFallback carries a line that failed JSON parsing, emitted
	// verbatim after stripping any event-stream framing prefix.
	ChunkRawFallback
)

// DecodedChunk is the tagged result of decoding one line of the stream.
type DecodedChunk struct {
	Kind ChunkKind
	Text string
	Done bool
}

// eventStreamPrefix is the SSE framing marker some transports prepend.
const eventStreamPrefix = "data: "

// DecodeChunk decodes a single newline-delimited chunk according to the
// configured endpoint shape. A line that fails JSON parsing is returned as
// a raw fallback rather than an error, so the stream keeps going.
func DecodeChunk(line []byte, shape Shape) DecodedChunk {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return DecodedChunk{Kind: ChunkEmpty}
	}

	var (
		text string
		done bool
		err  error
	)
	switch shape {
	case ShapeGenerate:
		var chunk generateChunk
		err = json.Unmarshal(line, &chunk)
		text, done = chunk.Response, chunk.Done
	default:
		var chunk chatChunk
		err = json.Unmarshal(line, &chunk)
		text, done = chunk.Message.Content, chunk.Done
	}

	if err != nil {
		raw := strings.TrimPrefix(string(line), eventStreamPrefix)
		return DecodedChunk{Kind: ChunkRawFallback, Text: raw}
	}
	if text == "" {
		return DecodedChunk{Kind: ChunkEmpty, Done: done}
	}
	return DecodedChunk{Kind: ChunkParsed, Text: text, Done: done}
}

// =============================================================================
// STREAM READER
// =============================================================================

// StreamReader consumes a chunked response body line by line, decoding each
// chunk into text fragments and accumulating the full reply.
type StreamReader struct {
	reader *bufio.Reader
	shape  Shape

	// strings.Builder keeps accumulation linear in the reply length.
	accumulator strings.Builder
}

// NewStreamReader creates a stream reader for the given endpoint shape.
func NewStreamReader(r io.Reader, shape Shape) *StreamReader {
	return &StreamReader{
		reader: bufio.NewReader(r),
		shape:  shape,
	}
}

// Process reads the stream until the done flag, EOF, or context
// cancellation, invoking fn for each text fragment in transport order and
// once more with Done set when the stream ends cleanly.
//
// Cancellation aborts promptly between chunks and returns the context
// error; the accumulated text is then informational only.
func (s *StreamReader) Process(ctx context.Context, fn FragmentFunc) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := s.reader.ReadBytes('\n')
		if len(line) > 0 {
			chunk := DecodeChunk(line, s.shape)
			switch chunk.Kind {
			case ChunkParsed, ChunkRawFallback:
				s.accumulator.WriteString(chunk.Text)
				fn(Fragment{Text: chunk.Text})
			}
			if chunk.Done {
				fn(Fragment{Done: true})
				return nil
			}
		}

		if err != nil {
			if err == io.EOF {
				// Transport close ends the stream; treat as completion.
				fn(Fragment{Done: true})
				return nil
			}
			return err
		}
	}
}

// Accumulated returns the concatenation of all fragments so far. After a
// clean Process run this is the full assistant reply.
func (s *StreamReader) Accumulated() string {
	return s.accumulator.String()
}
