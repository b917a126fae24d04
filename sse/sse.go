// Package sse implements the line-framing and timeout machinery shared by
// every LLM provider's Stream implementation (spec.md §5.3): SSE "data:"
// framing with "[DONE]" termination, NDJSON line framing, tiered timeouts,
// and a parse-error circuit breaker.
//
// Grounded in original_source/core/src/llm/*.rs's streaming response
// handling (no teacher equivalent — the teacher has no LLM streaming
// surface at all). ReadSSE and ReadNDJSON never close the frames channel
// they write to: the caller owns it and closes it once the reader returns.
package sse

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ravel-run/agentgraph/llm"
)

// Frame is one decoded event, either an SSE "data:" payload or an NDJSON
// line, handed to the caller's decode function.
type Frame struct {
	Data string
	Done bool // true for SSE's literal "[DONE]" sentinel
}

// ErrChunkTimeout is returned when no frame arrives within llm.ChunkTimeout
// of the previous one. Translated from original_source's per-chunk
// `timeout(CHUNK_TIMEOUT, byte_stream.next())` race: once it fires, the
// frame loop halts for good and returns this error rather than looping
// back to read again — the same latched, non-resuming behavior the
// consecutive-parse-error breaker uses.
var ErrChunkTimeout = fmt.Errorf("stream chunk timeout after %s - response may be incomplete", llm.ChunkTimeout)

// scanLine is one result from the background scanner goroutine: either a
// decoded line, or the terminal scanner error/EOF.
type scanLine struct {
	text string
	err  error
	done bool
}

// scanWithChunkTimeout runs a line-oriented Scanner in the background and
// races each successive line against timeout, so a connection that goes
// quiet mid-stream is detected instead of hanging until ctx's overall
// deadline (if any). The scan goroutine is intentionally left running past
// a timeout/cancellation return since the underlying reader gives us no
// way to interrupt a blocked read; it exits on its own once the reader
// unblocks (EOF, or the caller closing the response body). Production
// callers always pass llm.ChunkTimeout; ReadSSE/ReadNDJSON's tests call
// this directly with a short duration to exercise the timeout path.
func scanWithChunkTimeout(ctx context.Context, r io.Reader, timeout time.Duration, emit func(line string) (done bool, err error)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lines := make(chan scanLine, 1)
	go func() {
		for scanner.Scan() {
			lines <- scanLine{text: scanner.Text()}
		}
		lines <- scanLine{err: scanner.Err(), done: true}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return ErrChunkTimeout
		case ln := <-lines:
			if ln.done {
				return ln.err
			}
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(timeout)
			stop, err := emit(ln.text)
			if err != nil || stop {
				return err
			}
		}
	}
}

// ReadSSE scans r for Server-Sent-Events "data: ..." lines, emitting one
// Frame per event (blank-line-terminated, per the SSE spec) until EOF, a
// "[DONE]" sentinel, ctx cancellation, or a chunk inactivity timeout
// (ErrChunkTimeout). Lines that aren't "data:" are ignored (comments, other
// fields) rather than treated as errors.
func ReadSSE(ctx context.Context, r io.Reader, frames chan<- Frame) error {
	return scanWithChunkTimeout(ctx, r, llm.ChunkTimeout, func(line string) (bool, error) {
		if !strings.HasPrefix(line, "data:") {
			return false, nil
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			return false, nil
		}
		if payload == "[DONE]" {
			frames <- Frame{Done: true}
			return true, nil
		}
		select {
		case frames <- Frame{Data: payload}:
			return false, nil
		case <-ctx.Done():
			return true, ctx.Err()
		}
	})
}

// ReadNDJSON scans r for newline-delimited JSON objects, emitting one
// Frame per line. Ollama's convention of a trailing {"done":true} object
// is surfaced as a normal Frame; callers detect completion themselves by
// inspecting the decoded payload, since NDJSON has no out-of-band sentinel
// the way SSE's "[DONE]" is. Subject to the same chunk inactivity timeout
// as ReadSSE.
func ReadNDJSON(ctx context.Context, r io.Reader, frames chan<- Frame) error {
	return scanWithChunkTimeout(ctx, r, llm.ChunkTimeout, func(line string) (bool, error) {
		line = strings.TrimSpace(line)
		if line == "" {
			return false, nil
		}
		select {
		case frames <- Frame{Data: line}:
			return false, nil
		case <-ctx.Done():
			return true, ctx.Err()
		}
	})
}

// ParseErrorBreaker aborts a stream after MaxConsecutiveParseErrors
// consecutive frame-decode failures, rather than looping forever on a
// malformed feed.
type ParseErrorBreaker struct {
	consecutive int
}

// RecordParseError returns true once the consecutive-failure count has hit
// llm.MaxConsecutiveParseErrors.
func (b *ParseErrorBreaker) RecordParseError() bool {
	b.consecutive++
	return b.consecutive >= llm.MaxConsecutiveParseErrors
}

func (b *ParseErrorBreaker) RecordParseSuccess() {
	b.consecutive = 0
}

// DialTimeoutError wraps a connection-phase timeout with a consistent
// message so every provider reports it the same way.
func DialTimeoutError(provider string) error {
	return fmt.Errorf("%s: connection timed out after %s", provider, llm.ConnectionTimeout)
}

// ErrorBodyWithTimeout reads up to llm.ErrorBodyTimeout worth of an error
// response body, returning whatever was read even on timeout so callers
// can still surface a partial message instead of nothing.
func ErrorBodyWithTimeout(ctx context.Context, r io.Reader) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, llm.ErrorBodyTimeout)
	defer cancel()

	type result struct {
		body string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := io.ReadAll(r)
		done <- result{body: string(data), err: err}
	}()

	select {
	case res := <-done:
		return res.body, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Deadline is a small helper so providers can compute an absolute deadline
// for the connection phase without each re-deriving it from
// llm.ConnectionTimeout.
func Deadline() time.Time {
	return time.Now().Add(llm.ConnectionTimeout)
}
