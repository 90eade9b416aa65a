package maelstrom

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// maxLineSize is the maximum accepted size of a single framed message.
const maxLineSize = 1024 * 1024

// DecodeError indicates a received line could not be parsed as a message.
// The underlying stream is still intact so the caller may skip the line and
// keep reading.
type DecodeError struct {
	Line string

	err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode message: %s: %s", e.Line, e.err.Error())
}

func (e *DecodeError) Unwrap() error {
	return e.err
}

// Reader reads newline-delimited JSON messages, one message per line.
type Reader struct {
	scanner *bufio.Scanner
}

func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader{
		scanner: scanner,
	}
}

// Read returns the next message on the stream. Returns io.EOF once the
// stream is closed, or a *DecodeError if the next line is not a valid
// message.
func (r *Reader) Read() (Message, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return Message{}, fmt.Errorf("read line: %w", err)
		}
		return Message{}, io.EOF
	}

	line := r.scanner.Bytes()
	var msg Message
	if err := json.Unmarshal(line, &msg); err != nil {
		return Message{}, &DecodeError{
			Line: string(line),
			err:  err,
		}
	}
	return msg, nil
}

// Writer writes messages as newline-terminated JSON, one message per line.
//
// Writer is safe for concurrent use.
type Writer struct {
	w *bufio.Writer

	// mu guards w and serializes whole messages so concurrent writers
	// cannot interleave partial lines.
	mu sync.Mutex
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{
		w: bufio.NewWriter(w),
	}
}

func (w *Writer) Write(msgs ...Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, msg := range msgs {
		b, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal message: %w", err)
		}
		if _, err := w.w.Write(b); err != nil {
			return fmt.Errorf("write message: %w", err)
		}
		if err := w.w.WriteByte('\n'); err != nil {
			return fmt.Errorf("write message: %w", err)
		}
	}
	return w.w.Flush()
}
