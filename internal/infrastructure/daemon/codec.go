package daemon

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/doeshing/askai-go/internal/ports"
)

// MaxMessageSize caps a single protocol line (256 KiB).
const MaxMessageSize = 256 * 1024

// Encoder writes one JSON value per line.
type Encoder struct {
	writer *bufio.Writer
	logger ports.Logger
}

// NewEncoder wraps w.
func NewEncoder(w io.Writer, logger ports.Logger) *Encoder {
	return &Encoder{writer: bufio.NewWriter(w), logger: logger}
}

// Encode writes v followed by a newline and flushes.
func (e *Encoder) Encode(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if len(data) > MaxMessageSize {
		e.logger.Error("message exceeds size limit", nil, map[string]interface{}{
			"size":  len(data),
			"limit": MaxMessageSize,
		})
		return fmt.Errorf("message size %d exceeds limit %d", len(data), MaxMessageSize)
	}
	if _, err := e.writer.Write(data); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := e.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	if err := e.writer.Flush(); err != nil {
		return fmt.Errorf("flush message: %w", err)
	}
	return nil
}

// Decoder reads one JSON value per line, skipping blank lines.
type Decoder struct {
	scanner *bufio.Scanner
	logger  ports.Logger
	line    int
}

// NewDecoder wraps r.
func NewDecoder(r io.Reader, logger ports.Logger) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), MaxMessageSize)
	return &Decoder{scanner: scanner, logger: logger}
}

// Decode reads the next message into v. io.EOF means the peer closed cleanly.
func (d *Decoder) Decode(v any) error {
	for {
		if !d.scanner.Scan() {
			if err := d.scanner.Err(); err != nil {
				return fmt.Errorf("read line %d: %w", d.line+1, err)
			}
			return io.EOF
		}
		d.line++
		data := d.scanner.Bytes()
		if len(data) == 0 {
			continue
		}
		if err := json.Unmarshal(data, v); err != nil {
			d.logger.Warn("malformed message", map[string]interface{}{
				"line":  d.line,
				"error": err.Error(),
				"data":  string(data[:min(100, len(data))]),
			})
			return fmt.Errorf("unmarshal line %d: %w", d.line, err)
		}
		return nil
	}
}
