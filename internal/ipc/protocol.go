// Package ipc implements the control socket of a running transcription.
//
// A run owns $XDG_RUNTIME_DIR/ytdown.sock while it is in flight. A second
// ytdown process sends one newline-terminated JSON Request per connection and
// reads one Response: "status" reports the run's state and latest part
// progress, "cancel" asks the run to stop after keeping the finished parts.
package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Control commands understood by a running transcription.
const (
	CommandStatus = "status"
	CommandCancel = "cancel"
)

// maxMessageBytes bounds one request or response line.
const maxMessageBytes = 64 * 1024

var errMessageTooLarge = errors.New("message exceeds size limit")

// Request is one control command.
type Request struct {
	Command string `json:"command"`
}

// Response answers a Request. State is the run's lifecycle state at the time
// the command was handled.
type Response struct {
	OK       bool      `json:"ok"`
	State    string    `json:"state,omitempty"`
	Message  string    `json:"message,omitempty"`
	Error    string    `json:"error,omitempty"`
	Progress *Progress `json:"progress,omitempty"`
}

// Progress is the latest per-part progress of the owning run.
type Progress struct {
	Ordinal    int    `json:"ordinal"`
	Total      int    `json:"total"`
	Characters int    `json:"characters"`
	Completed  int    `json:"completed"`
	ETA        string `json:"eta"`
}

// readMessage reads one line from r and decodes it into v. kind names the
// message in errors ("request" or "response").
func readMessage(r *bufio.Reader, v any, kind string) error {
	line, err := readLine(r)
	if err != nil {
		return fmt.Errorf("read %s: %w", kind, err)
	}
	if err := json.Unmarshal(line, v); err != nil {
		return fmt.Errorf("decode %s: %w", kind, err)
	}
	return nil
}

func readLine(r *bufio.Reader) ([]byte, error) {
	var line []byte
	for {
		chunk, err := r.ReadSlice('\n')
		line = append(line, chunk...)
		if len(line) > maxMessageBytes {
			return nil, errMessageTooLarge
		}
		switch {
		case err == nil:
			return line, nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		default:
			return nil, err
		}
	}
}

// writeMessage encodes v as one newline-terminated JSON line.
func writeMessage(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}
