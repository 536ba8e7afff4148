package http11

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

var (
	ErrMalformedRequestLine = errors.New("http11: malformed request line")
	ErrMalformedHeader      = errors.New("http11: malformed header line")
	ErrBadPreface           = errors.New("http11: bad HTTP/2 connection preface")
)

// prefaceTail is what follows "PRI * HTTP/2.0\r\n" in the client preface.
const prefaceTail = "\r\nSM\r\n\r\n"

// Request is an HTTP/1.1 message head. The h2 client preface parses as a
// request with method PRI.
type Request struct {
	Method   string
	Path     string
	Protocol string

	Headers map[string]string
}

type h1ParsingState int

const (
	method h1ParsingState = iota
	headers
	end
)

// Marshal writes the head with headers in name order.
func (h1 Request) Marshal() []byte {
	var buf bytes.Buffer

	buf.WriteString(h1.Method)
	buf.WriteByte(' ')
	buf.WriteString(h1.Path)
	buf.WriteByte(' ')
	buf.WriteString(h1.Protocol)
	buf.WriteString("\r\n")

	keys := make([]string, 0, len(h1.Headers))
	for key := range h1.Headers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		buf.WriteString(key)
		buf.WriteString(": ")
		buf.WriteString(h1.Headers[key])
		buf.WriteString("\r\n")
	}

	buf.WriteString("\r\n")

	return buf.Bytes()
}

// UnmarshalReader reads a request head, or a response head whose reason
// phrase lands in Protocol. Header names are lower-cased; a repeated header
// keeps its last value. No body is read.
func (h1 *Request) UnmarshalReader(reader *bufio.Reader) error {
	if h1.Headers == nil {
		h1.Headers = map[string]string{}
	}
	state := method
	for state != end {
		switch state {
		case method:
			line, err := reader.ReadString('\n')
			if err != nil {
				return err
			}

			parts := strings.SplitN(strings.TrimSpace(line), " ", 3)
			if len(parts) != 3 {
				return fmt.Errorf("%w: %q", ErrMalformedRequestLine, strings.TrimSpace(line))
			}

			h1.Method = parts[0]
			h1.Path = parts[1]
			h1.Protocol = parts[2]

			if h1.IsPreface() {
				tail := make([]byte, len(prefaceTail))
				if _, err := io.ReadFull(reader, tail); err != nil {
					return err
				}
				if string(tail) != prefaceTail {
					return ErrBadPreface
				}
				state = end
			} else {
				state = headers
			}
		case headers:
			line, err := reader.ReadString('\n')
			if err != nil {
				return err
			}
			line = strings.TrimRight(line, "\r\n")
			if len(line) == 0 {
				state = end
				break
			}

			name, value, ok := strings.Cut(line, ":")
			if !ok || name == "" {
				return fmt.Errorf("%w: %q", ErrMalformedHeader, line)
			}
			h1.Headers[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(value)
		}
	}
	return nil
}

// IsPreface reports whether the head is the h2 prior-knowledge preface.
func (h1 Request) IsPreface() bool {
	return h1.Method == "PRI" && h1.Path == "*" && h1.Protocol == "HTTP/2.0"
}

// IsH2CUpgrade reports whether the request asks to switch to cleartext h2.
func (h1 Request) IsH2CUpgrade() bool {
	_, ok := h1.Headers["http2-settings"]
	return ok && strings.EqualFold(h1.Headers["upgrade"], "h2c")
}

// SwitchingProtocols is the 101 response head that accepts an h2c upgrade.
// It reuses Request since a status line has the same three-field shape.
func SwitchingProtocols() Request {
	return Request{
		Method:   "HTTP/1.1",
		Path:     "101",
		Protocol: "Switching Protocols",
		Headers: map[string]string{
			"Connection": "Upgrade",
			"Upgrade":    "h2c",
		},
	}
}
