package frame

import (
	"bytes"
	"strconv"
)

// heartbeatPayload is the single LF byte exchanged as a liveness
// beacon. It is never parsed as a frame.
var heartbeatPayload = []byte{'\n'}

// IsHeartbeat reports whether payload is the bare-LF heartbeat signal
// rather than a STOMP frame.
func IsHeartbeat(payload []byte) bool {
	return bytes.Equal(payload, heartbeatPayload)
}

// Parse decodes exactly one STOMP frame from payload. payload must not
// be the heartbeat signal; callers check IsHeartbeat first.
func Parse(payload []byte) (*Frame, error) {
	commandEnd := bytes.IndexByte(payload, '\n')
	if commandEnd < 0 {
		return nil, malformed("missing command line")
	}
	command := string(payload[:commandEnd])
	if command == "" {
		return nil, malformed("empty command")
	}

	rest := payload[commandEnd+1:]
	fr := New(command)

	for {
		lineEnd := bytes.IndexByte(rest, '\n')
		if lineEnd < 0 {
			return nil, malformed("headers not terminated by a blank line")
		}
		line := rest[:lineEnd]
		rest = rest[lineEnd+1:]
		if len(line) == 0 {
			break
		}
		colon := bytes.IndexByte(line, ':')
		if colon < 0 {
			return nil, malformed("header line missing colon")
		}
		fr.Headers.Add(string(line[:colon]), string(line[colon+1:]))
	}

	contentLength, hasContentLength := fr.Headers.Get(HeaderContentLength)
	if hasContentLength {
		n, err := strconv.Atoi(contentLength)
		if err != nil || n < 0 {
			return nil, malformed("invalid content-length")
		}
		if n+1 != len(rest) || rest[n] != 0 {
			return nil, malformed("content-length does not match body length")
		}
		fr.Body = rest[:n]
		return fr, nil
	}

	nul := bytes.IndexByte(rest, 0)
	if nul < 0 {
		return nil, malformed("missing terminating NUL")
	}
	fr.Body = rest[:nul]
	return fr, nil
}

// Serialize encodes f per the STOMP 1.1 grammar. If f has a non-empty
// body and no content-length header, Serialize adds one to the output
// without mutating f.
func Serialize(f *Frame) []byte {
	var buf bytes.Buffer
	buf.WriteString(f.Command)
	buf.WriteByte('\n')

	_, hasContentLength := f.Headers.Get(HeaderContentLength)
	f.Headers.Each(func(key, value string) {
		buf.WriteString(key)
		buf.WriteByte(':')
		buf.WriteString(value)
		buf.WriteByte('\n')
	})
	if len(f.Body) > 0 && !hasContentLength {
		buf.WriteString(HeaderContentLength)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(len(f.Body)))
		buf.WriteByte('\n')
	}

	buf.WriteByte('\n')
	buf.Write(f.Body)
	buf.WriteByte(0)
	return buf.Bytes()
}
