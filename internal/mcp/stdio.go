package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
)

// ServeStdio runs the newline-delimited JSON-RPC loop: one request per
// line on in, one response per line on out. Notifications get no reply.
// The loop ends when in is exhausted or ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	enc := json.NewEncoder(out)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var env requestEnvelope
		if err := json.Unmarshal([]byte(line), &env); err != nil {
			resp := s.errorResponse(nil, ErrorCodeParseError, "Parse error", map[string]interface{}{
				"details": err.Error(),
			})
			if err := enc.Encode(resp); err != nil {
				return err
			}
			continue
		}

		req := env.request()
		resp := s.Dispatch(ctx, &req)

		if env.isNotification() {
			// The response is dropped.
			continue
		}
		if err := enc.Encode(resp); err != nil {
			return err
		}
	}
	return scanner.Err()
}
