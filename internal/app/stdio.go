package app

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"identity-mcp/pkg/logging"
)

// lockedWriter serialises whole-message writes from the MCP server and the
// interceptor onto one stream.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// interceptor answers some raw JSON-RPC messages itself.
type interceptor interface {
	Intercept(ctx context.Context, raw []byte) ([]byte, bool)
}

// serveStdio serves s over newline-delimited JSON-RPC until in is exhausted
// or ctx is cancelled. Messages the interceptor answers never reach s.
func serveStdio(ctx context.Context, s *mcpserver.MCPServer, icpt interceptor, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := &lockedWriter{w: out}
	pr, pw := io.Pipe()
	defer pr.Close()

	go func() {
		pw.CloseWithError(filterLines(ctx, icpt, in, pw, w))
	}()

	stdio := mcpserver.NewStdioServer(s)
	stdio.SetErrorLogger(slog.NewLogLogger(logging.Logger().Handler(), slog.LevelWarn))

	err := stdio.Listen(ctx, pr, w)
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

// filterLines copies every line of in to pass unless icpt answers it, in
// which case the answer is written to out.
func filterLines(ctx context.Context, icpt interceptor, in io.Reader, pass, out io.Writer) error {
	reader := bufio.NewReader(in)
	for {
		line, err := reader.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			if resp, ok := icpt.Intercept(ctx, line); ok {
				if _, werr := out.Write(append(resp, '\n')); werr != nil {
					return werr
				}
			} else {
				if line[len(line)-1] != '\n' {
					line = append(line, '\n')
				}
				if _, werr := pass.Write(line); werr != nil {
					return werr
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}
