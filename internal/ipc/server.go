package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// connTimeout bounds how long one control client may hold a connection.
const connTimeout = 2 * time.Second

// Handler answers control commands for the owning run.
type Handler interface {
	Handle(context.Context, Request) Response
}

// HandlerFunc lets a plain function serve as a Handler.
type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// Serve answers control clients on listener until ctx is done or the
// listener is closed. Each connection carries exactly one request.
func Serve(ctx context.Context, listener net.Listener, handler Handler) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	stop := context.AfterFunc(ctx, func() { _ = listener.Close() })
	defer stop()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept control connection: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			serveConn(ctx, conn, handler)
		}()
	}
}

func serveConn(ctx context.Context, conn net.Conn, handler Handler) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(connTimeout))

	var req Request
	if err := readMessage(bufio.NewReader(conn), &req, "request"); err != nil {
		_ = writeMessage(conn, Response{OK: false, Error: err.Error()})
		return
	}
	_ = writeMessage(conn, handler.Handle(ctx, req))
}
