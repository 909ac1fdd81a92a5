package dispatch

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/char5742/groovy-lsp/internal/logging"
)

// TransportConfig selects between the stdio and socket transport modes of
// spec.md §6, generalizing the teacher's Unix-domain-socket IndexServer
// listener to a TCP listener bound to host:port.
type TransportConfig struct {
	Socket bool
	Host   string
	Port   int
}

// Transport pairs a reader/writer with whatever teardown the underlying
// connection needs.
type Transport struct {
	Reader io.Reader
	Writer io.Writer
	Close  func() error
}

// Open resolves cfg into a Transport: stdio directly, or a TCP listener
// that accepts exactly one client connection and then behaves like stdio
// (spec.md §6: "accepts one client, then behaves as stdio").
func Open(cfg TransportConfig) (Transport, error) {
	if !cfg.Socket {
		return Transport{Reader: os.Stdin, Writer: os.Stdout, Close: func() error { return nil }}, nil
	}

	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 4389
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	lc := net.ListenConfig{Control: setReuseAddr}
	listener, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return Transport{}, fmt.Errorf("listen on %s: %w", addr, err)
	}

	logging.Infof(component, "socket mode listening on %s", addr)
	conn, err := listener.Accept()
	if err != nil {
		_ = listener.Close()
		return Transport{}, fmt.Errorf("accept: %w", err)
	}
	_ = listener.Close() // single client per spec.md §6; no further accepts needed

	return Transport{
		Reader: conn,
		Writer: conn,
		Close:  conn.Close,
	}, nil
}
