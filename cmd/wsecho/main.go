// Command wsecho dials a WebSocket server, echoes stdin lines to it as
// text messages, and prints whatever the server sends back. It exists
// to exercise the websocket package end to end, not as a general-purpose
// client.
package main

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"

	"github.com/coregx/wsclient/websocket"
)

func main() {
	bi, _ := debug.ReadBuildInfo()

	cmd := &cli.Command{
		Name:    "wsecho",
		Usage:   "connect to a WebSocket server and echo stdin as text messages",
		Version: bi.Main.Version,
		Flags:   flags(),
		Action:  run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// configFile returns the path to wsecho's TOML config file. Flags below
// read from it as a fallback, so it's fine for the file not to exist.
func configFile() altsrc.StringSourcer {
	return altsrc.StringSourcer("wsecho.toml")
}

func flags() []cli.Flag {
	path := configFile()
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "url",
			Usage: "WebSocket URL to dial (ws:// or wss://)",
			Value: "ws://localhost:8080/ws",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("WSECHO_URL"),
				toml.TOML("wsecho.url", path),
			),
		},
		&cli.StringSliceFlag{
			Name:  "header",
			Usage: "extra handshake header as Name:Value, repeatable",
			Sources: cli.NewValueSourceChain(
				toml.TOML("wsecho.headers", path),
			),
		},
		&cli.DurationFlag{
			Name:  "read-timeout",
			Usage: "socket read timeout for the receive loop (0 disables it)",
			Value: 0,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("WSECHO_READ_TIMEOUT"),
				toml.TOML("wsecho.read_timeout", path),
			),
		},
		&cli.BoolFlag{
			Name:  "pretty-log",
			Usage: "human-readable console logging, instead of JSON",
		},
		&cli.BoolFlag{
			Name:  "unbuffered",
			Usage: "use the Unbuffered connection flavor instead of Buffered",
		},
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	logger := newLogger(cmd.Bool("pretty-log"))

	headers, err := parseHeaders(cmd.StringSlice("header"))
	if err != nil {
		return err
	}

	rawURL := cmd.String("url")
	transport, err := dialTransport(rawURL)
	if err != nil {
		return fmt.Errorf("dial %s: %w", rawURL, err)
	}

	readTimeout := cmd.Duration("read-timeout")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cmd.Bool("unbuffered") {
		// --read-timeout left at its zero value means "no per-call
		// deadline configured", not "poll once and give up": map that
		// to websocket.BlockForever rather than the library's literal
		// zero-duration (return immediately) meaning.
		deadline := readTimeout
		if deadline <= 0 {
			deadline = websocket.BlockForever
		}
		conn, err := websocket.DialUnbuffered(transport, rawURL, headers, websocket.WithLogger(logger))
		if err != nil {
			return err
		}
		return runUnbuffered(ctx, conn, deadline)
	}

	conn, err := websocket.DialBuffered(transport, rawURL, headers, websocket.WithLogger(logger))
	if err != nil {
		return err
	}
	if readTimeout > 0 {
		if err := conn.SetReadTimeout(readTimeout); err != nil {
			logger.Warn().Err(err).Msg("read timeout not supported on this transport")
		}
	}
	return runBuffered(ctx, conn)
}

// runBuffered runs the write loop on the calling goroutine (reading
// stdin) and the read loop on a second goroutine, per the one-reader /
// one-writer discipline the package requires for a single connection.
func runBuffered(ctx context.Context, conn *websocket.Buffered) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			msg, err := conn.Receive(websocket.BufferSink{Buf: make([]byte, 65536)}, 65536)
			if err != nil {
				if ctx.Err() == nil {
					fmt.Fprintf(os.Stderr, "receive: %v\n", err)
				}
				return
			}
			printMessage(msg)
		}
	}()

	writeStdin(ctx, conn)
	_ = conn.Close(websocket.StatusNormalClosure, "")
	<-done
	return nil
}

func runUnbuffered(ctx context.Context, conn *websocket.Unbuffered, readTimeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			msg, err := conn.Receive(websocket.BufferSink{Buf: make([]byte, 65536)}, 65536, readTimeout)
			if err != nil {
				if ctx.Err() == nil {
					fmt.Fprintf(os.Stderr, "receive: %v\n", err)
				}
				return
			}
			printMessage(msg)
		}
	}()

	writeStdin(ctx, conn)
	_ = conn.Close(websocket.StatusNormalClosure, "")
	<-done
	return nil
}

// sender is the subset of Buffered/Unbuffered that writeStdin needs.
type sender interface {
	Send(opcode websocket.Opcode, data []byte) error
}

func writeStdin(ctx context.Context, s sender) {
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		if err := s.Send(websocket.OpText, sc.Bytes()); err != nil {
			fmt.Fprintf(os.Stderr, "send: %v\n", err)
			return
		}
	}
}

func printMessage(msg websocket.Message) {
	switch data := msg.Data.(type) {
	case websocket.SliceData:
		fmt.Printf("< [%s] %s\n", msg.Type, string(data))
	case websocket.WrittenData:
		fmt.Printf("< [%s] (%d bytes)\n", msg.Type, int(data))
	default:
		fmt.Printf("< [%s]\n", msg.Type)
	}
}

func dialTransport(rawURL string) (net.Conn, error) {
	secure := strings.HasPrefix(rawURL, "wss://")
	host := strings.TrimPrefix(strings.TrimPrefix(rawURL, "wss://"), "ws://")
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	if !strings.Contains(host, ":") {
		if secure {
			host += ":443"
		} else {
			host += ":80"
		}
	}
	if secure {
		return tls.Dial("tcp", host, nil)
	}
	return net.Dial("tcp", host)
}

func parseHeaders(raw []string) ([][2]string, error) {
	headers := make([][2]string, 0, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			return nil, fmt.Errorf("invalid --header %q, want Name:Value", h)
		}
		headers = append(headers, [2]string{strings.TrimSpace(name), strings.TrimSpace(value)})
	}
	return headers, nil
}

func newLogger(pretty bool) zerolog.Logger {
	if pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
