package output

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/specialistvlad/cosimgo/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

const (
	// SampleEvent carries one row to live subscribers.
	SampleEvent = "sample"
	// ColumnsEvent announces the column names once after connecting.
	ColumnsEvent = "columns"

	connectTimeout = 15 * time.Second
)

// Sample is the payload of a SampleEvent.
type Sample struct {
	Time   float64            `json:"time"`
	Values map[string]float64 `json:"values"`
}

// LiveSink streams rows to a socket.io server as they are recorded.
type LiveSink struct {
	url       string
	namespace string

	io      *socket.Socket
	columns []string
}

// NewLiveSink streams to the server at rawURL. The URL path, if any, is used
// as the socket.io path. An empty namespace means "/".
func NewLiveSink(rawURL, namespace string) *LiveSink {
	if namespace == "" {
		namespace = "/"
	}
	return &LiveSink{url: rawURL, namespace: namespace}
}

// Open connects and announces the columns. It waits for the connection to be
// acknowledged, ctx to end or a fixed timeout, whichever comes first.
func (s *LiveSink) Open(ctx context.Context, columns []string) error {
	logger := ctxlog.FromContext(ctx).With("sink", "live", "url", s.url)

	parsed, err := url.Parse(s.url)
	if err != nil {
		return fmt.Errorf("failed to parse live output URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("live output URL %q must be absolute", s.url)
	}

	opts := socket.DefaultOptions()
	if parsed.Path != "" && parsed.Path != "/" {
		opts.SetPath(parsed.Path)
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))
	opts.SetReconnection(false)

	manager := socket.NewManager(fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host), opts)
	io := manager.Socket(s.namespace, opts)

	connected := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		connected <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connection refused")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connected <- err
	})

	logger.Debug("Connecting live output.")
	io.Connect()

	select {
	case err := <-connected:
		if err != nil {
			io.Disconnect()
			return fmt.Errorf("live output connection failed: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return fmt.Errorf("context cancelled while waiting for live output connection: %w", ctx.Err())
	case <-time.After(connectTimeout):
		io.Disconnect()
		return fmt.Errorf("timed out after %s waiting for live output connection", connectTimeout)
	}

	logger.Info("Live output connected.", "sid", io.Id())
	s.io = io
	s.columns = columns
	if err := io.Emit(ColumnsEvent, columns); err != nil {
		return fmt.Errorf("live output: %w", err)
	}
	return nil
}

func (s *LiveSink) Write(_ context.Context, row Row) error {
	if s.io == nil {
		return errors.New("live output is not connected")
	}
	sample := Sample{Time: row.Time, Values: make(map[string]float64, len(row.Values))}
	for i, v := range row.Values {
		sample.Values[s.columns[i]] = v
	}
	if err := s.io.Emit(SampleEvent, sample); err != nil {
		return fmt.Errorf("live output: %w", err)
	}
	return nil
}

func (s *LiveSink) Close(ctx context.Context) error {
	if s.io == nil {
		return nil
	}
	ctxlog.FromContext(ctx).Debug("Disconnecting live output.", "sid", s.io.Id())
	s.io.Disconnect()
	s.io = nil
	return nil
}
