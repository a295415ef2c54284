package backend

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/aristath/riimtools/internal/execution"
	"github.com/aristath/riimtools/internal/modules/circuit"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
)

const (
	writeWait   = 10 * time.Second
	dialTimeout = 30 * time.Second

	// Counts for wide circuits can get large
	readLimit = 16 << 20
)

// ErrConnectionLost is returned for jobs still waiting when the connection drops
var ErrConnectionLost = errors.New("backend connection lost")

// Client is an execution.Executor that forwards circuits to a remote backend.
// It dials lazily and redials on the next Execute after the connection drops.
type Client struct {
	url        string
	httpClient *http.Client
	msgType    websocket.MessageType
	log        zerolog.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	cancel  context.CancelFunc
	pending map[string]pendingJob
}

// pendingJob is a submitted job waiting for its result on conn
type pendingJob struct {
	conn *websocket.Conn
	ch   chan reply
}

type reply struct {
	msg ResultMessage
	err error
}

// Option configures a Client
type Option func(*Client)

// WithMsgpack switches the wire format from JSON text frames to msgpack binary frames
func WithMsgpack() Option {
	return func(c *Client) { c.msgType = websocket.MessageBinary }
}

// WithHTTPClient overrides the client used for the upgrade handshake
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// createHTTP1Client creates an HTTP client that forces HTTP/1.1.
// Proxies that negotiate HTTP/2 through ALPN break the websocket upgrade.
func createHTTP1Client() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSClientConfig: &tls.Config{
				NextProtos: []string{"http/1.1"},
			},
			ForceAttemptHTTP2: false,
		},
	}
}

// NewClient creates a client for the websocket endpoint at url
func NewClient(url string, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		url:        url,
		httpClient: createHTTP1Client(),
		msgType:    websocket.MessageText,
		log:        log.With().Str("client", "backend").Logger(),
		pending:    make(map[string]pendingJob),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute submits req and waits for its result
func (c *Client) Execute(ctx context.Context, req execution.Request) (*execution.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	conn, err := c.connection()
	if err != nil {
		return nil, err
	}

	job := JobMessage{
		ID:                uuid.NewString(),
		QASM:              circuit.EmitQASM(req.Circuit),
		NoiseModel:        req.NoiseModel,
		Shots:             req.Shots,
		CouplingMap:       req.CouplingMap,
		OptimizationLevel: req.OptimizationLevel,
	}
	data, err := encode(c.msgType, job)
	if err != nil {
		return nil, fmt.Errorf("failed to encode job: %w", err)
	}

	ch := make(chan reply, 1)
	c.mu.Lock()
	c.pending[job.ID] = pendingJob{conn: conn, ch: ch}
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, job.ID)
		c.mu.Unlock()
	}()

	writeCtx, cancel := context.WithTimeout(ctx, writeWait)
	err = conn.Write(writeCtx, c.msgType, data)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("failed to send job: %w", err)
	}

	c.log.Debug().
		Str("job_id", job.ID).
		Int("shots", job.Shots).
		Msg("Job submitted")

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		res := r.msg
		if res.Error != "" {
			return nil, errors.New(res.Error)
		}
		if err := res.Counts.Validate(); err != nil {
			return nil, fmt.Errorf("backend returned invalid counts: %w", err)
		}
		return &execution.Result{Counts: res.Counts, Shots: req.Shots, Backend: res.Backend}, nil
	}
}

// Close closes the connection; in-flight jobs fail with ErrConnectionLost
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	if c.cancel != nil {
		c.cancel()
	}
	c.conn = nil
	c.cancel = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close(websocket.StatusNormalClosure, "")
}

// connection returns the live connection, dialing a new one if needed
func (c *Client) connection() (*websocket.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return c.conn, nil
	}

	c.log.Info().Str("url", c.url).Msg("Connecting to backend")

	dialCtx, dialCancel := context.WithTimeout(context.Background(), dialTimeout)
	defer dialCancel()

	conn, _, err := websocket.Dial(dialCtx, c.url, &websocket.DialOptions{
		HTTPClient: c.httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to dial backend: %w", err)
	}
	conn.SetReadLimit(readLimit)

	connCtx, cancel := context.WithCancel(context.Background())
	c.conn = conn
	c.cancel = cancel
	go c.readMessages(connCtx, conn)

	return conn, nil
}

// readMessages routes results to the waiting Execute calls until the connection fails
func (c *Client) readMessages(ctx context.Context, conn *websocket.Conn) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || ctx.Err() != nil {
				c.log.Debug().Msg("Backend connection closed")
			} else {
				c.log.Error().Err(err).Msg("Unexpected backend read error")
			}
			c.drop(conn, err)
			return
		}

		var res ResultMessage
		if err := decode(typ, data, &res); err != nil {
			c.log.Error().Err(err).Msg("Failed to decode backend result")
			continue
		}

		c.mu.Lock()
		job, ok := c.pending[res.ID]
		c.mu.Unlock()
		if !ok || job.conn != conn {
			c.log.Warn().Str("job_id", res.ID).Msg("Result for unknown job")
			continue
		}
		select {
		case job.ch <- reply{msg: res}:
		default:
		}
	}
}

// drop forgets conn and fails the jobs submitted on it. Jobs already sent on a newer
// connection keep waiting.
func (c *Client) drop(conn *websocket.Conn, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == conn {
		if c.cancel != nil {
			c.cancel()
		}
		c.conn = nil
		c.cancel = nil
	}

	err := fmt.Errorf("%w: %v", ErrConnectionLost, cause)
	for _, job := range c.pending {
		if job.conn != conn {
			continue
		}
		select {
		case job.ch <- reply{err: err}:
		default:
		}
	}
}
