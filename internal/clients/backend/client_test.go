package backend

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aristath/riimtools/internal/domain"
	"github.com/aristath/riimtools/internal/execution"
	"github.com/aristath/riimtools/internal/modules/circuit"
	"github.com/aristath/riimtools/internal/modules/noise"
	"github.com/aristath/riimtools/internal/modules/simulator"
	testingpkg "github.com/aristath/riimtools/internal/testing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
)

func startBackend(t *testing.T, executor execution.Executor) string {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)

	router := chi.NewRouter()
	router.Route("/api", NewHandler(executor, 4, log).RegisterRoutes)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/backend/ws"
}

func newClient(t *testing.T, url string, opts ...Option) *Client {
	t.Helper()
	c := NewClient(url, zerolog.New(nil).Level(zerolog.Disabled), opts...)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClient_Execute(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"json", nil},
		{"msgpack", []Option{WithMsgpack()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testingpkg.NewMockExecutor()
			mock.SetCounts(func(req execution.Request) domain.Counts {
				return domain.Counts{"00": req.Shots - 10, "11": 10}
			})
			client := newClient(t, startBackend(t, mock), tt.opts...)

			model, err := noise.GenerateDepolarizing(2, 0.05)
			require.NoError(t, err)
			require.NoError(t, model.SetReadoutError(1, 0.02))

			res, err := client.Execute(context.Background(), execution.Request{
				Circuit:     circuit.DemoCircuit(),
				NoiseModel:  model,
				Shots:       500,
				CouplingMap: domain.CouplingMap{{0, 1}},
			})
			require.NoError(t, err)
			assert.Equal(t, domain.Counts{"00": 490, "11": 10}, res.Counts)
			assert.Equal(t, 500, res.Shots)
			assert.Equal(t, "mock", res.Backend)

			// The circuit and noise model survive the round trip
			reqs := mock.Requests()
			require.Len(t, reqs, 1)
			assert.Equal(t, circuit.DemoCircuit().TwoQubitGateCount(), reqs[0].Circuit.TwoQubitGateCount())
			assert.Equal(t, 0.05, reqs[0].NoiseModel.ErrorFor("cx", []int{0, 1}))
			assert.Equal(t, 0.02, reqs[0].NoiseModel.ReadoutError(1))
			assert.Equal(t, domain.CouplingMap{{0, 1}}, reqs[0].CouplingMap)
			assert.Equal(t, 0, reqs[0].OptimizationLevel)
		})
	}
}

func TestClient_ConcurrentJobs(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	client := newClient(t, startBackend(t, simulator.New(3, log)))

	var wg sync.WaitGroup
	errs := make([]error, 8)
	totals := make([]int, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := client.Execute(context.Background(), execution.Request{
				Circuit: circuit.DemoCircuit(),
				Shots:   100 + i,
			})
			errs[i] = err
			if err == nil {
				totals[i] = res.Counts.Total()
			}
		}(i)
	}
	wg.Wait()

	for i := range errs {
		require.NoError(t, errs[i])
		assert.Equal(t, 100+i, totals[i], "each job gets its own result")
	}
}

func TestClient_RemoteError(t *testing.T) {
	mock := testingpkg.NewMockExecutor()
	mock.SetError(errors.New("queue full"))
	client := newClient(t, startBackend(t, mock))

	_, err := client.Execute(context.Background(), execution.Request{Circuit: circuit.DemoCircuit(), Shots: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue full")

	// The connection stays usable after a failed job
	mock.SetError(nil)
	_, err = client.Execute(context.Background(), execution.Request{Circuit: circuit.DemoCircuit(), Shots: 10})
	assert.NoError(t, err)
}

func TestClient_InvalidRequest(t *testing.T) {
	client := NewClient("ws://127.0.0.1:1/unused", zerolog.New(nil).Level(zerolog.Disabled))

	_, err := client.Execute(context.Background(), execution.Request{Circuit: circuit.DemoCircuit()})
	assert.ErrorIs(t, err, domain.ErrInvalidParameter, "validated before dialing")
}

func TestClient_DialFailure(t *testing.T) {
	client := NewClient("ws://127.0.0.1:1/unused", zerolog.New(nil).Level(zerolog.Disabled))

	_, err := client.Execute(context.Background(), execution.Request{Circuit: circuit.DemoCircuit(), Shots: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to dial backend")
}

// blockingExecutor never answers until its context ends
type blockingExecutor struct{ started chan struct{} }

func (b *blockingExecutor) Execute(ctx context.Context, _ execution.Request) (*execution.Result, error) {
	close(b.started)
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestClient_ContextCancelled(t *testing.T) {
	blocker := &blockingExecutor{started: make(chan struct{})}
	client := newClient(t, startBackend(t, blocker))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-blocker.started
		cancel()
	}()

	_, err := client.Execute(ctx, execution.Request{Circuit: circuit.DemoCircuit(), Shots: 10})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_ConnectionLost(t *testing.T) {
	blocker := &blockingExecutor{started: make(chan struct{})}
	client := newClient(t, startBackend(t, blocker))

	go func() {
		<-blocker.started
		_ = client.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := client.Execute(ctx, execution.Request{Circuit: circuit.DemoCircuit(), Shots: 10})
	assert.ErrorIs(t, err, ErrConnectionLost)
}

func TestClient_DropOnlyFailsJobsOfThatConnection(t *testing.T) {
	client := NewClient("ws://127.0.0.1:0/api/backend/ws", zerolog.New(nil).Level(zerolog.Disabled))

	// A redial after Close: the old read loop exits while a job waits on the new connection
	oldConn, newConn := new(websocket.Conn), new(websocket.Conn)
	oldCh, newCh := make(chan reply, 1), make(chan reply, 1)
	client.conn = newConn
	client.pending["old"] = pendingJob{conn: oldConn, ch: oldCh}
	client.pending["new"] = pendingJob{conn: newConn, ch: newCh}

	client.drop(oldConn, errors.New("read failed"))

	select {
	case r := <-oldCh:
		assert.ErrorIs(t, r.err, ErrConnectionLost)
	default:
		t.Fatal("job on the dropped connection was not failed")
	}
	select {
	case r := <-newCh:
		t.Fatalf("job on the live connection was failed: %v", r.err)
	default:
	}
	assert.Same(t, newConn, client.conn, "live connection is kept")
}
