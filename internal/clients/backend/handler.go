package backend

import (
	"context"
	"net/http"
	"sync"

	"github.com/aristath/riimtools/internal/execution"
	"github.com/aristath/riimtools/internal/modules/circuit"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
)

// Handler serves the backend protocol on top of a local executor, so one instance can
// act as the remote backend of another.
type Handler struct {
	executor      execution.Executor
	maxConcurrent int
	log           zerolog.Logger
}

// NewHandler creates a new backend handler. maxConcurrent bounds the jobs a single
// connection runs at once.
func NewHandler(executor execution.Executor, maxConcurrent int, log zerolog.Logger) *Handler {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Handler{
		executor:      executor,
		maxConcurrent: maxConcurrent,
		log:           log.With().Str("handler", "backend").Logger(),
	}
}

// RegisterRoutes registers the websocket endpoint
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/backend/ws", h.HandleWebSocket)
}

// HandleWebSocket accepts jobs until the peer disconnects
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to accept websocket")
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(readLimit)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.log.Info().Str("remote", r.RemoteAddr).Msg("Backend client connected")

	var wg sync.WaitGroup
	sem := make(chan struct{}, h.maxConcurrent)
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				h.log.Debug().Err(err).Msg("Backend client read ended")
			}
			break
		}

		var job JobMessage
		if err := decode(typ, data, &job); err != nil {
			h.reply(ctx, conn, typ, ResultMessage{Error: "invalid job: " + err.Error()})
			continue
		}

		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			h.reply(ctx, conn, typ, h.run(ctx, job))
		}()
	}

	cancel()
	wg.Wait()
	h.log.Info().Str("remote", r.RemoteAddr).Msg("Backend client disconnected")
}

func (h *Handler) run(ctx context.Context, job JobMessage) ResultMessage {
	c, err := circuit.ParseQASM(job.QASM)
	if err != nil {
		return ResultMessage{ID: job.ID, Error: err.Error()}
	}

	res, err := h.executor.Execute(ctx, execution.Request{
		Circuit:           c,
		NoiseModel:        job.NoiseModel,
		Shots:             job.Shots,
		CouplingMap:       job.CouplingMap,
		OptimizationLevel: job.OptimizationLevel,
	})
	if err != nil {
		h.log.Warn().Err(err).Str("job_id", job.ID).Msg("Job failed")
		return ResultMessage{ID: job.ID, Error: err.Error()}
	}

	return ResultMessage{ID: job.ID, Counts: res.Counts, Backend: res.Backend}
}

func (h *Handler) reply(ctx context.Context, conn *websocket.Conn, typ websocket.MessageType, msg ResultMessage) {
	data, err := encode(typ, msg)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", msg.ID).Msg("Failed to encode result")
		return
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	if err := conn.Write(writeCtx, typ, data); err != nil {
		h.log.Debug().Err(err).Str("job_id", msg.ID).Msg("Failed to send result")
	}
}
