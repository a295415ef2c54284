package server

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/riimtools/internal/database"
	"github.com/aristath/riimtools/internal/reliability"
	"github.com/aristath/riimtools/internal/scheduler"
	"github.com/aristath/riimtools/internal/utils"
)

// JobFinder looks up a registered job by name
type JobFinder interface {
	Find(name string) (scheduler.Job, bool)
}

// SystemHandlers serves host, database, job and backup status
type SystemHandlers struct {
	log       zerolog.Logger
	dataDir   string
	db        *database.DB
	scheduler *scheduler.Scheduler
	jobs      JobFinder
	backups   *reliability.BackupService
	backend   string
	startTime time.Time
}

// NewSystemHandlers creates system handlers. backups may be nil when R2 is not configured.
func NewSystemHandlers(
	log zerolog.Logger,
	dataDir string,
	db *database.DB,
	sched *scheduler.Scheduler,
	jobs JobFinder,
	backups *reliability.BackupService,
	backend string,
) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		dataDir:   dataDir,
		db:        db,
		scheduler: sched,
		jobs:      jobs,
		backups:   backups,
		backend:   backend,
		startTime: time.Now(),
	}
}

// RegisterRoutes registers the system routes
func (h *SystemHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/system", func(r chi.Router) {
		r.Get("/status", h.HandleSystemStatus)
		r.Get("/database", h.HandleDatabaseStats)
		r.Get("/jobs", h.HandleJobsStatus)
		r.Post("/jobs/{name}", h.HandleTriggerJob)
		r.Get("/backups", h.HandleListBackups)
		r.Post("/backups/{filename}/verify", h.HandleVerifyBackup)
	})
}

// SystemStatusResponse represents the host and process status
type SystemStatusResponse struct {
	Status        string             `json:"status"`
	Backend       string             `json:"backend"`
	UptimeSeconds int64              `json:"uptime_seconds"`
	GoVersion     string             `json:"go_version"`
	Goroutines    int                `json:"goroutines"`
	CPUPercent    float64            `json:"cpu_percent"`
	RAMPercent    float64            `json:"ram_percent"`
	Disk          *DiskUsageResponse `json:"disk,omitempty"`
	LastChecked   string             `json:"last_checked"`
}

// DiskUsageResponse describes the volume holding the data directory
type DiskUsageResponse struct {
	Path        string  `json:"path"`
	TotalGB     float64 `json:"total_gb"`
	FreeGB      float64 `json:"free_gb"`
	UsedPercent float64 `json:"used_percent"`
}

// DatabaseStatsResponse wraps database.Stats with integrity information
type DatabaseStatsResponse struct {
	Name    string          `json:"name"`
	Path    string          `json:"path"`
	Profile string          `json:"profile"`
	Healthy bool            `json:"healthy"`
	Error   string          `json:"error,omitempty"`
	Stats   *database.Stats `json:"stats,omitempty"`
}

// HandleSystemStatus returns host resource usage
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, ramPercent := h.getSystemStats()

	response := SystemStatusResponse{
		Status:        "healthy",
		Backend:       h.backend,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		GoVersion:     runtime.Version(),
		Goroutines:    runtime.NumGoroutine(),
		CPUPercent:    cpuPercent,
		RAMPercent:    ramPercent,
		LastChecked:   time.Now().Format(time.RFC3339),
	}

	if usage, err := disk.Usage(h.dataDir); err == nil {
		response.Disk = &DiskUsageResponse{
			Path:        h.dataDir,
			TotalGB:     float64(usage.Total) / 1e9,
			FreeGB:      float64(usage.Free) / 1e9,
			UsedPercent: usage.UsedPercent,
		}
	} else {
		h.log.Warn().Err(err).Msg("Failed to get disk usage")
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Conn().PingContext(ctx); err != nil {
			response.Status = "degraded"
		}
	}

	utils.WriteJSON(w, http.StatusOK, utils.Envelope(response), h.log)
}

// HandleDatabaseStats returns page statistics and the integrity check result
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		http.Error(w, "database not initialized", http.StatusServiceUnavailable)
		return
	}

	response := DatabaseStatsResponse{
		Name:    h.db.Name(),
		Path:    h.db.Path(),
		Profile: string(h.db.Profile()),
		Healthy: true,
	}

	if err := h.db.HealthCheck(r.Context()); err != nil {
		response.Healthy = false
		response.Error = err.Error()
	}

	stats, err := h.db.GetStats()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get database stats")
		http.Error(w, "Failed to get database stats", http.StatusInternalServerError)
		return
	}
	response.Stats = stats

	utils.WriteJSON(w, http.StatusOK, utils.Envelope(response), h.log)
}

// HandleJobsStatus returns every registered job with its last run
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	var jobs []scheduler.JobStatus
	if h.scheduler != nil {
		jobs = h.scheduler.Jobs()
	}
	utils.WriteJSON(w, http.StatusOK, utils.Envelope(jobs), h.log)
}

// HandleTriggerJob runs a job immediately and waits for it
// POST /api/system/jobs/{name}
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var job scheduler.Job
	if h.jobs != nil {
		job, _ = h.jobs.Find(name)
	}
	if job == nil {
		http.Error(w, "Unknown job: "+name, http.StatusNotFound)
		return
	}

	h.log.Info().Str("job", name).Msg("Manual job run triggered")

	var err error
	if h.scheduler != nil {
		err = h.scheduler.RunNow(job)
	} else {
		err = job.Run()
	}

	response := map[string]interface{}{"job": name, "status": "success"}
	status := http.StatusOK
	if err != nil {
		response["status"] = "error"
		response["error"] = err.Error()
		status = http.StatusInternalServerError
	}
	utils.WriteJSON(w, status, utils.Envelope(response), h.log)
}

// HandleListBackups lists the archives in the bucket
func (h *SystemHandlers) HandleListBackups(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		http.Error(w, "Backups are not configured", http.StatusServiceUnavailable)
		return
	}

	backups, err := h.backups.ListBackups(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list backups")
		http.Error(w, "Failed to list backups", http.StatusBadGateway)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.Envelope(backups), h.log)
}

// HandleVerifyBackup downloads an archive and checks its checksums
func (h *SystemHandlers) HandleVerifyBackup(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		http.Error(w, "Backups are not configured", http.StatusServiceUnavailable)
		return
	}

	metadata, err := h.backups.VerifyBackup(r.Context(), chi.URLParam(r, "filename"))
	if err != nil {
		h.log.Warn().Err(err).Msg("Backup verification failed")
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.Envelope(metadata), h.log)
}

// getSystemStats returns CPU and RAM usage percentages.
// CPU is sampled over 100ms to keep the call fast.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}
