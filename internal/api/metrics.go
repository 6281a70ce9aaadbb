package api

import (
	"os"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessStats — состояние процесса сервера для /api/stats
type ProcessStats struct {
	Uptime     string  `json:"uptime"`
	StartedAt  int64   `json:"started_at"`
	CPUPercent float64 `json:"cpu_percent,omitempty"`
	RSS        string  `json:"rss,omitempty"`
	HeapAlloc  string  `json:"heap_alloc"`
	HeapSys    string  `json:"heap_sys"`
	NumGC      uint32  `json:"num_gc"`
	Goroutines int     `json:"goroutines"`
}

// ServerMetrics снимает метрики процесса через gopsutil и runtime
type ServerMetrics struct {
	started time.Time
	proc    *process.Process // nil, если gopsutil не видит процесс
}

func NewServerMetrics() *ServerMetrics {
	sm := &ServerMetrics{started: time.Now()}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		sm.proc = proc
	}
	return sm
}

// Snapshot собирает ProcessStats. Ошибки gopsutil оставляют поля пустыми.
func (sm *ServerMetrics) Snapshot() ProcessStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	ps := ProcessStats{
		Uptime:     time.Since(sm.started).Round(time.Second).String(),
		StartedAt:  sm.started.Unix(),
		HeapAlloc:  humanize.Bytes(mem.HeapAlloc),
		HeapSys:    humanize.Bytes(mem.HeapSys),
		NumGC:      mem.NumGC,
		Goroutines: runtime.NumGoroutine(),
	}
	if sm.proc == nil {
		return ps
	}
	if cpu, err := sm.proc.CPUPercent(); err == nil {
		ps.CPUPercent = cpu
	}
	if info, err := sm.proc.MemoryInfo(); err == nil {
		ps.RSS = humanize.Bytes(info.RSS)
	}
	return ps
}
