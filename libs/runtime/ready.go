package runtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// ReadyCheck is a named dependency check for /readyz.
type ReadyCheck struct {
	Name  string
	Check func(context.Context) error
}

const readyCheckTimeout = 2 * time.Second

type ReadyReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// NewBaseMuxWithReady returns a mux serving /healthz and /readyz.
// Checks run concurrently; any failure turns /readyz into a 503.
func NewBaseMuxWithReady(checks ...ReadyCheck) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeReport(w, http.StatusOK, ReadyReport{Status: "ok"})
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		report := RunChecks(r.Context(), checks...)
		code := http.StatusOK
		if report.Status != "ok" {
			code = http.StatusServiceUnavailable
		}
		writeReport(w, code, report)
	})
	return mux
}

// RunChecks evaluates every check with its own timeout.
func RunChecks(ctx context.Context, checks ...ReadyCheck) ReadyReport {
	report := ReadyReport{Status: "ok", Checks: map[string]string{}}
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, check := range checks {
		if check.Check == nil {
			continue
		}
		name := check.Name
		if name == "" {
			name = "dependency"
		}
		wg.Add(1)
		go func(name string, fn func(context.Context) error) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, readyCheckTimeout)
			err := fn(cctx)
			cancel()

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Status = "unavailable"
				report.Checks[name] = err.Error()
				return
			}
			report.Checks[name] = "ok"
		}(name, check.Check)
	}
	wg.Wait()
	return report
}

func writeReport(w http.ResponseWriter, code int, report ReadyReport) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(report)
}
