package httpapi

import (
	"net/http"

	"careerscan-engine/internal/logging"
)

// NewMux returns the raw mux; Handler wraps it with the middleware chain.
func NewMux(d Deps) *http.ServeMux {
	d = d.withDefaults()
	mux := http.NewServeMux()

	hh := HealthHandler{Runs: d.Runs, Hub: d.Hub}
	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))
	if d.Metrics != nil {
		mux.Handle("/metrics", d.Metrics.Handler())
	}

	// Config
	ch := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
	}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
		http.MethodPut: ch.Put,
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Path,
	}))
	mux.HandleFunc("/config/validate", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Validate,
	}))

	// Batch runs
	ph := ProcessHandler{Runs: d.Runs, DB: d.DB, CfgVal: d.CfgVal, Log: d.Log}
	mux.HandleFunc("/process", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: ph.Process,
	}))

	rh := RunsHandler{DB: d.DB, Runs: d.Runs}
	mux.HandleFunc("/runs", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: rh.List,
	}))
	mux.HandleFunc("/runs/", rh.ByPath)
	mux.HandleFunc("/download", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: rh.Latest,
	}))

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	return mux
}

func Handler(d Deps) http.Handler {
	d = d.withDefaults()
	return Chain(NewMux(d), RequestID, Recover(d.Log), AccessLog(d.Log), Cors)
}

func (d Deps) withDefaults() Deps {
	if d.Log == nil {
		d.Log = logging.Discard()
	}
	return d
}
