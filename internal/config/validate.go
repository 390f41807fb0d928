package config

import (
	"fmt"
	"strings"

	"careerscan-engine/internal/export"
	"careerscan-engine/internal/logging"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a trimmed copy of cfg with defaults filled in
// for zero values, plus the problems found in it.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	out := cfg
	var res Validation
	def := Default()

	out.App.DataDir = strings.TrimSpace(out.App.DataDir)
	out.Fetch.UserAgent = strings.TrimSpace(out.Fetch.UserAgent)
	out.Export.Format = strings.ToLower(strings.TrimSpace(out.Export.Format))
	out.Export.UploadsDir = strings.TrimSpace(out.Export.UploadsDir)
	out.Export.ResultsDir = strings.TrimSpace(out.Export.ResultsDir)
	out.Log.Level = strings.ToLower(strings.TrimSpace(out.Log.Level))

	if out.App.DataDir == "" {
		out.App.DataDir = def.App.DataDir
	}
	if out.Fetch.UserAgent == "" {
		out.Fetch.UserAgent = def.Fetch.UserAgent
	}
	if out.Export.Format == "" {
		out.Export.Format = def.Export.Format
	}
	if out.Export.UploadsDir == "" {
		out.Export.UploadsDir = def.Export.UploadsDir
	}
	if out.Export.ResultsDir == "" {
		out.Export.ResultsDir = def.Export.ResultsDir
	}
	if out.Log.Level == "" {
		out.Log.Level = def.Log.Level
	}

	// ---- Validation rules ----

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}

	if out.Fetch.TimeoutSeconds <= 0 {
		res.addErr("fetch.timeout_seconds must be > 0")
	} else if out.Fetch.TimeoutSeconds > 60 {
		res.addWarn("fetch.timeout_seconds is high (%d); unreachable domains will stall workers.", out.Fetch.TimeoutSeconds)
	}
	if out.Fetch.MaxBodyBytes <= 0 {
		res.addErr("fetch.max_body_bytes must be > 0")
	}

	if out.Batch.Workers <= 0 {
		res.addErr("batch.workers must be > 0")
	} else if out.Batch.Workers > 64 {
		res.addWarn("batch.workers is very high (%d) and may look abusive to target sites.", out.Batch.Workers)
	}
	if out.Batch.PaceMS < 0 {
		res.addErr("batch.pace_ms must be >= 0")
	} else if out.Batch.PaceMS < 250 {
		res.addWarn("batch.pace_ms is very low (%d); each worker will hit sites almost back to back.", out.Batch.PaceMS)
	}
	if out.Batch.HostIntervalMS < 0 {
		res.addErr("batch.host_interval_ms must be >= 0")
	}

	if _, err := export.ParseFormat(out.Export.Format); err != nil {
		res.addErr("export.format must be csv or xlsx, got %q", out.Export.Format)
	}
	if out.Export.UploadsDir == out.Export.ResultsDir {
		res.addWarn("export.uploads_dir and export.results_dir are the same directory (%q).", out.Export.UploadsDir)
	}

	if out.Retention.Days < 0 {
		res.addErr("retention.days must be >= 0")
	} else if out.Retention.Days == 0 {
		res.addWarn("retention.days is 0; run history is kept forever.")
	}
	if out.Retention.Days > 0 && out.Retention.SweepMinutes <= 0 {
		res.addErr("retention.sweep_minutes must be > 0 when retention.days > 0")
	}

	if !logging.ValidLevel(out.Log.Level) {
		res.addErr("log.level %q is not a known level", out.Log.Level)
	}

	return out, res
}
