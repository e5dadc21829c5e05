package server

import (
	"fmt"
	"html/template"
	"net/http"
)

var indexTemplate = template.Must(template.New("index").Parse(indexHTML))

// sweepRow is the view model for one row of the job table.
type sweepRow struct {
	ID        string
	State     string
	Dataset   string
	Noise     string
	Progress  string
	BestScore string
	TestScore string
	Started   string
	Error     string
}

// handleIndex handles GET /
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	// Only handle exact root path
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	jobs := s.jobManager.ListJobs()

	rows := make([]sweepRow, len(jobs))
	for i, job := range jobs {
		rows[i] = sweepRow{
			ID:        shortID(job.ID),
			State:     string(job.State),
			Dataset:   fmt.Sprintf("%d classes / %d samples", job.Config.Dataset.Classes, job.Config.Dataset.Samples),
			Noise:     fmt.Sprintf("trace %.2f, sparsity %.2f", job.Config.Noise.Trace, job.Config.Noise.Sparsity),
			Progress:  fmt.Sprintf("%d/%d", job.TrialsDone, job.TrialsTotal),
			BestScore: formatScore(job.BestScore, job.BestIndex >= 0),
			TestScore: formatScore(job.TestScore, job.State == StateCompleted && job.TestScore >= 0),
			Started:   job.StartTime.Format("2006-01-02 15:04:05"),
			Error:     job.Error,
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, rows); err != nil {
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}

// shortID truncates a UUID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatScore renders an accuracy as a percentage, or a dash when the
// value is not meaningful yet.
func formatScore(v float64, ok bool) string {
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", v*100)
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="3">
<title>noisesweep</title>
<style>
body { font-family: sans-serif; margin: 2rem; color: #222; }
h1 { font-size: 1.4rem; }
table { border-collapse: collapse; width: 100%; }
th, td { text-align: left; padding: 0.4rem 0.8rem; border-bottom: 1px solid #ddd; }
th { background: #f5f5f5; }
.state-completed { color: #2a7a2a; }
.state-failed { color: #b03030; }
.state-running { color: #2a5db0; }
.error { color: #b03030; font-size: 0.85rem; }
.empty { color: #888; padding: 2rem 0; }
</style>
</head>
<body>
<h1>noisesweep &middot; label noise sweeps</h1>
{{if .}}
<table>
<tr>
<th>ID</th><th>State</th><th>Dataset</th><th>Noise</th><th>Trials</th>
<th>Best val acc</th><th>Test acc</th><th>Started</th><th>Error</th>
</tr>
{{range .}}
<tr>
<td><code>{{.ID}}</code></td>
<td class="state-{{.State}}">{{.State}}</td>
<td>{{.Dataset}}</td>
<td>{{.Noise}}</td>
<td>{{.Progress}}</td>
<td>{{.BestScore}}</td>
<td>{{.TestScore}}</td>
<td>{{.Started}}</td>
<td class="error">{{.Error}}</td>
</tr>
{{end}}
</table>
{{else}}
<p class="empty">No sweeps yet. POST a config to /api/v1/sweeps to start one.</p>
{{end}}
</body>
</html>
`
