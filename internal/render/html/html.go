package html

import (
	"fmt"
	"html/template"
	"io"
	"math"
	"strings"

	"github.com/planbench/planbench/internal/aggregate"
	"github.com/planbench/planbench/internal/config"
	"github.com/planbench/planbench/internal/model"
)

// Options configures the HTML renderer.
type Options struct {
	Title         string
	IncludeStyles bool
}

// Render writes an HTML report containing the plan summary and an annotated
// operator tree for a single normalized plan.
func Render(w io.Writer, plan *model.Plan, totals aggregate.Totals, opts Options) error {
	if plan == nil || plan.Empty() {
		return fmt.Errorf("html render: empty plan")
	}
	if opts.Title == "" {
		opts.Title = "planbench report"
		if plan.QueryTitle != "" {
			opts.Title = plan.QueryTitle
		}
	}
	data := buildTemplateData(plan, totals, opts)
	tpl, err := template.New("report").Funcs(template.FuncMap{"join": strings.Join}).Parse(reportTemplate)
	if err != nil {
		return fmt.Errorf("html render: compile template: %w", err)
	}
	if err := tpl.Execute(w, data); err != nil {
		return fmt.Errorf("html render: execute template: %w", err)
	}
	return nil
}

type templateData struct {
	Title         string
	IncludeStyles bool
	Summary       summaryView
	Roots         []*nodeView
	HotOperators  []listView
	SyncHeavy     []listView
}

type summaryView struct {
	WallClock       string
	Processing      string
	Synchronization string
	NodeCount       int
	HotCount        int
	SyncShare       string
}

type listView struct {
	Label string
	Self  string
	Share string
	Extra string
}

type nodeView struct {
	Label      string
	Anchor     string
	Self       string
	Share      string
	BarWidth   float64
	Heat       float64
	Rows       string
	Sync       string
	Warning    string
	Children   []*nodeView
	HasWarning bool
}

func buildTemplateData(plan *model.Plan, totals aggregate.Totals, opts Options) templateData {
	wall := totals.WallClockSeconds

	hot := make([]listView, 0, len(totals.HotOperators))
	for _, op := range totals.HotOperators {
		hot = append(hot, listView{
			Label: operatorLabel(op.ID, op.Node),
			Self:  formatSeconds(op.ProcessingSeconds),
			Share: fmt.Sprintf("%.1f%%", op.Share*100),
			Extra: formatRows(op.Node),
		})
	}

	syncHeavy := collectSyncHeavy(plan, wall)

	roots := make([]*nodeView, 0, len(plan.Roots))
	idx := indexByNode(plan)
	for _, root := range plan.Roots {
		roots = append(roots, buildNodeView(root, idx, wall))
	}

	return templateData{
		Title:         opts.Title,
		IncludeStyles: opts.IncludeStyles,
		Summary: summaryView{
			WallClock:       formatSeconds(wall),
			Processing:      formatSeconds(totals.ProcessingSeconds),
			Synchronization: formatSeconds(totals.SynchronizationSeconds),
			NodeCount:       totals.NodeCount,
			HotCount:        len(totals.HotOperators),
			SyncShare:       fmt.Sprintf("%.1f%%", totals.SynchronizationPercent),
		},
		Roots:        roots,
		HotOperators: hot,
		SyncHeavy:    syncHeavy,
	}
}

// collectSyncHeavy lists operators whose synchronization time crosses the
// configured warning share of the total wall clock.
func collectSyncHeavy(plan *model.Plan, wall float64) []listView {
	if wall <= 0 {
		return nil
	}
	cfg := config.Active().Report
	var out []listView
	for _, flat := range plan.FlatNodes {
		sync := flat.Node.MetricOrZero(model.MetricSynchronizationSeconds)
		share := sync / wall
		if share*100 < cfg.SyncWarningPercent {
			continue
		}
		out = append(out, listView{
			Label: operatorLabel(flat.ID, flat.Node),
			Self:  formatSeconds(sync),
			Share: fmt.Sprintf("%.1f%%", share*100),
			Extra: formatRows(flat.Node),
		})
	}
	return out
}

func buildNodeView(node *model.OperatorNode, idx map[*model.OperatorNode]int, wall float64) *nodeView {
	proc := node.MetricOrZero(model.MetricProcessingSeconds)
	sync := node.MetricOrZero(model.MetricSynchronizationSeconds)
	share := 0.0
	syncShare := 0.0
	if wall > 0 {
		share = proc / wall
		syncShare = sync / wall
	}
	id := idx[node]
	view := &nodeView{
		Label:    operatorLabel(id, node),
		Anchor:   fmt.Sprintf("op-%d", id),
		Self:     formatSeconds(proc),
		Share:    fmt.Sprintf("%.1f%%", share*100),
		BarWidth: math.Min(100, math.Max(0, share*100)),
		Heat:     clamp(share*2.5, 0, 1),
		Rows:     formatRows(node),
	}
	if sync > 0 {
		view.Sync = fmt.Sprintf("sync %s (%.1f%%)", formatSeconds(sync), syncShare*100)
	}
	cfg := config.Active().Report
	switch {
	case syncShare*100 >= cfg.SyncCriticalPercent:
		view.Warning = "synchronization dominates this operator"
		view.HasWarning = true
	case syncShare*100 >= cfg.SyncWarningPercent:
		view.Warning = "high synchronization share"
		view.HasWarning = true
	}
	for _, child := range node.Children {
		view.Children = append(view.Children, buildNodeView(child, idx, wall))
	}
	return view
}

func indexByNode(plan *model.Plan) map[*model.OperatorNode]int {
	idx := make(map[*model.OperatorNode]int, len(plan.FlatNodes))
	for _, flat := range plan.FlatNodes {
		idx[flat.Node] = flat.ID
	}
	return idx
}

func operatorLabel(id int, node *model.OperatorNode) string {
	label := fmt.Sprintf("O%d: %s", id, node.Type)
	if node.Detail != "" {
		label += " " + node.Detail
	}
	return label
}

func formatSeconds(s float64) string {
	if s >= 1 {
		return fmt.Sprintf("%.3f s", s)
	}
	return fmt.Sprintf("%.2f ms", s*1000)
}

func formatRows(node *model.OperatorNode) string {
	rows, ok := node.Metric(model.MetricRows)
	if !ok {
		return ""
	}
	return fmt.Sprintf("rows %.0f", rows)
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

const reportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="utf-8">
	<title>{{.Title}}</title>
	{{- if .IncludeStyles }}
	<style>
		body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Helvetica, Arial, sans-serif; margin: 0; padding: 0; background: #f7f7f8; color: #202124; }
		main { max-width: 960px; margin: 0 auto; padding: 32px 24px 48px; }
		header { background: #212a3b; color: #f7f7f8; padding: 32px 24px; }
		header h1 { margin: 0 0 8px; font-size: 28px; }
		header p { margin: 4px 0; opacity: 0.8; }
		section { margin-top: 32px; }
		section h2 { margin-bottom: 12px; font-size: 20px; }
		.summary-grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(180px, 1fr)); gap: 12px; }
		.summary-tile { background: #fff; border-radius: 10px; padding: 16px; box-shadow: 0 6px 18px rgba(13,28,39,0.12); }
		.summary-tile strong { display: block; font-size: 14px; text-transform: uppercase; letter-spacing: 0.04em; color: #5b7083; margin-bottom: 6px; }
		.summary-tile span { font-size: 18px; font-weight: 600; }
		.flex-list { display: flex; flex-direction: column; gap: 10px; }
		.list-card { background: #fff; border-radius: 12px; padding: 16px; box-shadow: 0 4px 12px rgba(13,28,39,0.10); }
		.list-card header { display: flex; justify-content: space-between; align-items: baseline; }
		.list-card header h3 { margin: 0; font-size: 16px; color: #253043; }
		.list-card header span { font-size: 13px; color: #5b7083; }
		.list-card ul { list-style: none; padding: 0; margin: 12px 0 0; }
		.list-card li { display: grid; grid-template-columns: 1fr auto auto; gap: 12px; font-size: 14px; padding: 8px 0; border-bottom: 1px solid rgba(91,112,131,0.16); }
		.list-card li:last-child { border-bottom: none; }
		.plan-tree { list-style: none; margin: 0; padding: 0; }
		.plan-tree > li { margin-bottom: 12px; }
		.node-card { background: #fff; border-radius: 12px; margin-bottom: 12px; position: relative; padding: 16px 18px 14px 18px; box-shadow: 0 8px 20px rgba(16,37,58,0.12); border-left: 6px solid rgba(33,42,59,0.1); }
		.node-card::after { content: ""; position: absolute; inset: 0; border-radius: inherit; background: linear-gradient(90deg, rgba(244,71,71,var(--heat)) 0%, rgba(244,71,71,0) 72%); opacity: 0.35; pointer-events: none; }
		.node-header { position: relative; z-index: 1; display: flex; justify-content: space-between; gap: 12px; align-items: baseline; }
		.node-label { font-weight: 600; font-size: 15px; }
		.node-metrics { font-size: 13px; color: #5b7083; }
		.node-bar { position: relative; z-index: 1; margin-top: 10px; background: rgba(33,42,59,0.08); border-radius: 999px; height: 8px; overflow: hidden; }
		.node-bar span { display: block; height: 100%; border-radius: inherit; background: linear-gradient(90deg, #f44747 0%, #faae32 100%); width: calc(var(--width) * 1%); }
		.node-meta { position: relative; z-index: 1; margin-top: 10px; font-size: 13px; color: #364a63; display: flex; flex-wrap: wrap; gap: 12px 18px; }
		.node-warning { color: #b25600; font-weight: 600; }
		.node-children { margin-left: 24px; border-left: 1px dashed rgba(33,42,59,0.15); padding-left: 20px; }
		@media (max-width: 640px) {
			main { padding: 24px 16px 32px; }
			.list-card li { grid-template-columns: 1fr auto; grid-template-areas: "label share" "extra extra"; }
			.list-card li span:nth-child(3) { grid-area: share; }
			.list-card li span:nth-child(4) { grid-area: extra; }
		}
	</style>
	{{- end }}
</head>
<body>
	<header>
		<h1>{{.Title}}</h1>
		<p>Wall clock {{.Summary.WallClock}} · Processing {{.Summary.Processing}} · Synchronization {{.Summary.Synchronization}}</p>
		<p>Operators {{.Summary.NodeCount}} · Hot {{.Summary.HotCount}} · Sync share {{.Summary.SyncShare}}</p>
	</header>
	<main>
		<section>
			<h2>Highlights</h2>
			<div class="summary-grid">
				<div class="summary-tile">
					<strong>Wall clock</strong>
					<span>{{.Summary.WallClock}}</span>
				</div>
				<div class="summary-tile">
					<strong>Processing time</strong>
					<span>{{.Summary.Processing}}</span>
				</div>
				<div class="summary-tile">
					<strong>Synchronization</strong>
					<span>{{.Summary.Synchronization}}</span>
				</div>
				<div class="summary-tile">
					<strong>Operators / Hot</strong>
					<span>{{.Summary.NodeCount}} / {{.Summary.HotCount}}</span>
				</div>
			</div>
		</section>

		<section>
			<h2>Signals</h2>
			<div class="flex-list">
				<div class="list-card">
					<header>
						<h3>Hot operators</h3>
						<span>Highest processing time share</span>
					</header>
					<ul>
						{{- if .HotOperators }}
							{{- range .HotOperators }}
							<li>
								<span>{{.Label}}</span>
								<span>{{.Self}}</span>
								<span>{{.Share}}</span>
								<span>{{.Extra}}</span>
							</li>
							{{- end }}
						{{- else }}
							<li><span>No hot operators above threshold</span></li>
						{{- end }}
					</ul>
				</div>
				<div class="list-card">
					<header>
						<h3>Synchronization pressure</h3>
						<span>Time spent blocked or waiting</span>
					</header>
					<ul>
						{{- if .SyncHeavy }}
							{{- range .SyncHeavy }}
							<li>
								<span>{{.Label}}</span>
								<span>{{.Self}}</span>
								<span>{{.Share}}</span>
								<span>{{.Extra}}</span>
							</li>
							{{- end }}
						{{- else }}
							<li><span>No operators above the synchronization warning share</span></li>
						{{- end }}
					</ul>
				</div>
			</div>
		</section>

		<section>
			<h2>Plan Tree</h2>
			<ul class="plan-tree">
				{{- range .Roots }}
					{{ template "node" . }}
				{{- end }}
			</ul>
		</section>
	</main>

	{{ define "node" }}
	<li>
		<div class="node-card" id="{{.Anchor}}" style="--heat: {{printf "%.3f" .Heat}};">
		<div class="node-header">
			<span class="node-label">{{.Label}}</span>
			<span class="node-metrics">{{.Self}} · {{.Share}}</span>
		</div>
			<div class="node-bar"><span style="--width: {{printf "%.2f" .BarWidth}};"></span></div>
			<div class="node-meta">
				{{- if .Rows }}<span>{{.Rows}}</span>{{- end }}
				{{- if .Sync }}<span>{{.Sync}}</span>{{- end }}
				{{- if .HasWarning }}<span class="node-warning">{{.Warning}}</span>{{- end }}
			</div>
		</div>
		{{- if .Children }}
		<ul class="node-children">
			{{- range .Children }}
				{{ template "node" . }}
			{{- end }}
		</ul>
		{{- end }}
	</li>
	{{ end }}
</body>
</html>
`
