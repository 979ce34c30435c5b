package handlers

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"retail-rfm/internal/services"
)

const maxProducts = services.DefaultTopProducts

var (
	segmentTableTemplate = template.Must(template.New("segmentTable").Parse(`
<div id="segments-content">
<table class="modern-table">
<thead><tr><th>Segment</th><th>Customers</th></tr></thead>
<tbody>
{{range .}}<tr>
<td><span class="segment-badge">{{.Segment}}</span></td>
<td><strong>{{.Customers}}</strong></td>
</tr>{{end}}
</tbody>
</table>
</div>`))

	monthlyTableTemplate = template.Must(template.New("monthlyTable").Parse(`
<div id="monthly-content">
<table class="modern-table">
<thead><tr><th>Month</th><th>Total Sales</th></tr></thead>
<tbody>
{{range .}}<tr>
<td>{{.Date.Format "2006-01"}}</td>
<td>£{{.TotalPrice.StringFixed 2}}</td>
</tr>{{end}}
</tbody>
</table>
</div>`))

	productsTableTemplate = template.Must(template.New("productsTable").Parse(`
<div id="products-content">
<table class="modern-table">
<thead><tr><th>Product</th><th>Quantity</th></tr></thead>
<tbody>
{{range .}}<tr>
<td>{{.Description}}</td>
<td>{{.Quantity}}</td>
</tr>{{end}}
</tbody>
</table>
</div>`))
)

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf strings.Builder
	err := tmpl.Execute(&buf, data)
	return buf.String(), err
}

func (h *SSEHandlers) patch(sse *datastar.ServerSentEventGenerator, tmpl *template.Template, data any) bool {
	html, err := render(tmpl, data)
	if err != nil {
		h.logger.Error("render fragment", "template", tmpl.Name(), "error", err)
		return false
	}
	if err := sse.PatchElements(html); err != nil {
		h.logger.Error("patch elements", "template", tmpl.Name(), "error", err)
		return false
	}
	return true
}

func (h *SSEHandlers) signals(sse *datastar.ServerSentEventGenerator, signals map[string]any) bool {
	jsonData, err := json.Marshal(signals)
	if err != nil {
		h.logger.Error("marshal signals", "error", err)
		return false
	}
	if err := sse.PatchSignals(jsonData); err != nil {
		h.logger.Error("patch signals", "error", err)
		return false
	}
	return true
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandleSegments(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	data := h.analytics.Segments()
	if !h.signals(sse, map[string]any{"segmentsData": data}) {
		return
	}
	h.patch(sse, segmentTableTemplate, data)
	flush(w)
}

func (h *SSEHandlers) HandleTopProducts(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	data := h.analytics.TopProducts(maxProducts)
	if !h.signals(sse, map[string]any{"productsData": data}) {
		return
	}
	h.patch(sse, productsTableTemplate, data)
	flush(w)
}

func (h *SSEHandlers) HandleMonthlySales(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	data := h.analytics.MonthlySales()
	if !h.signals(sse, map[string]any{"monthlyData": data}) {
		return
	}
	h.patch(sse, monthlyTableTemplate, data)
	flush(w)
}

func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	segments := h.analytics.Segments()
	products := h.analytics.TopProducts(maxProducts)
	monthly := h.analytics.MonthlySales()

	ok := h.signals(sse, map[string]any{
		"segmentsData": segments,
		"productsData": products,
		"monthlyData":  monthly,
	})
	if !ok {
		return
	}

	h.patch(sse, segmentTableTemplate, segments)
	h.patch(sse, productsTableTemplate, products)
	h.patch(sse, monthlyTableTemplate, monthly)
	flush(w)
}
