package dashboard

import (
	"fmt"
	"net/http"
	"time"

	"WaterTruckDashboard/src/processor"
	"WaterTruckDashboard/src/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler 看板的HTTP接口
type Handler struct {
	store   *Store
	metrics *Metrics
	logger  *storage.Logger
}

func NewHandler(store *Store, metrics *Metrics, logger *storage.Logger) *Handler {
	return &Handler{store: store, metrics: metrics, logger: logger}
}

// Routes 返回全部路由
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)
	r.Get("/logs", h.StreamLogs)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.metrics.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/options", h.GetOptions)
		r.Get("/dashboard", h.GetDashboard)
		r.Get("/missing", h.GetMissing)
	})
	return r
}

// ErrResponse 错误响应
type ErrResponse struct {
	HTTPStatusCode int    `json:"-"`
	StatusText     string `json:"status"`
	ErrorText      string `json:"error,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func errNoData(err error) render.Renderer {
	return &ErrResponse{
		HTTPStatusCode: http.StatusServiceUnavailable,
		StatusText:     "no data",
		ErrorText:      err.Error(),
	}
}

func errInternal(err error) render.Renderer {
	return &ErrResponse{
		HTTPStatusCode: http.StatusInternalServerError,
		StatusText:     "internal error",
		ErrorText:      err.Error(),
	}
}

type optionsResponse struct {
	SnapshotID string        `json:"snapshot_id"`
	All        string        `json:"all"`
	Options    FilterOptions `json:"options"`
}

// GetOptions GET /api/options
func (h *Handler) GetOptions(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Current()
	if err != nil {
		h.metrics.observeRequest("options", "no_data")
		render.Render(w, r, errNoData(err))
		return
	}
	h.metrics.observeRequest("options", "ok")
	render.JSON(w, r, optionsResponse{
		SnapshotID: snap.Result.ID,
		All:        AllOption,
		Options:    snap.Options,
	})
}

// GetDashboard GET /api/dashboard?month=&driver=&vehicle=
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sel := Selection{
		Month:   q.Get("month"),
		Driver:  q.Get("driver"),
		Vehicle: q.Get("vehicle"),
	}

	if _, err := h.store.Current(); err != nil {
		h.metrics.observeRequest("dashboard", "no_data")
		render.Render(w, r, errNoData(err))
		return
	}

	d, err := h.store.Dashboard(sel)
	if err != nil {
		h.metrics.observeRequest("dashboard", "error")
		h.logError(r, "生成看板失败", err)
		render.Render(w, r, errInternal(err))
		return
	}
	h.metrics.observeRequest("dashboard", "ok")
	render.JSON(w, r, d)
}

type missingResponse struct {
	SnapshotID   string                   `json:"snapshot_id"`
	Before       []processor.MissingEntry `json:"before"`
	BeforeTotal  int                      `json:"before_total"`
	After        []processor.MissingEntry `json:"after"`
	AfterTotal   int                      `json:"after_total"`
	Unresolved   int                      `json:"after_unresolved"`
	InvalidDates int                      `json:"invalid_dates"`
	Clean        bool                     `json:"clean"`
	Fills        map[string]int           `json:"fills"`
}

// GetMissing GET /api/missing 清洗前后的缺失值报告
func (h *Handler) GetMissing(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Current()
	if err != nil {
		h.metrics.observeRequest("missing", "no_data")
		render.Render(w, r, errNoData(err))
		return
	}
	res := snap.Result
	fills := make(map[string]int)
	for src, n := range res.FillCounts() {
		fills[string(src)] = n
	}

	h.metrics.observeRequest("missing", "ok")
	render.JSON(w, r, missingResponse{
		SnapshotID:   res.ID,
		Before:       res.MissingBefore.Entries(),
		BeforeTotal:  res.MissingBefore.Total,
		After:        res.MissingAfter.Entries(),
		AfterTotal:   res.MissingAfter.Total,
		Unresolved:   res.MissingAfter.Unresolved(),
		InvalidDates: res.InvalidDates,
		Clean:        res.Clean,
		Fills:        fills,
	})
}

// Health GET /healthz 有数据时200，否则503
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Current()
	if err != nil {
		render.Render(w, r, errNoData(err))
		return
	}
	resp := map[string]interface{}{
		"status":    "ok",
		"snapshot":  snap.Result.ID,
		"loaded_at": snap.LoadedAt.Format(time.RFC3339),
	}
	if last := h.store.LastError(); last != nil {
		resp["last_error"] = last.Error()
	}
	render.JSON(w, r, resp)
}

// StreamLogs GET /logs 实时输出日志
func (h *Handler) StreamLogs(w http.ResponseWriter, r *http.Request) {
	if h.logger == nil {
		http.Error(w, "logger not configured", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	logChan := h.logger.Subscribe()
	defer h.logger.Unsubscribe(logChan)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	for {
		select {
		case msg, ok := <-logChan:
			if !ok {
				return
			}
			// msg 本身以换行结尾
			if _, err := fmt.Fprint(w, msg); err != nil {
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		case <-r.Context().Done():
			return
		}
	}
}

func (h *Handler) logError(r *http.Request, msg string, err error) {
	if h.logger == nil {
		return
	}
	h.logger.Event(storage.ERROR, msg, storage.Fields{
		"request_id": middleware.GetReqID(r.Context()),
		"path":       r.URL.Path,
		"error":      err.Error(),
	})
}
