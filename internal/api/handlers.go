package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"ips-guard/internal/param"
	"ips-guard/internal/plugin"
	"ips-guard/internal/rules"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type Handlers struct {
	store    *Storage
	engine   *rules.Engine
	logger   *logrus.Logger
	upgrader websocket.Upgrader
	ping     time.Duration
}

func NewHandlers(store *Storage, engine *rules.Engine, logger *logrus.Logger) *Handlers {
	return &Handlers{
		store:  store,
		engine: engine,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				logger.Debugf("WebSocket origin check: %s", r.Header.Get("Origin"))
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		ping: 30 * time.Second,
	}
}

type optionInfo struct {
	Name       string      `json:"name"`
	Type       string      `json:"type"`
	Help       string      `json:"help"`
	Category   string      `json:"category,omitempty"`
	Protocols  string      `json:"protocols,omitempty"`
	MaxPerRule int         `json:"max_per_rule,omitempty"`
	Params     []paramInfo `json:"params"`
}

type paramInfo struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Range   string `json:"range,omitempty"`
	Default string `json:"default,omitempty"`
	Help    string `json:"help,omitempty"`
}

// GetOptions lists every registered kind with its parameter table.
func (h *Handlers) GetOptions(w http.ResponseWriter, r *http.Request) {
	entries := h.engine.Registry().Entries()
	out := make([]optionInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, describe(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func describe(e *plugin.Entry) optionInfo {
	info := optionInfo{
		Name: e.Base.Name,
		Type: e.Base.Type.String(),
		Help: e.Base.Help,
	}
	if e.Ips != nil {
		info.Category = e.Ips.Category.String()
		info.Protocols = e.Ips.Protocols.String()
		info.MaxPerRule = e.Ips.MaxPerRule
	}

	m := e.Base.ModCtor()
	defer e.Base.ModDtor(m)
	info.Params = paramsInfo(m.Params())
	return info
}

func paramsInfo(t param.Table) []paramInfo {
	out := make([]paramInfo, 0, len(t))
	for _, p := range t {
		out = append(out, paramInfo{Name: p.Name, Type: p.Type.String(), Range: p.Range, Default: p.Default, Help: p.Help})
	}
	return out
}

type profileRow struct {
	Name       string  `json:"name"`
	Checks     uint64  `json:"checks"`
	ElapsedNs  int64   `json:"elapsed_ns"`
	AverageNs  int64   `json:"avg_ns"`
	PercentAll float64 `json:"percent"`
}

// GetProfile returns the flushed per-option counters.
func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Registry().Profile().Snapshot()

	var total time.Duration
	for _, s := range snap {
		total += s.Elapsed
	}

	rows := make([]profileRow, 0, len(snap))
	for _, s := range snap {
		row := profileRow{
			Name:      s.Name,
			Checks:    s.Checks,
			ElapsedNs: s.Elapsed.Nanoseconds(),
			AverageNs: s.Average().Nanoseconds(),
		}
		if total > 0 {
			row.PercentAll = 100 * float64(s.Elapsed) / float64(total)
		}
		rows = append(rows, row)
	}
	writeJSON(w, http.StatusOK, rows)
}

// GetRules returns the active rule set.
func (h *Handlers) GetRules(w http.ResponseWriter, r *http.Request) {
	set := h.engine.RuleSet()
	if set == nil {
		writeError(w, http.StatusServiceUnavailable, "No rules loaded")
		return
	}

	items := make([]interface{}, 0, len(set.Rules))
	for _, cr := range set.Rules {
		items = append(items, map[string]interface{}{
			"id":      cr.Rule.ID(),
			"rule":    cr.Rule,
			"options": cr.Options,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items":          items,
		"total":          len(set.Rules),
		"disabled":       set.Disabled(),
		"unique_options": set.Table().Len(),
		"merged_options": set.Table().Merged(),
		"loaded_at":      set.Loaded,
	})
}

func filterFromQuery(r *http.Request) AlertFilter {
	q := r.URL.Query()
	sid, _ := strconv.ParseUint(q.Get("sid"), 10, 32)
	return AlertFilter{
		Severity: q.Get("severity"),
		SID:      uint32(sid),
		Search:   q.Get("search"),
	}
}

func (h *Handlers) GetAlerts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}

	alerts := h.store.GetAlerts(limit, filterFromQuery(r))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": alerts,
		"total": len(alerts),
	})
}

func (h *Handlers) GetAlert(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	alert := h.store.GetAlertByID(id)
	if alert == nil {
		writeError(w, http.StatusNotFound, "Alert not found")
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

// StreamAlerts pushes new alerts over a websocket as JSON messages.
func (h *Handlers) StreamAlerts(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	sub := &AlertSubscriber{
		Channel: make(chan StoredAlert, 100),
		Filter:  filterFromQuery(r),
	}
	h.store.SubscribeAlerts(sub)
	defer h.store.UnsubscribeAlerts(sub)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.ping)
	defer ticker.Stop()

	for {
		select {
		case alert, ok := <-sub.Channel:
			if !ok {
				return
			}
			if err := conn.WriteJSON(alert); err != nil {
				h.logger.Errorf("WebSocket write error: %v", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
