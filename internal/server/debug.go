package server

import (
	"encoding/json"
	"net/http"

	"sandbox-server/internal/domain"
	"sandbox-server/internal/engine"
)

// DebugHandler предоставляет доступ к внутреннему состоянию мира.
// READ-only: все ручки ходят через Simulation (под мьютексом).
type DebugHandler struct {
	Sim *engine.Simulation
}

func NewDebugHandler(sim *engine.Simulation) *DebugHandler {
	return &DebugHandler{Sim: sim}
}

// RegisterRoutes регистрирует debug-эндпоинты
func (h *DebugHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/debug/locations", h.handleLocations)
	mux.HandleFunc("/debug/entities", h.handleDumpEntities)
	mux.HandleFunc("/debug/events", h.handleEvents)
}

// /debug/locations - граф локаций и численность
func (h *DebugHandler) handleLocations(w http.ResponseWriter, r *http.Request) {
	type LocationSummary struct {
		ID          string            `json:"id"`
		Name        string            `json:"name"`
		EntityCount int               `json:"entity_count"`
		Connections map[string]string `json:"connections,omitempty"`
	}

	var summary []LocationSummary
	h.Sim.Inspect(func(d engine.WorldDump) {
		for _, loc := range d.Locations {
			summary = append(summary, LocationSummary{
				ID:          loc.ID,
				Name:        loc.Name,
				EntityCount: len(loc.Entities),
				Connections: loc.Connections,
			})
		}
	})
	writeJSON(w, summary)
}

// /debug/entities?location=forest - полный дамп сущностей
// (включая скрытое содержимое контейнеров, минуя правила видимости)
func (h *DebugHandler) handleDumpEntities(w http.ResponseWriter, r *http.Request) {
	locFilter := r.URL.Query().Get("location")

	var dump []*domain.Entity
	h.Sim.Inspect(func(d engine.WorldDump) {
		for _, ent := range d.Entities {
			if locFilter != "" {
				loc := d.LocationOf[ent.ID]
				if loc != locFilter {
					continue
				}
			}
			dump = append(dump, ent)
		}
	})
	writeJSON(w, dump)
}

// /debug/events?n=50 - хвост журнала событий
func (h *DebugHandler) handleEvents(w http.ResponseWriter, r *http.Request) {
	n := 50
	if q := r.URL.Query().Get("n"); q != "" {
		var parsed int
		if _, err := jsonNumber(q, &parsed); err == nil && parsed > 0 {
			n = parsed
		}
	}

	var tail []domain.Event
	h.Sim.Inspect(func(d engine.WorldDump) {
		log := d.Events
		if len(log) > n {
			log = log[len(log)-n:]
		}
		tail = append(tail, log...)
	})
	writeJSON(w, tail)
}

func jsonNumber(s string, out *int) (int, error) {
	err := json.Unmarshal([]byte(s), out)
	return *out, err
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	w.Header().Set("Content-Type", "application/json")

	// Пустой результат отдаем как [], а не null
	if data == nil {
		w.Write([]byte("[]"))
		return
	}

	json.NewEncoder(w).Encode(data)
}
