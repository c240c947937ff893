package server

import (
	"encoding/json"
	"net/http"
	_ "net/http/pprof" // Profiling

	"sandbox-server/internal/engine"
	"sandbox-server/internal/network"
	"sandbox-server/internal/perception"
	"sandbox-server/internal/version"
	"sandbox-server/pkg/api"
	"sandbox-server/pkg/logger"
)

type Server struct {
	Sim  *engine.Simulation
	Hub  *network.Broadcaster
	Addr string
}

func New(sim *engine.Simulation, addr string) *Server {
	hub := network.NewBroadcaster()
	sim.SetNotifier(&hubNotifier{hub: hub})
	return &Server{
		Sim:  sim,
		Hub:  hub,
		Addr: addr,
	}
}

// Run запускает HTTP сервер
func (s *Server) Run() error {
	mux := http.DefaultServeMux

	mux.HandleFunc("/ws", enableCORS(s.handleWS))
	mux.HandleFunc("/health", enableCORS(s.handleHealth))
	mux.HandleFunc("/version", enableCORS(s.handleVersion))

	debugHandler := NewDebugHandler(s.Sim)
	debugHandler.RegisterRoutes(mux)

	logger.Log.Infof("Sandbox server running on %s", s.Addr)
	return http.ListenAndServe(s.Addr, mux)
}

func enableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		next(w, r)
	}
}

// handleWS обрабатывает подключение по WebSocket
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("Upgrade error:", err)
		return
	}

	client := NewClient(s.Sim, s.Hub, conn)

	go client.writePump()
	go client.readPump()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(version.Info())
}

// hubNotifier пробрасывает наблюдения тика подключенным клиентам
type hubNotifier struct {
	hub *network.Broadcaster
}

func (n *hubNotifier) PublishObservation(obs perception.Observation) {
	if !n.hub.HasSubscriber(obs.AgentID) {
		return
	}
	n.hub.SendTo(obs.AgentID, api.ServerResponse{
		Type:        api.ResponseObservation,
		Tick:        obs.Tick,
		MyEntityID:  string(obs.AgentID),
		Observation: &obs,
	})
}
