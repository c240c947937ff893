package storage

import (
	"sync"
	"time"

	"sandbox-server/internal/domain"
)

// Recorder накапливает ленту запросов прогона (engine.RequestRecorder).
// Потокобезопасен: запросы приходят и из цикла тиков, и из WS-обработчиков.
type Recorder struct {
	mu      sync.Mutex
	session domain.ReplaySession
}

func NewRecorder(seed int64, worldName string) *Recorder {
	return &Recorder{
		session: domain.ReplaySession{
			Seed:      seed,
			Timestamp: time.Now().Unix(),
			WorldName: worldName,
		},
	}
}

func (r *Recorder) Record(req domain.ReplayRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session.Requests = append(r.session.Requests, req)
}

// Session возвращает снимок накопленной ленты
func (r *Recorder) Session() *domain.ReplaySession {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.session
	out.Requests = make([]domain.ReplayRequest, len(r.session.Requests))
	copy(out.Requests, r.session.Requests)
	return &out
}

func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.session.Requests)
}
