package session

import (
	"sort"
	"sync"
	"time"

	"cad-service/internal/cad/domain"
	"cad-service/internal/cad/engine"
	"cad-service/internal/common/logging"

	"github.com/google/uuid"
)

// ============================================================
// Session Registry
// ============================================================

// Session: движок одного клиента. Все изменяющие вызовы идут через Do.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu     sync.Mutex
	engine *engine.Engine
	now    func() time.Time

	// seenMu охраняет только lastSeen и никогда не держится во время Do.
	seenMu   sync.Mutex
	lastSeen time.Time
}

// Do выполняет fn под замком сессии.
func (s *Session) Do(fn func(e *engine.Engine) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return fn(s.engine)
}

func (s *Session) touch() {
	s.seenMu.Lock()
	s.lastSeen = s.now()
	s.seenMu.Unlock()
}

// Info: сводка по сессии.
type Info struct {
	ID         string    `json:"session_id"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeen   time.Time `json:"last_seen"`
	Planes     int       `json:"planes"`
	Sketches   int       `json:"sketches"`
	Shapes     int       `json:"shapes"`
	Extrusions int       `json:"extrusions"`
}

func (s *Session) info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		ID:         s.ID,
		CreatedAt:  s.CreatedAt,
		LastSeen:   s.idleSince(),
		Planes:     len(s.engine.PlaneIDs()),
		Sketches:   len(s.engine.SketchIDs()),
		Shapes:     len(s.engine.ShapeIDs()),
		Extrusions: len(s.engine.FeatureIDs()),
	}
}

func (s *Session) idleSince() time.Time {
	s.seenMu.Lock()
	defer s.seenMu.Unlock()
	return s.lastSeen
}

// Registry хранит сессии по id. Создаётся явно, глобального состояния нет.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	opts     engine.Options
	now      func() time.Time
}

func NewRegistry(opts engine.Options) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		opts:     opts,
		now:      time.Now,
	}
}

// GetOrCreate возвращает сессию, создавая её при первом обращении.
// Пустой id означает новую сессию со случайным id.
func (r *Registry) GetOrCreate(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id == "" {
		id = uuid.NewString()
	}
	if s, ok := r.sessions[id]; ok {
		return s, false
	}
	now := r.now()
	s := &Session{
		ID:        id,
		CreatedAt: now,
		engine:    engine.New(r.opts),
		lastSeen:  now,
		now:       r.now,
	}
	r.sessions[id] = s
	logging.Logf("[SESSION] created %s (total %d)", id, len(r.sessions))
	return s, true
}

// Get возвращает существующую сессию.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.NotFound("session", id)
	}
	return s, nil
}

// Info возвращает сводку по сессии.
func (r *Registry) Info(id string) (Info, error) {
	s, err := r.Get(id)
	if err != nil {
		return Info{}, err
	}
	return s.info(), nil
}

// Evict удаляет сессию вместе со всеми её объектами.
func (r *Registry) Evict(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return domain.NotFound("session", id)
	}
	delete(r.sessions, id)
	logging.Logf("[SESSION] evicted %s", id)
	return nil
}

// EvictIdle удаляет сессии, к которым не обращались дольше maxIdle,
// и возвращает их id. Замок занятой сессии не берётся, поэтому долгий Do
// не задерживает остальные обращения к реестру.
func (r *Registry) EvictIdle(maxIdle time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-maxIdle)
	var evicted []string
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) {
			delete(r.sessions, id)
			evicted = append(evicted, id)
		}
	}
	sort.Strings(evicted)
	if len(evicted) > 0 {
		logging.Logf("[SESSION] evicted %d idle session(s)", len(evicted))
	}
	return evicted
}

// Clear удаляет все сессии и возвращает их id.
func (r *Registry) Clear() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	r.sessions = make(map[string]*Session)
	logging.Logf("[SESSION] cleared %d session(s)", len(ids))
	return ids
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// IDs: id сессий в лексикографическом порядке.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
