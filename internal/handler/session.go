package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yogaaditandanu/medical-image-analysis/internal/models"
	"github.com/yogaaditandanu/medical-image-analysis/internal/prompt"
)

const sessionCookie = "medimage_session"

type sessionKey struct{}

// SessionMiddleware makes sure every request carries a session id cookie.
func SessionMiddleware(ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(sessionCookie); err == nil {
				if _, err := uuid.Parse(c.Value); err == nil {
					id = c.Value
				}
			}
			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     sessionCookie,
					Value:    id,
					Path:     "/",
					MaxAge:   int(ttl.Seconds()),
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, id)))
		})
	}
}

func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// widgets holds what the browser would keep in its widgets between renders:
// the pending upload and the selected mode. Nothing here is persisted.
type widgets struct {
	upload  *models.Upload
	mode    prompt.Mode
	touched time.Time
}

// widgetRegistry drops entries that have not been touched for ttl, the same
// lifetime as the session cookie. A zero ttl keeps entries forever.
type widgetRegistry struct {
	mu    sync.Mutex
	items map[string]widgets
	ttl   time.Duration
	now   func() time.Time
}

func newWidgetRegistry(ttl time.Duration) *widgetRegistry {
	return &widgetRegistry{
		items: make(map[string]widgets),
		ttl:   ttl,
		now:   time.Now,
	}
}

// expire must be called with mu held.
func (r *widgetRegistry) expire(now time.Time) {
	if r.ttl <= 0 {
		return
	}
	for id, w := range r.items {
		if now.Sub(w.touched) > r.ttl {
			delete(r.items, id)
		}
	}
}

func (r *widgetRegistry) get(id string) widgets {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.expire(now)
	w, ok := r.items[id]
	if ok {
		w.touched = now
		r.items[id] = w
	}
	if w.mode == "" {
		w.mode = prompt.ModeProfessional
	}
	return w
}

// setUpload with a nil upload forgets the session entirely unless a
// non-default mode is still selected.
func (r *widgetRegistry) setUpload(id string, u *models.Upload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.expire(now)
	w := r.items[id]
	if u == nil && (w.mode == "" || w.mode == prompt.ModeProfessional) {
		delete(r.items, id)
		return
	}
	w.upload = u
	w.touched = now
	r.items[id] = w
}

func (r *widgetRegistry) setMode(id string, m prompt.Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.expire(now)
	w := r.items[id]
	w.mode = m
	w.touched = now
	r.items[id] = w
}

func (r *widgetRegistry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
