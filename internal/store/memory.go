package store

import (
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rendis/drawio-mcp/pkg/schema"
)

// DefaultTTL is how long a diagram survives without being read.
const DefaultTTL = time.Hour

// PreviewLength is the number of characters in a preview view.
const PreviewLength = 500

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]`)

// MemoryOptions configures a MemoryStore.
type MemoryOptions struct {
	TTL    time.Duration
	Clock  Clock
	Scheme string
	Logger *slog.Logger
}

// MemoryStore is the process-local DiagramStore. Every Put schedules one
// sweep at Put time + TTL; reads also drop expired entries.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*Diagram
	timers  map[string]Timer

	ttl    time.Duration
	clock  Clock
	scheme string
	logger *slog.Logger
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts MemoryOptions) *MemoryStore {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Scheme == "" {
		opts.Scheme = DefaultScheme
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &MemoryStore{
		entries: make(map[string]*Diagram),
		timers:  make(map[string]Timer),
		ttl:     opts.TTL,
		clock:   opts.Clock,
		scheme:  opts.Scheme,
		logger:  opts.Logger,
	}
}

// Scheme returns the URI scheme of this store.
func (s *MemoryStore) Scheme() string { return s.scheme }

// Put stores a document and derives its metadata.
func (s *MemoryStore) Put(in PutInput) (*Diagram, error) {
	if in.XML == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "diagram xml is empty").WithField("xml")
	}

	now := s.clock.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.uniqueID(in.Title, now)
	d := &Diagram{
		Metadata: Metadata{
			ID:              id,
			Title:           in.Title,
			Description:     in.Description,
			Type:            in.Type,
			Format:          in.Format,
			PageWidth:       in.PageWidth,
			PageHeight:      in.PageHeight,
			ElementCount:    strings.Count(in.XML, `vertex="1"`),
			ConnectionCount: strings.Count(in.XML, `edge="1"`),
			Size:            len(in.XML),
			FilePath:        in.FilePath,
			URI:             ResourceURI(s.scheme, ViewDiagram, id),
			CreatedAt:       now,
			ModifiedAt:      now,
			LastAccessedAt:  now,
		},
		XML: in.XML,
	}
	if d.Type == "" {
		d.Type = schema.DiagramCustom
	}
	if d.Format == "" {
		d.Format = schema.FormatUncompressed
	}
	if d.PageWidth == 0 {
		d.PageWidth = 1100
	}
	if d.PageHeight == 0 {
		d.PageHeight = 850
	}

	s.entries[id] = d
	s.timers[id] = s.clock.AfterFunc(s.ttl, func() { s.expire(id) })

	cp := *d
	return &cp, nil
}

// Get returns a diagram and refreshes its last access time.
func (s *MemoryStore) Get(id string) (*Diagram, error) {
	now := s.clock.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.entries[id]
	if !ok || s.expired(d, now) {
		if ok {
			s.remove(id)
		}
		return nil, storeNotFound("diagram", id)
	}
	d.LastAccessedAt = now

	cp := *d
	return &cp, nil
}

// XML returns the full document.
func (s *MemoryStore) XML(id string) (string, error) {
	d, err := s.Get(id)
	if err != nil {
		return "", err
	}
	return d.XML, nil
}

// Preview returns the first PreviewLength characters of the document.
func (s *MemoryStore) Preview(id string) (string, error) {
	d, err := s.Get(id)
	if err != nil {
		return "", err
	}
	return truncateRunes(d.XML, PreviewLength), nil
}

// Metadata returns the derived metadata.
func (s *MemoryStore) Metadata(id string) (*Metadata, error) {
	d, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return &d.Metadata, nil
}

// List returns live entries by creation time. It does not count as access.
func (s *MemoryStore) List() []Metadata {
	now := s.clock.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Metadata, 0, len(s.entries))
	for id, d := range s.entries {
		if s.expired(d, now) {
			s.remove(id)
			continue
		}
		out = append(out, d.Metadata)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Delete removes a diagram. It reports whether one was present.
func (s *MemoryStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return false
	}
	s.remove(id)
	return true
}

// Sweep drops every expired entry and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	now := s.clock.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, d := range s.entries {
		if s.expired(d, now) {
			s.remove(id)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Debug("swept expired diagrams", slog.Int("count", removed))
	}
	return removed
}

// Len returns the number of entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close stops all pending expiry timers.
func (s *MemoryStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

// expire runs when the timer of id fires. An entry read since it was put
// survives; the sweep catches it later.
func (s *MemoryStore) expire(id string) {
	s.mu.Lock()
	delete(s.timers, id)
	s.mu.Unlock()
	s.Sweep()
}

func (s *MemoryStore) expired(d *Diagram, now time.Time) bool {
	return now.Sub(d.LastAccessedAt) >= s.ttl
}

// remove must be called with s.mu held.
func (s *MemoryStore) remove(id string) {
	delete(s.entries, id)
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
}

// uniqueID must be called with s.mu held.
func (s *MemoryStore) uniqueID(title string, now time.Time) string {
	base := SanitizeTitle(title) + "_" + strconv.FormatInt(now.UnixMilli(), 10)
	id := base
	for n := 2; ; n++ {
		if _, taken := s.entries[id]; !taken {
			return id
		}
		id = base + "_" + strconv.Itoa(n)
	}
}

// SanitizeTitle lowercases title and replaces every non-alphanumeric
// character with an underscore.
func SanitizeTitle(title string) string {
	return strings.ToLower(nonAlnum.ReplaceAllString(title, "_"))
}

func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

var _ DiagramStore = (*MemoryStore)(nil)
