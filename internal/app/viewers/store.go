// Package viewers holds the authoritative in-memory view of per-viewer
// state: restrictions, access grants and voice preferences. Command
// handlers write it, the ingestion path reads it, the dispatcher stamps
// lastSpokenAt. Records are sharded by viewer id so two viewers never
// contend on one lock.
package viewers

import (
	"context"
	"hash/fnv"
	"log"
	"sync"
	"time"

	"chatvoice/internal/domain"
)

const shardCount = 16

const persistTimeout = 5 * time.Second

type record struct {
	restriction domain.ViewerRestriction
	grants      []domain.AccessGrant
	pref        *domain.VoicePreference
}

type shard struct {
	mu      sync.RWMutex
	records map[string]*record
}

// Store keeps every viewer record in memory and mirrors mutations into
// the repository in the background. A failed write is logged and
// forgotten; the in-memory state stays authoritative.
type Store struct {
	repo   domain.ViewerRepository // optional
	shards [shardCount]*shard

	nameMu sync.RWMutex
	names  map[string]string // canonical username -> user id
}

func NewStore(repo domain.ViewerRepository) *Store {
	s := &Store{
		repo:  repo,
		names: make(map[string]string),
	}
	for i := range s.shards {
		s.shards[i] = &shard{records: make(map[string]*record)}
	}
	return s
}

// Observe remembers which user id a username maps to. Chat commands
// target usernames; everything else in here keys by id.
func (s *Store) Observe(userID, username string) {
	canonical := domain.CanonicalName(username)
	if userID == "" || canonical == "" {
		return
	}
	s.nameMu.Lock()
	s.names[canonical] = userID
	s.nameMu.Unlock()
}

// ResolveName maps a username to the id seen for it. Unknown names
// fall back to the canonical form itself so commands still work for
// viewers we have not seen speak yet.
func (s *Store) ResolveName(username string) string {
	canonical := domain.CanonicalName(username)
	s.nameMu.RLock()
	id, ok := s.names[canonical]
	s.nameMu.RUnlock()
	if ok {
		return id
	}
	return canonical
}

// Load hydrates the store from the repository snapshot at startup.
func (s *Store) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}

	restrictions, err := s.repo.Restrictions(ctx)
	if err != nil {
		return err
	}
	for _, r := range restrictions {
		rec := s.record(r.UserID)
		rec.restriction = r
	}

	grants, err := s.repo.Grants(ctx)
	if err != nil {
		return err
	}
	for _, g := range grants {
		rec := s.record(g.UserID)
		rec.grants = append(rec.grants, g)
	}

	prefs, err := s.repo.Preferences(ctx)
	if err != nil {
		return err
	}
	for _, p := range prefs {
		pref := p
		rec := s.record(pref.UserID)
		rec.pref = &pref
	}

	return nil
}

func (s *Store) shardFor(userID string) *shard {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return s.shards[h.Sum32()%shardCount]
}

// record returns the live record, creating it if needed. Only used
// during Load where no concurrency exists yet.
func (s *Store) record(userID string) *record {
	sh := s.shardFor(userID)
	rec, ok := sh.records[userID]
	if !ok {
		rec = &record{restriction: domain.ViewerRestriction{UserID: userID}}
		sh.records[userID] = rec
	}
	return rec
}

// Restriction returns a copy of the viewer's restriction. An expired
// mute is cleared opportunistically while we hold the lock anyway.
func (s *Store) Restriction(userID string, now time.Time) domain.ViewerRestriction {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.records[userID]
	if !ok {
		return domain.ViewerRestriction{UserID: userID}
	}

	if rec.restriction.Muted && !rec.restriction.MuteActive(now) {
		rec.restriction.Muted = false
		rec.restriction.MuteExpiresAt = nil
		s.persistRestriction(rec.restriction)
	}

	return rec.restriction
}

// Grants returns the viewer's currently valid grants, pruning expired
// ones in place.
func (s *Store) Grants(userID string, now time.Time) []domain.AccessGrant {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.records[userID]
	if !ok || len(rec.grants) == 0 {
		return nil
	}

	live := rec.grants[:0]
	for _, g := range rec.grants {
		if g.Valid(now) {
			live = append(live, g)
		}
	}
	rec.grants = live

	out := make([]domain.AccessGrant, len(live))
	copy(out, live)
	return out
}

// Preference returns the stored voice preference, or nil.
func (s *Store) Preference(userID string) *domain.VoicePreference {
	sh := s.shardFor(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	rec, ok := sh.records[userID]
	if !ok || rec.pref == nil {
		return nil
	}
	pref := *rec.pref
	return &pref
}

// Mute silences a viewer until the given time, or permanently when
// until is nil.
func (s *Store) Mute(userID string, until *time.Time) {
	s.mutate(userID, func(rec *record) {
		rec.restriction.Muted = true
		rec.restriction.MuteExpiresAt = until
		s.persistRestriction(rec.restriction)
	})
}

func (s *Store) Unmute(userID string) {
	s.mutate(userID, func(rec *record) {
		rec.restriction.Muted = false
		rec.restriction.MuteExpiresAt = nil
		s.persistRestriction(rec.restriction)
	})
}

// SetCooldown enforces a minimum gap between a viewer's utterances.
// gap 0 clears the cooldown.
func (s *Store) SetCooldown(userID string, gap time.Duration, until *time.Time) {
	s.mutate(userID, func(rec *record) {
		rec.restriction.CooldownGap = gap
		rec.restriction.CooldownExpiresAt = until
		s.persistRestriction(rec.restriction)
	})
}

// Grant adds an access grant alongside whatever the viewer already
// holds.
func (s *Store) Grant(g domain.AccessGrant) {
	s.mutate(g.UserID, func(rec *record) {
		rec.grants = append(rec.grants, g)
	})
	s.persist(func(ctx context.Context) error {
		return s.repo.SaveGrant(ctx, g)
	}, "save grant")
}

// Revoke removes every grant the viewer holds.
func (s *Store) Revoke(userID string) {
	s.mutate(userID, func(rec *record) {
		rec.grants = nil
	})
	s.persist(func(ctx context.Context) error {
		return s.repo.DeleteGrants(ctx, userID)
	}, "delete grants")
}

// SetPreference stores a viewer's voice override, replacing any
// previous one.
func (s *Store) SetPreference(p domain.VoicePreference) {
	s.mutate(p.UserID, func(rec *record) {
		pref := p
		rec.pref = &pref
	})
	s.persist(func(ctx context.Context) error {
		return s.repo.SavePreference(ctx, p)
	}, "save preference")
}

// MarkSpoken stamps the moment a viewer's utterance started playing.
// The dispatcher calls this; cooldowns measure audible cadence.
func (s *Store) MarkSpoken(userID string, at time.Time) {
	s.mutate(userID, func(rec *record) {
		t := at
		rec.restriction.LastSpokenAt = &t
		s.persistRestriction(rec.restriction)
	})
}

func (s *Store) mutate(userID string, fn func(*record)) {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.records[userID]
	if !ok {
		rec = &record{restriction: domain.ViewerRestriction{UserID: userID}}
		sh.records[userID] = rec
	}
	fn(rec)
}

func (s *Store) persistRestriction(r domain.ViewerRestriction) {
	s.persist(func(ctx context.Context) error {
		return s.repo.SaveRestriction(ctx, r)
	}, "save restriction")
}

// persist runs a repository write in the background. The pipeline
// never waits on storage.
func (s *Store) persist(fn func(context.Context) error, what string) {
	if s.repo == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Printf("viewers: %s: %v", what, err)
		}
	}()
}
