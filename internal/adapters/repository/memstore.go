package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/okian/crewscore/internal/domain/model"
)

type scoreKey struct {
	groupID  string
	memberID string
}

// MemoryStore is an in-process Store, MessageStore and Seeder.
// Score records live in a concurrent map so chunked upserts do not contend on one lock.
type MemoryStore struct {
	mu          sync.RWMutex
	groups      map[string]model.Group
	memberships map[string]map[string]model.Membership
	stats       map[string]map[string]model.MemberStats
	messages    []model.ChatMessage

	scores *xsync.Map[scoreKey, model.CrewScoreRecord]
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		groups:      make(map[string]model.Group),
		memberships: make(map[string]map[string]model.Membership),
		stats:       make(map[string]map[string]model.MemberStats),
		scores:      xsync.NewMap[scoreKey, model.CrewScoreRecord](),
	}
}

// ListGroups implements Store.
func (s *MemoryStore) ListGroups(ctx context.Context) ([]model.Group, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Group, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetGroup implements Store.
func (s *MemoryStore) GetGroup(ctx context.Context, groupID string) (model.Group, error) {
	if err := ctx.Err(); err != nil {
		return model.Group{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[groupID]
	if !ok {
		return model.Group{}, fmt.Errorf("group %s: %w", groupID, ErrNotFound)
	}
	return g, nil
}

// ApprovedMemberships implements Store.
func (s *MemoryStore) ApprovedMemberships(ctx context.Context, groupID string) ([]model.Membership, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Membership, 0, len(s.memberships[groupID]))
	for _, m := range s.memberships[groupID] {
		if m.Approved() {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MemberID < out[j].MemberID })
	return out, nil
}

// Membership implements Store.
func (s *MemoryStore) Membership(ctx context.Context, groupID, memberID string) (model.Membership, error) {
	if err := ctx.Err(); err != nil {
		return model.Membership{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.memberships[groupID][memberID]
	if !ok {
		return model.Membership{}, fmt.Errorf("membership %s/%s: %w", groupID, memberID, ErrNotFound)
	}
	return m, nil
}

// MemberStats implements Store.
func (s *MemoryStore) MemberStats(ctx context.Context, groupID string) ([]model.MemberStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.MemberStats, 0, len(s.stats[groupID]))
	for _, st := range s.stats[groupID] {
		out = append(out, st)
	}
	return out, nil
}

// Scores implements Store.
func (s *MemoryStore) Scores(ctx context.Context, groupID string) ([]model.CrewScoreRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []model.CrewScoreRecord
	s.scores.Range(func(k scoreKey, rec model.CrewScoreRecord) bool {
		if k.groupID == groupID {
			out = append(out, rec)
		}
		return true
	})
	return out, nil
}

// Score implements Store.
func (s *MemoryStore) Score(ctx context.Context, groupID, memberID string) (model.CrewScoreRecord, error) {
	if err := ctx.Err(); err != nil {
		return model.CrewScoreRecord{}, err
	}
	rec, ok := s.scores.Load(scoreKey{groupID: groupID, memberID: memberID})
	if !ok {
		return model.CrewScoreRecord{}, fmt.Errorf("score %s/%s: %w", groupID, memberID, ErrNotFound)
	}
	return rec, nil
}

// UpsertScore implements Store.
func (s *MemoryStore) UpsertScore(ctx context.Context, rec model.CrewScoreRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.scores.Store(scoreKey{groupID: rec.GroupID, memberID: rec.MemberID}, rec)
	return nil
}

// Leaderboard implements Store.
func (s *MemoryStore) Leaderboard(ctx context.Context, groupID string, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, ErrInvalidLimit
	}
	recs, err := s.Scores(ctx, groupID)
	if err != nil {
		return nil, err
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		return recs[i].MemberID < recs[j].MemberID
	})
	if len(recs) > n {
		recs = recs[:n]
	}
	out := make([]Entry, 0, len(recs))
	for _, r := range recs {
		out = append(out, entryFromRecord(r))
	}
	assignRanks(out)
	return out, nil
}

// InsertMessage implements MessageStore.
func (s *MemoryStore) InsertMessage(ctx context.Context, msg model.ChatMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	return nil
}

// Messages returns the messages of a channel in insertion order.
func (s *MemoryStore) Messages(_ context.Context, channelID string) ([]model.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.ChatMessage
	for _, m := range s.messages {
		if m.ChannelID == channelID {
			out = append(out, m)
		}
	}
	return out, nil
}

// PutGroup implements Seeder.
func (s *MemoryStore) PutGroup(_ context.Context, g model.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[g.ID] = g
	return nil
}

// PutMembership implements Seeder.
func (s *MemoryStore) PutMembership(_ context.Context, m model.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.memberships[m.GroupID] == nil {
		s.memberships[m.GroupID] = make(map[string]model.Membership)
	}
	s.memberships[m.GroupID][m.MemberID] = m
	return nil
}

// PutStats implements Seeder.
func (s *MemoryStore) PutStats(_ context.Context, st model.MemberStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stats[st.GroupID] == nil {
		s.stats[st.GroupID] = make(map[string]model.MemberStats)
	}
	s.stats[st.GroupID][st.MemberID] = st
	return nil
}
