package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/okian/crewscore/internal/domain/model"
	"github.com/okian/crewscore/pkg/metrics"
)

// Supported driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const (
	defaultPingAttempts = 10
	pingBackoffStep     = 100 * time.Millisecond
)

const (
	groupColumns      = `id, name, tier_theme, custom_tier_names, created_at, announce_promotions, announcement_channel_id`
	membershipColumns = `group_id, member_id, display_name, status, joined_at`
	statsColumns      = `group_id, member_id, attendance_rate, events_attended, current_streak, best_streak, spirit_points_total, messages_sent, reactions_given, guest_converts`
	scoreColumns      = `group_id, member_id, score, loyalty, spirit, adventure, legacy, tier_name, tier_level, last_calculated_at`
)

// SQLStore implements Store, MessageStore and Seeder on sqlite or postgres.
type SQLStore struct {
	db *sqlx.DB

	maxOpenConns    int
	connMaxLifetime time.Duration
	pingAttempts    int
}

// Open connects to the database and waits until it answers a ping.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*SQLStore, error) {
	s := &SQLStore{pingAttempts: defaultPingAttempts}
	switch driver {
	case DriverSQLite:
		// A single connection serializes writers and avoids SQLITE_BUSY.
		s.maxOpenConns = 1
		sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if s.maxOpenConns > 0 {
		db.SetMaxOpenConns(s.maxOpenConns)
	}
	if s.connMaxLifetime > 0 {
		db.SetConnMaxLifetime(s.connMaxLifetime)
	}
	s.db = db

	if err := s.ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// ping waits for the database to be ready, backing off a little longer between attempts.
func (s *SQLStore) ping(ctx context.Context) error {
	var err error
	for attempt := 1; attempt <= s.pingAttempts; attempt++ {
		if err = s.db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("ping database: %w", ctx.Err())
		case <-time.After(time.Duration(attempt) * pingBackoffStep):
		}
	}
	return fmt.Errorf("ping database: %w", err)
}

// Migrate creates the tables and indexes if they do not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Close releases the connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
}

// ListGroups implements Store.
func (s *SQLStore) ListGroups(ctx context.Context) ([]model.Group, error) {
	defer observe("list_groups", time.Now())
	var rows []groupRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+groupColumns+` FROM crew_groups ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	out := make([]model.Group, 0, len(rows))
	for _, r := range rows {
		g, err := r.model()
		if err != nil {
			return nil, fmt.Errorf("list groups: %w", err)
		}
		out = append(out, g)
	}
	return out, nil
}

// GetGroup implements Store.
func (s *SQLStore) GetGroup(ctx context.Context, groupID string) (model.Group, error) {
	defer observe("get_group", time.Now())
	var r groupRow
	q := s.db.Rebind(`SELECT ` + groupColumns + ` FROM crew_groups WHERE id = ?`)
	if err := s.db.GetContext(ctx, &r, q, groupID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Group{}, fmt.Errorf("group %s: %w", groupID, ErrNotFound)
		}
		return model.Group{}, fmt.Errorf("get group %s: %w", groupID, err)
	}
	g, err := r.model()
	if err != nil {
		return model.Group{}, fmt.Errorf("get group %s: %w", groupID, err)
	}
	return g, nil
}

// ApprovedMemberships implements Store.
func (s *SQLStore) ApprovedMemberships(ctx context.Context, groupID string) ([]model.Membership, error) {
	defer observe("approved_memberships", time.Now())
	var rows []membershipRow
	q := s.db.Rebind(`SELECT ` + membershipColumns + ` FROM crew_memberships WHERE group_id = ? AND status = ? ORDER BY member_id`)
	if err := s.db.SelectContext(ctx, &rows, q, groupID, string(model.StatusApproved)); err != nil {
		return nil, fmt.Errorf("approved memberships %s: %w", groupID, err)
	}
	out := make([]model.Membership, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

// Membership implements Store.
func (s *SQLStore) Membership(ctx context.Context, groupID, memberID string) (model.Membership, error) {
	defer observe("membership", time.Now())
	var r membershipRow
	q := s.db.Rebind(`SELECT ` + membershipColumns + ` FROM crew_memberships WHERE group_id = ? AND member_id = ?`)
	if err := s.db.GetContext(ctx, &r, q, groupID, memberID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Membership{}, fmt.Errorf("membership %s/%s: %w", groupID, memberID, ErrNotFound)
		}
		return model.Membership{}, fmt.Errorf("membership %s/%s: %w", groupID, memberID, err)
	}
	return r.model(), nil
}

// MemberStats implements Store.
func (s *SQLStore) MemberStats(ctx context.Context, groupID string) ([]model.MemberStats, error) {
	defer observe("member_stats", time.Now())
	var rows []statsRow
	q := s.db.Rebind(`SELECT ` + statsColumns + ` FROM crew_member_stats WHERE group_id = ?`)
	if err := s.db.SelectContext(ctx, &rows, q, groupID); err != nil {
		return nil, fmt.Errorf("member stats %s: %w", groupID, err)
	}
	out := make([]model.MemberStats, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

// Scores implements Store.
func (s *SQLStore) Scores(ctx context.Context, groupID string) ([]model.CrewScoreRecord, error) {
	defer observe("scores", time.Now())
	var rows []scoreRow
	q := s.db.Rebind(`SELECT ` + scoreColumns + ` FROM crew_scores WHERE group_id = ?`)
	if err := s.db.SelectContext(ctx, &rows, q, groupID); err != nil {
		return nil, fmt.Errorf("scores %s: %w", groupID, err)
	}
	out := make([]model.CrewScoreRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

// Score implements Store.
func (s *SQLStore) Score(ctx context.Context, groupID, memberID string) (model.CrewScoreRecord, error) {
	defer observe("score", time.Now())
	var r scoreRow
	q := s.db.Rebind(`SELECT ` + scoreColumns + ` FROM crew_scores WHERE group_id = ? AND member_id = ?`)
	if err := s.db.GetContext(ctx, &r, q, groupID, memberID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.CrewScoreRecord{}, fmt.Errorf("score %s/%s: %w", groupID, memberID, ErrNotFound)
		}
		return model.CrewScoreRecord{}, fmt.Errorf("score %s/%s: %w", groupID, memberID, err)
	}
	return r.model(), nil
}

// UpsertScore implements Store.
func (s *SQLStore) UpsertScore(ctx context.Context, rec model.CrewScoreRecord) error {
	defer observe("upsert_score", time.Now())
	const q = `INSERT INTO crew_scores (` + scoreColumns + `)
		VALUES (:group_id, :member_id, :score, :loyalty, :spirit, :adventure, :legacy, :tier_name, :tier_level, :last_calculated_at)
		ON CONFLICT (member_id, group_id) DO UPDATE SET
			score = excluded.score,
			loyalty = excluded.loyalty,
			spirit = excluded.spirit,
			adventure = excluded.adventure,
			legacy = excluded.legacy,
			tier_name = excluded.tier_name,
			tier_level = excluded.tier_level,
			last_calculated_at = excluded.last_calculated_at`
	if _, err := s.db.NamedExecContext(ctx, q, newScoreRow(rec)); err != nil {
		return fmt.Errorf("upsert score %s/%s: %w", rec.GroupID, rec.MemberID, err)
	}
	return nil
}

// Leaderboard implements Store.
func (s *SQLStore) Leaderboard(ctx context.Context, groupID string, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, ErrInvalidLimit
	}
	defer observe("leaderboard", time.Now())
	var rows []scoreRow
	q := s.db.Rebind(`SELECT ` + scoreColumns + ` FROM crew_scores WHERE group_id = ? ORDER BY score DESC, member_id ASC LIMIT ?`)
	if err := s.db.SelectContext(ctx, &rows, q, groupID, n); err != nil {
		return nil, fmt.Errorf("leaderboard %s: %w", groupID, err)
	}
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, entryFromRecord(r.model()))
	}
	assignRanks(out)
	return out, nil
}

// InsertMessage implements MessageStore.
func (s *SQLStore) InsertMessage(ctx context.Context, msg model.ChatMessage) error {
	defer observe("insert_message", time.Now())
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	const q = `INSERT INTO chat_messages (id, channel_id, author_id, content, content_type, created_at)
		VALUES (:id, :channel_id, :author_id, :content, :content_type, :created_at)`
	row := messageRow{
		ID:          msg.ID,
		ChannelID:   msg.ChannelID,
		AuthorID:    msg.AuthorID,
		Content:     msg.Content,
		ContentType: msg.ContentType,
		CreatedAt:   toMillis(msg.CreatedAt),
	}
	if _, err := s.db.NamedExecContext(ctx, q, row); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// Messages returns the messages of a channel oldest first.
func (s *SQLStore) Messages(ctx context.Context, channelID string) ([]model.ChatMessage, error) {
	var rows []messageRow
	q := s.db.Rebind(`SELECT id, channel_id, author_id, content, content_type, created_at FROM chat_messages WHERE channel_id = ? ORDER BY created_at, id`)
	if err := s.db.SelectContext(ctx, &rows, q, channelID); err != nil {
		return nil, fmt.Errorf("messages %s: %w", channelID, err)
	}
	out := make([]model.ChatMessage, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.ChatMessage{
			ID:          r.ID,
			ChannelID:   r.ChannelID,
			AuthorID:    r.AuthorID,
			Content:     r.Content,
			ContentType: r.ContentType,
			CreatedAt:   fromMillis(r.CreatedAt),
		})
	}
	return out, nil
}

// PutGroup implements Seeder.
func (s *SQLStore) PutGroup(ctx context.Context, g model.Group) error {
	row, err := newGroupRow(g)
	if err != nil {
		return fmt.Errorf("put group %s: %w", g.ID, err)
	}
	const q = `INSERT INTO crew_groups (` + groupColumns + `)
		VALUES (:id, :name, :tier_theme, :custom_tier_names, :created_at, :announce_promotions, :announcement_channel_id)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			tier_theme = excluded.tier_theme,
			custom_tier_names = excluded.custom_tier_names,
			created_at = excluded.created_at,
			announce_promotions = excluded.announce_promotions,
			announcement_channel_id = excluded.announcement_channel_id`
	if _, err := s.db.NamedExecContext(ctx, q, row); err != nil {
		return fmt.Errorf("put group %s: %w", g.ID, err)
	}
	return nil
}

// PutMembership implements Seeder.
func (s *SQLStore) PutMembership(ctx context.Context, m model.Membership) error {
	const q = `INSERT INTO crew_memberships (` + membershipColumns + `)
		VALUES (:group_id, :member_id, :display_name, :status, :joined_at)
		ON CONFLICT (group_id, member_id) DO UPDATE SET
			display_name = excluded.display_name,
			status = excluded.status,
			joined_at = excluded.joined_at`
	row := membershipRow{
		GroupID:     m.GroupID,
		MemberID:    m.MemberID,
		DisplayName: m.DisplayName,
		Status:      string(m.Status),
		JoinedAt:    toMillis(m.JoinedAt),
	}
	if _, err := s.db.NamedExecContext(ctx, q, row); err != nil {
		return fmt.Errorf("put membership %s/%s: %w", m.GroupID, m.MemberID, err)
	}
	return nil
}

// PutStats implements Seeder.
func (s *SQLStore) PutStats(ctx context.Context, st model.MemberStats) error {
	const q = `INSERT INTO crew_member_stats (` + statsColumns + `)
		VALUES (:group_id, :member_id, :attendance_rate, :events_attended, :current_streak, :best_streak,
			:spirit_points_total, :messages_sent, :reactions_given, :guest_converts)
		ON CONFLICT (group_id, member_id) DO UPDATE SET
			attendance_rate = excluded.attendance_rate,
			events_attended = excluded.events_attended,
			current_streak = excluded.current_streak,
			best_streak = excluded.best_streak,
			spirit_points_total = excluded.spirit_points_total,
			messages_sent = excluded.messages_sent,
			reactions_given = excluded.reactions_given,
			guest_converts = excluded.guest_converts`
	if _, err := s.db.NamedExecContext(ctx, q, newStatsRow(st)); err != nil {
		return fmt.Errorf("put stats %s/%s: %w", st.GroupID, st.MemberID, err)
	}
	return nil
}
