package repository

// schema is portable between sqlite and postgres. Timestamps are unix
// milliseconds and booleans are 0/1 integers so both drivers scan them alike.
var schema = []string{ //nolint:gochecknoglobals // DDL
	`CREATE TABLE IF NOT EXISTS crew_groups (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		tier_theme TEXT NOT NULL DEFAULT '',
		custom_tier_names TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL DEFAULT 0,
		announce_promotions INTEGER NOT NULL DEFAULT 0,
		announcement_channel_id TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS crew_memberships (
		group_id TEXT NOT NULL,
		member_id TEXT NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		joined_at BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (group_id, member_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_memberships_status ON crew_memberships(group_id, status)`,
	`CREATE TABLE IF NOT EXISTS crew_member_stats (
		group_id TEXT NOT NULL,
		member_id TEXT NOT NULL,
		attendance_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
		events_attended BIGINT NOT NULL DEFAULT 0,
		current_streak BIGINT NOT NULL DEFAULT 0,
		best_streak BIGINT NOT NULL DEFAULT 0,
		spirit_points_total BIGINT NOT NULL DEFAULT 0,
		messages_sent BIGINT NOT NULL DEFAULT 0,
		reactions_given BIGINT NOT NULL DEFAULT 0,
		guest_converts BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (group_id, member_id)
	)`,
	`CREATE TABLE IF NOT EXISTS crew_scores (
		group_id TEXT NOT NULL,
		member_id TEXT NOT NULL,
		score INTEGER NOT NULL,
		loyalty INTEGER NOT NULL,
		spirit INTEGER NOT NULL,
		adventure INTEGER NOT NULL,
		legacy INTEGER NOT NULL,
		tier_name TEXT NOT NULL,
		tier_level INTEGER NOT NULL,
		last_calculated_at BIGINT NOT NULL,
		PRIMARY KEY (member_id, group_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_crew_scores_rank ON crew_scores(group_id, score DESC, member_id)`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
		id TEXT PRIMARY KEY,
		channel_id TEXT NOT NULL,
		author_id TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		content_type TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
}
