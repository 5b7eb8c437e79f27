package storage

import "context"

// Schema DDL. Idempotent; every statement is IF NOT EXISTS or CREATE OR
// REPLACE so Open can run it on each start.
const schema = `
CREATE EXTENSION IF NOT EXISTS pg_trgm;

CREATE TABLE IF NOT EXISTS seasons (
	id SERIAL PRIMARY KEY,
	year INTEGER NOT NULL UNIQUE,
	start_date DATE NOT NULL,
	end_date DATE NOT NULL,
	is_current BOOLEAN NOT NULL DEFAULT false
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_seasons_current ON seasons(is_current) WHERE is_current;

CREATE TABLE IF NOT EXISTS clubs (
	id SERIAL PRIMARY KEY,
	name VARCHAR(300) NOT NULL,
	canonical_name VARCHAR(300) NOT NULL UNIQUE,
	state VARCHAR(2),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS teams (
	id SERIAL PRIMARY KEY,
	canonical_name VARCHAR(300) NOT NULL,
	display_name VARCHAR(300) NOT NULL,
	birth_year INTEGER,
	gender VARCHAR(10) NOT NULL DEFAULT 'Unknown',
	age_group VARCHAR(8),
	state VARCHAR(2),
	club_id INTEGER REFERENCES clubs(id),
	elo_rating DOUBLE PRECISION NOT NULL DEFAULT 1500,
	wins INTEGER NOT NULL DEFAULT 0,
	losses INTEGER NOT NULL DEFAULT 0,
	draws INTEGER NOT NULL DEFAULT 0,
	matches_played INTEGER NOT NULL DEFAULT 0,
	last_match_date DATE,
	data_quality_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	birth_year_source VARCHAR(30) NOT NULL DEFAULT 'unknown',
	gender_source VARCHAR(30) NOT NULL DEFAULT 'unknown',
	data_flags TEXT[],
	is_curated BOOLEAN NOT NULL DEFAULT false,
	deleted_at TIMESTAMPTZ,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_teams_identity
	ON teams(canonical_name, COALESCE(birth_year, 0), gender, COALESCE(state, '--'))
	WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_teams_birth_gender ON teams(birth_year, gender) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS leagues (
	id SERIAL PRIMARY KEY,
	name VARCHAR(300) NOT NULL,
	source_event_id VARCHAR(100),
	source_platform VARCHAR(50),
	state VARCHAR(2),
	season_id INTEGER REFERENCES seasons(id),
	is_curated BOOLEAN NOT NULL DEFAULT false,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (name, season_id)
);
CREATE INDEX IF NOT EXISTS idx_leagues_source ON leagues(source_platform, source_event_id);

CREATE TABLE IF NOT EXISTS tournaments (
	id SERIAL PRIMARY KEY,
	name VARCHAR(300) NOT NULL,
	source_event_id VARCHAR(100),
	source_platform VARCHAR(50),
	state VARCHAR(2),
	season_id INTEGER REFERENCES seasons(id),
	start_date DATE NOT NULL,
	end_date DATE NOT NULL,
	date_estimated BOOLEAN NOT NULL DEFAULT false,
	is_curated BOOLEAN NOT NULL DEFAULT false,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (name, season_id)
);
CREATE INDEX IF NOT EXISTS idx_tournaments_source ON tournaments(source_platform, source_event_id);

CREATE TABLE IF NOT EXISTS matches (
	id SERIAL PRIMARY KEY,
	match_date DATE NOT NULL,
	match_time TIME,
	home_team_id INTEGER NOT NULL REFERENCES teams(id),
	away_team_id INTEGER NOT NULL REFERENCES teams(id),
	home_score INTEGER,
	away_score INTEGER,
	league_id INTEGER REFERENCES leagues(id),
	tournament_id INTEGER REFERENCES tournaments(id),
	venue_id INTEGER,
	source_platform VARCHAR(50),
	source_match_key VARCHAR(200) UNIQUE,
	deleted_at TIMESTAMPTZ,
	delete_reason TEXT,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CHECK (home_team_id <> away_team_id),
	CHECK (league_id IS NULL OR tournament_id IS NULL),
	CHECK ((home_score IS NULL) = (away_score IS NULL)),
	CHECK (home_score IS NULL OR (home_score >= 0 AND away_score >= 0))
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_matches_semantic
	ON matches(match_date, home_team_id, away_team_id,
	           COALESCE(home_score, -1), COALESCE(away_score, -1))
	WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_matches_date ON matches(match_date) WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_matches_teams ON matches(home_team_id, away_team_id);

CREATE TABLE IF NOT EXISTS team_name_aliases (
	id SERIAL PRIMARY KEY,
	team_id INTEGER NOT NULL REFERENCES teams(id),
	alias_name VARCHAR(300) NOT NULL,
	source VARCHAR(30) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (team_id, alias_name)
);
CREATE INDEX IF NOT EXISTS idx_aliases_trgm ON team_name_aliases USING gin (alias_name gin_trgm_ops);
CREATE INDEX IF NOT EXISTS idx_aliases_name ON team_name_aliases(alias_name);

CREATE TABLE IF NOT EXISTS staging_games (
	source_match_key VARCHAR(200) PRIMARY KEY,
	match_date DATE,
	match_time TIME,
	home_team_name VARCHAR(300),
	away_team_name VARCHAR(300),
	home_score INTEGER,
	away_score INTEGER,
	event_name VARCHAR(300),
	event_id VARCHAR(100),
	source_platform VARCHAR(50) NOT NULL,
	raw_data JSONB,
	processed BOOLEAN NOT NULL DEFAULT false,
	processed_at TIMESTAMPTZ,
	error_message TEXT,
	scraped_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_staging_unprocessed ON staging_games(scraped_at) WHERE NOT processed;
CREATE INDEX IF NOT EXISTS idx_staging_source ON staging_games(source_platform);

CREATE TABLE IF NOT EXISTS staging_events (
	source_event_key VARCHAR(200) PRIMARY KEY,
	event_id VARCHAR(100),
	event_name VARCHAR(300),
	event_type VARCHAR(20),
	state VARCHAR(2),
	source_platform VARCHAR(50) NOT NULL,
	raw_data JSONB,
	processed BOOLEAN NOT NULL DEFAULT false,
	scraped_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS staging_standings (
	source_row_key VARCHAR(200) PRIMARY KEY,
	event_id VARCHAR(100),
	team_name VARCHAR(300),
	played INTEGER,
	wins INTEGER,
	losses INTEGER,
	draws INTEGER,
	points INTEGER,
	division VARCHAR(100),
	source_platform VARCHAR(50) NOT NULL,
	raw_data JSONB,
	processed BOOLEAN NOT NULL DEFAULT false,
	scraped_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS rank_history (
	team_id INTEGER NOT NULL REFERENCES teams(id),
	snapshot_date DATE NOT NULL,
	elo_rating DOUBLE PRECISION NOT NULL,
	elo_national_rank INTEGER,
	elo_state_rank INTEGER,
	id SERIAL,
	PRIMARY KEY (team_id, snapshot_date)
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_rank_history_id ON rank_history(id);

CREATE TABLE IF NOT EXISTS ambiguous_match_queue (
	id SERIAL PRIMARY KEY,
	match_key VARCHAR(200),
	field_type VARCHAR(10) NOT NULL CHECK (field_type IN ('home', 'away')),
	raw_name VARCHAR(300) NOT NULL,
	candidate_1_team INTEGER REFERENCES teams(id),
	candidate_1_sim DOUBLE PRECISION,
	candidate_2_team INTEGER REFERENCES teams(id),
	candidate_2_sim DOUBLE PRECISION,
	status VARCHAR(12) NOT NULL DEFAULT 'pending',
	resolved_team INTEGER REFERENCES teams(id),
	resolved_by VARCHAR(100),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	resolved_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_queue_pending ON ambiguous_match_queue(status) WHERE status = 'pending';

-- High-water mark of matches.updated_at consumed by rating runs. A single
-- row; snapshot dates are match days and lag every validation write, so
-- they cannot serve as the watermark.
CREATE TABLE IF NOT EXISTS rating_watermark (
	id SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	matches_through TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS failed_items (
	id SERIAL PRIMARY KEY,
	adapter VARCHAR(50) NOT NULL,
	kind VARCHAR(30) NOT NULL,
	item_id VARCHAR(200) NOT NULL,
	reason TEXT,
	run_id VARCHAR(40),
	failed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

-- Canonical tables only accept writes from sessions holding the pipeline
-- write token. The trigger is invisible to the pipeline after the
-- authorize call; ad-hoc sessions get a loud error instead of silent drift.
CREATE OR REPLACE FUNCTION enforce_pipeline_write() RETURNS trigger AS $$
BEGIN
	IF COALESCE(current_setting('app.pipeline_write', true), '') <> 'on' THEN
		RAISE EXCEPTION 'writes to % require pipeline authorization', TG_TABLE_NAME;
	END IF;
	RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DO $$
DECLARE t TEXT;
BEGIN
	FOREACH t IN ARRAY ARRAY['teams', 'matches', 'leagues', 'tournaments', 'team_name_aliases']
	LOOP
		IF NOT EXISTS (
			SELECT 1 FROM pg_trigger
			WHERE tgname = 'trg_pipeline_write_' || t
		) THEN
			EXECUTE format(
				'CREATE TRIGGER trg_pipeline_write_%s BEFORE INSERT OR UPDATE ON %s
				 FOR EACH ROW EXECUTE FUNCTION enforce_pipeline_write()', t, t);
		END IF;
	END LOOP;
END $$;

CREATE MATERIALIZED VIEW IF NOT EXISTS team_rankings AS
SELECT t.id, t.display_name, t.birth_year, t.gender, t.state,
       t.elo_rating, t.wins, t.losses, t.draws, t.matches_played,
       RANK() OVER (PARTITION BY t.birth_year, t.gender ORDER BY t.elo_rating DESC, t.id) AS national_rank,
       RANK() OVER (PARTITION BY t.state, t.birth_year, t.gender ORDER BY t.elo_rating DESC, t.id) AS state_rank
FROM teams t
WHERE t.deleted_at IS NULL AND t.matches_played > 0;

CREATE MATERIALIZED VIEW IF NOT EXISTS recent_form AS
SELECT m.home_team_id AS team_id, m.id AS match_id, m.match_date,
       m.home_score AS goals_for, m.away_score AS goals_against
FROM matches m
WHERE m.deleted_at IS NULL AND m.home_score IS NOT NULL
  AND m.match_date > CURRENT_DATE - INTERVAL '60 days'
UNION ALL
SELECT m.away_team_id, m.id, m.match_date, m.away_score, m.home_score
FROM matches m
WHERE m.deleted_at IS NULL AND m.home_score IS NOT NULL
  AND m.match_date > CURRENT_DATE - INTERVAL '60 days';
`

func (s *Store) initSchema(ctx context.Context) error {
	_, err := s.q.ExecContext(ctx, schema)
	return err
}
