package repository

const (
	createVideosTable = `
CREATE TABLE IF NOT EXISTS videos (
	video_id       TEXT PRIMARY KEY,
	source_url     TEXT NOT NULL,
	title          TEXT NOT NULL DEFAULT '',
	duration       REAL NOT NULL DEFAULT 0,
	media_path     TEXT NOT NULL DEFAULT '',
	thumbnail_path TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMP NOT NULL,
	updated_at     TIMESTAMP NOT NULL
)`

	createTracksTable = `
CREATE TABLE IF NOT EXISTS caption_tracks (
	video_id      TEXT NOT NULL REFERENCES videos(video_id) ON DELETE CASCADE,
	language      TEXT NOT NULL,
	path          TEXT NOT NULL,
	segment_count INTEGER NOT NULL DEFAULT 0,
	partial       BOOLEAN NOT NULL DEFAULT 0,
	created_at    TIMESTAMP NOT NULL,
	PRIMARY KEY (video_id, language)
)`

	upsertVideoQuery = `
INSERT INTO videos (video_id, source_url, title, duration, media_path, thumbnail_path, created_at, updated_at)
VALUES (:video_id, :source_url, :title, :duration, :media_path, :thumbnail_path, :created_at, :updated_at)
ON CONFLICT (video_id) DO UPDATE SET
	source_url = excluded.source_url,
	title = excluded.title,
	duration = excluded.duration,
	media_path = excluded.media_path,
	thumbnail_path = excluded.thumbnail_path,
	updated_at = excluded.updated_at`

	getVideoByIDQuery = `
SELECT video_id, source_url, title, duration, media_path, thumbnail_path, created_at, updated_at
FROM videos WHERE video_id = $1`

	getVideosQuery = `
SELECT video_id, source_url, title, duration, media_path, thumbnail_path, created_at, updated_at
FROM videos ORDER BY updated_at DESC LIMIT $1 OFFSET $2`

	getTotalVideosQuery = `SELECT COUNT(video_id) FROM videos`

	deleteVideoQuery = `DELETE FROM videos WHERE video_id = $1`

	upsertTrackQuery = `
INSERT INTO caption_tracks (video_id, language, path, segment_count, partial, created_at)
VALUES (:video_id, :language, :path, :segment_count, :partial, :created_at)
ON CONFLICT (video_id, language) DO UPDATE SET
	path = excluded.path,
	segment_count = excluded.segment_count,
	partial = excluded.partial,
	created_at = excluded.created_at`

	getTrackQuery = `
SELECT video_id, language, path, segment_count, partial, created_at
FROM caption_tracks WHERE video_id = $1 AND language = $2`

	getTrackLanguagesQuery = `
SELECT language FROM caption_tracks WHERE video_id = $1 ORDER BY language`
)
