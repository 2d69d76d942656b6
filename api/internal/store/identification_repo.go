package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = sql.ErrNoRows

const Schema = `
create table if not exists identifications (
  id uuid primary key,
  created_at timestamptz not null default now(),
  image_hash text not null,
  media_type text not null default '',
  engine text not null,
  model text not null,
  success boolean not null,
  closest_match text not null default '',
  similarity_percentage double precision not null default 0,
  information text not null default '',
  error text not null default ''
);
create index if not exists identifications_created_at_idx on identifications (created_at desc);
create index if not exists identifications_image_hash_idx on identifications (image_hash);`

type IdentificationRepo struct{ DB *sql.DB }

func NewIdentificationRepo(db *sql.DB) *IdentificationRepo { return &IdentificationRepo{DB: db} }

func (r *IdentificationRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, Schema)
	return err
}

// Insert сохраняет запись; пустой ID и CreatedAt заполняются здесь.
func (r *IdentificationRepo) Insert(ctx context.Context, rec *Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	const q = `
insert into identifications (
  id, created_at, image_hash, media_type, engine, model,
  success, closest_match, similarity_percentage, information, error
) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err := r.DB.ExecContext(ctx, q,
		rec.ID, rec.CreatedAt, rec.ImageHash, rec.MediaType, rec.Engine, rec.Model,
		rec.Success, rec.ClosestMatch, rec.SimilarityPercentage, rec.Information, rec.Error,
	)
	return err
}

const selectColumns = `select id, created_at, image_hash, media_type, engine, model,
       success, closest_match, similarity_percentage, information, error
from identifications`

func (r *IdentificationRepo) FindByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	row := r.DB.QueryRowContext(ctx, selectColumns+` where id = $1`, id)
	rec, err := scanRecord(row)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListRecent возвращает последние записи, новые первыми.
func (r *IdentificationRepo) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.DB.QueryContext(ctx, selectColumns+` order by created_at desc limit $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Record, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// PurgeOlderThan удаляет старые записи, чтобы не раздувать БД.
func (r *IdentificationRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("olderThan must be > 0")
	}
	cutoff := time.Now().Add(-olderThan)
	res, err := r.DB.ExecContext(ctx, `delete from identifications where created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*Record, error) {
	var rec Record
	if err := s.Scan(&rec.ID, &rec.CreatedAt, &rec.ImageHash, &rec.MediaType, &rec.Engine, &rec.Model,
		&rec.Success, &rec.ClosestMatch, &rec.SimilarityPercentage, &rec.Information, &rec.Error); err != nil {
		return nil, err
	}
	return &rec, nil
}
