package localstore

import (
	"context"
	"fmt"
	"strconv"

	"ragkb"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// Postgres stores documents in the pow table with a pgvector column.
// It is backed by a connection pool and is safe for concurrent use.
type Postgres struct {
	conn *pgxpool.Pool
}

func Connect(ctx context.Context, url string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return &Postgres{conn: pool}, nil
}

func (p *Postgres) Close() {
	p.conn.Close()
}

// CreateTable enables pgvector and, when drop is set, recreates the table.
func (p *Postgres) CreateTable(ctx context.Context, drop bool) error {
	log := ragkb.Logger
	if _, err := p.conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return err
	}
	if drop {
		log.Info("Drop table, Create table")
		if _, err := p.conn.Exec(ctx, "DROP TABLE IF EXISTS pow"); err != nil {
			return err
		}
	}
	if _, err := p.conn.Exec(ctx, "CREATE TABLE IF NOT EXISTS pow (id bigserial PRIMARY KEY, content text, context text, link text, title text, embedding vector(1536))"); err != nil {
		return err
	}
	_, err := p.conn.Exec(ctx, "CREATE INDEX IF NOT EXISTS embedding_pow_idx ON pow USING ivfflat(embedding)")
	return err
}

func (p *Postgres) Add(ctx context.Context, doc Document) error {
	log := ragkb.Logger
	embedding, err := Embed(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("embedding document %s: %w", doc.ID, err)
	}
	sql := "INSERT INTO pow (content, context, title, link, embedding) VALUES ($1, $2, $3, $4, $5)"
	log.Debug("SQL", "sql", sql)
	_, err = p.conn.Exec(ctx, sql,
		doc.Content,
		doc.Context,
		doc.Title,
		doc.Link,
		pgvector.NewVector(embedding))
	return err
}

func (p *Postgres) Retrieve(ctx context.Context, question string, k int) ([]Passage, error) {
	embedding, err := Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}
	rows, err := p.conn.Query(ctx,
		"SELECT id, COALESCE(content, ''), COALESCE(link, ''), COALESCE(title, ''), 1 - (embedding <=> $1) FROM pow ORDER BY embedding <=> $1 LIMIT $2",
		pgvector.NewVector(embedding), k)
	if err != nil {
		return nil, fmt.Errorf("querying pow: %w", err)
	}
	defer rows.Close()

	var passages []Passage
	for rows.Next() {
		var (
			id         int64
			similarity float64
			passage    Passage
		)
		if err := rows.Scan(&id, &passage.Content, &passage.Link, &passage.Title, &similarity); err != nil {
			return nil, err
		}
		passage.ID = strconv.FormatInt(id, 10)
		passage.Similarity = float32(similarity)
		passages = append(passages, passage)
	}
	return passages, rows.Err()
}
