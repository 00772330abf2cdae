package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/model"
)

// PostgresStore queries bioseq_info, si2csi and blob tables in PostgreSQL
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// PostgresConfig holds the connection settings
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	MaxConns int
	MinConns int
}

// NewPostgresStore connects and pings the database
func NewPostgresStore(ctx context.Context, cfg PostgresConfig, logger *zap.Logger) (*PostgresStore, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s pool_max_conns=%d pool_min_conns=%d",
		cfg.Host, cfg.Port, cfg.Database, cfg.User, cfg.Password, cfg.MaxConns, cfg.MinConns,
	)

	pcfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool, logger: logger}, nil
}

// Key fields left unknown (-1) match any value.
const bioseqInfoQuery = `
	SELECT accession, version, seq_id_type, gi, name, seq_ids, mol, state,
	       length, tax_id, hash, date_changed, sat, sat_key
	FROM bioseq_info
	WHERE accession = $1
	  AND ($2 = -1 OR version = $2)
	  AND ($3 = -1 OR seq_id_type = $3)
	  AND ($4 = -1 OR gi = $4)
	ORDER BY version, seq_id_type, gi
`

// QueryBioseqInfo returns every record matching the key
func (s *PostgresStore) QueryBioseqInfo(ctx context.Context, key model.BioseqKey) ([]model.BioseqRecord, error) {
	rows, err := s.pool.Query(ctx, bioseqInfoQuery,
		key.Accession, key.Version, int16(key.SeqIDType), key.GI)
	if err != nil {
		return nil, fmt.Errorf("failed to query bioseq_info: %w", err)
	}
	defer rows.Close()

	var out []model.BioseqRecord
	for rows.Next() {
		var (
			rec    model.BioseqRecord
			idType int16
			seqIDs []byte
		)
		if err := rows.Scan(&rec.Accession, &rec.Version, &idType, &rec.GI, &rec.Name, &seqIDs,
			&rec.Mol, &rec.State, &rec.Length, &rec.TaxID, &rec.Hash, &rec.DateChanged,
			&rec.Sat, &rec.SatKey); err != nil {
			return nil, fmt.Errorf("failed to scan bioseq_info: %w", err)
		}
		rec.SeqIDType = model.SeqIDType(idType)
		if len(seqIDs) > 0 {
			if err := json.Unmarshal(seqIDs, &rec.SeqIDs); err != nil {
				return nil, fmt.Errorf("failed to decode seq_ids of %s: %w", rec.Accession, err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

const si2csiQuery = `
	SELECT sec_seq_id, sec_seq_id_type, accession, version, seq_id_type, gi
	FROM si2csi
	WHERE sec_seq_id = $1
	  AND ($2 = -1 OR sec_seq_id_type = $2)
	ORDER BY sec_seq_id_type, accession, version
`

// QuerySi2csi returns every mapping of the secondary id
func (s *PostgresStore) QuerySi2csi(ctx context.Context, key model.Si2csiKey) ([]model.Si2csiRecord, error) {
	rows, err := s.pool.Query(ctx, si2csiQuery, key.SecSeqID, int16(key.SecSeqIDType))
	if err != nil {
		return nil, fmt.Errorf("failed to query si2csi: %w", err)
	}
	defer rows.Close()

	var out []model.Si2csiRecord
	for rows.Next() {
		var (
			rec             model.Si2csiRecord
			secType, idType int16
		)
		if err := rows.Scan(&rec.SecSeqID, &secType, &rec.Accession, &rec.Version, &idType, &rec.GI); err != nil {
			return nil, fmt.Errorf("failed to scan si2csi: %w", err)
		}
		rec.SecSeqIDType = model.SeqIDType(secType)
		rec.SeqIDType = model.SeqIDType(idType)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// QueryBlobProps returns the properties of a blob, newest first
func (s *PostgresStore) QueryBlobProps(ctx context.Context, id model.BlobID) ([]model.BlobProps, error) {
	query := `
		SELECT last_modified, size, n_chunks, flags
		FROM blob_prop
		WHERE sat = $1 AND sat_key = $2
		ORDER BY last_modified DESC
	`
	rows, err := s.pool.Query(ctx, query, id.Sat, id.SatKey)
	if err != nil {
		return nil, fmt.Errorf("failed to query blob_prop: %w", err)
	}
	defer rows.Close()

	var out []model.BlobProps
	for rows.Next() {
		p := model.BlobProps{BlobID: id}
		if err := rows.Scan(&p.LastModified, &p.Size, &p.NChunks, &p.Flags); err != nil {
			return nil, fmt.Errorf("failed to scan blob_prop: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// QueryBlobChunks returns chunks 0..nChunks-1 of a blob in order
func (s *PostgresStore) QueryBlobChunks(ctx context.Context, id model.BlobID, nChunks int32) ([]model.BlobChunk, error) {
	query := `
		SELECT chunk_no, data
		FROM blob_chunk
		WHERE sat = $1 AND sat_key = $2 AND chunk_no < $3
		ORDER BY chunk_no
	`
	rows, err := s.pool.Query(ctx, query, id.Sat, id.SatKey, nChunks)
	if err != nil {
		return nil, fmt.Errorf("failed to query blob_chunk: %w", err)
	}

	chunks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.BlobChunk, error) {
		c := model.BlobChunk{BlobID: id}
		err := row.Scan(&c.Index, &c.Data)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan blob_chunk: %w", err)
	}
	return chunks, nil
}

// Ping checks database connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool
func (s *PostgresStore) Close() {
	s.pool.Close()
}
