package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/cotation"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/domain"
)

const cotationColumns = `
	id, trip_id, name, sort_order, mode, condition_selections, min_pax, max_pax,
	composition, pax_configs, results, tarification, status, calculated_at,
	created_at, updated_at
`

// cotationJSON holds the encoded JSON columns of a cotation.
type cotationJSON struct {
	selections   string
	composition  sql.NullString
	paxConfigs   string
	results      sql.NullString
	tarification sql.NullString
}

func encodeCotation(c cotation.Cotation) (cotationJSON, error) {
	var out cotationJSON

	selections := c.ConditionSelections
	if selections == nil {
		selections = map[int64]int64{}
	}
	b, err := json.Marshal(selections)
	if err != nil {
		return out, fmt.Errorf("encode condition_selections: %w", err)
	}
	out.selections = string(b)

	configs := c.PaxConfigs
	if configs == nil {
		configs = []domain.PaxConfig{}
	}
	if b, err = json.Marshal(configs); err != nil {
		return out, fmt.Errorf("encode pax_configs: %w", err)
	}
	out.paxConfigs = string(b)

	if out.composition, err = nullJSON(c.Composition, c.Composition != nil); err != nil {
		return out, fmt.Errorf("encode composition: %w", err)
	}
	if out.results, err = nullJSON(c.Results, c.Results != nil); err != nil {
		return out, fmt.Errorf("encode results: %w", err)
	}
	if out.tarification, err = nullJSON(c.Tarification, c.Tarification != nil); err != nil {
		return out, fmt.Errorf("encode tarification: %w", err)
	}
	return out, nil
}

func nullJSON(v any, present bool) (sql.NullString, error) {
	if !present {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func scanCotation(row scanner) (cotation.Cotation, error) {
	var (
		c                    cotation.Cotation
		mode, status         string
		enc                  cotationJSON
		calculatedAt         sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&c.ID, &c.TripID, &c.Name, &c.SortOrder, &mode, &enc.selections, &c.MinPax, &c.MaxPax,
		&enc.composition, &enc.paxConfigs, &enc.results, &enc.tarification, &status, &calculatedAt,
		&createdAt, &updatedAt,
	); err != nil {
		return cotation.Cotation{}, err
	}
	c.Mode = cotation.Mode(mode)
	c.Status = cotation.Status(status)

	if err := json.Unmarshal([]byte(enc.selections), &c.ConditionSelections); err != nil {
		return cotation.Cotation{}, fmt.Errorf("decode condition_selections: %w", err)
	}
	if err := json.Unmarshal([]byte(enc.paxConfigs), &c.PaxConfigs); err != nil {
		return cotation.Cotation{}, fmt.Errorf("decode pax_configs: %w", err)
	}
	if enc.composition.Valid {
		if err := json.Unmarshal([]byte(enc.composition.String), &c.Composition); err != nil {
			return cotation.Cotation{}, fmt.Errorf("decode composition: %w", err)
		}
	}
	if enc.results.Valid {
		if err := json.Unmarshal([]byte(enc.results.String), &c.Results); err != nil {
			return cotation.Cotation{}, fmt.Errorf("decode results: %w", err)
		}
	}
	if enc.tarification.Valid {
		if err := json.Unmarshal([]byte(enc.tarification.String), &c.Tarification); err != nil {
			return cotation.Cotation{}, fmt.Errorf("decode tarification: %w", err)
		}
	}

	if calculatedAt.Valid {
		t, err := parseTime(calculatedAt.String)
		if err != nil {
			return cotation.Cotation{}, fmt.Errorf("parse calculated_at: %w", err)
		}
		c.CalculatedAt = &t
	}
	var err error
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return cotation.Cotation{}, fmt.Errorf("parse created_at: %w", err)
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return cotation.Cotation{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return c, nil
}

func (s *Store) GetCotation(ctx context.Context, id int64) (cotation.Cotation, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+cotationColumns+` FROM cotations WHERE id = ?`, id)
	c, err := scanCotation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return cotation.Cotation{}, fmt.Errorf("cotation %d: %w", id, cotation.ErrNotFound)
	}
	if err != nil {
		return cotation.Cotation{}, fmt.Errorf("scan cotation %d: %w", id, err)
	}
	return c, nil
}

func (s *Store) ListCotations(ctx context.Context, tripID int64) ([]cotation.Cotation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+cotationColumns+`
		FROM cotations
		WHERE trip_id = ?
		ORDER BY sort_order, id
	`, tripID)
	if err != nil {
		return nil, fmt.Errorf("query cotations: %w", err)
	}
	defer rows.Close()

	var out []cotation.Cotation
	for rows.Next() {
		c, err := scanCotation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cotation: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cotations: %w", err)
	}
	return out, nil
}

func (s *Store) CreateCotation(ctx context.Context, c cotation.Cotation) (cotation.Cotation, error) {
	enc, err := encodeCotation(c)
	if err != nil {
		return cotation.Cotation{}, err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO cotations (
			trip_id, name, sort_order, mode, condition_selections, min_pax, max_pax,
			composition, pax_configs, results, tarification, status, calculated_at,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.TripID, c.Name, c.SortOrder, string(c.Mode), enc.selections, c.MinPax, c.MaxPax,
		enc.composition, enc.paxConfigs, enc.results, enc.tarification, string(c.Status), nullTime(c),
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
	)
	if err != nil {
		return cotation.Cotation{}, fmt.Errorf("insert cotation: %w", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return cotation.Cotation{}, fmt.Errorf("read cotation id: %w", err)
	}
	return c, nil
}

// SaveCotation overwrites every mutable column of an existing cotation.
func (s *Store) SaveCotation(ctx context.Context, c cotation.Cotation) error {
	enc, err := encodeCotation(c)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE cotations
		SET name = ?, sort_order = ?, mode = ?, condition_selections = ?, min_pax = ?, max_pax = ?,
		    composition = ?, pax_configs = ?, results = ?, tarification = ?, status = ?,
		    calculated_at = ?, updated_at = ?
		WHERE id = ?
	`,
		c.Name, c.SortOrder, string(c.Mode), enc.selections, c.MinPax, c.MaxPax,
		enc.composition, enc.paxConfigs, enc.results, enc.tarification, string(c.Status),
		nullTime(c), formatTime(c.UpdatedAt),
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("update cotation %d: %w", c.ID, err)
	}
	return expectOneRow(res, c.ID)
}

func (s *Store) SetStatus(ctx context.Context, id int64, status cotation.Status) error {
	res, err := s.db.ExecContext(ctx, `UPDATE cotations SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update cotation %d status: %w", id, err)
	}
	return expectOneRow(res, id)
}

func expectOneRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("cotation %d: %w", id, cotation.ErrNotFound)
	}
	return nil
}

func nullTime(c cotation.Cotation) sql.NullString {
	if c.CalculatedAt == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*c.CalculatedAt), Valid: true}
}
