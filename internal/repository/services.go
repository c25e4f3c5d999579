package repository

import (
	"context"

	"schoolportal/internal/model"
)

func (s *Store) GetService(ctx context.Context, code string) (model.ServiceCatalogEntry, error) {
	var entry model.ServiceCatalogEntry
	row := s.pool.QueryRow(ctx, `
		SELECT code, name, description, category, price, active
		FROM services
		WHERE code = $1
	`, code)
	err := row.Scan(&entry.Code, &entry.Name, &entry.Description, &entry.Category, &entry.Price, &entry.Active)
	return entry, err
}

func (s *Store) ListServices(ctx context.Context) ([]model.ServiceCatalogEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT code, name, description, category, price, active
		FROM services
		WHERE active = TRUE
		ORDER BY code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]model.ServiceCatalogEntry, 0)
	for rows.Next() {
		var entry model.ServiceCatalogEntry
		if err := rows.Scan(&entry.Code, &entry.Name, &entry.Description, &entry.Category, &entry.Price, &entry.Active); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Store) InsertService(ctx context.Context, entry model.ServiceCatalogEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO services (code, name, description, category, price, active)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.Code, entry.Name, entry.Description, entry.Category, entry.Price, entry.Active)
	return err
}
