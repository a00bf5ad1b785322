package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/nishant5790/ordering-agent/internal/models"
)

// scanOrder decodes a single order row. The column order must match the
// SELECT lists in the SQLite and PostgreSQL order queries.
func scanOrder(rows *sql.Rows) (models.OrderRecord, error) {
	var rec models.OrderRecord
	var orderType, details string
	if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Title, &rec.Description, &orderType, &rec.ProductName, &rec.Quantity, &rec.BrandPreference, &details, &rec.CreatedAt); err != nil {
		return rec, fmt.Errorf("failed to scan order row: %w", err)
	}
	rec.Type = models.OrderType(orderType)
	if details != "" {
		if err := json.Unmarshal([]byte(details), &rec.AdditionalDetails); err != nil {
			return rec, fmt.Errorf("failed to decode additional details for order %s: %w", rec.ID, err)
		}
	}
	return rec, nil
}
