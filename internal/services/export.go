package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"civic-portal/internal/store"

	sq "github.com/Masterminds/squirrel"
)

// dataset is one downloadable export: the query and the fixed
// column list written to the CSV header.
type dataset struct {
	filename string
	columns  []string
	query    func(b sq.StatementBuilderType) sq.SelectBuilder
	// statusColumn is the qualified column the optional estado filter applies to
	statusColumn string
}

var datasets = map[string]dataset{
	"usuarios": {
		filename: "usuarios.csv",
		columns:  []string{"id", "name", "email", "phone", "national_id", "role", "created_at"},
		query: func(b sq.StatementBuilderType) sq.SelectBuilder {
			return b.Select("id", "name", "email", "phone", "national_id", "role", "created_at").
				From("users").
				OrderBy("id")
		},
	},
	"reportes": {
		filename: "reportes.csv",
		columns:  []string{"id", "user_name", "title", "description", "category", "location", "status", "created_at"},
		query: func(b sq.StatementBuilderType) sq.SelectBuilder {
			return b.Select("r.id AS id", "u.name AS user_name", "r.title AS title", "r.description AS description",
				"r.category AS category", "r.location AS location", "r.status AS status", "r.created_at AS created_at").
				From("reports r").
				Join("users u ON r.user_id = u.id").
				OrderBy("r.id")
		},
		statusColumn: "r.status",
	},
	"denuncias": {
		filename: "denuncias.csv",
		columns:  []string{"id", "user_name", "title", "type", "status", "created_at"},
		query: func(b sq.StatementBuilderType) sq.SelectBuilder {
			return b.Select("d.id AS id",
				fmt.Sprintf("CASE WHEN d.anonymous THEN '%s' ELSE u.name END AS user_name", AnonymousName),
				"d.title AS title", "d.type AS type", "d.status AS status", "d.created_at AS created_at").
				From("complaints d").
				Join("users u ON d.user_id = u.id").
				OrderBy("d.id")
		},
		statusColumn: "d.status",
	},
}

type ExportService struct {
	gw *store.Gateway
}

func NewExportService(gw *store.Gateway) *ExportService {
	return &ExportService{gw: gw}
}

// ExportKinds lists the supported export kinds in name order.
func ExportKinds() []string {
	kinds := make([]string, 0, len(datasets))
	for kind := range datasets {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// Filename returns the download name for kind or ErrUnsupportedExport.
func (s *ExportService) Filename(kind string) (string, error) {
	ds, ok := datasets[kind]
	if !ok {
		return "", ErrUnsupportedExport
	}
	return ds.filename, nil
}

// Export writes kind as CSV: one header row, then one row per record. NULL
// values are written as empty fields. The rows are fetched before anything
// is written, so a query failure leaves w untouched.
func (s *ExportService) Export(ctx context.Context, kind string, w io.Writer, status string) error {
	ds, ok := datasets[kind]
	if !ok {
		return ErrUnsupportedExport
	}

	b := ds.query(s.gw.Builder())
	if status != "" && ds.statusColumn != "" {
		b = b.Where(sq.Eq{ds.statusColumn: status})
	}

	rows, err := s.gw.Select(ctx, b)
	if err != nil {
		return fmt.Errorf("export %s: %w", kind, err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ds.columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(ds.columns))
	for _, row := range rows {
		for i, col := range ds.columns {
			record[i] = row.String(col)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
