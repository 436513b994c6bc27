// Package store runs raw SQL against the portal database and hands back
// rows as ordered column/value mappings.
package store

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"
)

// ErrDataAccess wraps every driver or query failure surfaced by the gateway.
var ErrDataAccess = errors.New("data access error")

// Row is one result row. Columns keep the order of the SELECT list.
type Row struct {
	columns []string
	values  map[string]interface{}
}

func NewRow(columns []string, values []interface{}) Row {
	r := Row{columns: columns, values: make(map[string]interface{}, len(columns))}
	for i, col := range columns {
		r.values[col] = values[i]
	}
	return r
}

func (r Row) Columns() []string {
	return r.columns
}

// Value returns the raw driver value; nil for SQL NULL or an unknown column.
func (r Row) Value(column string) interface{} {
	return r.values[column]
}

// String renders a column for display. NULL and unknown columns are "".
func (r Row) String(column string) string {
	switch v := r.values[column].(type) {
	case nil:
		return ""
	case []byte:
		return string(v)
	case string:
		return v
	case interface{ Format(string) string }:
		// time.Time
		return v.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(v)
	}
}

// Map returns a copy keyed by column name, suitable for JSON.
func (r Row) Map() map[string]interface{} {
	out := make(map[string]interface{}, len(r.values))
	for k, v := range r.values {
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		out[k] = v
	}
	return out
}

type Gateway struct {
	db *sqlx.DB
}

func NewGateway(db *sqlx.DB) *Gateway {
	return &Gateway{db: db}
}

// FromGorm shares the gorm connection pool instead of opening a second one.
func FromGorm(gdb *gorm.DB) (*Gateway, error) {
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataAccess, err)
	}
	return NewGateway(sqlx.NewDb(sqlDB, driverName(gdb.Dialector.Name()))), nil
}

// driverName maps gorm dialector names onto the names sqlx uses to pick a
// placeholder style.
func driverName(dialect string) string {
	switch dialect {
	case "sqlite":
		return "sqlite3"
	case "postgres":
		return "postgres"
	default:
		return dialect
	}
}

// Placeholder returns the squirrel placeholder format for the driver.
func (g *Gateway) Placeholder() sq.PlaceholderFormat {
	if sqlx.BindType(g.db.DriverName()) == sqlx.DOLLAR {
		return sq.Dollar
	}
	return sq.Question
}

// Builder returns a squirrel statement builder bound to this driver.
func (g *Gateway) Builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(g.Placeholder())
}

// Execute runs a query written with ? placeholders. All rows are read before
// returning so the connection goes back to the pool.
func (g *Gateway) Execute(ctx context.Context, query string, args ...interface{}) ([]Row, error) {
	return g.query(ctx, g.db.Rebind(query), args...)
}

// Select runs a squirrel builder.
func (g *Gateway) Select(ctx context.Context, b sq.SelectBuilder) ([]Row, error) {
	query, args, err := b.PlaceholderFormat(g.Placeholder()).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: build query: %v", ErrDataAccess, err)
	}
	return g.query(ctx, query, args...)
}

func (g *Gateway) query(ctx context.Context, query string, args ...interface{}) ([]Row, error) {
	rows, err := g.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataAccess, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataAccess, err)
	}

	var result []Row
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDataAccess, err)
		}
		result = append(result, NewRow(columns, values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataAccess, err)
	}
	return result, nil
}

// Ping checks connectivity.
func (g *Gateway) Ping(ctx context.Context) error {
	if err := g.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrDataAccess, err)
	}
	return nil
}

func (g *Gateway) DriverName() string {
	return g.db.DriverName()
}
