// Package gormpage applies keyset pagination to GORM queries.
package gormpage

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/huddlehq/huddle-server/internal/domain/query"
)

// Apply filters past the cursor on column, orders by it and fetches one look-ahead row.
func Apply(db *gorm.DB, column string, p query.Pagination) *gorm.DB {
	desc := p.Order == query.OrderDesc
	if p.Cursor != "" {
		if desc {
			db = db.Where(column+" < ?", p.Cursor)
		} else {
			db = db.Where(column+" > ?", p.Cursor)
		}
	}
	return db.Order(clause.OrderByColumn{Column: clause.Column{Name: column, Raw: true}, Desc: desc}).
		Limit(p.Limit + 1)
}
