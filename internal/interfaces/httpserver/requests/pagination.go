package requests

import "github.com/huddlehq/huddle-server/internal/domain/query"

// PaginationQuery is the keyset cursor accepted by every list endpoint.
type PaginationQuery struct {
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Cursor string `form:"cursor" binding:"omitempty,max=64"`
	Order  string `form:"order" binding:"omitempty,oneof=asc desc"`
}

func (q PaginationQuery) Pagination() query.Pagination {
	return query.Pagination{
		Limit:  q.Limit,
		Cursor: q.Cursor,
		Order:  query.Order(q.Order),
	}
}
