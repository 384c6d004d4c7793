package query

const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// Order is the sort direction of a listing. Ids are time ordered ULIDs, so ordering by id is
// ordering by creation time.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// Pagination is a keyset cursor over id ordered rows.
type Pagination struct {
	Limit  int
	Cursor string
	Order  Order
}

// Normalize clamps the limit and fills the default order.
func (p Pagination) Normalize(defaultOrder Order) Pagination {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Order != OrderAsc && p.Order != OrderDesc {
		p.Order = defaultOrder
	}
	return p
}

// Page is one slice of a listing.
type Page[T any] struct {
	Data       []T
	HasMore    bool
	NextCursor string
}

// NewPage trims the look-ahead row fetched by repositories (limit+1) and computes the cursor.
func NewPage[T any](rows []T, limit int, idOf func(T) string) Page[T] {
	page := Page[T]{Data: rows}
	if len(rows) > limit {
		page.Data = rows[:limit]
		page.HasMore = true
	}
	if page.HasMore && len(page.Data) > 0 {
		page.NextCursor = idOf(page.Data[len(page.Data)-1])
	}
	if page.Data == nil {
		page.Data = []T{}
	}
	return page
}
