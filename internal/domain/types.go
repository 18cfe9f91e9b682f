package domain

// ID is used across domain entities.
type ID int64

// Role values stored on users.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Pagination carries paging params and totals.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
	Total    int `json:"total,omitempty"`
}

// Offset returns the zero-based row offset of the page.
func (p Pagination) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// Sort defines sorting preference.
type Sort struct {
	Field     string `json:"field"`
	Direction string `json:"direction"` // asc / desc
}

// RequestContext carries authenticated user info when available.
type RequestContext struct {
	UserID    ID     `json:"userId"`
	Role      string `json:"role"`
	RequestID string `json:"requestId,omitempty"`
}

func (r RequestContext) IsAdmin() bool {
	return r.Role == RoleAdmin
}
