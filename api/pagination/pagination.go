package pagination

import "github.com/gin-gonic/gin"

const (
	defaultStart = 0
	defaultLimit = 20
	maxLimit     = 100
)

// Query is the paging window of a list request.
type Query struct {
	Start int `form:"start"`
	Limit int `form:"limit"`
}

// Result wraps one page of data with the total row count.
type Result struct {
	Data  interface{} `json:"data"`
	Total int64       `json:"total"`
}

// FromContext parses the paging window from the request query, applying
// defaults and clamping the limit.
func FromContext(c *gin.Context) *Query {
	q := &Query{
		Start: defaultStart,
		Limit: defaultLimit,
	}
	if err := c.ShouldBindQuery(q); err != nil {
		return &Query{Start: defaultStart, Limit: defaultLimit}
	}

	if q.Start < 0 {
		q.Start = defaultStart
	}
	if q.Limit <= 0 || q.Limit > maxLimit {
		q.Limit = defaultLimit
	}

	return q
}
