package handlers

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Paging holds the listing defaults for the record listings.
type Paging struct {
	DefaultLimit int
	MaxLimit     int
}

// parse reads page and limit from the query string. Missing or invalid
// values fall back to page 1 and the default limit.
func (p Paging) parse(c *gin.Context) (page, limit int) {
	defaultLimit, maxLimit := p.DefaultLimit, p.MaxLimit
	if defaultLimit < 1 {
		defaultLimit = 10
	}
	if maxLimit < 1 {
		maxLimit = 100
	}

	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err = strconv.Atoi(c.Query("limit"))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	// (page-1)*limit must stay within int.
	if page > math.MaxInt/limit {
		page = math.MaxInt / limit
	}
	return page, limit
}

func pageBody(key string, items interface{}, count int, total int64, page, limit int) gin.H {
	return gin.H{
		key:           items,
		"count":       count,
		"total":       total,
		"totalPages":  int((total + int64(limit) - 1) / int64(limit)),
		"currentPage": page,
	}
}
