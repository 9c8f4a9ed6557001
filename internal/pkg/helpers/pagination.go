// Package helpers holds small request and query helpers shared by handlers and services.
package helpers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yigit/scholarsphere/internal/app/models/dto"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// normalize clamps page to >= 1 and size to [1, MaxPageSize].
// A missing or non-positive size falls back to DefaultPageSize.
func normalize(page, size int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	switch {
	case size <= 0:
		size = DefaultPageSize
	case size > MaxPageSize:
		size = MaxPageSize
	}
	return page, size
}

// CalculateOffsetLimit turns a 1-based page into SQL offset and limit
func CalculateOffsetLimit(page, size int) (offset uint64, limit int) {
	page, size = normalize(page, size)
	return uint64(page-1) * uint64(size), size
}

// NewPaginationInfo builds page metadata. An empty result still reports one page.
func NewPaginationInfo(totalItems int64, page, size int) dto.PaginationInfo {
	page, size = normalize(page, size)

	totalPages := int((totalItems + int64(size) - 1) / int64(size))
	if totalPages == 0 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}

	return dto.PaginationInfo{
		CurrentPage: page,
		TotalPages:  totalPages,
		PageSize:    size,
		TotalItems:  totalItems,
	}
}

// ParsePaginationParams reads ?page= and ?size= from the query string
func ParsePaginationParams(c *gin.Context) (page, size int) {
	page, _ = strconv.Atoi(c.Query("page"))
	size, _ = strconv.Atoi(c.Query("size"))
	return normalize(page, size)
}
