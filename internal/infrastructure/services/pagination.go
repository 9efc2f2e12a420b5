package services

import (
	"math"
	"strconv"
)

// Pagination styles.
const (
	StylePageSize    = "page_size"
	StyleOffsetLimit = "offset_limit"
)

// PageConfig bounds the pages served by admin listings.
type PageConfig struct {
	DefaultSize int
	MaxSize     int
}

// DefaultPageConfig is used by the admin API.
var DefaultPageConfig = PageConfig{DefaultSize: 50, MaxSize: 500}

// Page is the pagination envelope around one slice of items.
type Page[T any] struct {
	Data        []T  `json:"data"`
	Page        int  `json:"page"`
	Size        int  `json:"size"`
	TotalItems  int  `json:"total_items"`
	TotalPages  int  `json:"total_pages"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

// Paginated reports whether the query asks for a page. Requests without
// page, size, offset or limit parameters get the full list.
func Paginated(queryParams map[string]string) bool {
	for _, k := range []string{"page", "size", "offset", "limit"} {
		if _, ok := queryParams[k]; ok {
			return true
		}
	}
	return false
}

// Paginate slices items according to the query parameters. The style is
// offset_limit when offset or limit is present, page_size otherwise.
func Paginate[T any](items []T, cfg PageConfig, queryParams map[string]string) Page[T] {
	totalItems := len(items)
	offset, limit := resolveSliceBounds(cfg, queryParams)

	// Clamp offset and end.
	offset = min(offset, totalItems)
	end := min(offset+limit, totalItems)

	sliced := items[offset:end]
	if sliced == nil {
		sliced = []T{}
	}

	totalPages := int(math.Ceil(float64(totalItems) / float64(limit)))
	if totalPages == 0 {
		totalPages = 1
	}

	return Page[T]{
		Data:        sliced,
		Page:        (offset / limit) + 1,
		Size:        limit,
		TotalItems:  totalItems,
		TotalPages:  totalPages,
		HasNext:     end < totalItems,
		HasPrevious: offset > 0,
	}
}

// resolveSliceBounds extracts offset and limit from query parameters
// according to the pagination style they use.
func resolveSliceBounds(cfg PageConfig, qp map[string]string) (offset, limit int) {
	limit = cfg.DefaultSize

	_, hasOffset := qp["offset"]
	_, hasLimit := qp["limit"]
	style := StylePageSize
	if hasOffset || hasLimit {
		style = StyleOffsetLimit
	}

	switch style {
	case StyleOffsetLimit:
		if v, ok := qp["offset"]; ok {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				offset = n
			}
		}
		if v, ok := qp["limit"]; ok {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}
	default:
		page := 1
		if v, ok := qp["page"]; ok {
			if n, err := strconv.Atoi(v); err == nil && n >= 1 {
				page = n
			}
		}
		if v, ok := qp["size"]; ok {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}
		offset = (page - 1) * limit
	}

	if cfg.MaxSize > 0 && limit > cfg.MaxSize {
		limit = cfg.MaxSize
	}
	if limit <= 0 {
		limit = 10
	}

	return offset, limit
}
