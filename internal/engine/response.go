package engine

import "crudkit/internal/query"

// PageInfo describes one page of a list response.
type PageInfo struct {
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	TotalPage  int              `json:"totalPage"`
	TotalItems int64            `json:"totalItems"`
	Filters    *query.FilterSet `json:"filters"`
}

type PageResponse[R any] struct {
	Results  []R      `json:"results"`
	PageInfo PageInfo `json:"pageInfo"`
}

// NewPageResponse computes the page count from the total; a page size of
// zero means everything fits on one page.
func NewPageResponse[R any](results []R, page query.PageRequest, total int64, filters *query.FilterSet) PageResponse[R] {
	if results == nil {
		results = []R{}
	}
	pages := 0
	switch {
	case total == 0:
	case page.Size <= 0:
		pages = 1
	default:
		pages = int((total + int64(page.Size) - 1) / int64(page.Size))
	}
	return PageResponse[R]{
		Results: results,
		PageInfo: PageInfo{
			Page:       page.Page,
			PageSize:   page.Size,
			TotalPage:  pages,
			TotalItems: total,
			Filters:    filters,
		},
	}
}
