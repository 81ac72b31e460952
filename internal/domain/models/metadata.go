package models

import (
	"errors"
	"math"
	"slices"
	"strings"

	"github.com/navatransportes/nava-fleet/pkg/validator"
)

const (
	maxPage     = 10_000_000
	maxPageSize = 200
)

// Filters is the page and sort request of a list endpoint.
// Sort is one of SortSafelist, a leading "-" sorts descending.
type Filters struct {
	Page         int
	PageSize     int
	Sort         string
	SortSafelist []string
}

func NewFilters(page, pageSize int, sort string, sortSafelist []string) (Filters, error) {
	if len(sortSafelist) == 0 {
		return Filters{}, errors.New("sort safelist is empty")
	}
	return Filters{Page: page, PageSize: pageSize, Sort: sort, SortSafelist: sortSafelist}, nil
}

// Validate reports under the query keys page, limit and sort.
func (f Filters) Validate(v *validator.Validator) {
	v.Check(f.Page > 0, "page", "must be greater than zero")
	v.Check(f.Page <= maxPage, "page", "must be a maximum of 10 million")
	v.Check(f.PageSize > 0, "limit", "must be greater than zero")
	v.Check(f.PageSize <= maxPageSize, "limit", "must be a maximum of 200")
	v.Check(validator.PermittedValue(f.Sort, f.SortSafelist...), "sort", "invalid sort value")
}

// SortColumn falls back to the first safelisted column, so the result is always safe to put in SQL.
func (f Filters) SortColumn() string {
	sort := f.Sort
	if !slices.Contains(f.SortSafelist, sort) {
		if len(f.SortSafelist) == 0 {
			return "created_at"
		}
		sort = f.SortSafelist[0]
	}
	return strings.TrimPrefix(sort, "-")
}

func (f Filters) SortDirection() string {
	if strings.HasPrefix(f.Sort, "-") {
		return "DESC"
	}
	return "ASC"
}

func (f Filters) Limit() int  { return f.PageSize }
func (f Filters) Offset() int { return (f.Page - 1) * f.PageSize }

// Metadata describes the page returned by a list endpoint.
type Metadata struct {
	CurrentPage  int `json:"currentPage"`
	PageSize     int `json:"pageSize"`
	FirstPage    int `json:"firstPage"`
	LastPage     int `json:"lastPage"`
	TotalRecords int `json:"totalRecords"`
}

// CalculateMetadata leaves FirstPage and LastPage at zero when there are no records.
func CalculateMetadata(totalRecords, page, pageSize int) Metadata {
	m := Metadata{CurrentPage: page, PageSize: pageSize, TotalRecords: totalRecords}
	if totalRecords == 0 || pageSize <= 0 {
		return m
	}
	m.FirstPage = 1
	m.LastPage = int(math.Ceil(float64(totalRecords) / float64(pageSize)))
	return m
}
