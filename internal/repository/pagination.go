package repository

import "gorm.io/gorm"

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type PageRequest struct {
	Page     int
	PageSize int
}

// Normalize clamps the request into [1, MaxPageSize] with defaults for
// unset values.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	switch {
	case p.PageSize < 1:
		p.PageSize = DefaultPageSize
	case p.PageSize > MaxPageSize:
		p.PageSize = MaxPageSize
	}
	return p
}

func (p PageRequest) offset() int { return (p.Page - 1) * p.PageSize }

type PageResult[T any] struct {
	Items      []T
	Page       int
	PageSize   int
	Total      int64
	TotalPages int
}

// paginate counts q and loads one newest-first page of it.
func paginate[T any](q *gorm.DB, req PageRequest) (PageResult[T], error) {
	req = req.Normalize()
	out := PageResult[T]{Page: req.Page, PageSize: req.PageSize}
	if err := q.Count(&out.Total).Error; err != nil {
		return PageResult[T]{}, err
	}
	if err := q.Order("id desc").Offset(req.offset()).Limit(req.PageSize).Find(&out.Items).Error; err != nil {
		return PageResult[T]{}, err
	}
	out.TotalPages = int((out.Total + int64(req.PageSize) - 1) / int64(req.PageSize))
	return out, nil
}
