package model

import (
	"time"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// PaymentFilter narrows payment list queries
type PaymentFilter struct {
	Status     PaymentStatus `json:"status,omitempty"`
	TenantID   int64         `json:"tenantId,omitempty"`
	PropertyID int64         `json:"propertyId,omitempty"`
	RoomID     int64         `json:"roomId,omitempty"`
	Search     string        `json:"search,omitempty"`
	From       *time.Time    `json:"from,omitempty"`
	To         *time.Time    `json:"to,omitempty"`
	Page       int           `json:"page,omitempty"`
	Limit      int           `json:"limit,omitempty"`
}

// Normalize fills in paging defaults and caps the page size
func (f PaymentFilter) Normalize() PaymentFilter {
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	return f
}

// Offset is the number of rows skipped before the current page
func (f PaymentFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// Pagination describes one page of a list response
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes page metadata for total matching rows
func NewPagination(total, page, limit int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{Total: total, Page: page, Limit: limit, TotalPages: pages}
}

// PaymentPage is a page of payments with its metadata
type PaymentPage struct {
	Data       []PaymentDetail `json:"data"`
	Pagination Pagination      `json:"pagination"`
}
