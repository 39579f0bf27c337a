package response

import "tourdesk/pkg/pagination"

// Response represents a standard API response format
type Response struct {
	Status     string      `json:"status"`      // "success" or "error"
	StatusCode int         `json:"status_code"` // HTTP status code
	Data       interface{} `json:"data,omitempty"`
	Meta       *Meta       `json:"meta,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Meta describes one page of a list response
type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// SuccessWithPagination wraps one page of items together with its paging metadata
func SuccessWithPagination(statusCode int, items interface{}, total int64, p pagination.Params) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       items,
		Meta: &Meta{
			Total:      total,
			Page:       p.Page,
			Limit:      p.Limit,
			TotalPages: pagination.TotalPages(total, p.Limit),
		},
	}
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// Ack is the bare body of the forgot-password endpoints, which predate the envelope.
type Ack struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Problem is the bare error body paired with Ack
type Problem struct {
	Error string `json:"error"`
}
