// Package httprange negotiates single byte-range requests against a known
// content length.
package httprange

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"vesflix/internal/core/domain"
)

// Kind is the outcome of range negotiation.
type Kind int

const (
	FullContent Kind = iota
	PartialContent
	Invalid
)

func (k Kind) String() string {
	switch k {
	case FullContent:
		return "full"
	case PartialContent:
		return "partial"
	default:
		return "invalid"
	}
}

// Decision is the negotiated response shape for one request.
type Decision struct {
	Kind  Kind
	Range domain.ByteRange // set for PartialContent
	Total int64
}

// Parse interprets a Range header value. An empty header means the full
// resource. Only "bytes=start-end" and "bytes=start-" are accepted; every
// other form is Invalid, as is a start at or beyond total.
func Parse(header string, total int64) Decision {
	header = strings.TrimSpace(header)
	if header == "" {
		return Decision{Kind: FullContent, Total: total}
	}

	invalid := Decision{Kind: Invalid, Total: total}

	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return invalid
	}
	spec := strings.TrimPrefix(header, prefix)
	if strings.Contains(spec, ",") {
		return invalid
	}

	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok {
		return invalid
	}
	startStr = strings.TrimSpace(startStr)
	endStr = strings.TrimSpace(endStr)

	start, err := parsePos(startStr)
	if err != nil || start >= total {
		return invalid
	}

	end := total - 1
	if endStr != "" {
		e, err := parsePos(endStr)
		if err != nil || e < start {
			return invalid
		}
		end = min(e, total-1)
	}

	return Decision{
		Kind:  PartialContent,
		Range: domain.ByteRange{Start: start, End: end},
		Total: total,
	}
}

// parsePos parses a byte position. Only digits are allowed, so signs are
// rejected.
func parsePos(s string) (int64, error) {
	if s == "" || s[0] < '0' || s[0] > '9' {
		return 0, fmt.Errorf("invalid byte position %q", s)
	}
	return strconv.ParseInt(s, 10, 64)
}

// Err returns domain.ErrInvalidRange for an Invalid decision and nil otherwise.
func (d Decision) Err() error {
	if d.Kind == Invalid {
		return domain.ErrInvalidRange
	}
	return nil
}

// Status is the HTTP status code for the decision.
func (d Decision) Status() int {
	switch d.Kind {
	case FullContent:
		return http.StatusOK
	case PartialContent:
		return http.StatusPartialContent
	default:
		return http.StatusRequestedRangeNotSatisfiable
	}
}

// ContentLength is the body length the decision implies.
func (d Decision) ContentLength() int64 {
	switch d.Kind {
	case FullContent:
		return d.Total
	case PartialContent:
		return d.Range.Len()
	default:
		return 0
	}
}

// Window returns the plaintext window the body covers. Full content maps to
// the whole resource; ok is false when there is nothing to send.
func (d Decision) Window() (domain.ByteRange, bool) {
	switch d.Kind {
	case PartialContent:
		return d.Range, true
	case FullContent:
		if d.Total == 0 {
			return domain.ByteRange{}, false
		}
		return domain.ByteRange{Start: 0, End: d.Total - 1}, true
	default:
		return domain.ByteRange{}, false
	}
}

// Headers writes the range-related headers for the decision.
func (d Decision) Headers(h http.Header) {
	switch d.Kind {
	case FullContent:
		h.Set("Accept-Ranges", "bytes")
		h.Set("Content-Length", strconv.FormatInt(d.Total, 10))
	case PartialContent:
		h.Set("Accept-Ranges", "bytes")
		h.Set("Content-Range", FormatContentRange(d.Range, d.Total))
		h.Set("Content-Length", strconv.FormatInt(d.Range.Len(), 10))
	default:
		h.Set("Content-Range", FormatUnsatisfiedRange(d.Total))
		h.Set("Content-Length", "0")
	}
}

// FormatContentRange formats the Content-Range header.
func FormatContentRange(r domain.ByteRange, total int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, total)
}

// FormatUnsatisfiedRange formats the Content-Range header for a 416 response.
func FormatUnsatisfiedRange(total int64) string {
	return fmt.Sprintf("bytes */%d", total)
}
