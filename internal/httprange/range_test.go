package httprange

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"vesflix/internal/core/domain"
)

func TestParse(t *testing.T) {
	const total = 1_000_000

	tests := []struct {
		name      string
		header    string
		wantKind  Kind
		wantRange domain.ByteRange
	}{
		{name: "no header", header: "", wantKind: FullContent},
		{name: "closed range", header: "bytes=0-499999", wantKind: PartialContent, wantRange: domain.ByteRange{Start: 0, End: 499_999}},
		{name: "open ended", header: "bytes=500-", wantKind: PartialContent, wantRange: domain.ByteRange{Start: 500, End: total - 1}},
		{name: "end clamped", header: "bytes=999000-2000000", wantKind: PartialContent, wantRange: domain.ByteRange{Start: 999_000, End: total - 1}},
		{name: "single byte", header: "bytes=0-0", wantKind: PartialContent, wantRange: domain.ByteRange{Start: 0, End: 0}},
		{name: "last byte", header: "bytes=999999-", wantKind: PartialContent, wantRange: domain.ByteRange{Start: 999_999, End: 999_999}},
		{name: "whitespace tolerated", header: " bytes= 10 - 20 ", wantKind: PartialContent, wantRange: domain.ByteRange{Start: 10, End: 20}},
		{name: "start beyond size", header: "bytes=2000000-3000000", wantKind: Invalid},
		{name: "start equals size", header: "bytes=1000000-", wantKind: Invalid},
		{name: "start not a number", header: "bytes=abc-10", wantKind: Invalid},
		{name: "negative start", header: "bytes=-5-10", wantKind: Invalid},
		{name: "signed start", header: "bytes=+5-10", wantKind: Invalid},
		{name: "signed end", header: "bytes=5-+10", wantKind: Invalid},
		{name: "negative end", header: "bytes=5--10", wantKind: Invalid},
		{name: "suffix range", header: "bytes=-500", wantKind: Invalid},
		{name: "end not a number", header: "bytes=0-xyz", wantKind: Invalid},
		{name: "end before start", header: "bytes=10-5", wantKind: Invalid},
		{name: "wrong unit", header: "items=0-10", wantKind: Invalid},
		{name: "multi range", header: "bytes=0-1,5-6", wantKind: Invalid},
		{name: "missing dash", header: "bytes=10", wantKind: Invalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Parse(tt.header, total)
			assert.Equal(t, tt.wantKind, d.Kind, "kind for %q", tt.header)
			assert.Equal(t, int64(total), d.Total)
			if tt.wantKind == PartialContent {
				assert.Equal(t, tt.wantRange, d.Range)
			}
		})
	}
}

func TestDecisionErr(t *testing.T) {
	assert.ErrorIs(t, Parse("bytes=+5-10", 100).Err(), domain.ErrInvalidRange)
	assert.ErrorIs(t, Parse("bytes=500-", 100).Err(), domain.ErrInvalidRange)
	assert.NoError(t, Parse("bytes=5-10", 100).Err())
	assert.NoError(t, Parse("", 100).Err())
}

func TestDecisionHeaders(t *testing.T) {
	tests := []struct {
		name       string
		decision   Decision
		wantStatus int
		wantHeader map[string]string
	}{
		{
			name:       "full",
			decision:   Parse("", 1000),
			wantStatus: http.StatusOK,
			wantHeader: map[string]string{"Content-Length": "1000", "Accept-Ranges": "bytes", "Content-Range": ""},
		},
		{
			name:       "partial",
			decision:   Parse("bytes=0-499", 1000),
			wantStatus: http.StatusPartialContent,
			wantHeader: map[string]string{"Content-Length": "500", "Content-Range": "bytes 0-499/1000"},
		},
		{
			name:       "invalid",
			decision:   Parse("bytes=2000-", 1000),
			wantStatus: http.StatusRequestedRangeNotSatisfiable,
			wantHeader: map[string]string{"Content-Length": "0", "Content-Range": "bytes */1000"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			tt.decision.Headers(h)
			assert.Equal(t, tt.wantStatus, tt.decision.Status())
			for k, v := range tt.wantHeader {
				assert.Equal(t, v, h.Get(k), k)
			}
		})
	}
}

func TestDecisionWindow(t *testing.T) {
	w, ok := Parse("", 10).Window()
	assert.True(t, ok)
	assert.Equal(t, domain.ByteRange{Start: 0, End: 9}, w)

	_, ok = Parse("", 0).Window()
	assert.False(t, ok, "empty resource has no window")

	_, ok = Parse("bytes=20-", 10).Window()
	assert.False(t, ok)

	assert.Equal(t, int64(0), Parse("bytes=20-", 10).ContentLength())
	assert.Equal(t, int64(3), Parse("bytes=2-4", 10).ContentLength())
}
