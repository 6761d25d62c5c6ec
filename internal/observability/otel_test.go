package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRatio(t *testing.T) {
	cases := map[string]float64{
		"":     defaultSampleRatio,
		"nope": defaultSampleRatio,
		"0.5":  0.5,
		"-1":   0,
		"7":    1,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseRatio(in), "input %q", in)
	}
}

func TestParseHeaders(t *testing.T) {
	got := parseHeaders([]string{"api-key=abc", "broken", "=x", "trace = on"})
	assert.Equal(t, map[string]string{"api-key": "abc", "trace": "on"}, got)
}

func TestStartSpanWithoutProvider(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "noop")
	defer span.End()
	assert.NotNil(t, ctx)
}
