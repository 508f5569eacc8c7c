package app

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type prefixInterceptor struct {
	prefix string
}

func (p prefixInterceptor) Intercept(_ context.Context, raw []byte) ([]byte, bool) {
	if bytes.HasPrefix(raw, []byte(p.prefix)) {
		return []byte(`{"answered":true}`), true
	}
	return nil, false
}

func TestFilterLines(t *testing.T) {
	in := "keep-1\n\nintercept-me\n   \nkeep-2"
	var pass, out bytes.Buffer

	err := filterLines(context.Background(), prefixInterceptor{prefix: "intercept"}, strings.NewReader(in), &pass, &out)
	require.NoError(t, err)

	assert.Equal(t, "keep-1\nkeep-2\n", pass.String())
	assert.Equal(t, "{\"answered\":true}\n", out.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestFilterLines_WriteError(t *testing.T) {
	err := filterLines(context.Background(), prefixInterceptor{prefix: "x"}, strings.NewReader("a\n"), failingWriter{}, &bytes.Buffer{})
	assert.EqualError(t, err, "closed")
}
