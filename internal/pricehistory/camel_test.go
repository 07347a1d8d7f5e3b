package pricehistory

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const trackerFixture = `<!DOCTYPE html>
<html><body>
<div class="stat lowest"><span class="label">Lowest</span><span class="value">$3.99</span></div>
<div class="stat average"><span class="label">Average</span><span class="value">$87.50</span></div>
</body></html>`

func TestLookup(t *testing.T) {
	var fetched string
	svc := New("https://camelcamelcamel.com", func(url string) (io.Reader, error) {
		fetched = url
		return strings.NewReader(trackerFixture), nil
	})

	h := svc.Lookup("B0WIDGET01")
	require.NotNil(t, h)
	assert.Equal(t, "$3.99", h.Lowest)
	assert.Equal(t, "$87.50", h.Average)
	assert.Equal(t, "https://camelcamelcamel.com/product/B0WIDGET01", h.URL)
	assert.Equal(t, h.URL, fetched)
}

func TestLookupFetchFailure(t *testing.T) {
	svc := New("https://camelcamelcamel.com", func(url string) (io.Reader, error) {
		return nil, fmt.Errorf("timeout")
	})

	assert.Nil(t, svc.Lookup("B0WIDGET01"))
}

func TestLookupNoStats(t *testing.T) {
	svc := New("https://camelcamelcamel.com", func(url string) (io.Reader, error) {
		return strings.NewReader("<html><body>nothing here</body></html>"), nil
	})

	assert.Nil(t, svc.Lookup("B0WIDGET01"))
}

func TestLookupDisabledService(t *testing.T) {
	var svc *Service
	assert.Nil(t, svc.Lookup("B0WIDGET01"))
}
