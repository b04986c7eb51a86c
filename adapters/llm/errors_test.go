package llm

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"researchdesk/internal/retry"
	"researchdesk/models"
)

func respWithStatus(code int, headers map[string]string) *http.Response {
	resp := &http.Response{StatusCode: code, Header: http.Header{}}
	for k, v := range headers {
		resp.Header.Set(k, v)
	}
	return resp
}

func TestClassifyRateLimitCarriesHint(t *testing.T) {
	err := classifyHTTP(models.ProviderOpenAI, respWithStatus(429, map[string]string{"Retry-After": "30"}), []byte("slow down"))

	var te *TransientError
	require.ErrorAs(t, err, &te)
	after, ok := te.RetryAfter()
	assert.True(t, ok)
	assert.Equal(t, 30*time.Second, after)
	assert.False(t, retry.IsPermanent(err))
}

func TestClassifyRateLimitWithoutHeader(t *testing.T) {
	err := classifyHTTP(models.ProviderGemini, respWithStatus(429, nil), nil)

	var te *TransientError
	require.ErrorAs(t, err, &te)
	_, ok := te.RetryAfter()
	assert.False(t, ok)
}

func TestClassifyServerErrorTransient(t *testing.T) {
	for _, code := range []int{500, 502, 503, 504} {
		err := classifyHTTP(models.ProviderOpenAI, respWithStatus(code, nil), []byte("oops"))
		var te *TransientError
		assert.ErrorAs(t, err, &te, "status %d", code)
	}
}

func TestClassifyClientErrorPermanent(t *testing.T) {
	for _, code := range []int{400, 401, 403, 404, 422} {
		err := classifyHTTP(models.ProviderOpenAI, respWithStatus(code, nil), []byte("bad request"))
		assert.True(t, retry.IsPermanent(err), "status %d", code)
	}
}

func TestParseRetryAfterSeconds(t *testing.T) {
	d, ok := parseRetryAfter("2")
	assert.True(t, ok)
	assert.Equal(t, 2*time.Second, d)

	_, ok = parseRetryAfter("")
	assert.False(t, ok)

	_, ok = parseRetryAfter("garbage")
	assert.False(t, ok)
}
