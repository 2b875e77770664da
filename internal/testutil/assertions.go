package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ErrorResponse matches the API error body
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// AssertStatusCode verifies the HTTP response status code
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	assert.Equal(t, expected, resp.StatusCode, "unexpected status code")
}

// AssertJSONResponse decodes JSON response into v and verifies success
func AssertJSONResponse(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")

	err = json.Unmarshal(body, v)
	require.NoError(t, err, "failed to unmarshal response: %s", string(body))
}

// AssertErrorResponse verifies error response with expected status and message
func AssertErrorResponse(t *testing.T, resp *http.Response, expectedStatus int, expectedMessage string) {
	t.Helper()

	assert.Equal(t, expectedStatus, resp.StatusCode, "unexpected status code")

	var body ErrorResponse
	AssertJSONResponse(t, resp, &body)
	assert.False(t, body.Success)
	assert.Equal(t, expectedMessage, body.Message, "error message mismatch")
}

// AssertNoSecrets verifies a raw JSON body exposes no credential fields
func AssertNoSecrets(t *testing.T, body []byte) {
	t.Helper()

	for _, field := range []string{"password", "passwordHash", "verificationToken", "resetPasswordToken"} {
		assert.NotContains(t, string(body), `"`+field+`"`, "response leaks %s", field)
	}
}
