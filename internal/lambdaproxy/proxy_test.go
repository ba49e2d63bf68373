package lambdaproxy

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/echo", func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		c.JSON(http.StatusOK, gin.H{
			"body":  string(body),
			"soft":  c.QueryArray("soft"),
			"auth":  c.GetHeader("Authorization"),
			"trace": c.Request.Header.Values("X-Trace"),
		})
	})
	r.GET("/api/pdf", func(c *gin.Context) {
		c.Header("Content-Disposition", "attachment; filename=delivery_note_1.pdf")
		c.Data(http.StatusOK, "application/pdf", []byte("%PDF-1.3\x00\xff"))
	})
	return r
}

func TestServe_ForwardsRequest(t *testing.T) {
	h := New(newTestRouter())

	resp, err := h.Serve(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:      http.MethodPost,
		Path:            "/api/echo",
		Body:            base64.StdEncoding.EncodeToString([]byte(`{"name":"Ana"}`)),
		IsBase64Encoded: true,
		Headers:         map[string]string{"Authorization": "Bearer t", "Content-Type": "application/json"},
		MultiValueHeaders: map[string][]string{
			"X-Trace": {"a", "b"},
		},
		QueryStringParameters:           map[string]string{"soft": "false"},
		MultiValueQueryStringParameters: map[string][]string{"soft": {"false"}},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, resp.IsBase64Encoded)
	assert.JSONEq(t, `{"body":"{\"name\":\"Ana\"}","soft":["false"],"auth":"Bearer t","trace":["a","b"]}`, resp.Body)
}

func TestServe_EncodesBinaryBodies(t *testing.T) {
	h := New(newTestRouter())

	resp, err := h.Serve(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodGet,
		Path:       "/api/pdf",
	})
	require.NoError(t, err)

	assert.True(t, resp.IsBase64Encoded)
	assert.Equal(t, "application/pdf", resp.Headers["Content-Type"])
	assert.Equal(t, "attachment; filename=delivery_note_1.pdf", resp.Headers["Content-Disposition"])

	raw, err := base64.StdEncoding.DecodeString(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.3\x00\xff"), raw)
}

func TestServe_RejectsUndecodableBody(t *testing.T) {
	h := New(newTestRouter())

	resp, err := h.Serve(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:      http.MethodPost,
		Path:            "/api/echo",
		Body:            "%%%not base64%%%",
		IsBase64Encoded: true,
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"errors":["Invalid request"]}`, resp.Body)
}

func TestIsText(t *testing.T) {
	assert.True(t, isText("application/json; charset=utf-8", nil))
	assert.True(t, isText("text/plain", nil))
	assert.True(t, isText("", []byte("hello")))
	assert.False(t, isText("", []byte{0xff, 0xfe}))
	assert.False(t, isText("image/png", []byte("png")))
}
