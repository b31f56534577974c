package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpdav/cityflow-backend-go/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  int
		wantParam string
		wantMsg   string
	}{
		{
			name:      "parameter error",
			err:       models.InvalidParameter("grid_size", "must be a positive number, got %v", 0),
			wantCode:  http.StatusBadRequest,
			wantParam: "grid_size",
			wantMsg:   "invalid parameter grid_size: must be a positive number, got 0",
		},
		{
			name:     "wrapped sentinel",
			err:      errors.Join(errors.New("context"), models.ErrInvalidParameter),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "source unavailable",
			err:      models.SourceUnavailable("checkinjournal", errors.New("database is locked")),
			wantCode: http.StatusServiceUnavailable,
			wantMsg:  "checkinjournal: source unavailable: database is locked",
		},
		{
			name:     "anything else",
			err:      errors.New("boom"),
			wantCode: http.StatusInternalServerError,
			wantMsg:  "internal error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			FromError(c, tt.err)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.True(t, c.IsAborted())
			var body Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, tt.wantParam, body.Param)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, body.Message)
			}
		})
	}
}

func TestSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Success(c, gin.H{"count": 3})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"code":0,"message":"success","data":{"count":3}}`, w.Body.String())
}
