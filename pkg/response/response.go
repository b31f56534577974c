package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hpdav/cityflow-backend-go/internal/models"
)

// Response represents a standard API response
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Param   string      `json:"param,omitempty"`
}

// Success sends a successful response
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error sends an error response
func Error(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, Response{
		Code:    code,
		Message: message,
	})
}

// FromError maps err onto a status code: invalid parameters are 400, an
// unreachable source is 503, anything else is 500.
func FromError(c *gin.Context, err error) {
	_ = c.Error(err)

	var pe *models.ParamError
	switch {
	case errors.As(err, &pe):
		c.AbortWithStatusJSON(http.StatusBadRequest, Response{
			Code:    http.StatusBadRequest,
			Message: err.Error(),
			Param:   pe.Param,
		})
	case errors.Is(err, models.ErrInvalidParameter):
		BadRequest(c, err.Error())
	case errors.Is(err, models.ErrSourceUnavailable):
		Error(c, http.StatusServiceUnavailable, err.Error())
	default:
		InternalError(c, "internal error")
	}
}

// BadRequest sends a 400 bad request response
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// InternalError sends a 500 internal server error response
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}
