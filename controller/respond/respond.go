package respond

import (
	"errors"
	"log"
	"net/http"
	"time"

	"meta-anchor/common"

	"github.com/gin-gonic/gin"
)

const startTimeKey = "startTime"

// Response unified response envelope
type Response struct {
	Code           int         `json:"code" example:"0"`
	Message        string      `json:"message" example:"success"`
	Error          string      `json:"error,omitempty" example:"validation_error"`
	ProcessingTime int64       `json:"processingTime" example:"12"`
	Data           interface{} `json:"data"`
}

// Envelope codes, 0 is success
const (
	CodeSuccess        = 0
	CodeInvalidParam   = 40000
	CodeUnauthorized   = 40100
	CodeForbidden      = 40300
	CodeNotFound       = 40400
	CodeConflict       = 40900
	CodeTooManyRequest = 42900
	CodeServerError    = 50000
	CodeUnavailable    = 50300
)

func elapsed(c *gin.Context) int64 {
	if v, ok := c.Get(startTimeKey); ok {
		if start, ok := v.(time.Time); ok {
			return time.Since(start).Milliseconds()
		}
	}
	return 0
}

func write(c *gin.Context, status, code int, message, errCode string, data interface{}) {
	c.JSON(status, Response{
		Code:           code,
		Message:        message,
		Error:          errCode,
		ProcessingTime: elapsed(c),
		Data:           data,
	})
}

// Success 200 with data
func Success(c *gin.Context, data interface{}) {
	write(c, http.StatusOK, CodeSuccess, "success", "", data)
}

// SuccessWithCode success envelope with an explicit HTTP status
func SuccessWithCode(c *gin.Context, status int, data interface{}) {
	write(c, status, CodeSuccess, "success", "", data)
}

// InvalidParam 400
func InvalidParam(c *gin.Context, message string) {
	write(c, http.StatusBadRequest, CodeInvalidParam, message, common.ErrorCode(common.ErrValidation), nil)
}

// Unauthorized 401
func Unauthorized(c *gin.Context, message string) {
	write(c, http.StatusUnauthorized, CodeUnauthorized, message, common.ErrorCode(common.ErrUnauthorized), nil)
}

// Forbidden 403
func Forbidden(c *gin.Context, message string) {
	write(c, http.StatusForbidden, CodeForbidden, message, common.ErrorCode(common.ErrUnauthorized), nil)
}

// NotFound 404
func NotFound(c *gin.Context, message string) {
	write(c, http.StatusNotFound, CodeNotFound, message, common.ErrorCode(common.ErrNotFound), nil)
}

// ServerError 500
func ServerError(c *gin.Context, message string) {
	write(c, http.StatusInternalServerError, CodeServerError, message, "internal_error", nil)
}

// Unavailable 503 carrying diagnostic data
func Unavailable(c *gin.Context, message string, data interface{}) {
	write(c, http.StatusServiceUnavailable, CodeUnavailable, message, "unavailable", data)
}

// TooManyRequests 429
func TooManyRequests(c *gin.Context) {
	write(c, http.StatusTooManyRequests, CodeTooManyRequest, "rate limit exceeded", "rate_limited", nil)
	c.Abort()
}

// StatusFor HTTP status and envelope code of an error kind
func StatusFor(err error) (int, int) {
	switch {
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest, CodeInvalidParam
	case errors.Is(err, common.ErrUnauthorized):
		return http.StatusUnauthorized, CodeUnauthorized
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, common.ErrAlreadyExists):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, common.ErrStorageVerificationFailed):
		return http.StatusBadGateway, CodeServerError
	case errors.Is(err, common.ErrAnchorFailed), errors.Is(err, common.ErrRewardFailed):
		return http.StatusInternalServerError, CodeServerError
	case errors.Is(err, common.ErrConfirmationTimeout):
		return http.StatusGatewayTimeout, CodeServerError
	default:
		return http.StatusInternalServerError, CodeServerError
	}
}

// Error writes err using its kind; internal errors are logged with the route
func Error(c *gin.Context, err error) {
	status, code := StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}
	write(c, status, code, err.Error(), common.ErrorCode(err), nil)
}

// PartialSuccess 207: data is final but a follow-up step failed
func PartialSuccess(c *gin.Context, data interface{}, err error) {
	write(c, http.StatusMultiStatus, CodeSuccess, err.Error(), common.ErrorCode(err), data)
}
