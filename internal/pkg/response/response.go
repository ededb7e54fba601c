package response

import (
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/webapi/proxyutil"

	"github.com/opennote/semindex/internal/pkg/apperr"
)

type codeErr struct {
	code uint32
	msg  string
}

func (e codeErr) Error() string {
	return e.msg
}

func (e codeErr) Code() uint32 {
	return e.code
}

func AsCodeErr(code uint32, msg string) error {
	return codeErr{code: code, msg: msg}
}

func Success(c *gin.Context, data interface{}) {
	proxyutil.SuccessJson(c, data)
}

func Error(c *gin.Context, httpStatus int, code uint32, message string) {
	proxyutil.FailJson(c, httpStatus, AsCodeErr(code, message))
}

// FromAppErr maps the error taxonomy of spec.md §7 onto an HTTP status for
// the console boundary: Busy->409, Config->400, Unauthorized->401,
// everything else->500.
func FromAppErr(c *gin.Context, err error) {
	switch {
	case apperr.IsBusy(err):
		Error(c, 409, 1, "indexing is already in progress")
	case apperr.IsConfig(err):
		Error(c, 400, 2, err.Error())
	case apperr.IsUnauthorized(err):
		Error(c, 401, 3, err.Error())
	default:
		Error(c, 500, 4, err.Error())
	}
}
