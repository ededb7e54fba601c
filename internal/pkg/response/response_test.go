package response

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/opennote/semindex/internal/pkg/apperr"
)

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func TestFromAppErrMapsStatusCodes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"busy", apperr.ErrBusy, 409},
		{"config", apperr.ErrConfig, 400},
		{"unauthorized", apperr.ErrUnauthorized, 401},
		{"other", errors.New("boom"), 500},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ctx, w := newTestContext()
			FromAppErr(ctx, c.err)
			if w.Code != c.want {
				t.Errorf("FromAppErr(%v) status = %d, want %d", c.err, w.Code, c.want)
			}
		})
	}
}

func TestAsCodeErr(t *testing.T) {
	err := AsCodeErr(42, "bad thing")
	ce, ok := err.(codeErr)
	if !ok {
		t.Fatalf("expected codeErr, got %T", err)
	}
	if ce.Code() != 42 || ce.Error() != "bad thing" {
		t.Errorf("unexpected codeErr fields: %+v", ce)
	}
}
