// Package handlers contains the gin HTTP handlers.
package handlers

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/scenedex/scenedex/pkg/errors"
	"github.com/scenedex/scenedex/pkg/types/common"
)

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// respondError maps an application error to its HTTP status and writes the
// structured body.  Non-AppError values are masked as internal errors.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
			Code:    errors.ErrCodeInternal.String(),
			Message: "internal server error",
		})
		return
	}

	status, ok := errors.ErrorCodeHTTPStatus[appErr.Code]
	if !ok {
		status = http.StatusInternalServerError
	}

	body := ErrorResponse{
		Code:    appErr.Code.String(),
		Message: appErr.Message,
		Detail:  appErr.Detail,
	}
	if status == http.StatusInternalServerError {
		// Internal details stay in the log, not the response.
		body.Message = "internal server error"
		body.Detail = ""
	}
	c.AbortWithStatusJSON(status, body)
}

// parsePagination extracts page and page_size query parameters.
func parsePagination(c *gin.Context) common.Pagination {
	var p common.Pagination
	if v, err := strconv.Atoi(c.Query("page")); err == nil {
		p.Page = v
	}
	if v, err := strconv.Atoi(c.Query("page_size")); err == nil {
		p.PageSize = v
	}
	p.Normalize()
	return p
}
