package delivery

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/x-xyz/cloutledger/domain"
)

type JsonResponseStatus string

const (
	JsonResponseStatusSuccess JsonResponseStatus = "success"
	JsonResponseStatusFail    JsonResponseStatus = "fail"
)

type JsonResponse struct {
	Data   interface{}        `json:"data"`
	Status JsonResponseStatus `json:"status"`
	Code   string             `json:"code,omitempty"`
}

// StatusOf maps a domain error kind to an http status.
func StatusOf(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindArithmetic:
		return http.StatusUnprocessableEntity
	case domain.KindAuthorization:
		return http.StatusForbidden
	case domain.KindState, domain.KindConflict:
		return http.StatusConflict
	case domain.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// MakeJsonResp writes data in the response envelope. Domain errors override
// status with the one of their kind.
func MakeJsonResp(c echo.Context, status int, data interface{}) error {
	code := ""
	if err, ok := data.(error); ok {
		var de *domain.Error
		if errors.As(err, &de) {
			status = StatusOf(de.Kind)
			code = de.Code
		}
		data = err.Error()
	}

	if status >= 400 {
		return c.JSON(status, JsonResponse{data, JsonResponseStatusFail, code})
	}

	if status >= 200 && status < 300 {
		return c.JSON(status, JsonResponse{data, JsonResponseStatusSuccess, ""})
	}

	return c.JSON(status, data)
}
