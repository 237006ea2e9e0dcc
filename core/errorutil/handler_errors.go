package errorutil

import "net/http"

// Response with the error message.
type Response struct {
	Error string `json:"error"`
}

// GetErrorResponse returns ErrorResponse with specified status code
// Usage (with gin):
//
//	context.JSON(GetErrorResponse(http.StatusPaymentRequired, "Not enough money"))
func GetErrorResponse(statusCode int, err string) (int, interface{}) {
	return statusCode, Response{
		Error: err,
	}
}

// BadRequest returns ErrorResponse with code 400
// Usage (with gin):
//
//	context.JSON(BadRequest("invalid data"))
func BadRequest(err string) (int, interface{}) {
	return GetErrorResponse(http.StatusBadRequest, err)
}

// Forbidden returns ErrorResponse with code 403
// Usage (with gin):
//
//	context.JSON(Forbidden("forbidden"))
func Forbidden(err string) (int, interface{}) {
	return GetErrorResponse(http.StatusForbidden, err)
}

// NotFound returns ErrorResponse with code 404
// Usage (with gin):
//
//	context.JSON(NotFound("record not found"))
func NotFound(err string) (int, interface{}) {
	return GetErrorResponse(http.StatusNotFound, err)
}

// Conflict returns ErrorResponse with code 409
// Usage (with gin):
//
//	context.JSON(Conflict("duplicate record"))
func Conflict(err string) (int, interface{}) {
	return GetErrorResponse(http.StatusConflict, err)
}

// InternalServerError returns ErrorResponse with code 500
// Usage (with gin):
//
//	context.JSON(InternalServerError("something went wrong"))
func InternalServerError(err string) (int, interface{}) {
	return GetErrorResponse(http.StatusInternalServerError, err)
}
