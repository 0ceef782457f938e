package util

import (
	"Ashray/apperr"
	"errors"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Count   *int        `json:"count,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ExposeErrors controls whether FailedResponse carries the underlying error text.
// It is switched off in production by main.
var ExposeErrors = true

func SuccessResponse(data interface{}) Response {
	return Response{Success: true, Data: data}
}

func MessageResponse(msg string, data interface{}) Response {
	return Response{Success: true, Message: msg, Data: data}
}

func ListResponse(data interface{}, count int) Response {
	return Response{Success: true, Count: &count, Data: data}
}

/*
* Classified errors keep their client-safe message
* Everything else collapses into a generic message
* The raw error text is attached only outside production
 */
func FailedResponse(err error) Response {
	resp := Response{Success: false, Message: SERVER_ERROR}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		resp.Message = ae.Message
		if ae.Err != nil && ExposeErrors {
			resp.Error = ae.Err.Error()
		}
		return resp
	}
	if err != nil && ExposeErrors {
		resp.Error = err.Error()
	}
	return resp
}
