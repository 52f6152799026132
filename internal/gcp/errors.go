package gcp

import (
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrExtractorSetup marks failures of the extraction backend itself, such as
// rejected credentials or a missing staging bucket, as opposed to a problem
// with one page.
var ErrExtractorSetup = errors.New("extraction backend is not usable")

// IsPermissionError reports whether err is an authentication, authorization
// or missing-resource failure from either the REST or the gRPC transport.
func IsPermissionError(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return true
		}
		return false
	}
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unauthenticated, codes.PermissionDenied, codes.NotFound:
			return true
		}
	}
	return false
}
