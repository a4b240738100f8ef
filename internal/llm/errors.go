package llm

import (
	"errors"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Geethss/Student-perfomance-Analyser/internal/models"
)

// classify sorts a transport error into the run taxonomy. Authentication
// and quota failures become fatal QuotaOrAuthError; everything else is
// returned unchanged and treated as transient by the retry layer.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if isAuthOrQuota(err) {
		return &models.QuotaOrAuthError{Err: err}
	}
	return err
}

func isAuthOrQuota(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case 401, 403:
			return true
		}
	}
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unauthenticated, codes.PermissionDenied:
			return true
		}
	}
	return false
}
