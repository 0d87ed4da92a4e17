package grpc

import (
	"context"
	"errors"
	"io/fs"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Belphemur/TubeMP3/internal/apperrors"
)

// errorDomain is the ErrorInfo domain attached to every mapped status
const errorDomain = "tubemp3"

// toStatus maps engine errors to a gRPC status carrying an ErrorInfo reason
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(interface{ GRPCStatus() *status.Status }); ok {
		return err
	}

	code, reason := classify(err)
	st := status.New(code, err.Error())
	detailed, detailErr := st.WithDetails(&errdetails.ErrorInfo{
		Reason: reason,
		Domain: errorDomain,
	})
	if detailErr != nil {
		return st.Err()
	}
	return detailed.Err()
}

func classify(err error) (codes.Code, string) {
	switch {
	case errors.Is(err, context.Canceled):
		return codes.Canceled, "CANCELED"
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded, "DEADLINE_EXCEEDED"
	case errors.Is(err, &apperrors.ErrInvalidURL{}):
		return codes.InvalidArgument, "INVALID_URL"
	case errors.Is(err, &apperrors.ErrInvalidBitrate{}):
		return codes.InvalidArgument, "INVALID_BITRATE"
	case errors.Is(err, &apperrors.ErrEmptyPlaylist{}):
		return codes.NotFound, "EMPTY_PLAYLIST"
	case errors.Is(err, &apperrors.ErrInsufficientSpace{}):
		return codes.ResourceExhausted, "INSUFFICIENT_SPACE"
	case errors.Is(err, &apperrors.ErrExtraction{}):
		return codes.FailedPrecondition, "EXTRACTION_FAILED"
	case errors.Is(err, &apperrors.ErrVerification{}):
		return codes.FailedPrecondition, "VERIFICATION_FAILED"
	case errors.Is(err, &apperrors.ErrCacheIO{}):
		return codes.Internal, "CACHE_IO"
	case errors.Is(err, &apperrors.ErrProcessSpawn{}):
		return codes.Internal, "PROCESS_SPAWN"
	case errors.Is(err, &apperrors.ErrMetadataParse{}):
		return codes.Internal, "METADATA_PARSE"
	case errors.Is(err, &apperrors.ErrDownloadFailed{}):
		return codes.Unavailable, "DOWNLOAD_FAILED"
	case errors.Is(err, fs.ErrNotExist):
		return codes.NotFound, "NOT_FOUND"
	default:
		return codes.Internal, "INTERNAL"
	}
}

// reasonOf extracts the ErrorInfo reason of a status error, or ""
func reasonOf(err error) string {
	st, ok := status.FromError(err)
	if !ok {
		return ""
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok {
			return info.Reason
		}
	}
	return ""
}
