package s3

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/derektruong/cloudxfer/protoc"
)

// mapError translates an S3 API error of operation op to the remote error
// taxonomy.
func mapError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		return err
	case isAwsError[*types.NoSuchKey](err) || isAwsError[*types.NotFound](err) ||
		isAwsErrorCode(err, "NoSuchKey") || isAwsErrorCode(err, "NotFound"):
		return fmt.Errorf("%s: %w", op, protoc.ErrNotFound)
	case isAwsErrorCode(err, "PreconditionFailed"):
		return fmt.Errorf("%s: %w", op, protoc.ErrPreconditionFailed)
	case isAwsErrorCode(err, "AccessDenied") || isAwsErrorCode(err, "Forbidden") ||
		isAwsErrorCode(err, "InvalidAccessKeyId") || isAwsErrorCode(err, "SignatureDoesNotMatch"):
		return fmt.Errorf("%s: %w", op, errors.Join(protoc.ErrUnauthorized, err))
	}

	var statusErr interface{ HTTPStatusCode() int }
	if errors.As(err, &statusErr) {
		if mapped := protoc.StatusError(op, statusErr.HTTPStatusCode()); mapped != nil {
			return errors.Join(mapped, err)
		}
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %w", op, errors.Join(protoc.ErrUnexpectedStatus, err))
	}
	return protoc.TransportError(op, err)
}

// isAwsError tests whether an error object is an instance of the AWS error
// specified by its code.
func isAwsError[T error](err error) bool {
	var awsErr T
	return errors.As(err, &awsErr)
}

func isAwsErrorCode(err error, code string) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == code
	}
	return false
}
