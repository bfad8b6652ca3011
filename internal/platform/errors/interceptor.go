package errors

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// localeMetadataKey is the incoming metadata key clients set to request
// localized error messages.
const localeMetadataKey = "accept-language"

// UnaryServerInterceptor renders domain errors through HandleError so every
// RPC returns a structured status with ErrorInfo and a localized message.
// Errors that are not domain errors pass through untouched.
func UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err == nil {
			return resp, nil
		}
		var appErr *Error
		if !errors.As(err, &appErr) {
			return resp, err
		}
		return resp, HandleError(err, localeFromContext(ctx))
	}
}

func localeFromContext(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return DefaultLocale
	}
	if values := md.Get(localeMetadataKey); len(values) > 0 {
		return values[0]
	}
	return DefaultLocale
}
