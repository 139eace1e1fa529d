package utils

import (
	"context"

	"bitbucket.org/mmdatafocus/qist_backend/appctx"
)

var (
	ContextKeyProfileId     = appctx.ContextKeyProfileId
	ContextKeyDeviceId      = appctx.ContextKeyDeviceId
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
)

func GetProfileIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyProfileId)
}

func SetProfileIdInContext(ctx context.Context, profileId string) context.Context {
	return appctx.Set(ctx, ContextKeyProfileId, profileId)
}

func GetDeviceIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyDeviceId)
}

func SetDeviceIdInContext(ctx context.Context, deviceId string) context.Context {
	return appctx.Set(ctx, ContextKeyDeviceId, deviceId)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}
