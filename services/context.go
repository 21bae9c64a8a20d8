package services

import "context"

// ContextKey is the shared type for context keys in this codebase.
type ContextKey string

const (
	CtxUserID    = ContextKey("UserID")
	CtxCompanyID = ContextKey("CompanyID")
)

// UserIDFrom extracts the acting user, if any, for audit attribution.
func UserIDFrom(ctx context.Context) *uint {
	if v, ok := ctx.Value(CtxUserID).(uint); ok {
		return &v
	}
	return nil
}

// CompanyIDFrom extracts the governing company (tenant) of the request.
func CompanyIDFrom(ctx context.Context) uint {
	if v, ok := ctx.Value(CtxCompanyID).(uint); ok {
		return v
	}
	return 0
}
