package handler

import (
	"context"

	"github.com/parkwise/parkwise/internal/api/middleware"
)

// GetOperator returns the authenticated operator subject from the context.
func GetOperator(ctx context.Context) string {
	return middleware.GetSubject(ctx)
}
