package requestdata

import (
	"context"

	"github.com/google/uuid"
)

var requestDataKey = struct{}{}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	val := ctx.Value(requestDataKey)
	if rd, ok := val.(*RequestData); ok {
		return rd
	}
	return nil
}

// RequestData rides the request context from middleware to handlers.
// ClientID identifies the browser tab (sent by the frontend) and is only
// used for log correlation.
type RequestData struct {
	RequestID uuid.UUID
	ClientID  string
}
