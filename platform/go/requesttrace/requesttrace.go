package requesttrace

import (
	"context"
	"errors"

	platformauth "github.com/paramvora-myacara/oz-listings-api/platform/go/auth"
)

type contextKey string

const (
	ctxAuditInfo contextKey = "OZ_REQUEST_TRACE"
)

// ActorKind represents who initiated a request.
type ActorKind string

const (
	ActorKindAdmin     ActorKind = "admin"
	ActorKindAnonymous ActorKind = "anonymous"
	ActorKindSystem    ActorKind = "system"
)

// AuditInfo captures request-scoped metadata needed for traceability.
// AdminID and Role are set only when ActorKind is admin.
type AuditInfo struct {
	ActorKind ActorKind
	AdminID   *string
	Role      platformauth.Role
	RequestID string
}

// IntoContext stores the AuditInfo in the provided context.
func IntoContext(ctx context.Context, audit AuditInfo) context.Context {
	return context.WithValue(ctx, ctxAuditInfo, audit)
}

// FromContext extracts the AuditInfo from context, returning false when not present.
func FromContext(ctx context.Context) (AuditInfo, bool) {
	if ctx == nil {
		return AuditInfo{}, false
	}
	v := ctx.Value(ctxAuditInfo)
	if v == nil {
		return AuditInfo{}, false
	}

	audit, ok := v.(AuditInfo)
	return audit, ok
}

// FromContextOrAnonymous returns the AuditInfo stored on the context, or an
// anonymous record when absent.
func FromContextOrAnonymous(ctx context.Context) AuditInfo {
	if audit, ok := FromContext(ctx); ok {
		return audit
	}
	return Anonymous("")
}

// FromIdentity builds an AuditInfo from an authenticated admin and a request ID.
func FromIdentity(identity *platformauth.Identity, requestID string) (AuditInfo, error) {
	if identity == nil {
		return AuditInfo{}, errors.New("identity is required to build audit info")
	}

	id := identity.ID.String()
	return AuditInfo{
		ActorKind: ActorKindAdmin,
		AdminID:   &id,
		Role:      identity.Role,
		RequestID: requestID,
	}, nil
}

// Anonymous builds an AuditInfo for unauthenticated requests (public listing reads).
func Anonymous(requestID string) AuditInfo {
	return AuditInfo{ActorKind: ActorKindAnonymous, RequestID: requestID}
}

// System builds an AuditInfo for CLI and background operations.
func System(requestID string) AuditInfo {
	return AuditInfo{ActorKind: ActorKindSystem, RequestID: requestID}
}
