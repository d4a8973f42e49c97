package http

import (
	"net/http"

	"github.com/aussiebroadwan/rollcall/internal/rollcall/service"
	"github.com/aussiebroadwan/rollcall/pkg/httpx"
	"github.com/aussiebroadwan/rollcall/pkg/slogx"
)

var kindStatus = map[service.Kind]int{
	service.KindUnauthenticated:    http.StatusUnauthorized,
	service.KindInvalidArgument:    http.StatusBadRequest,
	service.KindPermissionDenied:   http.StatusForbidden,
	service.KindNotFound:           http.StatusNotFound,
	service.KindFailedPrecondition: http.StatusPreconditionFailed,
	service.KindResourceExhausted:  http.StatusTooManyRequests,
	service.KindInternal:           http.StatusInternalServerError,
}

// writeServiceError maps a service error onto the wire. Internal causes are
// logged here and never sent to the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := service.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	log := slogx.FromContext(r.Context())
	if kind == service.KindInternal {
		log.Error("request failed", "error", err)
	} else {
		log.Info("request rejected", "code", string(kind), "reason", service.MessageOf(err))
	}

	httpx.WriteError(w, status, string(kind), service.MessageOf(err))
}

// writeDecodeError reports a malformed or invalid body.
func writeDecodeError(w http.ResponseWriter, err error) {
	httpx.WriteError(w, http.StatusBadRequest, httpx.CodeInvalidArgument, err.Error())
}
