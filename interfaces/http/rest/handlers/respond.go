package handlers

import (
	"errors"
	"net/http"

	"catgraph/application/commands/bus"
	"catgraph/pkg/common"
)

// respondFailure maps an application error onto an HTTP response. Domain
// errors carry their own status code; command validation rejections become
// bad requests; everything else is reported as an internal error without
// leaking its message.
func respondFailure(w http.ResponseWriter, err error) {
	if errors.Is(err, bus.ErrValidationFailed) {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.ValidationError, err.Error())
		return
	}
	common.RespondDomainError(w, err)
}
