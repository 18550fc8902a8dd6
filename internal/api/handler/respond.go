package handler

import (
	"errors"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"recruiter-go/internal/cvparse"
	"recruiter-go/internal/matching"
)

// respondError maps domain errors onto HTTP statuses: NotFound to 404,
// Validation to 400, extraction-service failures to 502, everything else to
// 500.
func respondError(c *app.RequestContext, err error) {
	status := consts.StatusInternalServerError
	switch {
	case errors.Is(err, matching.ErrNotFound):
		status = consts.StatusNotFound
	case errors.Is(err, matching.ErrValidation):
		status = consts.StatusBadRequest
	case errors.Is(err, cvparse.ErrExternalService):
		status = consts.StatusBadGateway
	}
	c.JSON(status, utils.H{"error": err.Error()})
}
