package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/huddlehq/huddle-server/internal/domain/sweep"
	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/responses"
	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

// SweepRunner runs background sweeps on demand.
type SweepRunner interface {
	Run(ctx context.Context, name string) (*sweep.Report, error)
	Names() []string
}

type SweepHandler struct {
	runner SweepRunner
	log    zerolog.Logger
}

func NewSweepHandler(runner SweepRunner, log zerolog.Logger) *SweepHandler {
	return &SweepHandler{runner: runner, log: log.With().Str("handler", "sweep").Logger()}
}

// List godoc
// @Summary      List sweeps
// @Tags         admin
// @Produce      json
// @Success      200      {object}  responses.DataResponse[string]
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      403      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/admin/sweeps [get]
func (h *SweepHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, responses.NewDataResponse(h.runner.Names()))
}

// Run godoc
// @Summary      Run sweep
// @Tags         admin
// @Produce      json
// @Param        name     path      string                      true   "Sweep name"
// @Success      200      {object}  sweep.Report
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      403      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/admin/sweeps/{name} [post]
func (h *SweepHandler) Run(c *gin.Context) {
	report, err := h.runner.Run(c.Request.Context(), c.Param("name"))
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, report)
}
