package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourorg/index-compare/internal/model"
	"github.com/yourorg/index-compare/internal/service"
	"github.com/yourorg/index-compare/internal/utils"
)

// NAVGetter serves fund NAV history
type NAVGetter interface {
	GetNAV(ctx context.Context, tsCode, startDate, endDate string) ([]model.FundNAV, error)
}

// NAVQuery holds the query parameters of the NAV route
type NAVQuery struct {
	TSCode    string `form:"ts_code"`
	StartDate string `form:"start_date" binding:"omitempty,tradedate"`
	EndDate   string `form:"end_date" binding:"omitempty,tradedate"`
}

// NAVHandler handles fund NAV HTTP requests
type NAVHandler struct {
	navService NAVGetter
	logger     *zap.Logger
}

// NewNAVHandler creates a new NAV handler
func NewNAVHandler(navService NAVGetter, logger *zap.Logger) *NAVHandler {
	return &NAVHandler{
		navService: navService,
		logger:     logger,
	}
}

// GetNAV handles GET /api/etf-nav
func (h *NAVHandler) GetNAV(c *gin.Context) {
	var query NAVQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.SendErrorResponse(c, http.StatusBadRequest, "Invalid query parameters: dates must be YYYYMMDD")
		return
	}

	navs, err := h.navService.GetNAV(c.Request.Context(), query.TSCode, query.StartDate, query.EndDate)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, model.NAVResponse{Success: true, Data: navs, Count: len(navs)})
	case errors.Is(err, service.ErrNoNAVData):
		utils.SendErrorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidRange):
		utils.SendErrorResponse(c, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("Failed to fetch fund NAV", zap.Error(err))
		utils.SendErrorResponse(c, http.StatusBadGateway, err.Error())
	}
}
