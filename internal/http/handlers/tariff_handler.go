// README: Tariff endpoint: trip parameters in, priced (or quote-only) result out.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"berline/internal/modules/tariff"
)

type TariffHandler struct {
	tariffs          *tariff.Service
	defaultTenantKey string
}

func NewTariffHandler(tariffs *tariff.Service, defaultTenantKey string) *TariffHandler {
	return &TariffHandler{tariffs: tariffs, defaultTenantKey: defaultTenantKey}
}

type tariffRequest struct {
	TenantKey         string   `json:"tenantKey"`
	Km                float64  `json:"km"`
	StopsCount        int      `json:"stopsCount"`
	PickupDate        string   `json:"pickupDate"`
	PickupTime        string   `json:"pickupTime"`
	VehicleID         string   `json:"vehicleId"`
	SelectedOptionIDs []string `json:"selectedOptionIds"`
}

type tariffResponse struct {
	OK bool `json:"ok"`
	tariff.Result
}

// Handle serves POST /api/tariff.
func (h *TariffHandler) Handle(c *gin.Context) {
	var req tariffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, CodeInvalidJSON)
		return
	}
	tenantKey := req.TenantKey
	if tenantKey == "" {
		tenantKey = h.defaultTenantKey
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	res, err := h.tariffs.Quote(ctx, tenantKey, tariff.Request{
		Km:                req.Km,
		StopsCount:        req.StopsCount,
		PickupDate:        req.PickupDate,
		PickupTime:        req.PickupTime,
		VehicleID:         req.VehicleID,
		SelectedOptionIDs: req.SelectedOptionIDs,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}

	writeJSON(c, http.StatusOK, tariffResponse{OK: true, Result: res})
}
