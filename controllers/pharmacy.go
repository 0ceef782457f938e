package controllers

import (
	"Ashray/middleware"
	"Ashray/role"
	"Ashray/services"
	"Ashray/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

type PharmacyController struct {
	svc *services.PharmacyService
}

func Pharmacy(router gin.IRouter, svc *services.PharmacyService) {
	ctl := &PharmacyController{svc: svc}
	pharmacy := router.Group("/pharmacy", middleware.RequireRole(role.Pharmacy, role.Admin))
	{
		pharmacy.GET("/dashboard", ctl.Dashboard)
		pharmacy.GET("/prescriptions/pending", ctl.Pending)
		pharmacy.POST("/prescriptions/:id/process", ctl.Process)
	}
}

func (ctl *PharmacyController) Dashboard(c *gin.Context) {
	d, err := ctl.svc.Dashboard(c.Request.Context(), middleware.CurrentPrincipal(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.SuccessResponse(d))
}

func (ctl *PharmacyController) Pending(c *gin.Context) {
	rxs, err := ctl.svc.Pending(c.Request.Context(), middleware.CurrentPrincipal(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.ListResponse(rxs, len(rxs)))
}

func (ctl *PharmacyController) Process(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	rx, err := ctl.svc.Process(c.Request.Context(), middleware.CurrentPrincipal(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.MessageResponse(util.PRESCRIPTION_PROCESSING, rx))
}
