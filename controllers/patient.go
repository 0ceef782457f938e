package controllers

import (
	"Ashray/middleware"
	"Ashray/models"
	"Ashray/role"
	"Ashray/services"
	"Ashray/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

type PatientController struct {
	svc *services.PatientService
}

func Patient(router gin.IRouter, svc *services.PatientService) {
	ctl := &PatientController{svc: svc}
	patient := router.Group("/patients")
	{
		patient.GET("/dashboard", middleware.RequireRole(role.Patient, role.Caregiver), ctl.Dashboard)
		patient.GET("/profile", ctl.Profile)
		patient.PUT("/profile", ctl.UpdateProfile)
	}
}

func (ctl *PatientController) Dashboard(c *gin.Context) {
	d, err := ctl.svc.Dashboard(c.Request.Context(), middleware.CurrentPrincipal(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.SuccessResponse(d))
}

func (ctl *PatientController) Profile(c *gin.Context) {
	u, err := ctl.svc.Profile(c.Request.Context(), middleware.CurrentPrincipal(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.SuccessResponse(u))
}

func (ctl *PatientController) UpdateProfile(c *gin.Context) {
	var upd models.ProfileUpdate
	if !bind(c, &upd) {
		return
	}
	u, err := ctl.svc.UpdateProfile(c.Request.Context(), middleware.CurrentPrincipal(c), upd)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.MessageResponse(util.PROFILE_UPDATED, u))
}
