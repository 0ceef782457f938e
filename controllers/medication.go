package controllers

import (
	"Ashray/middleware"
	"Ashray/services"
	"Ashray/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

type MedicationController struct {
	svc *services.MedicationService
}

func Medication(router gin.IRouter, svc *services.MedicationService) {
	ctl := &MedicationController{svc: svc}
	medication := router.Group("/medications")
	{
		medication.GET("", ctl.List)
		medication.POST("", ctl.Create)
		medication.GET("/:id", ctl.Get)
		medication.PUT("/:id", ctl.Update)
		medication.DELETE("/:id", ctl.Delete)
		medication.POST("/:id/log-intake", ctl.LogIntake)
		medication.GET("/:id/adherence", ctl.Adherence)
	}
}

func (ctl *MedicationController) List(c *gin.Context) {
	meds, err := ctl.svc.List(c.Request.Context(), middleware.CurrentPrincipal(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.ListResponse(meds, len(meds)))
}

func (ctl *MedicationController) Create(c *gin.Context) {
	var in services.MedicationInput
	if !bind(c, &in) {
		return
	}
	m, err := ctl.svc.Create(c.Request.Context(), middleware.CurrentPrincipal(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, util.MessageResponse(util.MEDICATION_CREATED, m))
}

func (ctl *MedicationController) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	m, err := ctl.svc.Get(c.Request.Context(), middleware.CurrentPrincipal(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.SuccessResponse(m))
}

func (ctl *MedicationController) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.MedicationInput
	if !bind(c, &in) {
		return
	}
	m, err := ctl.svc.Update(c.Request.Context(), middleware.CurrentPrincipal(c), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.MessageResponse(util.MEDICATION_UPDATED, m))
}

func (ctl *MedicationController) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := ctl.svc.Delete(c.Request.Context(), middleware.CurrentPrincipal(c), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.MessageResponse(util.MEDICATION_DELETED, nil))
}

func (ctl *MedicationController) LogIntake(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.IntakeInput
	if !bind(c, &in) {
		return
	}
	m, err := ctl.svc.LogIntake(c.Request.Context(), middleware.CurrentPrincipal(c), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.MessageResponse(util.INTAKE_LOGGED, m))
}

func (ctl *MedicationController) Adherence(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	report, err := ctl.svc.Adherence(c.Request.Context(), middleware.CurrentPrincipal(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.SuccessResponse(report))
}
