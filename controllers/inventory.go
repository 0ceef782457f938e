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

type InventoryController struct {
	svc *services.InventoryService
}

func Inventory(router gin.IRouter, svc *services.InventoryService) {
	ctl := &InventoryController{svc: svc}
	inventory := router.Group("/inventory", middleware.RequireRole(role.Pharmacy, role.Admin))
	{
		inventory.GET("", ctl.List)
		inventory.POST("", ctl.Create)
		inventory.GET("/alerts/low-stock", ctl.LowStock)
		inventory.GET("/:id", ctl.Get)
		inventory.PUT("/:id", ctl.Update)
		inventory.DELETE("/:id", ctl.Delete)
		inventory.POST("/:id/restock", ctl.Restock)
	}
}

// List accepts ?category= and a case-insensitive ?search= on the name fields.
func (ctl *InventoryController) List(c *gin.Context) {
	items, err := ctl.svc.List(c.Request.Context(), middleware.CurrentPrincipal(c), c.Query("category"), c.Query("search"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.ListResponse(items, len(items)))
}

func (ctl *InventoryController) Create(c *gin.Context) {
	var in models.InventoryInput
	if !bind(c, &in) {
		return
	}
	item, err := ctl.svc.Create(c.Request.Context(), middleware.CurrentPrincipal(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, util.MessageResponse(util.INVENTORY_CREATED, item))
}

func (ctl *InventoryController) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	item, err := ctl.svc.Get(c.Request.Context(), middleware.CurrentPrincipal(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.SuccessResponse(item))
}

func (ctl *InventoryController) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in models.InventoryInput
	if !bind(c, &in) {
		return
	}
	item, err := ctl.svc.Update(c.Request.Context(), middleware.CurrentPrincipal(c), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.MessageResponse(util.INVENTORY_UPDATED, item))
}

func (ctl *InventoryController) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := ctl.svc.Delete(c.Request.Context(), middleware.CurrentPrincipal(c), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.MessageResponse(util.INVENTORY_DELETED, nil))
}

func (ctl *InventoryController) Restock(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.RestockInput
	if !bind(c, &in) {
		return
	}
	item, err := ctl.svc.Restock(c.Request.Context(), middleware.CurrentPrincipal(c), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.MessageResponse(util.INVENTORY_RESTOCKED, item))
}

func (ctl *InventoryController) LowStock(c *gin.Context) {
	items, err := ctl.svc.LowStock(c.Request.Context(), middleware.CurrentPrincipal(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.ListResponse(items, len(items)))
}
