package controllers

import (
	"Ashray/services"
	"Ashray/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Upload mounts GET /upload-url?file=&type= for direct browser uploads.
func Upload(router gin.IRouter, svc *services.UploadService) {
	router.GET("/upload-url", func(c *gin.Context) {
		ticket, err := svc.UploadURL(c.Request.Context(), c.Query("file"), c.Query("type"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, util.SuccessResponse(ticket))
	})
}
