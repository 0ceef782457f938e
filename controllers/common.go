package controllers

import (
	"Ashray/apperr"
	"Ashray/util"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fail answers with the status implied by the error's kind.
func fail(c *gin.Context, err error) {
	c.JSON(apperr.Status(err), util.FailedResponse(err))
}

// paramID reads a path parameter as an ObjectID.
func paramID(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		fail(c, apperr.Validation(util.INVALID_ID))
		return primitive.NilObjectID, false
	}
	return id, true
}

// bind decodes the JSON body, answering 400 on failure.
func bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fail(c, apperr.Wrap(apperr.KindValidation, util.INVALID_REQUEST_BODY, err))
		return false
	}
	return true
}
