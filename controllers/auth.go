package controllers

import (
	"Ashray/middleware"
	"Ashray/services"
	"Ashray/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	svc *services.AuthService
}

type emailBody struct {
	Email string `json:"email"`
}

type verifyBody struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type resetBody struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

// Auth mounts the public account endpoints.
func Auth(router gin.IRouter, svc *services.AuthService) {
	ctl := &AuthController{svc: svc}
	auth := router.Group("/auth")
	{
		auth.POST("/register", ctl.Register)
		auth.POST("/login", ctl.Login)
		auth.POST("/verify", ctl.Verify)
		auth.POST("/resend-code", ctl.ResendCode)
		auth.POST("/forgot-password", ctl.ForgotPassword)
		auth.POST("/reset-password", ctl.ResetPassword)
		auth.POST("/logout", ctl.Logout)
	}
}

/*
* Bind the registration fields and if any error return error
* If no error, sign up in the pool and create the profile
 */
func (ctl *AuthController) Register(c *gin.Context) {
	var in services.RegisterInput
	if !bind(c, &in) {
		return
	}
	user, err := ctl.svc.Register(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, util.MessageResponse(util.REGISTERED, user))
}

/*
* Bind the credentials and if any error return error
* Answer with the pool tokens and the stored profile
 */
func (ctl *AuthController) Login(c *gin.Context) {
	var in services.LoginInput
	if !bind(c, &in) {
		return
	}
	res, err := ctl.svc.Login(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      util.LOGGED_IN,
		"token":        res.IDToken,
		"accessToken":  res.AccessToken,
		"refreshToken": res.RefreshToken,
		"expiresIn":    res.ExpiresIn,
		"data":         res.User,
	})
}

func (ctl *AuthController) Verify(c *gin.Context) {
	var in verifyBody
	if !bind(c, &in) {
		return
	}
	if err := ctl.svc.VerifyEmail(c.Request.Context(), in.Email, in.Code); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.MessageResponse(util.EMAIL_VERIFIED, nil))
}

func (ctl *AuthController) ResendCode(c *gin.Context) {
	var in emailBody
	if !bind(c, &in) {
		return
	}
	if err := ctl.svc.ResendCode(c.Request.Context(), in.Email); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.MessageResponse(util.CODE_RESENT, nil))
}

func (ctl *AuthController) ForgotPassword(c *gin.Context) {
	var in emailBody
	if !bind(c, &in) {
		return
	}
	if err := ctl.svc.ForgotPassword(c.Request.Context(), in.Email); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.MessageResponse(util.RESET_CODE_SENT, nil))
}

func (ctl *AuthController) ResetPassword(c *gin.Context) {
	var in resetBody
	if !bind(c, &in) {
		return
	}
	if err := ctl.svc.ResetPassword(c.Request.Context(), in.Email, in.Code, in.NewPassword); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.MessageResponse(util.PASSWORD_RESET, nil))
}

// Logout revokes the session behind the bearer token, if one was sent.
func (ctl *AuthController) Logout(c *gin.Context) {
	if err := ctl.svc.Logout(c.Request.Context(), middleware.AccessToken(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.MessageResponse(util.LOGGED_OUT, nil))
}
