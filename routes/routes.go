package routes

import (
	"Ashray/controllers"
	"Ashray/logger"
	"Ashray/metrics"
	"Ashray/middleware"
	"Ashray/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers is everything the HTTP surface dispatches to.
type Handlers struct {
	Auth          *services.AuthService
	Patients      *services.PatientService
	Medications   *services.MedicationService
	Prescriptions *services.PrescriptionService
	Pharmacy      *services.PharmacyService
	Inventory     *services.InventoryService
	Uploads       *services.UploadService
	Verifier      middleware.TokenVerifier
	Parser        controllers.ParserProbe
	UploadDir     string
	ClientURL     string
	Log           *zap.Logger
}

// Middleware installs request ids, logging, panic recovery, metrics and CORS.
func Middleware(r *gin.Engine, h Handlers) {
	log := h.Log
	if log == nil {
		log = zap.NewNop()
	}
	origins := []string{"*"}
	if h.ClientURL != "" {
		origins = []string{h.ClientURL}
	}
	r.Use(logger.Middleware(log), logger.Recovery(log), metrics.Middleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", logger.RequestIDHeader},
		ExposeHeaders:    []string{logger.RequestIDHeader},
		AllowCredentials: h.ClientURL != "",
	}))
}

func Routes(r *gin.Engine, h Handlers) {
	r.GET("/metrics", metrics.Handler())
	if h.UploadDir != "" {
		r.Static("/uploads", h.UploadDir)
	}

	api := r.Group("/api")

	//public
	controllers.Health(api, h.Parser)
	controllers.Auth(api, h.Auth)

	//private routes
	private := api.Group("", middleware.Protect(h.Verifier))
	controllers.Patient(private, h.Patients)
	controllers.Medication(private, h.Medications)
	controllers.Prescription(private, h.Prescriptions)
	controllers.Pharmacy(private, h.Pharmacy)
	controllers.Inventory(private, h.Inventory)
	controllers.Upload(private, h.Uploads)
}
