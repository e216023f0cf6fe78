package api

import (
	"embed"
	"html/template"

	"github.com/gin-gonic/gin"
	"github.com/JustJay7/case-manager/internal/auth"
)

//go:embed templates/*.html
var templateFS embed.FS

// SetupRoutes configures all application routes
func SetupRoutes(router *gin.Engine, deps Deps) {
	h := NewHandlers(deps)

	router.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.html")))
	router.Use(auth.Middleware(deps.Auth))

	// HTML routes
	router.GET("/", h.HomePage)
	router.GET("/login", h.LoginPage)

	// Uploaded files are public by URL
	router.GET("/storage/:bucket/*path", h.ServeObject)

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/signup", h.SignUp)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/logout", h.Logout)
	}

	router.GET("/api/health", h.HealthCheck)
	router.GET("/api/session", h.GetSession)

	api := router.Group("/api", auth.RequireAuth())
	{
		api.GET("/clients", h.ListClients)
		api.GET("/clients/next-number", h.NextClientNumber)
		api.GET("/clients/:id", h.GetClient)
		api.POST("/clients", h.CreateClient)
		api.PUT("/clients/:id", h.UpdateClient)
		api.DELETE("/clients/:id", h.DeleteClient)

		api.GET("/cases", h.ListCases)
		api.GET("/cases/:id", h.GetCase)
		api.POST("/cases", h.CreateCase)
		api.PUT("/cases/:id", h.UpdateCase)
		api.DELETE("/cases/:id", h.DeleteCase)
		api.GET("/matter-types", h.MatterTypes)

		settings := api.Group("/settings")
		settings.GET("/firm", h.GetFirmSettings)
		settings.PUT("/firm", h.UpdateFirmSettings)
		settings.POST("/firm/logo", h.UploadLogo)
		settings.GET("/organization", h.GetOrganization)
		settings.PUT("/organization", h.UpdateOrganization)
		settings.GET("/preferences", h.GetPreferences)
		settings.PUT("/preferences", h.UpdatePreferences)
		settings.POST("/preferences/categories", h.AddCategory)
		settings.DELETE("/preferences/categories/:kind/:name", h.RemoveCategory)

		api.GET("/documents", h.ListDocuments)
		api.GET("/documents/:id", h.GetDocument)
		api.POST("/documents", h.CreateDocument)
		api.DELETE("/documents/:id", h.DeleteDocument)

		api.GET("/events", h.ListEvents)
		api.GET("/events/:id", h.GetEvent)
		api.POST("/events", h.CreateEvent)
		api.DELETE("/events/:id", h.DeleteEvent)

		api.GET("/time-entries", h.ListTimeEntries)
		api.POST("/time-entries", h.CreateTimeEntry)
		api.GET("/invoices", h.ListInvoices)
		api.GET("/invoices/:id", h.GetInvoice)
		api.POST("/invoices", h.CreateInvoice)
		api.PUT("/invoices/:id/status", h.UpdateInvoiceStatus)
		api.GET("/billing/summary", h.BillingSummary)

		api.GET("/dashboard", h.GetDashboard)
	}

	router.POST("/rpc/:name", auth.RequireAuth(), h.CallRPC)
}
