package handlers

import (
	"github.com/gin-gonic/gin"
)

// Router bundles the handlers and the two auth gates the API is mounted with.
type Router struct {
	Users         *UserHandler
	Clients       *ClientHandler
	Projects      *ProjectHandler
	DeliveryNotes *DeliveryNoteHandler

	// RequireAuth admits validated, active users only.
	RequireAuth gin.HandlerFunc
	// RequireToken admits any well-signed token, used before validation.
	RequireToken gin.HandlerFunc
}

// Register mounts every route under api.
func (r Router) Register(api *gin.RouterGroup) {
	user := api.Group("/user")
	{
		user.POST("", r.Users.Register)
		user.POST("/login", r.Users.Login)
		user.POST("/recovery", r.Users.Recovery)
		user.PUT("/validation", r.RequireToken, r.Users.Validate)

		user.GET("", r.RequireAuth, r.Users.GetUser)
		user.PATCH("", r.RequireAuth, r.Users.PatchUser)
		user.DELETE("", r.RequireAuth, r.Users.DeleteUser)
		user.PUT("/company", r.RequireAuth, r.Users.PutCompany)
		user.POST("/company/guest", r.RequireAuth, r.Users.CreateGuest)
		user.PUT("/logo", r.RequireAuth, r.Users.PutLogo)
		user.PUT("/password", r.RequireAuth, r.Users.PutPassword)
	}

	clients := api.Group("/client")
	clients.Use(r.RequireAuth)
	{
		clients.GET("", r.Clients.ListClients)
		clients.GET("/archived", r.Clients.ListArchivedClients)
		clients.GET("/:id", r.Clients.GetClient)
		clients.POST("", r.Clients.CreateClient)
		clients.PATCH("/:id", r.Clients.UpdateClient)
		clients.DELETE("/:id", r.Clients.DeleteClient)
		clients.PUT("/:id/restore", r.Clients.RestoreClient)
	}

	projects := api.Group("/project")
	projects.Use(r.RequireAuth)
	{
		projects.GET("", r.Projects.ListProjects)
		projects.GET("/archived", r.Projects.ListArchivedProjects)
		projects.GET("/client/:client_id", r.Projects.ListClientProjects)
		projects.GET("/archive/:client_id", r.Projects.ListArchivedClientProjects)
		projects.GET("/:id", r.Projects.GetProject)
		projects.POST("", r.Projects.CreateProject)
		projects.PATCH("/:id", r.Projects.UpdateProject)
		projects.DELETE("/:id", r.Projects.DeleteProject)
		projects.PUT("/:id/restore", r.Projects.RestoreProject)
	}

	notes := api.Group("/deliverynote")
	notes.Use(r.RequireAuth)
	{
		notes.GET("", r.DeliveryNotes.ListDeliveryNotes)
		notes.GET("/archived", r.DeliveryNotes.ListArchivedDeliveryNotes)
		notes.GET("/client/:client_id", r.DeliveryNotes.ListClientDeliveryNotes)
		notes.GET("/project/:project_id", r.DeliveryNotes.ListProjectDeliveryNotes)
		notes.GET("/pdf/:id", r.DeliveryNotes.GetDeliveryNotePDF)
		notes.GET("/:id", r.DeliveryNotes.GetDeliveryNote)
		notes.POST("", r.DeliveryNotes.CreateDeliveryNote)
		notes.POST("/draft", r.DeliveryNotes.DraftDeliveryNote)
		notes.PUT("/signature/:id", r.DeliveryNotes.UploadSignature)
		notes.PUT("/:id/restore", r.DeliveryNotes.RestoreDeliveryNote)
		notes.DELETE("/:id", r.DeliveryNotes.DeleteDeliveryNote)
	}
}
