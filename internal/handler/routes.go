package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/yourusername/animemaster-api/internal/middleware"
)

// RouteLimits holds optional per-route limiter middleware. Nil entries are skipped.
type RouteLimits struct {
	// Group runs before every /auth route.
	Group    gin.HandlerFunc
	Login    gin.HandlerFunc
	SendCode gin.HandlerFunc
}

// RegisterAuthRoutes mounts the auth endpoints under api (normally the /api group).
func RegisterAuthRoutes(api *gin.RouterGroup, h *AuthHandler, authMiddleware *middleware.AuthMiddleware, limits RouteLimits) {
	authGroup := api.Group("/auth")
	if limits.Group != nil {
		authGroup.Use(limits.Group)
	}
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", withLimit(limits.Login, h.Login)...)
		authGroup.POST("/send-code", withLimit(limits.SendCode, h.SendCode)...)
		authGroup.POST("/reset-password", h.ResetPassword)
		authGroup.POST("/logout", h.Logout)

		adminAuth := authGroup.Group("/admin")
		adminAuth.Use(authMiddleware.RequireAuth())
		{
			adminAuth.POST("/unrevoke", h.Unrevoke)
		}
	}

	users := api.Group("/users")
	users.Use(authMiddleware.RequireAuth())
	{
		users.GET("/me", h.GetMe)
	}
}

// RegisterCollectionRoutes mounts the watch list endpoints under api.
func RegisterCollectionRoutes(api *gin.RouterGroup, h *CollectionHandler, authMiddleware *middleware.AuthMiddleware) {
	collection := api.Group("/collection")
	collection.Use(authMiddleware.RequireAuth())
	{
		collection.GET("", h.GetCollections)
		collection.POST("/add", h.Add)
		collection.POST("/update", h.Update)
		collection.POST("/remove", h.Remove)
	}

	status := api.Group("/user-anime-status")
	status.Use(authMiddleware.RequireAuth())
	{
		status.GET("/all", h.ListAll)
		status.GET("/status/:status", h.ListByStatus)
		status.POST("/update-status", h.SetStatus)
		status.POST("/update-progress", h.SetProgress)
	}
}

// RegisterCatalogRoutes mounts the public catalog endpoints under api.
func RegisterCatalogRoutes(api *gin.RouterGroup, h *CatalogHandler) {
	anime := api.Group("/anime")
	{
		anime.GET("/daily", h.Daily)
		anime.GET("/ranking", h.Ranking)
		anime.GET("/search", h.Search)
	}
}

func withLimit(limit, handler gin.HandlerFunc) []gin.HandlerFunc {
	if limit == nil {
		return []gin.HandlerFunc{handler}
	}
	return []gin.HandlerFunc{limit, handler}
}
