package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/hverma/enrollhub/internal/app/controllers"
	"github.com/hverma/enrollhub/internal/middleware"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	oauthController *controllers.OAuthController,
	categoryController *controllers.CategoryController,
	studentController *controllers.StudentController,
	identityMiddleware *middleware.IdentityMiddleware,
) {
	// OAuth surface lives at the root, matching the provider redirect URI
	router.GET("/login", oauthController.Login)
	router.GET("/oauth2/callback", oauthController.Callback)
	router.POST("/signout", oauthController.Signout)

	api := router.Group("/api")
	api.Use(identityMiddleware.Attach())

	// Read access is open; mutations require the authorized identity
	categories := api.Group("/categories")
	{
		categories.GET("", categoryController.GetAllCategories)
		categories.GET("/:id", categoryController.GetCategoryByID)

		categoriesProtected := categories.Group("")
		categoriesProtected.Use(middleware.RequireIdentity())
		{
			categoriesProtected.POST("", categoryController.CreateCategory)
		}
	}

	students := api.Group("/students")
	{
		students.GET("", studentController.GetAllStudents)
		students.GET("/:id", studentController.GetStudent)
		students.GET("/:id/photo", studentController.GetStudentPhoto)

		studentsProtected := students.Group("")
		studentsProtected.Use(middleware.RequireIdentity())
		{
			studentsProtected.POST("", studentController.CreateStudent)
			studentsProtected.PUT("/:id", studentController.UpdateStudent)
			studentsProtected.DELETE("/:id", studentController.DeleteStudent)
		}
	}
}
