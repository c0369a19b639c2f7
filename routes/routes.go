package routes

import (
	"catalog-admin/controllers"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires every HTTP endpoint to its controller.
func RegisterRoutes(
	r *gin.Engine,
	categoryController *controllers.CategoryController,
	importHandler *controllers.ImportHandler,
	uploadHandler *controllers.UploadHandler,
	currencyController *controllers.CurrencyController,
) {
	categoryRoutes := r.Group("/categories")
	{
		categoryRoutes.GET("/", categoryController.ListCategories)
		categoryRoutes.GET("/tree", categoryController.GetCategories)
		categoryRoutes.GET("/:id", categoryController.GetCategoryByID)
		categoryRoutes.POST("/", categoryController.CreateCategory)
		categoryRoutes.PUT("/:id", categoryController.UpdateCategory)
		categoryRoutes.DELETE("/:id", categoryController.DeleteCategory)

		categoryRoutes.POST("/:id/images", uploadHandler.UploadImages)
		categoryRoutes.DELETE("/:id/images/:index", categoryController.RemoveImage)
	}

	importRoutes := r.Group("/categories/import")
	{
		importRoutes.POST("/", importHandler.ImportCategories)
		importRoutes.POST("/validate", importHandler.ValidateImport)
		importRoutes.GET("/jobs/:id", importHandler.GetImportJobStatus)
	}

	uploadRoutes := r.Group("/uploads")
	{
		uploadRoutes.GET("/presign", uploadHandler.GetPresignUpload)
	}

	currencyRoutes := r.Group("/currency")
	{
		currencyRoutes.GET("/convert", currencyController.Convert)
		currencyRoutes.GET("/", currencyController.ListCurrencies)
	}
}
