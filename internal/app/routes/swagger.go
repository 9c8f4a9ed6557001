package routes

import (
	"net/url"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/yigit/scholarsphere/docs"
)

// SetupSwagger serves the API docs under /swagger. The advertised host and
// scheme follow baseURL so "Try it out" hits the running server.
func SetupSwagger(router *gin.Engine, baseURL string) {
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		docs.SwaggerInfo.Host = u.Host
		docs.SwaggerInfo.Schemes = []string{u.Scheme}
	}
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler,
		ginSwagger.URL("/swagger/doc.json"),
		ginSwagger.DefaultModelsExpandDepth(1)))
}
