package internal

import (
	"net/http"
	"wqd/internal/controllers"
	"wqd/internal/providers"
)

func InitRoutes(apiController *controllers.ApiController) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Post("/api/ingest", http.HandlerFunc(apiController.Ingest))
	routers.Get("/api/latest", http.HandlerFunc(apiController.GetLatest))
	routers.Get("/api/latest/{pin}", http.HandlerFunc(apiController.GetLatestField))
	routers.Get("/api/history", http.HandlerFunc(apiController.GetHistory))
	return routers
}
