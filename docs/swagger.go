package docs

import "github.com/swaggo/swag"

// @title QuickBite Order & Dispatch API
// @version 1.0
// @description Order lifecycle and rider dispatch service
// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
var SwaggerInfo = &swag.Spec{
	Version:     "1.0",
	Host:        "localhost:8080",
	BasePath:    "/api/v1",
	Title:       "QuickBite Order & Dispatch API",
	Description: "Order lifecycle and rider dispatch service",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
