package docs

// @title           Field Service Dispatch API
// @version         1.0
// @description     Dispatch service handles booking creation, assignment of professionals, live position tracking and booking lifecycle management. Supports WebSocket connections for live tracking updates.
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.url    http://www.swagger.io/support
// @contact.email  support@swagger.io

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
