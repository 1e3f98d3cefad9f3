package verifyd

//go:generate swag init -g internal/verifyd/server.go -o internal/verifyd/docs

// @title Kakunin Verification API
// @version 0.1
// @description Multi-region website verification: job submission, status, history and screenshots.
// @contact.name Kakunin Maintainers
// @contact.url https://github.com/raysh454/kakunin
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
