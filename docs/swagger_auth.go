package docs

// @title           Nava Auth Service API
// @version         1.0
// @description     Login, token rotation, logout and password change for drivers and administrators.

// @host      localhost:3005
// @BasePath  /nava

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.
