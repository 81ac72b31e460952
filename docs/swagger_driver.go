package docs

// @title           Nava Driver Service API
// @version         1.0
// @description     Trip logs and payments of the signed in driver.

// @host      localhost:3001
// @BasePath  /nava

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.
