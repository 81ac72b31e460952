package docs

// @title           Nava Admin Service API
// @version         1.0
// @description     Back office of Nava Transportes: accounts, trip review, exports, payments to drivers and analytics.

// @host      localhost:3004
// @BasePath  /nava

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.
