package main

// @title Training Center API
// @version 1.0.0
// @description Enrollment lifecycle, group capacity, session scheduling and occupancy for a training center.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	Execute()
}
