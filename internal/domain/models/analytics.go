package models

import "github.com/google/uuid"

type Dashboard struct {
	TotalUsers  int    `json:"totalUsers"`
	Drivers     int    `json:"drivers"`
	Admins      int    `json:"admins"`
	Trips       int    `json:"trips"`
	LatestUsers []User `json:"latestUsers"`
}

// DriverStats aggregates trips and payments of one driver.
type DriverStats struct {
	DriverID          uuid.UUID `json:"driverId"`
	DriverName        string    `json:"driverName"`
	Trips             int       `json:"trips"`
	TotalFreight      float64   `json:"totalFreight"`
	TotalPaid         float64   `json:"totalPaid"`
	Commission        float64   `json:"commission"`
	PaymentsTotal     float64   `json:"paymentsTotal"`
	AverageEfficiency float64   `json:"averageEfficiency"`
}
