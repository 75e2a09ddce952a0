package dto

import "github.com/noah-isme/academy-portal/internal/models"

// AdminDashboardResponse is the back-office landing payload.
type AdminDashboardResponse struct {
	Stats               models.DashboardStats `json:"stats"`
	RecentRegistrations []models.Registration `json:"recentRegistrations"`
	Teachers            []models.Teacher      `json:"teachers"`
}
