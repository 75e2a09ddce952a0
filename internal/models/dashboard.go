package models

import "time"

// DashboardStats aggregates the back-office headline numbers.
type DashboardStats struct {
	TotalStudents      int       `json:"totalStudents"`
	TotalTeachers      int       `json:"totalTeachers"`
	ActiveCourses      int       `json:"activeCourses"`
	RegistrationsToday int       `json:"registrationsToday"`
	GeneratedAt        time.Time `json:"generatedAt"`
}
