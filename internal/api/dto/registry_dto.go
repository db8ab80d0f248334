package dto

import "github.com/spec-kit/incident-service/internal/domain"

// ClassificationResponse represents a registry entity.
type ClassificationResponse struct {
	ID           string                    `json:"id"`
	Kind         domain.ClassificationKind `json:"kind"`
	Name         string                    `json:"name"`
	CategoryID   string                    `json:"category_id,omitempty"`
	OwnerUserID  string                    `json:"owner_user_id,omitempty"`
	OwnerEmail   string                    `json:"owner_email,omitempty"`
	LocationType string                    `json:"location_type,omitempty"`
}

// UserResponse represents a registry user.
type UserResponse struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	Role       domain.UserRole `json:"role"`
	EmployeeID string          `json:"employee_id,omitempty"`
	Department string          `json:"department,omitempty"`
}
