package model

import (
	"time"
)

// AssignmentStatus is the soft-delete flag of a tenant assignment
type AssignmentStatus string

const (
	AssignmentActive  AssignmentStatus = "Active"
	AssignmentDeleted AssignmentStatus = "Deleted"
)

// RoomStatus is the cached occupancy state of a room
type RoomStatus string

const (
	RoomAvailable RoomStatus = "Available"
	RoomOccupied  RoomStatus = "Occupied"
	RoomDeleted   RoomStatus = "Deleted"
)

// OccupancyFor derives a room status from its active assignment count
func OccupancyFor(activeAssignments int) RoomStatus {
	if activeAssignments > 0 {
		return RoomOccupied
	}
	return RoomAvailable
}

// TenantAssignment represents the tenant_assignments table
type TenantAssignment struct {
	ID         int64            `json:"id"`
	UserID     int64            `json:"userId"`
	PropertyID int64            `json:"propertyId"`
	RoomID     int64            `json:"roomId"`
	Status     AssignmentStatus `json:"status"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

// Room represents the rooms table; only Status is written by this service
type Room struct {
	ID         int64      `json:"id"`
	PropertyID int64      `json:"propertyId"`
	RoomNumber string     `json:"roomNumber"`
	Rent       float64    `json:"rent"`
	TotalBed   int        `json:"totalBed"`
	Status     RoomStatus `json:"status"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}
