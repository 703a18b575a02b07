package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TripStatus represents the lifecycle status of a trip.
type TripStatus string

const (
	TripStatusActive    TripStatus = "active"
	TripStatusCompleted TripStatus = "completed"
	TripStatusCancelled TripStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s TripStatus) Valid() bool {
	switch s {
	case TripStatusActive, TripStatusCompleted, TripStatusCancelled:
		return true
	default:
		return false
	}
}

// Trip represents a booked transportation job.
type Trip struct {
	ID   string
	Date time.Time // Civil date; only year, month and day are meaningful.

	Status    TripStatus
	IsSettled bool

	CommercialPrice decimal.Decimal // What the agency pays the supplier.
	TripPrice       decimal.Decimal // What the customer is charged.
	PaidAmount      decimal.Decimal
	Collection      decimal.Decimal // Amount collected on the agency's behalf.
	Commission      decimal.Decimal
	Quantity        int

	CustomerName string
	SupplierName string
	Destination  string
	Notes        string

	CreatedBy string // Employee actor that booked the trip.
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a copy of the trip that can be mutated independently.
func (t *Trip) Clone() *Trip {
	c := *t
	return &c
}
