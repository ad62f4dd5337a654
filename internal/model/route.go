package model

import "time"

// Route is a named connection between a start point and an end
// destination, with the intermediate stops the bus serves along the
// way.  Routes are referenced by trip schedules and bookings but never
// own seat state themselves.
//
// Fields:
//  ID         – primary key identifier.
//  Name       – human readable route name.
//  StartPoint – name of the origin station.
//  StartLat   – latitude of the origin.
//  StartLng   – longitude of the origin.
//  EndPoint   – name of the destination station.
//  EndLat     – latitude of the destination.
//  EndLng     – longitude of the destination.
//  PriceCents – base fare for the full route in cents.
//  Stops      – ordered intermediate stops.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type Route struct {
	ID         uint64      // routes.id
	Name       string      // routes.name
	StartPoint string      // routes.start_point
	StartLat   float64     // routes.start_lat
	StartLng   float64     // routes.start_lng
	EndPoint   string      // routes.end_point
	EndLat     float64     // routes.end_lat
	EndLng     float64     // routes.end_lng
	PriceCents uint32      // routes.price_cents
	Stops      []RouteStop // route_stops rows ordered by position
	CreatedAt  time.Time   // routes.created_at
	UpdatedAt  time.Time   // routes.updated_at
}

// RouteStop is an intermediate station on a route.
type RouteStop struct {
	ID        uint64  // route_stops.id
	RouteID   uint64  // route_stops.route_id
	Name      string  // route_stops.name
	Latitude  float64 // route_stops.latitude
	Longitude float64 // route_stops.longitude
	Position  uint32  // route_stops.position (zero based order)
}
