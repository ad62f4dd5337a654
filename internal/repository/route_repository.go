package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
)

// RouteRepo encapsulates database operations for routes and their
// intermediate stops.  Routes are plain reference data for the
// reservation core: trips point at a route, bookings denormalise its
// id, and trip search matches on its endpoint names.
type RouteRepo struct {
	db *sql.DB
}

// NewRouteRepo constructs a RouteRepo given a DB handle.
func NewRouteRepo(db *sql.DB) *RouteRepo {
	return &RouteRepo{db: db}
}

// Create inserts a route and its stops.  The unique key on
// (start_point, end_point) makes a duplicate pair surface as
// ErrConflict.  Stops are inserted in the order supplied.
func (r *RouteRepo) Create(ctx context.Context, rt *model.Route) (uint64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	res, err := tx.ExecContext(ctx,
		"INSERT INTO routes (name, start_point, start_lat, start_lng, end_point, end_lat, end_lng, price_cents) VALUES (?,?,?,?,?,?,?,?)",
		rt.Name, rt.StartPoint, rt.StartLat, rt.StartLng, rt.EndPoint, rt.EndLat, rt.EndLng, rt.PriceCents)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrConflict
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for i, stop := range rt.Stops {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO route_stops (route_id, name, latitude, longitude, position) VALUES (?,?,?,?,?)",
			id, stop.Name, stop.Latitude, stop.Longitude, i); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return uint64(id), nil
}

// GetByID returns a route with its stops, or ErrRouteNotFound.
func (r *RouteRepo) GetByID(ctx context.Context, id uint64) (*model.Route, error) {
	var rt model.Route
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, start_point, start_lat, start_lng, end_point, end_lat, end_lng, price_cents, created_at, updated_at FROM routes WHERE id=?",
		id).Scan(&rt.ID, &rt.Name, &rt.StartPoint, &rt.StartLat, &rt.StartLng, &rt.EndPoint, &rt.EndLat, &rt.EndLng, &rt.PriceCents, &rt.CreatedAt, &rt.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrRouteNotFound
	}
	if err != nil {
		return nil, err
	}
	stops, err := r.stopsFor(ctx, rt.ID)
	if err != nil {
		return nil, err
	}
	rt.Stops = stops
	return &rt, nil
}

// List returns all routes with their stops, ordered by id.
func (r *RouteRepo) List(ctx context.Context) ([]model.Route, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, start_point, start_lat, start_lng, end_point, end_lat, end_lng, price_cents, created_at, updated_at FROM routes ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Route, 0)
	for rows.Next() {
		var rt model.Route
		if err := rows.Scan(&rt.ID, &rt.Name, &rt.StartPoint, &rt.StartLat, &rt.StartLng, &rt.EndPoint, &rt.EndLat, &rt.EndLng, &rt.PriceCents, &rt.CreatedAt, &rt.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		stops, err := r.stopsFor(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Stops = stops
	}
	return out, nil
}

// Update changes the mutable fields of a route.  Empty strings and
// zero prices leave the corresponding column untouched.
func (r *RouteRepo) Update(ctx context.Context, id uint64, name string, priceCents uint32) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE routes SET
		   name        = COALESCE(NULLIF(?, ''), name),
		   price_cents = IF(? > 0, ?, price_cents)
		 WHERE id = ?`,
		name, priceCents, priceCents, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRouteNotFound
	}
	return nil
}

// Delete removes a route and its stops.  Deleting a route still
// referenced by trip schedules fails the foreign key and surfaces as
// ErrConflict.
func (r *RouteRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM routes WHERE id=?", id)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1451") {
			return ErrConflict
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRouteNotFound
	}
	return nil
}

func (r *RouteRepo) stopsFor(ctx context.Context, routeID uint64) ([]model.RouteStop, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, route_id, name, latitude, longitude, position FROM route_stops WHERE route_id=? ORDER BY position",
		routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	stops := make([]model.RouteStop, 0)
	for rows.Next() {
		var s model.RouteStop
		if err := rows.Scan(&s.ID, &s.RouteID, &s.Name, &s.Latitude, &s.Longitude, &s.Position); err != nil {
			return nil, err
		}
		stops = append(stops, s)
	}
	return stops, rows.Err()
}
