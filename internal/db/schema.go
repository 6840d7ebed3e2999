package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Tables lists every table the service owns, in creation order.
var Tables = []string{"buses", "seats", "schedules", "seat_availability", "bookings", "passengers"}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS buses (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		operator VARCHAR(120) NOT NULL,
		bus_number VARCHAR(40) NOT NULL,
		bus_type VARCHAR(60) NOT NULL,
		amenities TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		UNIQUE KEY uniq_bus_number (bus_number)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS seats (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		bus_id BIGINT NOT NULL,
		seat_number VARCHAR(10) NOT NULL,
		deck VARCHAR(10) NOT NULL DEFAULT 'lower',
		position VARCHAR(20) NOT NULL DEFAULT '',
		seat_type VARCHAR(20) NOT NULL DEFAULT 'seater',
		UNIQUE KEY uniq_bus_seat (bus_id, seat_number),
		CONSTRAINT fk_seats_bus FOREIGN KEY (bus_id) REFERENCES buses(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS schedules (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		bus_id BIGINT NOT NULL,
		from_city VARCHAR(80) NOT NULL,
		to_city VARCHAR(80) NOT NULL,
		travel_date DATE NOT NULL,
		departure_time VARCHAR(5) NOT NULL,
		arrival_time VARCHAR(5) NOT NULL,
		base_price_cents BIGINT NOT NULL,
		total_seats INT NOT NULL,
		available_seats INT NOT NULL,
		boarding_point VARCHAR(160) NOT NULL DEFAULT '',
		drop_point VARCHAR(160) NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		KEY idx_schedules_search (from_city, to_city, travel_date),
		CONSTRAINT fk_schedules_bus FOREIGN KEY (bus_id) REFERENCES buses(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS seat_availability (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		schedule_id BIGINT NOT NULL,
		seat_id BIGINT NOT NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'available',
		locked_until DATETIME(6) NULL,
		locked_by_user_id BIGINT NULL,
		price_cents BIGINT NOT NULL,
		UNIQUE KEY uniq_schedule_seat (schedule_id, seat_id),
		KEY idx_seat_lock_expiry (status, locked_until),
		CONSTRAINT fk_sa_schedule FOREIGN KEY (schedule_id) REFERENCES schedules(id),
		CONSTRAINT fk_sa_seat FOREIGN KEY (seat_id) REFERENCES seats(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		ticket_number VARCHAR(40) NOT NULL,
		user_id BIGINT NOT NULL,
		schedule_id BIGINT NOT NULL,
		status VARCHAR(16) NOT NULL,
		payment_status VARCHAR(16) NOT NULL,
		payment_ref VARCHAR(80) NOT NULL DEFAULT '',
		total_cents BIGINT NOT NULL,
		contact_email VARCHAR(160) NOT NULL,
		contact_phone VARCHAR(40) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		UNIQUE KEY uniq_ticket_number (ticket_number),
		KEY idx_bookings_user (user_id),
		CONSTRAINT fk_bookings_schedule FOREIGN KEY (schedule_id) REFERENCES schedules(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS passengers (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		booking_id BIGINT NOT NULL,
		seat_availability_id BIGINT NOT NULL,
		seat_id BIGINT NOT NULL,
		name VARCHAR(100) NOT NULL,
		age INT NOT NULL,
		gender VARCHAR(10) NOT NULL,
		UNIQUE KEY uniq_passenger_seat (seat_availability_id),
		CONSTRAINT fk_passengers_booking FOREIGN KEY (booking_id) REFERENCES bookings(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS buses (
		id BIGSERIAL PRIMARY KEY,
		operator VARCHAR(120) NOT NULL,
		bus_number VARCHAR(40) NOT NULL UNIQUE,
		bus_type VARCHAR(60) NOT NULL,
		amenities TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS seats (
		id BIGSERIAL PRIMARY KEY,
		bus_id BIGINT NOT NULL REFERENCES buses(id),
		seat_number VARCHAR(10) NOT NULL,
		deck VARCHAR(10) NOT NULL DEFAULT 'lower',
		position VARCHAR(20) NOT NULL DEFAULT '',
		seat_type VARCHAR(20) NOT NULL DEFAULT 'seater',
		UNIQUE (bus_id, seat_number)
	)`,
	`CREATE TABLE IF NOT EXISTS schedules (
		id BIGSERIAL PRIMARY KEY,
		bus_id BIGINT NOT NULL REFERENCES buses(id),
		from_city VARCHAR(80) NOT NULL,
		to_city VARCHAR(80) NOT NULL,
		travel_date DATE NOT NULL,
		departure_time VARCHAR(5) NOT NULL,
		arrival_time VARCHAR(5) NOT NULL,
		base_price_cents BIGINT NOT NULL,
		total_seats INT NOT NULL,
		available_seats INT NOT NULL,
		boarding_point VARCHAR(160) NOT NULL DEFAULT '',
		drop_point VARCHAR(160) NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_schedules_search ON schedules (from_city, to_city, travel_date)`,
	`CREATE TABLE IF NOT EXISTS seat_availability (
		id BIGSERIAL PRIMARY KEY,
		schedule_id BIGINT NOT NULL REFERENCES schedules(id),
		seat_id BIGINT NOT NULL REFERENCES seats(id),
		status VARCHAR(16) NOT NULL DEFAULT 'available',
		locked_until TIMESTAMPTZ NULL,
		locked_by_user_id BIGINT NULL,
		price_cents BIGINT NOT NULL,
		UNIQUE (schedule_id, seat_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_seat_lock_expiry ON seat_availability (status, locked_until)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id BIGSERIAL PRIMARY KEY,
		ticket_number VARCHAR(40) NOT NULL UNIQUE,
		user_id BIGINT NOT NULL,
		schedule_id BIGINT NOT NULL REFERENCES schedules(id),
		status VARCHAR(16) NOT NULL,
		payment_status VARCHAR(16) NOT NULL,
		payment_ref VARCHAR(80) NOT NULL DEFAULT '',
		total_cents BIGINT NOT NULL,
		contact_email VARCHAR(160) NOT NULL,
		contact_phone VARCHAR(40) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_user ON bookings (user_id)`,
	`CREATE TABLE IF NOT EXISTS passengers (
		id BIGSERIAL PRIMARY KEY,
		booking_id BIGINT NOT NULL REFERENCES bookings(id),
		seat_availability_id BIGINT NOT NULL UNIQUE,
		seat_id BIGINT NOT NULL,
		name VARCHAR(100) NOT NULL,
		age INT NOT NULL,
		gender VARCHAR(10) NOT NULL
	)`,
}

// Schema returns the DDL statements for the dialect.
func (d Dialect) Schema() []string {
	if d == Postgres {
		return postgresSchema
	}
	return mysqlSchema
}

// EnsureSchema creates missing tables. Existing tables are left untouched.
func EnsureSchema(ctx context.Context, conn *sql.DB, d Dialect) error {
	for _, stmt := range d.Schema() {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// MissingTables reports owned tables absent from the connected database.
func MissingTables(ctx context.Context, q Querier, d Dialect) ([]string, error) {
	var missing []string
	for _, t := range Tables {
		ok, err := d.HasTable(ctx, q, t)
		if err != nil {
			return nil, err
		}
		if !ok {
			missing = append(missing, t)
		}
	}
	return missing, nil
}
