package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/GaruVA/wctsystem-backend-sub000/internal/model"
)

// Postgres implements Store over database/sql with the pgx driver. Geometry
// and ordered collections (boundary, path, bin order, events) are stored as
// JSONB.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// Migrate creates the schema. Idempotent; safe to run on every boot.
func (p *Postgres) Migrate() error {
	_, err := p.db.Exec(schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS areas (
    id          UUID PRIMARY KEY,
    name        TEXT NOT NULL,
    boundary    JSONB NOT NULL,
    start_point JSONB NOT NULL,
    end_point   JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS bins (
    id             UUID PRIMARY KEY,
    lat            DOUBLE PRECISION NOT NULL,
    lng            DOUBLE PRECISION NOT NULL,
    fill_level     DOUBLE PRECISION NOT NULL DEFAULT 0,
    waste_type     TEXT NOT NULL,
    area_id        UUID,
    status         TEXT NOT NULL,
    last_collected TIMESTAMPTZ,
    created_at     TIMESTAMPTZ NOT NULL,
    updated_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS bins_area_idx ON bins (area_id, waste_type);
CREATE TABLE IF NOT EXISTS collectors (
    id      UUID PRIMARY KEY,
    name    TEXT NOT NULL,
    area_id UUID,
    status  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS schedules (
    id           UUID PRIMARY KEY,
    area_id      UUID NOT NULL,
    collector_id UUID,
    waste_type   TEXT,
    date         DATE NOT NULL,
    start_time   TIMESTAMPTZ,
    end_time     TIMESTAMPTZ,
    status       TEXT NOT NULL,
    bin_ids      JSONB NOT NULL DEFAULT '[]',
    path         JSONB NOT NULL DEFAULT '[]',
    distance_km  DOUBLE PRECISION NOT NULL DEFAULT 0,
    duration_min INTEGER NOT NULL DEFAULT 0,
    notes        TEXT,
    created_at   TIMESTAMPTZ NOT NULL,
    updated_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS schedules_area_idx ON schedules (area_id, waste_type, date);
CREATE TABLE IF NOT EXISTS alerts (
    id          UUID PRIMARY KEY,
    type        TEXT NOT NULL,
    severity    TEXT NOT NULL,
    status      TEXT NOT NULL,
    subject     TEXT NOT NULL,
    title       TEXT NOT NULL,
    description TEXT,
    created_at  TIMESTAMPTZ NOT NULL,
    read_at     TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS alerts_unread_idx ON alerts (type, subject) WHERE status = 'UNREAD';
CREATE TABLE IF NOT EXISTS settings (
    id                    BOOLEAN PRIMARY KEY DEFAULT TRUE,
    notifications_enabled BOOLEAN NOT NULL,
    warning_threshold     DOUBLE PRECISION NOT NULL,
    critical_threshold    DOUBLE PRECISION NOT NULL,
    CONSTRAINT settings_singleton CHECK (id)
);
CREATE TABLE IF NOT EXISTS subscriptions (
    id     UUID PRIMARY KEY,
    url    TEXT NOT NULL,
    events JSONB NOT NULL,
    secret TEXT
);
CREATE TABLE IF NOT EXISTS notification_deliveries (
    id              UUID PRIMARY KEY,
    subscription_id UUID,
    event_type      TEXT NOT NULL,
    url             TEXT NOT NULL,
    secret          TEXT,
    payload         BYTEA NOT NULL,
    status          TEXT NOT NULL DEFAULT 'pending',
    attempts        INTEGER NOT NULL DEFAULT 0,
    next_attempt_at TIMESTAMPTZ NOT NULL,
    last_error      TEXT,
    response_code   INTEGER,
    latency_ms      INTEGER
);
CREATE INDEX IF NOT EXISTS deliveries_due_idx ON notification_deliveries (status, next_attempt_at);
`

func toJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

// Areas

func (p *Postgres) CreateArea(ctx context.Context, a model.Area) (model.Area, error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO areas (id, name, boundary, start_point, end_point) VALUES ($1,$2,$3,$4,$5)`,
		a.ID, a.Name, toJSON(a.Boundary), toJSON(a.StartPoint), toJSON(a.EndPoint))
	return a, err
}

func (p *Postgres) GetArea(ctx context.Context, id string) (model.Area, error) {
	var a model.Area
	var boundary, start, end []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT id::text, name, boundary, start_point, end_point FROM areas WHERE id=$1`, id).
		Scan(&a.ID, &a.Name, &boundary, &start, &end)
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	_ = json.Unmarshal(boundary, &a.Boundary)
	_ = json.Unmarshal(start, &a.StartPoint)
	_ = json.Unmarshal(end, &a.EndPoint)
	return a, nil
}

func (p *Postgres) ListAreas(ctx context.Context) ([]model.Area, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, name, boundary, start_point, end_point FROM areas ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Area{}
	for rows.Next() {
		var a model.Area
		var boundary, start, end []byte
		if err := rows.Scan(&a.ID, &a.Name, &boundary, &start, &end); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(boundary, &a.Boundary)
		_ = json.Unmarshal(start, &a.StartPoint)
		_ = json.Unmarshal(end, &a.EndPoint)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (p *Postgres) UpdateArea(ctx context.Context, a model.Area) (model.Area, error) {
	res, err := p.db.ExecContext(ctx,
		`UPDATE areas SET name=$2, boundary=$3, start_point=$4, end_point=$5 WHERE id=$1`,
		a.ID, a.Name, toJSON(a.Boundary), toJSON(a.StartPoint), toJSON(a.EndPoint))
	if err != nil {
		return a, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return a, ErrNotFound
	}
	return a, nil
}

func (p *Postgres) DeleteArea(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM areas WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Bins

func (p *Postgres) CreateBin(ctx context.Context, b model.Bin) (model.Bin, error) {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	b.FillLevel = model.ClampFill(b.FillLevel)
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO bins (id, lat, lng, fill_level, waste_type, area_id, status, last_collected, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,NULLIF($6,'')::uuid,$7,$8,$9,$10)`,
		b.ID, b.Location.Lat, b.Location.Lng, b.FillLevel, b.WasteType, b.AreaID, b.Status, b.LastCollected, b.CreatedAt, b.UpdatedAt)
	return b, err
}

func scanBin(sc interface{ Scan(...any) error }) (model.Bin, error) {
	var b model.Bin
	var areaID sql.NullString
	err := sc.Scan(&b.ID, &b.Location.Lat, &b.Location.Lng, &b.FillLevel, &b.WasteType, &areaID, &b.Status, &b.LastCollected, &b.CreatedAt, &b.UpdatedAt)
	b.AreaID = areaID.String
	return b, err
}

const binCols = `id::text, lat, lng, fill_level, waste_type, area_id::text, status, last_collected, created_at, updated_at`

func (p *Postgres) GetBin(ctx context.Context, id string) (model.Bin, error) {
	b, err := scanBin(p.db.QueryRowContext(ctx, `SELECT `+binCols+` FROM bins WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return b, ErrNotFound
	}
	return b, err
}

func (p *Postgres) ListBins(ctx context.Context, f model.BinFilter) ([]model.Bin, error) {
	q := `SELECT ` + binCols + ` FROM bins WHERE ($1 = '' OR area_id::text = $1) AND ($2 = '' OR waste_type = $2)`
	args := []any{f.AreaID, string(f.WasteType)}
	if len(f.Statuses) > 0 {
		q += ` AND status = ANY($3)`
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, statuses)
	}
	q += ` ORDER BY created_at, id`
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Bin{}
	for rows.Next() {
		b, err := scanBin(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (p *Postgres) UpdateBin(ctx context.Context, b model.Bin) (model.Bin, error) {
	b.UpdatedAt = time.Now().UTC()
	b.FillLevel = model.ClampFill(b.FillLevel)
	res, err := p.db.ExecContext(ctx,
		`UPDATE bins SET lat=$2, lng=$3, fill_level=$4, waste_type=$5, area_id=NULLIF($6,'')::uuid, status=$7, last_collected=$8, updated_at=$9 WHERE id=$1`,
		b.ID, b.Location.Lat, b.Location.Lng, b.FillLevel, b.WasteType, b.AreaID, b.Status, b.LastCollected, b.UpdatedAt)
	if err != nil {
		return b, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return b, ErrNotFound
	}
	return b, nil
}

func (p *Postgres) DeleteBin(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM bins WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Collectors

func (p *Postgres) CreateCollector(ctx context.Context, c model.Collector) (model.Collector, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO collectors (id, name, area_id, status) VALUES ($1,$2,NULLIF($3,'')::uuid,$4)`,
		c.ID, c.Name, c.AreaID, c.Status)
	return c, err
}

func (p *Postgres) GetCollector(ctx context.Context, id string) (model.Collector, error) {
	var c model.Collector
	var areaID sql.NullString
	err := p.db.QueryRowContext(ctx,
		`SELECT id::text, name, area_id::text, status FROM collectors WHERE id=$1`, id).
		Scan(&c.ID, &c.Name, &areaID, &c.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	c.AreaID = areaID.String
	return c, err
}

func (p *Postgres) ListCollectors(ctx context.Context, f model.CollectorFilter) ([]model.Collector, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, name, area_id::text, status FROM collectors
		 WHERE ($1 = '' OR area_id::text = $1) AND ($2 = '' OR status = $2) ORDER BY name, id`,
		f.AreaID, string(f.Status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Collector{}
	for rows.Next() {
		var c model.Collector
		var areaID sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &areaID, &c.Status); err != nil {
			return nil, err
		}
		c.AreaID = areaID.String
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *Postgres) UpdateCollector(ctx context.Context, c model.Collector) (model.Collector, error) {
	res, err := p.db.ExecContext(ctx,
		`UPDATE collectors SET name=$2, area_id=NULLIF($3,'')::uuid, status=$4 WHERE id=$1`,
		c.ID, c.Name, c.AreaID, c.Status)
	if err != nil {
		return c, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return c, ErrNotFound
	}
	return c, nil
}

func (p *Postgres) DeleteCollector(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM collectors WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Schedules

const scheduleCols = `id::text, area_id::text, collector_id::text, waste_type, date, start_time, end_time, status, bin_ids, path, distance_km, duration_min, notes, created_at, updated_at`

func scanSchedule(sc interface{ Scan(...any) error }) (model.Schedule, error) {
	var s model.Schedule
	var collectorID, wasteType, notes sql.NullString
	var binIDs, path []byte
	err := sc.Scan(&s.ID, &s.AreaID, &collectorID, &wasteType, &s.Date, &s.StartTime, &s.EndTime, &s.Status, &binIDs, &path, &s.DistanceKm, &s.DurationMin, &notes, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return s, err
	}
	s.CollectorID = collectorID.String
	s.WasteType = model.WasteType(wasteType.String)
	s.Notes = notes.String
	_ = json.Unmarshal(binIDs, &s.BinIDs)
	_ = json.Unmarshal(path, &s.Path)
	return s, nil
}

func (p *Postgres) CreateSchedule(ctx context.Context, s model.Schedule) (model.Schedule, error) {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	if s.BinIDs == nil {
		s.BinIDs = []string{}
	}
	if s.Path == nil {
		s.Path = []model.GeoPoint{}
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO schedules (id, area_id, collector_id, waste_type, date, start_time, end_time, status, bin_ids, path, distance_km, duration_min, notes, created_at, updated_at)
		 VALUES ($1,$2,NULLIF($3,'')::uuid,NULLIF($4,''),$5,$6,$7,$8,$9,$10,$11,$12,NULLIF($13,''),$14,$15)`,
		s.ID, s.AreaID, s.CollectorID, string(s.WasteType), s.Date, s.StartTime, s.EndTime, s.Status,
		toJSON(s.BinIDs), toJSON(s.Path), s.DistanceKm, s.DurationMin, s.Notes, s.CreatedAt, s.UpdatedAt)
	return s, err
}

func (p *Postgres) GetSchedule(ctx context.Context, id string) (model.Schedule, error) {
	s, err := scanSchedule(p.db.QueryRowContext(ctx, `SELECT `+scheduleCols+` FROM schedules WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return s, ErrNotFound
	}
	return s, err
}

func (p *Postgres) ListSchedules(ctx context.Context, f model.ScheduleFilter) ([]model.Schedule, error) {
	q := `SELECT ` + scheduleCols + ` FROM schedules
	 WHERE ($1 = '' OR area_id::text = $1) AND ($2 = '' OR waste_type = $2)`
	args := []any{f.AreaID, string(f.WasteType)}
	n := 2
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		n++
		q += ` AND status = ANY($` + strconv.Itoa(n) + `)`
		args = append(args, statuses)
	}
	if !f.DateFrom.IsZero() {
		n++
		q += ` AND date >= $` + strconv.Itoa(n)
		args = append(args, f.DateFrom)
	}
	if !f.DateTo.IsZero() {
		n++
		q += ` AND date <= $` + strconv.Itoa(n)
		args = append(args, f.DateTo)
	}
	q += ` ORDER BY date, created_at, id`
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Schedule{}
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) UpdateSchedule(ctx context.Context, s model.Schedule) (model.Schedule, error) {
	s.UpdatedAt = time.Now().UTC()
	res, err := p.db.ExecContext(ctx,
		`UPDATE schedules SET collector_id=NULLIF($2,'')::uuid, waste_type=NULLIF($3,''), date=$4, start_time=$5, end_time=$6, status=$7, bin_ids=$8, path=$9, distance_km=$10, duration_min=$11, notes=NULLIF($12,''), updated_at=$13 WHERE id=$1`,
		s.ID, s.CollectorID, string(s.WasteType), s.Date, s.StartTime, s.EndTime, s.Status,
		toJSON(s.BinIDs), toJSON(s.Path), s.DistanceKm, s.DurationMin, s.Notes, s.UpdatedAt)
	if err != nil {
		return s, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return s, ErrNotFound
	}
	return s, nil
}

// Alerts

const alertCols = `id::text, type, severity, status, subject, title, description, created_at, read_at`

func scanAlert(sc interface{ Scan(...any) error }) (model.Alert, error) {
	var a model.Alert
	var desc sql.NullString
	err := sc.Scan(&a.ID, &a.Type, &a.Severity, &a.Status, &a.Subject, &a.Title, &desc, &a.CreatedAt, &a.ReadAt)
	a.Description = desc.String
	return a, err
}

func (p *Postgres) CreateAlert(ctx context.Context, a model.Alert) (model.Alert, error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO alerts (id, type, severity, status, subject, title, description, created_at, read_at)
		 VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7,''),$8,$9)`,
		a.ID, a.Type, a.Severity, a.Status, a.Subject, a.Title, a.Description, a.CreatedAt, a.ReadAt)
	return a, err
}

func (p *Postgres) GetAlert(ctx context.Context, id string) (model.Alert, error) {
	a, err := scanAlert(p.db.QueryRowContext(ctx, `SELECT `+alertCols+` FROM alerts WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrNotFound
	}
	return a, err
}

func (p *Postgres) ListAlerts(ctx context.Context, f model.AlertFilter) ([]model.Alert, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+alertCols+` FROM alerts
		 WHERE ($1 = '' OR type = $1) AND ($2 = '' OR status = $2) AND ($3 = '' OR subject = $3)
		 ORDER BY created_at DESC, id`,
		string(f.Type), string(f.Status), f.Subject)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Alert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (p *Postgres) UpdateAlert(ctx context.Context, a model.Alert) (model.Alert, error) {
	res, err := p.db.ExecContext(ctx,
		`UPDATE alerts SET severity=$2, status=$3, title=$4, description=NULLIF($5,''), read_at=$6 WHERE id=$1`,
		a.ID, a.Severity, a.Status, a.Title, a.Description, a.ReadAt)
	if err != nil {
		return a, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return a, ErrNotFound
	}
	return a, nil
}

func (p *Postgres) FindUnreadAlert(ctx context.Context, typ model.AlertType, subject string) (model.Alert, error) {
	a, err := scanAlert(p.db.QueryRowContext(ctx,
		`SELECT `+alertCols+` FROM alerts WHERE type=$1 AND subject=$2 AND status='UNREAD'`, string(typ), subject))
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrNotFound
	}
	return a, err
}

// Settings

func (p *Postgres) GetSettings(ctx context.Context) (model.Settings, error) {
	var s model.Settings
	err := p.db.QueryRowContext(ctx,
		`SELECT notifications_enabled, warning_threshold, critical_threshold FROM settings WHERE id`).
		Scan(&s.NotificationsEnabled, &s.WarningThreshold, &s.CriticalThreshold)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultSettings(), nil
	}
	return s, err
}

func (p *Postgres) SaveSettings(ctx context.Context, s model.Settings) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO settings (id, notifications_enabled, warning_threshold, critical_threshold)
		 VALUES (TRUE, $1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET notifications_enabled=$1, warning_threshold=$2, critical_threshold=$3`,
		s.NotificationsEnabled, s.WarningThreshold, s.CriticalThreshold)
	return err
}

// Subscriptions and notification queue

func (p *Postgres) CreateSubscription(ctx context.Context, sub model.Subscription) (model.Subscription, error) {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO subscriptions (id, url, events, secret) VALUES ($1,$2,$3,NULLIF($4,''))`,
		sub.ID, sub.URL, toJSON(sub.Events), sub.Secret)
	return sub, err
}

func (p *Postgres) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id::text, url, events, secret FROM subscriptions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Subscription{}
	for rows.Next() {
		var sub model.Subscription
		var events []byte
		var secret sql.NullString
		if err := rows.Scan(&sub.ID, &sub.URL, &events, &secret); err != nil {
			return nil, err
		}
		sub.Secret = secret.String
		_ = json.Unmarshal(events, &sub.Events)
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (p *Postgres) DeleteSubscription(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]model.Subscription, error) {
	subs, err := p.ListSubscriptions(ctx)
	if err != nil {
		return nil, err
	}
	out := []model.Subscription{}
	for _, s := range subs {
		for _, e := range s.Events {
			if e == eventType || e == "*" {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

func (p *Postgres) EnqueueNotification(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	id := uuid.New().String()
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO notification_deliveries (id, subscription_id, event_type, url, secret, payload, status, attempts, next_attempt_at)
		 VALUES ($1,NULLIF($2,'')::uuid,$3,$4,NULLIF($5,''),$6,'pending',0,now())`,
		id, subscriptionID, eventType, url, secret, payload)
	return id, err
}

func (p *Postgres) FetchDueNotifications(ctx context.Context, limit int) ([]NotificationDelivery, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, COALESCE(subscription_id::text,''), event_type, url, COALESCE(secret,''), payload, status, attempts
		 FROM notification_deliveries
		 WHERE status='pending' AND next_attempt_at <= now()
		 ORDER BY next_attempt_at LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []NotificationDelivery{}
	for rows.Next() {
		var d NotificationDelivery
		if err := rows.Scan(&d.ID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkNotification(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode, latencyMs int) error {
	status := "pending"
	if success {
		status = "delivered"
	}
	_, err := p.db.ExecContext(ctx,
		`UPDATE notification_deliveries
		 SET status=$2, attempts=attempts+1, next_attempt_at=COALESCE($3, next_attempt_at), last_error=NULLIF($4,''), response_code=$5, latency_ms=$6
		 WHERE id=$1`,
		id, status, nextAttemptAt, lastError, responseCode, latencyMs)
	return err
}

func (p *Postgres) FailNotification(ctx context.Context, id string, lastError string, responseCode, latencyMs int) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE notification_deliveries
		 SET status='failed', attempts=attempts+1, last_error=NULLIF($2,''), response_code=$3, latency_ms=$4
		 WHERE id=$1`,
		id, lastError, responseCode, latencyMs)
	return err
}
