package store

import (
	"time"
)

// CompletedOrder is the durable record of a finished, failed or cancelled
// order. Steps are kept as the JSON the orchestrator last held.
type CompletedOrder struct {
	ID          int64      `json:"id"`
	OrderID     string     `json:"orderId"`
	OrderType   string     `json:"orderType"`
	Workpiece   string     `json:"workpiece"`
	WorkpieceID string     `json:"workpieceId"`
	State       string     `json:"state"`
	ErrorDetail string     `json:"errorDetail,omitempty"`
	StepsJSON   string     `json:"-"`
	ReceivedAt  time.Time  `json:"receivedAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	StoppedAt   *time.Time `json:"stoppedAt,omitempty"`
}

func (db *DB) RecordCompletedOrder(co *CompletedOrder) error {
	_, err := db.Exec(db.Q(`INSERT INTO completed_orders
		(order_id, order_type, workpiece, workpiece_id, state, error_detail, steps_json, received_at, started_at, stopped_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (order_id) DO NOTHING`),
		co.OrderID, co.OrderType, co.Workpiece, co.WorkpieceID, co.State, co.ErrorDetail, co.StepsJSON,
		timeArg(co.ReceivedAt), timePtrArg(co.StartedAt), timePtrArg(co.StoppedAt))
	return err
}

func (db *DB) ListCompletedOrders(limit int) ([]*CompletedOrder, error) {
	rows, err := db.Query(db.Q(`SELECT id, order_id, order_type, workpiece, workpiece_id, state, error_detail, steps_json, received_at, started_at, stopped_at
		FROM completed_orders ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*CompletedOrder
	for rows.Next() {
		var co CompletedOrder
		var received, started, stopped any
		if err := rows.Scan(&co.ID, &co.OrderID, &co.OrderType, &co.Workpiece, &co.WorkpieceID,
			&co.State, &co.ErrorDetail, &co.StepsJSON, &received, &started, &stopped); err != nil {
			return nil, err
		}
		co.ReceivedAt = parseTime(received)
		co.StartedAt = parseTimePtr(started)
		co.StoppedAt = parseTimePtr(stopped)
		out = append(out, &co)
	}
	return out, rows.Err()
}

func (db *DB) GetCompletedOrder(orderID string) (*CompletedOrder, error) {
	row := db.QueryRow(db.Q(`SELECT id, order_id, order_type, workpiece, workpiece_id, state, error_detail, steps_json, received_at, started_at, stopped_at
		FROM completed_orders WHERE order_id=?`), orderID)
	var co CompletedOrder
	var received, started, stopped any
	if err := row.Scan(&co.ID, &co.OrderID, &co.OrderType, &co.Workpiece, &co.WorkpieceID,
		&co.State, &co.ErrorDetail, &co.StepsJSON, &received, &started, &stopped); err != nil {
		return nil, err
	}
	co.ReceivedAt = parseTime(received)
	co.StartedAt = parseTimePtr(started)
	co.StoppedAt = parseTimePtr(stopped)
	return &co, nil
}

func parseTimePtr(v any) *time.Time {
	t := parseTime(v)
	if t.IsZero() {
		return nil
	}
	return &t
}

// timeArg formats a timestamp for insertion, NULL when zero.
func timeArg(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format("2006-01-02 15:04:05")
}

func timePtrArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return timeArg(*t)
}
