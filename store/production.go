package store

import (
	"time"
)

// ProductionEntry records one finished manufacture action, the basis of
// the production statistics.
type ProductionEntry struct {
	ID           int64     `json:"id"`
	OrderID      string    `json:"orderId"`
	Workpiece    string    `json:"workpiece"`
	ModuleType   string    `json:"moduleType"`
	Command      string    `json:"command"`
	SerialNumber string    `json:"serialNumber"`
	CreatedAt    time.Time `json:"createdAt"`
}

type ProductionTotal struct {
	ModuleType string `json:"moduleType"`
	Command    string `json:"command"`
	Count      int64  `json:"count"`
}

func (db *DB) LogProduction(orderID, workpiece, moduleType, command, serialNumber string) error {
	_, err := db.Exec(db.Q(`INSERT INTO production_log (order_id, workpiece, module_type, command, serial_number) VALUES (?, ?, ?, ?, ?)`),
		orderID, workpiece, moduleType, command, serialNumber)
	return err
}

func (db *DB) ListProduction(orderID string) ([]*ProductionEntry, error) {
	rows, err := db.Query(db.Q(`SELECT id, order_id, workpiece, module_type, command, serial_number, created_at FROM production_log WHERE order_id=? ORDER BY id`), orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []*ProductionEntry
	for rows.Next() {
		var e ProductionEntry
		var createdAt any
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Workpiece, &e.ModuleType, &e.Command, &e.SerialNumber, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt = parseTime(createdAt)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// ProductionTotals aggregates finished actions per module type and command.
func (db *DB) ProductionTotals() ([]*ProductionTotal, error) {
	rows, err := db.Query(`SELECT module_type, command, COUNT(*) FROM production_log GROUP BY module_type, command ORDER BY module_type, command`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var totals []*ProductionTotal
	for rows.Next() {
		var t ProductionTotal
		if err := rows.Scan(&t.ModuleType, &t.Command, &t.Count); err != nil {
			return nil, err
		}
		totals = append(totals, &t)
	}
	return totals, rows.Err()
}
