package store

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS completed_orders (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id      TEXT NOT NULL UNIQUE,
    order_type    TEXT NOT NULL DEFAULT '',
    workpiece     TEXT NOT NULL DEFAULT '',
    workpiece_id  TEXT NOT NULL DEFAULT '',
    state         TEXT NOT NULL DEFAULT '',
    error_detail  TEXT NOT NULL DEFAULT '',
    steps_json    TEXT NOT NULL DEFAULT '[]',
    received_at   TEXT,
    started_at    TEXT,
    stopped_at    TEXT,
    created_at    TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);
CREATE INDEX IF NOT EXISTS idx_completed_orders_state ON completed_orders(state);

CREATE TABLE IF NOT EXISTS audit_log (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    entity_type TEXT NOT NULL,
    entity_id   TEXT NOT NULL,
    action      TEXT NOT NULL,
    detail      TEXT NOT NULL DEFAULT '',
    actor       TEXT NOT NULL DEFAULT 'system',
    created_at  TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);
CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_log(entity_type, entity_id);

CREATE TABLE IF NOT EXISTS production_log (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id      TEXT NOT NULL,
    workpiece     TEXT NOT NULL DEFAULT '',
    module_type   TEXT NOT NULL DEFAULT '',
    command       TEXT NOT NULL DEFAULT '',
    serial_number TEXT NOT NULL DEFAULT '',
    created_at    TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);
CREATE INDEX IF NOT EXISTS idx_production_order ON production_log(order_id);
`
