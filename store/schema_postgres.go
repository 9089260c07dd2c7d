package store

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS completed_orders (
    id            BIGSERIAL PRIMARY KEY,
    order_id      TEXT NOT NULL UNIQUE,
    order_type    TEXT NOT NULL DEFAULT '',
    workpiece     TEXT NOT NULL DEFAULT '',
    workpiece_id  TEXT NOT NULL DEFAULT '',
    state         TEXT NOT NULL DEFAULT '',
    error_detail  TEXT NOT NULL DEFAULT '',
    steps_json    JSONB NOT NULL DEFAULT '[]',
    received_at   TIMESTAMPTZ,
    started_at    TIMESTAMPTZ,
    stopped_at    TIMESTAMPTZ,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_completed_orders_state ON completed_orders(state);

CREATE TABLE IF NOT EXISTS audit_log (
    id          BIGSERIAL PRIMARY KEY,
    entity_type TEXT NOT NULL,
    entity_id   TEXT NOT NULL,
    action      TEXT NOT NULL,
    detail      TEXT NOT NULL DEFAULT '',
    actor       TEXT NOT NULL DEFAULT 'system',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_log(entity_type, entity_id);

CREATE TABLE IF NOT EXISTS production_log (
    id            BIGSERIAL PRIMARY KEY,
    order_id      TEXT NOT NULL,
    workpiece     TEXT NOT NULL DEFAULT '',
    module_type   TEXT NOT NULL DEFAULT '',
    command       TEXT NOT NULL DEFAULT '',
    serial_number TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_production_order ON production_log(order_id);
`
