package store

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS platforms (
    id                   TEXT PRIMARY KEY,
    org_id               TEXT NOT NULL DEFAULT '',
    key                  TEXT NOT NULL,
    name                 TEXT NOT NULL,
    provider             TEXT NOT NULL DEFAULT '',
    created_at           TEXT NOT NULL,
    UNIQUE (org_id, key)
);

CREATE TABLE IF NOT EXISTS memberships (
    org_id               TEXT NOT NULL,
    user_id              TEXT NOT NULL,
    role                 INTEGER NOT NULL,
    created_at           TEXT NOT NULL,
    PRIMARY KEY (org_id, user_id)
);

CREATE TABLE IF NOT EXISTS spend_entries (
    id                   TEXT PRIMARY KEY,
    org_id               TEXT NOT NULL,
    platform_id          TEXT NOT NULL REFERENCES platforms(id),
    day                  TEXT NOT NULL,
    amount_cents         INTEGER NOT NULL,
    currency             TEXT NOT NULL DEFAULT 'USD',
    source               TEXT NOT NULL,
    notes                TEXT NOT NULL DEFAULT '',
    created_by_user_id   TEXT,
    created_at           TEXT NOT NULL,
    updated_at           TEXT NOT NULL,
    UNIQUE (org_id, platform_id, day)
);

CREATE TABLE IF NOT EXISTS edit_logs (
    id                    TEXT PRIMARY KEY,
    org_id                TEXT NOT NULL,
    platform_id           TEXT NOT NULL,
    user_id               TEXT NOT NULL,
    previous_amount_cents INTEGER NOT NULL,
    new_amount_cents      INTEGER NOT NULL,
    created_at            TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_edit_logs_org_created ON edit_logs(org_id, created_at);
CREATE INDEX IF NOT EXISTS idx_spend_entries_org_day ON spend_entries(org_id, day);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS platforms (
    id                   TEXT PRIMARY KEY,
    org_id               TEXT NOT NULL DEFAULT '',
    key                  TEXT NOT NULL,
    name                 TEXT NOT NULL,
    provider             TEXT NOT NULL DEFAULT '',
    created_at           TIMESTAMPTZ NOT NULL,
    UNIQUE (org_id, key)
);

CREATE TABLE IF NOT EXISTS memberships (
    org_id               TEXT NOT NULL,
    user_id              TEXT NOT NULL,
    role                 SMALLINT NOT NULL,
    created_at           TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (org_id, user_id)
);

CREATE TABLE IF NOT EXISTS spend_entries (
    id                   TEXT PRIMARY KEY,
    org_id               TEXT NOT NULL,
    platform_id          TEXT NOT NULL REFERENCES platforms(id),
    day                  DATE NOT NULL,
    amount_cents         BIGINT NOT NULL,
    currency             TEXT NOT NULL DEFAULT 'USD',
    source               TEXT NOT NULL,
    notes                TEXT NOT NULL DEFAULT '',
    created_by_user_id   TEXT,
    created_at           TIMESTAMPTZ NOT NULL,
    updated_at           TIMESTAMPTZ NOT NULL,
    UNIQUE (org_id, platform_id, day)
);

CREATE TABLE IF NOT EXISTS edit_logs (
    id                    TEXT PRIMARY KEY,
    org_id                TEXT NOT NULL,
    platform_id           TEXT NOT NULL,
    user_id               TEXT NOT NULL,
    previous_amount_cents BIGINT NOT NULL,
    new_amount_cents      BIGINT NOT NULL,
    created_at            TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_edit_logs_org_created ON edit_logs(org_id, created_at);
CREATE INDEX IF NOT EXISTS idx_spend_entries_org_day ON spend_entries(org_id, day);
`
