package state

const schemaSQL = `
CREATE TABLE IF NOT EXISTS settings (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sources (
  id TEXT PRIMARY KEY,
  kind TEXT NOT NULL,
  priority INTEGER NOT NULL DEFAULT 0,
  config TEXT,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS signals (
  id TEXT PRIMARY KEY,
  stream TEXT NOT NULL,
  source_id TEXT NOT NULL,
  subject TEXT,
  body TEXT NOT NULL,
  metadata TEXT,
  created_at TEXT NOT NULL,
  read_by TEXT
);

CREATE INDEX IF NOT EXISTS idx_signals_stream_source_created ON signals(stream, source_id, created_at);
`
