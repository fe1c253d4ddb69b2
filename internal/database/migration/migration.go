// Package migration holds the idempotent, in-process schema bootstrap. It
// checks a sentinel table and applies all steps on a fresh database; an
// already-initialized database is left alone.
package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"batiflow/internal/logger"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_clients",
		SQL: `CREATE TABLE IF NOT EXISTS clients (
  id         UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  tenant_id  TEXT        NOT NULL,
  name       TEXT        NOT NULL,
  email      TEXT        NOT NULL DEFAULT '',
  phone      TEXT,
  address    TEXT,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_clients_tenant",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_clients_tenant ON clients (tenant_id);`,
	},
	{
		Name: "create_table_tenant_settings",
		SQL: `CREATE TABLE IF NOT EXISTS tenant_settings (
  tenant_id       TEXT        PRIMARY KEY,
  payment_enabled BOOLEAN     NOT NULL DEFAULT true,
  deposit_percent INT         NOT NULL DEFAULT 0,
  currency        TEXT        NOT NULL DEFAULT 'eur',
  created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id             UUID           PRIMARY KEY DEFAULT uuid_generate_v4(),
  tenant_id      TEXT           NOT NULL,
  client_id      UUID           NOT NULL REFERENCES clients (id),
  doc_type       TEXT           NOT NULL CHECK (doc_type IN ('DEVIS', 'FACTURE')),
  number         TEXT           NOT NULL,
  status         TEXT           NOT NULL DEFAULT 'draft',
  line_items     TEXT           NOT NULL DEFAULT '[]',
  total_net      NUMERIC(12, 2) NOT NULL DEFAULT 0,
  total_tax      NUMERIC(12, 2) NOT NULL DEFAULT 0,
  total_gross    NUMERIC(12, 2) NOT NULL DEFAULT 0,
  tax_rate       NUMERIC(5, 2)  NOT NULL DEFAULT 0,
  signed         BOOLEAN        NOT NULL DEFAULT false,
  signed_at      TIMESTAMPTZ,
  signed_by      TEXT,
  signature_path TEXT,
  created_at     TIMESTAMPTZ    NOT NULL DEFAULT now(),
  updated_at     TIMESTAMPTZ    NOT NULL DEFAULT now(),
  CONSTRAINT documents_tenant_number_key UNIQUE (tenant_id, number)
);`,
	},
	{
		Name: "create_index_documents_tenant_created",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_tenant_created ON documents (tenant_id, created_at DESC);`,
	},
	{
		Name: "create_table_signature_sessions",
		SQL: `CREATE TABLE IF NOT EXISTS signature_sessions (
  id                   UUID        PRIMARY KEY,
  quote_id             UUID        REFERENCES documents (id),
  invoice_id           UUID        REFERENCES documents (id),
  signer_email         TEXT        NOT NULL,
  signer_name          TEXT        NOT NULL DEFAULT '',
  signed               BOOLEAN     NOT NULL DEFAULT false,
  signed_at            TIMESTAMPTZ,
  signature_path       TEXT,
  payment_link         TEXT,
  payment_link_sent_at TIMESTAMPTZ,
  created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
  CONSTRAINT signature_sessions_one_document CHECK (
    (quote_id IS NOT NULL AND invoice_id IS NULL) OR
    (quote_id IS NULL AND invoice_id IS NOT NULL)
  )
);`,
	},
	{
		Name: "create_unique_active_session_per_quote",
		SQL: `CREATE UNIQUE INDEX IF NOT EXISTS uq_signature_sessions_active_quote
  ON signature_sessions (quote_id) WHERE signed = false AND quote_id IS NOT NULL;`,
	},
	{
		Name: "create_unique_active_session_per_invoice",
		SQL: `CREATE UNIQUE INDEX IF NOT EXISTS uq_signature_sessions_active_invoice
  ON signature_sessions (invoice_id) WHERE signed = false AND invoice_id IS NOT NULL;`,
	},
	{
		Name: "create_table_signature_otps",
		SQL: `CREATE TABLE IF NOT EXISTS signature_otps (
  id          UUID        PRIMARY KEY,
  session_id  UUID        NOT NULL REFERENCES signature_sessions (id),
  otp_code    TEXT        NOT NULL,
  expires_at  TIMESTAMPTZ NOT NULL,
  verified    BOOLEAN     NOT NULL DEFAULT false,
  verified_at TIMESTAMPTZ,
  attempts    INT         NOT NULL DEFAULT 0,
  created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_signature_otps_session",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_signature_otps_session ON signature_otps (session_id, created_at DESC);`,
	},
	{
		Name: "create_table_payments",
		SQL: `CREATE TABLE IF NOT EXISTS payments (
  id                  UUID           PRIMARY KEY,
  document_id         UUID           NOT NULL REFERENCES documents (id),
  amount              NUMERIC(12, 2) NOT NULL CHECK (amount >= 0),
  currency            TEXT           NOT NULL,
  payment_type        TEXT           NOT NULL,
  status              TEXT           NOT NULL DEFAULT 'pending',
  provider_session_id TEXT,
  provider_payment_id TEXT,
  paid_date           TIMESTAMPTZ,
  created_at          TIMESTAMPTZ    NOT NULL DEFAULT now(),
  updated_at          TIMESTAMPTZ    NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_payments_provider_session",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_payments_provider_session ON payments (provider_session_id);`,
	},
	{
		Name: "create_index_payments_document",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_payments_document ON payments (document_id);`,
	},
	{
		Name: "create_table_audit_log",
		SQL: `CREATE TABLE IF NOT EXISTS audit_log (
  id            UUID        PRIMARY KEY,
  tenant_id     TEXT        NOT NULL DEFAULT '',
  actor         TEXT        NOT NULL DEFAULT '',
  action        TEXT        NOT NULL,
  resource_type TEXT        NOT NULL,
  resource_id   TEXT        NOT NULL,
  details       TEXT        NOT NULL DEFAULT '',
  origin        TEXT        NOT NULL DEFAULT '',
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_audit_log_resource",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_audit_log_resource ON audit_log (resource_type, resource_id);`,
	},
	{
		Name: "create_table_email_outbox",
		SQL: `CREATE TABLE IF NOT EXISTS email_outbox (
  id          UUID        PRIMARY KEY,
  recipient   TEXT        NOT NULL,
  subject     TEXT        NOT NULL,
  html        TEXT        NOT NULL,
  status      TEXT        NOT NULL DEFAULT 'pending',
  retry_count INT         NOT NULL DEFAULT 0,
  last_error  TEXT        NOT NULL DEFAULT '',
  created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
  sent_at     TIMESTAMPTZ
);`,
	},
	{
		Name: "create_index_email_outbox_status",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_email_outbox_status ON email_outbox (status, created_at);`,
	},
	{
		Name: "create_table_outbox_tasks",
		SQL: `CREATE TABLE IF NOT EXISTS outbox_tasks (
  id         UUID        PRIMARY KEY,
  kind       TEXT        NOT NULL,
  payload    TEXT        NOT NULL,
  status     TEXT        NOT NULL DEFAULT 'pending',
  attempts   INT         NOT NULL DEFAULT 0,
  last_error TEXT        NOT NULL DEFAULT '',
  run_after  TIMESTAMPTZ NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_outbox_tasks_due",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_outbox_tasks_due ON outbox_tasks (status, run_after);`,
	},
}

// EnsureMigrated checks the sentinel table and runs all steps on a fresh
// database.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *logger.Logger) error {
	start := time.Now()

	var exists bool
	if err := db.QueryRowContext(ctx, "SELECT to_regclass('public.documents') IS NOT NULL").Scan(&exists); err != nil {
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}
	if exists {
		log.Infow("schema already exists, skipping migration",
			"duration_ms", time.Since(start).Milliseconds())
		return nil
	}

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Errorw("migration step failed",
				"migration_step", step.Name,
				"error", err)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		log.Infow("migration step applied",
			"migration_step", step.Name,
			"step_duration_ms", time.Since(stepStart).Milliseconds())
	}

	log.Infow("migration complete", "duration_ms", time.Since(start).Milliseconds())
	return nil
}
