// Package backup converts the whole ledger to and from a JSON document.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"fincontrol/internal/core"
	"fincontrol/internal/log"
)

// ExportDateLayout matches ISO-8601 with millisecond precision in UTC.
const ExportDateLayout = "2006-01-02T15:04:05.000Z07:00"

// Document is the backup file. A nil collection means the field was absent
// (or null) and import leaves that collection as it is; an empty slice
// replaces it with nothing.
type Document struct {
	Incomes    *[]core.Transaction `json:"incomes,omitempty"`
	Expenses   *[]core.Transaction `json:"expenses,omitempty"`
	ExportDate string              `json:"exportDate,omitempty"`
}

// Ledger is the part of the ledger store a backup reads and writes.
type Ledger interface {
	Snapshot(ctx context.Context) (incomes, expenses []core.Transaction)
	Replace(ctx context.Context, incomes, expenses *[]core.Transaction) error
}

type Codec struct {
	ledger Ledger
	logger *log.Logger
	now    func() time.Time
}

type Option func(*Codec)

// WithClock overrides the source of export timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

func New(l Ledger, logger *log.Logger, opts ...Option) *Codec {
	if logger == nil {
		logger = log.Discard()
	}
	c := &Codec{
		ledger: l,
		logger: logger.WithComponent(log.ComponentBackup),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Export snapshots both collections.
func (c *Codec) Export(ctx context.Context) Document {
	incomes, expenses := c.ledger.Snapshot(ctx)
	doc := Document{
		Incomes:    &incomes,
		Expenses:   &expenses,
		ExportDate: c.now().UTC().Format(ExportDateLayout),
	}
	c.logger.InfoContext(ctx, "Ledger exported",
		log.FieldOperation, log.OpExport,
		log.FieldCount, len(incomes)+len(expenses))
	return doc
}

// Encode writes doc as indented JSON.
func (c *Codec) Encode(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	return nil
}

// Decode reads and validates a whole document before anything is applied.
// Every failure wraps core.ErrDecode.
func (c *Codec) Decode(r io.Reader) (Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Document{}, fmt.Errorf("%w: read: %w", core.ErrDecode, err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return Document{}, fmt.Errorf("%w: document is not a JSON object", core.ErrDecode)
	}

	var doc Document
	// Unmarshal rejects trailing data after the object.
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: %v", core.ErrDecode, err)
	}
	if doc.ExportDate != "" {
		if _, err := time.Parse(time.RFC3339Nano, doc.ExportDate); err != nil {
			c.logger.Warn("Backup has an unparseable export date",
				log.FieldOperation, log.OpDecode,
				"export_date", doc.ExportDate)
		}
	}
	return doc, nil
}

// Import replaces each collection present in doc wholesale.
func (c *Codec) Import(ctx context.Context, doc Document) error {
	if err := c.ledger.Replace(ctx, doc.Incomes, doc.Expenses); err != nil {
		return fmt.Errorf("import backup: %w", err)
	}
	c.logger.InfoContext(ctx, "Ledger imported",
		log.FieldOperation, log.OpImport,
		"incomes", count(doc.Incomes),
		"expenses", count(doc.Expenses))
	return nil
}

// Restore decodes r completely and only then imports it, so a malformed
// document changes nothing.
func (c *Codec) Restore(ctx context.Context, r io.Reader) error {
	doc, err := c.Decode(r)
	if err != nil {
		c.logger.WarnContext(ctx, "Rejected backup document",
			log.FieldOperation, log.OpDecode,
			log.FieldError, err)
		return err
	}
	return c.Import(ctx, doc)
}

// FileName is the suggested download name for a backup taken at t.
func FileName(t time.Time) string {
	return "Backup_FinControl_" + t.Format(core.DateLayout) + ".json"
}

func count(list *[]core.Transaction) int {
	if list == nil {
		return -1
	}
	return len(*list)
}
