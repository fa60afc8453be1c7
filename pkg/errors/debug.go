package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const sqliteConstraintPrefix = "constraint failed: "

// ErrorDump flattens an error chain for structured logs. Store fields are
// filled from pgx, lib/pq or, for the sqlite dev store, the driver message.
type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`
	Details    any    `json:"details,omitempty"`

	Chain []string `json:"chain,omitempty"`

	StoreCode       string `json:"store_code,omitempty"`
	StoreConstraint string `json:"store_constraint,omitempty"`
	StoreTable      string `json:"store_table,omitempty"`
	StoreColumn     string `json:"store_column,omitempty"`
	StoreDetail     string `json:"store_detail,omitempty"`
	StoreMessage    string `json:"store_message,omitempty"`
}

// Fields returns the dump as logger fields, skipping empty store values.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{
		"error":       d.TopMessage,
		"error_code":  d.Code,
		"error_chain": d.Chain,
	}
	if d.Details != nil {
		fields["error_details"] = d.Details
	}
	for key, value := range map[string]string{
		"store_code":       d.StoreCode,
		"store_constraint": d.StoreConstraint,
		"store_table":      d.StoreTable,
		"store_column":     d.StoreColumn,
		"store_detail":     d.StoreDetail,
		"store_message":    d.StoreMessage,
	} {
		if value != "" {
			fields[key] = value
		}
	}
	return fields
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}

	if te := As(err); te != nil {
		d.Code = te.Code()
		if MetadataFor(te.Code()).DetailsAllowed {
			d.Details = te.Details()
		}
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		d.StoreCode = pgxErr.Code
		d.StoreConstraint = pgxErr.ConstraintName
		d.StoreTable = pgxErr.TableName
		d.StoreColumn = pgxErr.ColumnName
		d.StoreDetail = pgxErr.Detail
		d.StoreMessage = pgxErr.Message
		return d
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		d.StoreCode = string(pqErr.Code)
		d.StoreConstraint = pqErr.Constraint
		d.StoreTable = pqErr.Table
		d.StoreColumn = pqErr.Column
		d.StoreDetail = pqErr.Detail
		d.StoreMessage = pqErr.Message
		return d
	}

	// sqlite reports "UNIQUE constraint failed: uniform_issuances.uniform_id".
	innermost := err
	for next := errors.Unwrap(innermost); next != nil; next = errors.Unwrap(innermost) {
		innermost = next
	}
	msg := innermost.Error()
	if idx := strings.Index(msg, sqliteConstraintPrefix); idx > 0 {
		d.StoreCode = strings.TrimSpace(msg[:idx])
		d.StoreMessage = msg
		target := msg[idx+len(sqliteConstraintPrefix):]
		if table, column, ok := strings.Cut(target, "."); ok {
			d.StoreTable = table
			d.StoreColumn = column
		}
	}
	return d
}
