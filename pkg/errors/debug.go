package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump flattens an error chain for structured logs. DB fields are filled
// from Postgres driver errors or from sqlite constraint messages.
type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`
	Retryable  bool   `json:"retryable,omitempty"`

	Chain []string `json:"chain,omitempty"`

	SQLState   string `json:"sql_state,omitempty"`
	Constraint string `json:"constraint,omitempty"`
	Table      string `json:"table,omitempty"`
	Column     string `json:"column,omitempty"`
	DBDetail   string `json:"db_detail,omitempty"`
	DBMessage  string `json:"db_message,omitempty"`

	// Invariant names the order-schema rule the database enforced.
	Invariant string `json:"invariant,omitempty"`
}

// schemaInvariants keys both constraint names and sqlite table.column pairs.
var schemaInvariants = map[string]string{
	"ux_orders_order_no":                    "order numbers are unique",
	"orders.order_no":                       "order numbers are unique",
	"chk_orders_status":                     "order status is a lifecycle state",
	"chk_event_products_stock_non_negative": "event product stock never goes negative",
	"ux_payments_order_id":                  "an order has at most one payment",
	"payments.order_id":                     "an order has at most one payment",
	"ux_payments_refund_no":                 "refund numbers are unique",
	"payments.refund_no":                    "refund numbers are unique",
	"chk_payments_status":                   "payment status is a gateway state",
	"chk_payments_method":                   "payment method is supported",
	"ux_payment_card_details_payment_id":    "a payment has one card detail",
	"ux_payment_bank_details_payment_id":    "a payment has one bank detail",
	"ux_outbox_dlq_event_id":                "an outbox event is dead-lettered once",
	"outbox_dlq.event_id":                   "an outbox event is dead-lettered once",
	"ux_users_email":                        "user emails are unique",
	"chk_outbox_events_aggregate_type":      "outbox aggregates are orders or payments",
	"chk_outbox_dlq_error_reason":           "dead letters carry a known reason",
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{
		TopMessage: err.Error(),
	}

	if te := As(err); te != nil {
		d.Code = te.Code()
		d.Retryable = MetadataFor(te.Code()).Retryable
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	if !d.fillPGX(err) && !d.fillPQ(err) {
		d.fillSQLite(err)
	}

	if inv, ok := schemaInvariants[d.Constraint]; ok {
		d.Invariant = inv
	} else if inv, ok := schemaInvariants[d.Table+"."+d.Column]; ok {
		d.Invariant = inv
	}
	return d
}

func (d *ErrorDump) fillPGX(err error) bool {
	var pgxErr *pgconn.PgError
	if !errors.As(err, &pgxErr) {
		return false
	}
	d.SQLState = pgxErr.Code
	d.Constraint = pgxErr.ConstraintName
	d.Table = pgxErr.TableName
	d.Column = pgxErr.ColumnName
	d.DBDetail = pgxErr.Detail
	d.DBMessage = pgxErr.Message
	return true
}

func (d *ErrorDump) fillPQ(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	d.SQLState = string(pqErr.Code)
	d.Constraint = pqErr.Constraint
	d.Table = pqErr.Table
	d.Column = pqErr.Column
	d.DBDetail = pqErr.Detail
	d.DBMessage = pqErr.Message
	return true
}

// fillSQLite parses "UNIQUE constraint failed: orders.order_no" and
// "CHECK constraint failed: chk_event_products_stock_non_negative".
func (d *ErrorDump) fillSQLite(err error) bool {
	for e := err; e != nil; e = errors.Unwrap(e) {
		msg := e.Error()
		for _, prefix := range []string{"UNIQUE constraint failed: ", "CHECK constraint failed: "} {
			idx := strings.Index(msg, prefix)
			if idx < 0 {
				continue
			}
			target := strings.TrimSpace(msg[idx+len(prefix):])
			if cut := strings.IndexAny(target, ", "); cut >= 0 {
				target = target[:cut]
			}
			d.DBMessage = msg
			if table, column, ok := strings.Cut(target, "."); ok {
				d.Table, d.Column = table, column
			} else {
				d.Constraint = target
			}
			return true
		}
	}
	return false
}
