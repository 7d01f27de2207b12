package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/wod-leaderboard/internal/database"
	"github.com/iliyamo/wod-leaderboard/internal/model"
)

// tsLayout is fixed width so timestamps also sort correctly as text.
const tsLayout = "2006-01-02 15:04:05.000000"

// ts renders t for a DATETIME(6)/TIMESTAMP column.
func ts(t time.Time) string { return t.UTC().Format(tsLayout) }

// now is the repository clock, truncated to the stored precision so that
// values read back compare equal to the ones written.
func now() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

// dbTime scans a timestamp column. MySQL (parseTime=true) yields a
// time.Time, SQLite may yield the stored text.
type dbTime struct{ t *time.Time }

var timeLayouts = []string{
	tsLayout,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

func (d dbTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d.t = v.UTC()
		return nil
	case []byte:
		return d.parse(string(v))
	case string:
		return d.parse(v)
	}
	return fmt.Errorf("repository: cannot scan %T into time", src)
}

func (d dbTime) parse(s string) error {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*d.t = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("repository: unrecognized timestamp %q", s)
}

// lockClause returns the row lock suffix for a read-then-write inside a
// transaction. SQLite has no row locks; its single writer gives the same
// guarantee.
func lockClause(driver string) string {
	if driver == database.MySQL {
		return " FOR UPDATE"
	}
	return ""
}

// deref turns an optional column value into a driver argument.
func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// roundsArg encodes round details for the text column.
func roundsArg(rd *model.RoundDetails) any {
	if rd == nil || len(rd.Rounds) == 0 {
		return nil
	}
	v, err := rd.Value()
	if err != nil {
		return nil
	}
	return v
}

// isForeignKeyViolation detects an insert referencing a missing parent.
func isForeignKeyViolation(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1452
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// withTx runs fn in a transaction, committing on nil and rolling back on
// any error.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	return fn(tx)
}
