package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/fitcoach-backend/internal/platform/apierr"
)

// Append-only tables. Model hooks cover Save and Delete on loaded rows; the
// callbacks below also catch UpdateColumn(s), Table(...) updates and
// sessions with SkipHooks, and the triggers catch raw SQL.
var immutableTables = map[string]bool{
	"profile_version": true,
}

// RegisterImmutableGuards rejects every gorm update or delete that targets an
// append-only table.
func RegisterImmutableGuards(db *gorm.DB) error {
	if err := db.Callback().Update().Before("gorm:update").Register("fitcoach:immutable_update", rejectImmutable); err != nil {
		return fmt.Errorf("register immutable update guard: %w", err)
	}
	if err := db.Callback().Delete().Before("gorm:delete").Register("fitcoach:immutable_delete", rejectImmutable); err != nil {
		return fmt.Errorf("register immutable delete guard: %w", err)
	}
	return nil
}

func rejectImmutable(tx *gorm.DB) {
	if tx.Error != nil || tx.Statement == nil {
		return
	}
	table := tx.Statement.Table
	if table == "" && tx.Statement.Schema != nil {
		table = tx.Statement.Schema.Table
	}
	if immutableTables[table] {
		_ = tx.AddError(apierr.ImmutableRecord(table))
	}
}

// EnsureImmutableTriggers installs database triggers that abort UPDATE and
// DELETE on append-only tables.
func EnsureImmutableTriggers(db *gorm.DB) error {
	for table := range immutableTables {
		var stmts []string
		switch db.Dialector.Name() {
		case DriverPostgres:
			stmts = []string{
				fmt.Sprintf(`CREATE OR REPLACE FUNCTION %[1]s_reject_mutation() RETURNS trigger AS $$
				 BEGIN
				   RAISE EXCEPTION '%[1]s is immutable' USING ERRCODE = 'restrict_violation';
				 END;
				 $$ LANGUAGE plpgsql;`, table),
				fmt.Sprintf(`DROP TRIGGER IF EXISTS %[1]s_immutable ON %[1]s;`, table),
				fmt.Sprintf(`CREATE TRIGGER %[1]s_immutable BEFORE UPDATE OR DELETE ON %[1]s
				 FOR EACH ROW EXECUTE FUNCTION %[1]s_reject_mutation();`, table),
			}
		case DriverSQLite:
			stmts = []string{
				fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS %[1]s_no_update BEFORE UPDATE ON %[1]s
				 BEGIN SELECT RAISE(ABORT, '%[1]s is immutable'); END;`, table),
				fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS %[1]s_no_delete BEFORE DELETE ON %[1]s
				 BEGIN SELECT RAISE(ABORT, '%[1]s is immutable'); END;`, table),
			}
		}
		for _, s := range stmts {
			if err := db.Exec(s).Error; err != nil {
				return fmt.Errorf("immutable trigger on %s: %w", table, err)
			}
		}
	}
	return nil
}
