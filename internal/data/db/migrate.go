package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/fitcoach-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(types.Models()...)
}

// EnsureIndexes adds postgres-only partial indexes. Other dialects rely on
// the indexes declared in struct tags.
func EnsureIndexes(db *gorm.DB) error {
	if db.Dialector.Name() != DriverPostgres {
		return nil
	}
	stmts := []struct {
		name string
		sql  string
	}{
		{
			"idx_conversation_message_alive",
			`CREATE INDEX IF NOT EXISTS idx_conversation_message_alive
			 ON conversation_message (user_id, created_at DESC)
			 WHERE deleted_at IS NULL;`,
		},
		{
			"idx_fitness_goal_alive_priority",
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_fitness_goal_alive_priority
			 ON fitness_goal (profile_id, priority)
			 WHERE deleted_at IS NULL;`,
		},
		{
			"idx_exercise_library_popularity",
			`CREATE INDEX IF NOT EXISTS idx_exercise_library_popularity
			 ON exercise_library (muscle_group, popularity DESC)
			 WHERE deleted_at IS NULL;`,
		},
	}
	for _, s := range stmts {
		if err := db.Exec(s.sql).Error; err != nil {
			return fmt.Errorf("create %s: %w", s.name, err)
		}
	}
	return nil
}
