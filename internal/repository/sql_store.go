package repository

import "firesafety/internal/database"

// NewSQLStore wires every repository to one database handle
func NewSQLStore(db *database.DB) Store {
	return Store{
		Users:        NewUserRepository(db),
		Modules:      NewModuleRepository(db),
		Progress:     NewProgressRepository(db),
		Achievements: NewAchievementRepository(db),
		Sessions:     NewSessionRepository(db),
	}
}
