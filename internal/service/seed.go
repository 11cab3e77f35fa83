package service

import (
	"context"
	"fmt"
	"time"

	"firesafety/internal/logger"
	"firesafety/internal/models"
	"firesafety/internal/repository"
)

// SeedService fills empty catalogs with the starter modules and achievements
type SeedService struct {
	modules      repository.Modules
	achievements repository.Achievements
	log          *logger.Logger
	now          func() time.Time
}

// NewSeedService creates a new seed service
func NewSeedService(modules repository.Modules, achievements repository.Achievements, log *logger.Logger) *SeedService {
	return &SeedService{
		modules:      modules,
		achievements: achievements,
		log:          log.With("service", "SeedService"),
		now:          time.Now,
	}
}

// SeedResult reports how many records were inserted
type SeedResult struct {
	Modules      int
	Achievements int
}

// Seed inserts the sample data into each catalog that is still empty.
// Running it again is a no-op.
func (s *SeedService) Seed(ctx context.Context) (SeedResult, error) {
	var result SeedResult

	existingModules, err := s.modules.GetAllModules(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list modules: %w", err)
	}
	if len(existingModules) == 0 {
		for _, m := range SampleModules() {
			now := s.now().UTC()
			m.CreatedAt = now
			m.UpdatedAt = now
			if _, err := s.modules.CreateModule(ctx, &m); err != nil {
				return result, fmt.Errorf("failed to seed module %q: %w", m.Title, err)
			}
			result.Modules++
		}
	}

	existingAchievements, err := s.achievements.GetAllAchievements(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list achievements: %w", err)
	}
	if len(existingAchievements) == 0 {
		for _, a := range DefaultAchievements() {
			a.CreatedAt = s.now().UTC()
			if _, err := s.achievements.CreateAchievement(ctx, &a); err != nil {
				return result, fmt.Errorf("failed to seed achievement %q: %w", a.Name, err)
			}
			result.Achievements++
		}
	}

	if result.Modules > 0 || result.Achievements > 0 {
		s.log.Info("seeded sample data", "modules", result.Modules, "achievements", result.Achievements)
	}
	return result, nil
}

// DefaultAchievements is the starter achievement catalog
func DefaultAchievements() []models.Achievement {
	return []models.Achievement{
		{Name: "Fire Safety Rookie", Description: "Complete your first module", Type: models.AchievementCompletion, Requirement: 1},
		{Name: "Safety Scout", Description: "Complete 5 modules", Type: models.AchievementCompletion, Requirement: 5},
		{Name: "Fire Prevention Expert", Description: "Complete 10 modules", Type: models.AchievementCompletion, Requirement: 10},
		{Name: "Daily Guardian", Description: "Finish a daily challenge on 5 different days", Type: models.AchievementDailyChallenge, Requirement: 5},
		{Name: "Rising Firefighter", Description: "Reach level 3", Type: models.AchievementLevel, Requirement: 3},
		{Name: "Perfect Score", Description: "Score 100 or more in a single game", Type: models.AchievementScore, Requirement: 100},
	}
}

// SampleModules is the starter module catalog
func SampleModules() []models.GameModule {
	return []models.GameModule{
		{
			Title:       "Fire Safety Basics",
			Description: "Learn about common fire hazards and prevention",
			AgeGroup:    models.AgeGroupAll,
			Difficulty:  models.DifficultyBeginner,
			Content: models.NewGameContent(&models.TutorialData{
				Sections: []models.TutorialSection{
					{
						Title:   "Welcome to Fire Safety Training",
						Content: "This interactive tutorial will guide you through essential fire safety concepts.",
						Type:    "introduction",
					},
					{
						Title:   "Navigation Guide",
						Content: "Learn how to use the platform's features and track your progress.",
						Type:    "walkthrough",
						Steps: []models.TutorialStep{
							{Title: "Your Dashboard", Description: "View your progress, achievements, and daily challenges here.", Target: ".dashboard-stats"},
							{Title: "Game Modules", Description: "Access different types of learning activities and games.", Target: ".game-modules"},
							{Title: "Progress Tracking", Description: "Monitor your level and completed achievements.", Target: ".progress-section"},
						},
					},
				},
			}),
		},
		{
			Title:       "Fire Safety Words",
			Description: "Test your knowledge of fire safety terms",
			AgeGroup:    models.AgeGroupKids,
			Difficulty:  models.DifficultyBeginner,
			Content: models.NewGameContent(&models.WordScrambleData{
				Word:     "ESCAPE",
				Hint:     "What you need to do in case of fire",
				Category: "Safety Actions",
			}),
		},
		{
			Title:       "Safety Equipment",
			Description: "Identify important fire safety equipment",
			AgeGroup:    models.AgeGroupTeens,
			Difficulty:  models.DifficultyIntermediate,
			Content: models.NewGameContent(&models.PictureWordData{
				Images: []string{
					"/images/extinguisher.jpg",
					"/images/smoke-detector.jpg",
					"/images/fire-blanket.jpg",
					"/images/exit-sign.jpg",
				},
				CorrectWord: "SAFETY",
				Hints:       []string{"Equipment that helps in emergencies"},
			}),
		},
		{
			Title:       "Home Fire Drill",
			Description: "Check what you know about getting out safely",
			AgeGroup:    models.AgeGroupAll,
			Difficulty:  models.DifficultyIntermediate,
			Content: models.NewGameContent(&models.QuizData{
				Questions: []models.QuizQuestion{
					{
						Question:      "What should you do if your clothes catch fire?",
						Options:       []string{"Run outside", "Stop, drop and roll", "Open a window"},
						CorrectAnswer: 1,
						Explanation:   "Running feeds the flames with air.",
					},
					{
						Question:      "How often should smoke alarms be tested?",
						Options:       []string{"Every month", "Every five years", "Never"},
						CorrectAnswer: 0,
					},
					{
						Question:      "Where should your family meet after escaping?",
						Options:       []string{"In the kitchen", "At an agreed spot outside", "Back inside the house"},
						CorrectAnswer: 1,
					},
				},
			}),
		},
		{
			Title:       "Smoke Signals Crossword",
			Description: "Fill in the fire safety words",
			AgeGroup:    models.AgeGroupTeens,
			Difficulty:  models.DifficultyAdvanced,
			Content: models.NewGameContent(&models.CrosswordData{
				Grid: [][]string{
					{"S", "M", "O", "K", "E"},
					{"", "", "", "", "X"},
					{"", "", "", "", "I"},
					{"", "", "", "", "T"},
				},
				Clues: models.CrosswordClues{
					Across: []models.CrosswordClue{{Number: 1, Clue: "Alarms detect this before you see flames", Answer: "SMOKE"}},
					Down:   []models.CrosswordClue{{Number: 2, Clue: "The green sign shows the way to this", Answer: "EXIT"}},
				},
			}),
		},
	}
}
