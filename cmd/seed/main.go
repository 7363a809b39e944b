package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"curated/internal/config"
	"curated/internal/database"
	"curated/internal/logger"
	"curated/internal/models"
	"curated/internal/search"
)

var (
	clearExisting = flag.Bool("clear", false, "Remove previously seeded rows before inserting new ones")
	count         = flag.Int("experiences", 12, "Number of experiences to generate for the demo creator")
	dryRun        = flag.Bool("dry-run", false, "Show what would be generated without making changes")
	reindex       = flag.Bool("index", true, "Index approved experiences in Elasticsearch when it is reachable")
)

// Фиксированные id, чтобы повторный запуск не плодил пользователей
const (
	adminID     = "00000000-0000-4000-8000-000000000001"
	creatorID   = "00000000-0000-4000-8000-000000000002"
	travellerID = "00000000-0000-4000-8000-000000000003"
)

var (
	titles     = []string{"Sunrise hike", "Street food walk", "Pottery class", "Night kayak", "Jazz bar crawl", "Forest bathing", "Wine tasting", "Photo safari"}
	categories = []string{"outdoors", "food", "arts", "nightlife", "wellness"}
	locations  = []string{"Almaty", "Lisbon", "Kyoto", "Oaxaca", "Tbilisi"}
)

type Seeder struct {
	db    *database.DB
	index *search.ElasticsearchClient
	rnd   *rand.Rand
}

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", "error", err)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Starting seeder...")

	db, err := database.Connect(cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	seeder := &Seeder{db: db, rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
	if *reindex && !*dryRun {
		if es, err := search.NewElasticsearchClient(cfg.Elasticsearch); err != nil {
			slog.Warn("Elasticsearch unavailable, skipping indexing", "error", err)
		} else {
			seeder.index = es
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := seeder.Seed(ctx); err != nil {
		slog.Error("Failed to seed database", "error", err)
		os.Exit(1)
	}

	slog.Info("Seeding completed successfully!")
}

func (s *Seeder) Seed(ctx context.Context) error {
	experiences := s.generateExperiences(*count)

	if *dryRun {
		for _, exp := range experiences {
			slog.Info("[DRY RUN] Would create experience",
				"title", exp.Title, "price", exp.Price.String(), "booking_type", exp.BookingType, "status", exp.Status)
		}
		return nil
	}

	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if *clearExisting {
			if _, err := tx.ExecContext(ctx, `DELETE FROM experiences WHERE creator_id = $1`, creatorID); err != nil {
				return fmt.Errorf("failed to clear experiences: %w", err)
			}
		}
		if err := s.insertUsers(ctx, tx); err != nil {
			return err
		}
		for i := range experiences {
			if err := s.insertExperience(ctx, tx, &experiences[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	slog.Info("Inserted experiences", "count", len(experiences))

	if s.index == nil {
		return nil
	}
	for i := range experiences {
		if experiences[i].Status != models.ExperienceStatusApproved {
			continue
		}
		if err := s.index.IndexExperience(ctx, &experiences[i]); err != nil {
			slog.Error("Failed to index experience", "experience_id", experiences[i].ID, "error", err)
		}
	}
	return nil
}

func (s *Seeder) insertUsers(ctx context.Context, tx *sqlx.Tx) error {
	users := []struct {
		id, email, name, role string
	}{
		{adminID, "admin@curated.test", "Demo Admin", models.RoleAdmin},
		{creatorID, "creator@curated.test", "Demo Creator", models.RoleCreator},
		{travellerID, "traveller@curated.test", "Demo Traveller", models.RoleUser},
	}

	for _, u := range users {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, email, full_name, role)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO NOTHING`,
			u.id, u.email, u.name, u.role)
		if err != nil {
			return fmt.Errorf("failed to insert user %s: %w", u.email, err)
		}
	}

	// stripe_account_id оставляем пустым: checkout вернёт 422, пока создатель не подключит Stripe
	_, err := tx.ExecContext(ctx, `
		INSERT INTO creator_profiles (user_id, display_name, bio)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING`,
		creatorID, "Demo Creator", "Small-group experiences hosted by locals.")
	if err != nil {
		return fmt.Errorf("failed to insert creator profile: %w", err)
	}
	return nil
}

func (s *Seeder) insertExperience(ctx context.Context, tx *sqlx.Tx, exp *models.Experience) error {
	err := tx.QueryRowxContext(ctx, `
		INSERT INTO experiences (id, creator_id, title, description, price, duration, max_participants,
			booking_type, approval_required, location, category, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`,
		exp.ID, exp.CreatorID, exp.Title, exp.Description, exp.Price, exp.Duration, exp.MaxParticipants,
		exp.BookingType, exp.ApprovalRequired, exp.Location, exp.Category, exp.Status,
	).Scan(&exp.CreatedAt, &exp.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert experience %q: %w", exp.Title, err)
	}
	return nil
}

func (s *Seeder) generateExperiences(n int) []models.Experience {
	experiences := make([]models.Experience, 0, n)
	for i := 0; i < n; i++ {
		category := categories[s.rnd.Intn(len(categories))]
		location := locations[s.rnd.Intn(len(locations))]
		bookingType := models.BookingTypeInstant
		if s.rnd.Intn(4) == 0 {
			bookingType = models.BookingTypeRequest
		}
		status := models.ExperienceStatusApproved
		if s.rnd.Intn(5) == 0 {
			status = models.ExperienceStatusPending
		}

		experiences = append(experiences, models.Experience{
			ID:               uuid.New().String(),
			CreatorID:        creatorID,
			Title:            fmt.Sprintf("%s in %s", titles[s.rnd.Intn(len(titles))], location),
			Description:      "A small-group experience generated for local development.",
			Price:            models.Money(int64(s.rnd.Intn(190)+10) * 100),
			Duration:         60 * (s.rnd.Intn(4) + 1),
			MaxParticipants:  s.rnd.Intn(12) + 2,
			BookingType:      bookingType,
			ApprovalRequired: bookingType == models.BookingTypeRequest,
			Location:         &location,
			Category:         &category,
			Status:           status,
		})
	}
	return experiences
}
