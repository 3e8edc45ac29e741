// Package seed creates demo users and posts for development databases.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"quill/internal/models"
	"quill/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the password every seeded user logs in with.
const DemoPassword = "password123"

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
	// DraftRatio is the share of posts left unpublished, between 0 and 1.
	DraftRatio float64
	// MaxDays spreads created_at over this many days back.
	MaxDays int
	// FastHash uses bcrypt.MinCost. Only for tests and throwaway databases.
	FastHash bool
}

// Seeder populates a database through gorm.
type Seeder struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
}

// NewSeeder creates a Seeder bound to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	if opts.MaxDays <= 0 {
		opts.MaxDays = 90
	}
	return &Seeder{
		db:   db,
		opts: opts,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ClearAll deletes every post and user.
func (s *Seeder) ClearAll() error {
	log.Println("🧹 Clearing existing data...")
	for _, model := range []any{&models.Post{}, &models.User{}} {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	return nil
}

// Run seeds users first, then spreads posts across them.
func (s *Seeder) Run() ([]*models.User, []*models.Post, error) {
	if s.opts.ShouldClean {
		if err := s.ClearAll(); err != nil {
			return nil, nil, err
		}
	}

	users, err := s.SeedUsers(s.opts.NumUsers)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create users: %w", err)
	}
	log.Printf("✓ Created %d users", len(users))

	posts, err := s.SeedPosts(users, s.opts.NumPosts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create posts: %w", err)
	}
	log.Printf("✓ Created %d posts", len(posts))

	return users, posts, nil
}

// SeedUsers creates n users sharing DemoPassword.
func (s *Seeder) SeedUsers(n int) ([]*models.User, error) {
	cost := bcrypt.DefaultCost
	if s.opts.FastHash {
		cost = bcrypt.MinCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), cost)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		users = append(users, &models.User{
			Name:     gofakeit.Name(),
			Email:    fmt.Sprintf("%s.%d@example.com", gofakeit.Username(), i),
			Password: string(hash),
		})
	}
	if len(users) == 0 {
		return users, nil
	}
	if err := s.db.CreateInBatches(users, 100).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// BuildPost constructs a post for owner without persisting it.
func (s *Seeder) BuildPost(owner *models.User) *models.Post {
	title := gofakeit.Sentence(5)
	daysBack := s.rng.Intn(s.opts.MaxDays)
	minsBack := s.rng.Intn(24 * 60)

	return &models.Post{
		Slug:             service.Slugify(title) + "-" + uuid.NewString(),
		Title:            title,
		Content:          gofakeit.Paragraph(2, 4, 12, "\n\n"),
		Status:           s.rng.Float64() >= s.opts.DraftRatio,
		FeaturedImageURL: fmt.Sprintf("https://picsum.photos/seed/%s/1200/630", gofakeit.UUID()),
		OwnerID:          owner.ID,
		CreatedAt:        time.Now().Add(-time.Duration(daysBack)*24*time.Hour - time.Duration(minsBack)*time.Minute),
	}
}

// SeedPosts creates n posts with random owners from users.
func (s *Seeder) SeedPosts(users []*models.User, n int) ([]*models.Post, error) {
	if len(users) == 0 || n <= 0 {
		return nil, nil
	}

	posts := make([]*models.Post, 0, n)
	for i := 0; i < n; i++ {
		posts = append(posts, s.BuildPost(users[s.rng.Intn(len(users))]))
	}
	if err := s.db.CreateInBatches(posts, 100).Error; err != nil {
		return nil, err
	}
	return posts, nil
}
