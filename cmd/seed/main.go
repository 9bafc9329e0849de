// Command seed populates a development database with demo accounts and a
// small amount of social activity, all routed through the ledger so
// balances, counters and the activity log stay consistent.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/heartconomy/heartledger/internal/auth"
	"github.com/heartconomy/heartledger/internal/db"
	"github.com/heartconomy/heartledger/internal/ledger"
	"github.com/heartconomy/heartledger/internal/models"
	"github.com/heartconomy/heartledger/pkg/config"
	"github.com/heartconomy/heartledger/pkg/logging"
)

var demoUsers = []struct {
	username string
	avatar   string
}{
	{"heartbreaker", "💔"},
	{"socialvampire", "🦇"},
	{"lostsouls", "👻"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger := logging.GetLogger()

	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	if err := db.Migrate(database.DB); err != nil {
		logger.Fatal("Failed to migrate schema", zap.Error(err))
	}

	ctx := context.Background()
	accounts := db.NewAccountRepository(db.NewRepository(database.DB))
	service := ledger.NewService(database.DB)

	hash, err := auth.HashPassword("demo-password")
	if err != nil {
		logger.Fatal("Failed to hash demo password", zap.Error(err))
	}

	ids := make([]string, 0, len(demoUsers))
	for _, u := range demoUsers {
		existing, err := accounts.GetByUsername(ctx, u.username)
		if err != nil {
			logger.Fatal("Failed to look up account", zap.Error(err))
		}
		if existing != nil {
			ids = append(ids, existing.ID)
			continue
		}

		account := &models.Account{
			ID:           uuid.NewString(),
			Username:     u.username,
			PasswordHash: hash,
			Avatar:       u.avatar,
			Hearts:       models.StartingHearts,
			Status:       models.StatusAlive,
			CreatedAt:    time.Now().UTC(),
		}
		if err := accounts.Create(ctx, account); err != nil {
			logger.Fatal("Failed to create account", zap.String("username", u.username), zap.Error(err))
		}
		ids = append(ids, account.ID)
		logger.Info("Created demo account", zap.String("username", u.username))
	}

	// A little cross-account activity so the feed and leaderboard have
	// something to show.
	posts := []string{
		"just joined the heartconomy, feeling alive",
		"spending hearts like there's no tomorrow",
		"who needs hearts anyway",
	}
	for i, content := range posts {
		result, err := service.Execute(ctx, ids[i%len(ids)], &ledger.CreatePost{Content: content})
		if err != nil {
			logger.Warn("Seed post skipped", zap.Error(err))
			continue
		}
		for j, likerID := range ids {
			if j == i%len(ids) {
				continue
			}
			if _, err := service.Execute(ctx, likerID, &ledger.LikePost{PostID: result.PostID}); err != nil {
				logger.Warn("Seed like skipped", zap.Error(err))
			}
		}
	}

	logger.Info("Seed complete", zap.Int("accounts", len(ids)))
}
