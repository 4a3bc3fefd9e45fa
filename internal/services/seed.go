package services

import (
	"context"
	"time"

	"github.com/abrezinsky/avavote/internal/logger"
	"github.com/abrezinsky/avavote/internal/models"
	"github.com/abrezinsky/avavote/internal/repository"
)

// DemoVoter is inserted by SeedDemoData
var DemoVoter = models.Voter{
	VoterID: "ABC1234567",
	Aadhar:  "223456789012",
	Name:    "Rohan Sharma",
}

// SeedDemoData inserts the demo voter into an empty store and makes sure
// the config record exists. It reports whether anything was inserted.
func SeedDemoData(ctx context.Context, log logger.Logger, store repository.Store) (bool, error) {
	var seeded bool
	err := store.Transact(ctx, func(ctx context.Context, tx repository.Tx) error {
		seeded = false
		cfg, err := tx.GetConfig(ctx)
		if err != nil {
			return err
		}
		if err := tx.PutConfig(ctx, *cfg); err != nil {
			return err
		}

		voters, err := tx.ListVoters(ctx)
		if err != nil {
			return err
		}
		if len(voters) > 0 {
			return nil
		}

		voter := DemoVoter
		voter.CreatedAt = time.Now().UTC()
		if err := tx.InsertVoter(ctx, voter); err != nil {
			return err
		}
		seeded = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if seeded {
		log.Info("Seeded demo voter", "voter_id", DemoVoter.VoterID)
	} else {
		log.Debug("Store already has voters, skipping seed")
	}
	return seeded, nil
}
