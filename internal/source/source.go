package source

import (
	"context"
	"math/rand"

	"github.com/codedeck/mailer/internal/logger"
	"github.com/codedeck/mailer/internal/model"
)

// Source yields candidate recipients from one backing store.
// Implementations return only normalized, valid addresses.
type Source interface {
	// Name identifies the source in logs
	Name() string
	// Fetch returns the source's recipients
	Fetch(ctx context.Context) ([]model.Recipient, error)
}

// Aggregate pulls recipients from every source in order and deduplicates
// them by normalized email: the first source to report an address wins.
// A failing source is logged and contributes nothing; it never aborts the
// aggregation. The merged list is shuffled with rng so sends do not follow
// a predictable order.
func Aggregate(ctx context.Context, sources []Source, rng *rand.Rand, log *logger.Logger) []model.Recipient {
	log = log.WithComponent("aggregator")

	seen := make(map[string]struct{})
	var recipients []model.Recipient

	for _, src := range sources {
		found, err := src.Fetch(ctx)
		if err != nil {
			log.Error().Err(err).Str("source", src.Name()).Msg("source unavailable, skipping")
			continue
		}
		added := 0
		for _, r := range found {
			if _, dup := seen[r.Email]; dup {
				continue
			}
			seen[r.Email] = struct{}{}
			recipients = append(recipients, r)
			added++
		}
		log.Info().Str("source", src.Name()).Int("recipients", added).Msg("fetched recipients")
	}

	rng.Shuffle(len(recipients), func(i, j int) {
		recipients[i], recipients[j] = recipients[j], recipients[i]
	})

	log.Info().Int("total", len(recipients)).Msg("aggregated unique recipients")
	return recipients
}
