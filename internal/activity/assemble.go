package activity

import (
	"context"
	"fmt"

	"dailybrief/internal/assemble"
	"dailybrief/internal/domain/entity"
	"dailybrief/internal/observability/metrics"
)

// AssembleDigest filters the groups by the profile threshold, orders
// them for display and renders both digest bodies. The payload's
// generation timestamp is this activity's own start time, so the
// orchestrator never reads the clock. Assembly is pure and runs once.
func (a *Activities) AssembleDigest(
	ctx context.Context,
	user entity.UserConfig,
	groups []entity.ArticleGroup,
	relevance map[string]entity.RelevanceResult,
	sourceFailures, aiFailures int,
) (entity.DigestPayload, BatchResult, error) {
	actx, span, batch := a.begin(ctx, ActivityAssemble)

	var payload entity.DigestPayload
	err := run(actx, ActivityAssemble, AssemblePolicy(), func(rctx context.Context) error {
		batch.reset()
		if err := rctx.Err(); err != nil {
			return err
		}
		for _, g := range groups {
			batch.Articles += len(g.Members)
		}

		built, bErr := a.assembler.Build(assemble.Input{
			User:           user,
			Groups:         groups,
			Relevance:      relevance,
			GeneratedAt:    batch.StartedAt,
			SourceFailures: sourceFailures,
			AIFailures:     aiFailures,
		})
		if bErr != nil {
			batch.ErrorsCount++
			return bErr
		}
		payload = built
		return nil
	})
	if err == nil {
		metrics.RecordDigestAssembled(
			payload.Metadata.TotalGroups,
			payload.Metadata.TotalArticles,
			payload.Metadata.HTMLSize,
			payload.Metadata.TextSize)
	}

	a.finish(span, batch, err)
	if err != nil {
		return entity.DigestPayload{}, *batch, fmt.Errorf("%s: %w", ActivityAssemble, err)
	}
	return payload, *batch, nil
}
