package activity

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"dailybrief/internal/domain/entity"
)

// FetchUserConfig loads and validates the digest configuration for
// userID. A missing or invalid config is terminal for the run; the
// caller gets entity.ErrConfigNotFound in the chain when no record
// exists.
func (a *Activities) FetchUserConfig(ctx context.Context, userID string) (entity.UserConfig, BatchResult, error) {
	actx, span, batch := a.begin(ctx, ActivityFetchUserConfig)

	var userCfg entity.UserConfig
	err := run(actx, ActivityFetchUserConfig, UserConfigPolicy(), func(rctx context.Context) error {
		loaded, err := a.configs.GetUserConfig(rctx, userID)
		if err != nil {
			return err
		}
		userCfg = loaded
		return nil
	})
	if err == nil {
		err = userCfg.Validate()
	}
	if err != nil {
		batch.ErrorsCount++
		a.finish(span, batch, err)
		return entity.UserConfig{}, *batch, fmt.Errorf("load config for user %s: %w", userID, err)
	}

	a.finish(span, batch, nil)
	return userCfg, *batch, nil
}

// FetchSources fans out one fetch per source and gathers the results
// in source order. Concurrency is bounded by Fetch.MaxConcurrent; each
// fetch runs under its own timeout. A dead source is an unsuccessful
// result, not an error; the returned error is non-nil only when the
// run itself was cancelled mid-fetch.
func (a *Activities) FetchSources(ctx context.Context, sources []entity.SourceRef) ([]entity.FetchResult, BatchResult, error) {
	actx, span, batch := a.begin(ctx, ActivityFetchSources)

	results := make([]entity.FetchResult, len(sources))
	limit := a.cfg.Fetch.MaxConcurrent
	if limit <= 0 {
		limit = 1
	}

	eg, egCtx := errgroup.WithContext(actx)
	eg.SetLimit(limit)
	for i, src := range sources {
		i, src := i, src // per-iteration copies; go.mod predates Go 1.22 loopvar semantics
		eg.Go(func() error {
			fctx, cancel := context.WithTimeout(egCtx, SourceFetchPolicy().Timeout)
			defer cancel()
			results[i] = a.fetcher.Fetch(fctx, src)
			return nil
		})
	}
	// Workers never return errors; failures live in the results.
	_ = eg.Wait()

	for _, res := range results {
		if res.Success {
			batch.Articles += len(res.Articles)
		} else {
			batch.ErrorsCount++
		}
	}

	err := actx.Err()
	a.finish(span, batch, err)
	if err != nil {
		return results, *batch, fmt.Errorf("fetch sources: %w", err)
	}
	return results, *batch, nil
}
