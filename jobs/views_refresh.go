package jobs

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RefreshEmissionViews refreshes the monthly emission totals view the
// anomaly scan and dashboards read from.
func RefreshEmissionViews(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	if pool == nil {
		return nil
	}
	if _, err := pool.Exec(ctx, `REFRESH MATERIALIZED VIEW CONCURRENTLY mv_emissions_monthly`); err != nil {
		if logger != nil {
			logger.Error("refresh mv_emissions_monthly", slog.Any("error", err))
		}
		return err
	}
	if logger != nil {
		logger.Info("refreshed mv_emissions_monthly", slog.String("job", "emission_views_refresh"))
	}
	return nil
}
