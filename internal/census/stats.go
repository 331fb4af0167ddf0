package census

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// SpeciesSummary aggregates the recorded DBH values for one species.
type SpeciesSummary struct {
	Species string  `json:"species"`
	Count   int     `json:"count"`
	MeanDBH float64 `json:"mean_dbh_cm"`
	MinDBH  float64 `json:"min_dbh_cm"`
	MaxDBH  float64 `json:"max_dbh_cm"`
	DBHP50  float64 `json:"dbh_p50_cm"`
	DBHP85  float64 `json:"dbh_p85_cm"`
	DBHP95  float64 `json:"dbh_p95_cm"`
}

// SpeciesStats rolls up every recorded measurement into one summary per
// species, ordered by species name.
func (s *Store) SpeciesStats() ([]*SpeciesSummary, error) {
	rows, err := s.db.Query(`
		SELECT species, dbh_cm
		FROM census_measurements
		ORDER BY species, dbh_cm`)
	if err != nil {
		return nil, fmt.Errorf("query species stats: %w", err)
	}
	defer rows.Close()

	var (
		summaries []*SpeciesSummary
		species   string
		dbhs      []float64
	)
	flush := func() {
		if len(dbhs) == 0 {
			return
		}
		summaries = append(summaries, summarize(species, dbhs))
		dbhs = nil
	}

	for rows.Next() {
		var sp string
		var dbh float64
		if err := rows.Scan(&sp, &dbh); err != nil {
			return nil, fmt.Errorf("scan species row: %w", err)
		}
		if sp != species {
			flush()
			species = sp
		}
		dbhs = append(dbhs, dbh)
	}
	flush()

	return summaries, rows.Err()
}

// summarize computes the rollup for one species. dbhs must be sorted
// ascending and non-empty; the ORDER BY in SpeciesStats guarantees both.
func summarize(species string, dbhs []float64) *SpeciesSummary {
	return &SpeciesSummary{
		Species: species,
		Count:   len(dbhs),
		MeanDBH: stat.Mean(dbhs, nil),
		MinDBH:  dbhs[0],
		MaxDBH:  dbhs[len(dbhs)-1],
		DBHP50:  stat.Quantile(0.50, stat.Empirical, dbhs, nil),
		DBHP85:  stat.Quantile(0.85, stat.Empirical, dbhs, nil),
		DBHP95:  stat.Quantile(0.95, stat.Empirical, dbhs, nil),
	}
}
