package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"txmatching/pkg/apperror"
	"txmatching/pkg/cache"
	"txmatching/pkg/database"
	"txmatching/pkg/domain"
	"txmatching/pkg/telemetry"
	"txmatching/services/matching-svc/internal/scoring"
	"txmatching/services/matching-svc/internal/solver"
)

var transplantColumns = []string{
	"result_id", "matching_rank", "position",
	"donor_db_id", "recipient_db_id", "score",
	"donor_country", "recipient_country",
}

// PostgresResultRepository PostgreSQL реализация.
// Подборы хранятся плоским списком трансплантаций и при чтении
// заново раскладываются на циклы и цепочки.
type PostgresResultRepository struct {
	db database.DB
}

// NewPostgresResultRepository создаёт новый репозиторий
func NewPostgresResultRepository(db database.DB) *PostgresResultRepository {
	return &PostgresResultRepository{db: db}
}

func (r *PostgresResultRepository) FindReusable(ctx context.Context, pool *domain.Pool, cfg domain.Configuration) (*StoredResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresResultRepository.FindReusable")
	defer span.End()

	ps := pool.PatientSet()
	return database.WithSnapshot(ctx, r.db, func(tx pgx.Tx) (*StoredResult, error) {
		found, err := findCompatible(ctx, tx, ps, cfg)
		if err != nil {
			return nil, err
		}
		matchings, err := loadMatchings(ctx, tx, pool, found)
		if err != nil {
			return nil, err
		}
		found.Result.Matchings = matchings
		return found, nil
	})
}

// findCompatible возвращает самый новый результат для набора пациентов,
// конфигурация которого проходит проверку переиспользования
func findCompatible(ctx context.Context, tx pgx.Tx, ps domain.PatientSet, cfg domain.Configuration) (*StoredResult, error) {
	query := `
		SELECT
			id, patient_set, configuration, score_matrix, donor_ids, recipient_ids,
			all_results_found, found_matchings_count, created_at
		FROM matching_results
		WHERE patient_set_hash = $1
		ORDER BY id DESC
	`

	rows, err := tx.Query(ctx, query, cache.PatientSetHash(ps))
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		stored, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		ok, err := reusable(stored.Configuration, stored.PatientSet, cfg, ps)
		if err != nil {
			return nil, err
		}
		if ok {
			return stored, nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return nil, ErrResultNotFound
}

func scanResult(rows pgx.Rows) (*StoredResult, error) {
	stored := &StoredResult{Result: &solver.Result{}}
	var patientSet, configuration, matrix []byte

	err := rows.Scan(
		&stored.ID,
		&patientSet,
		&configuration,
		&matrix,
		&stored.Result.DonorIDs,
		&stored.Result.RecipientIDs,
		&stored.Result.AllResultsFound,
		&stored.Result.FoundMatchingsCount,
		&stored.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan result: %w", err)
	}

	if err := json.Unmarshal(patientSet, &stored.PatientSet); err != nil {
		return nil, fmt.Errorf("result %d: corrupted patient set: %w", stored.ID, err)
	}
	if err := json.Unmarshal(configuration, &stored.Configuration); err != nil {
		return nil, fmt.Errorf("result %d: corrupted configuration: %w", stored.ID, err)
	}
	stored.Result.ScoreMatrix = &scoring.Matrix{}
	if err := json.Unmarshal(matrix, stored.Result.ScoreMatrix); err != nil {
		return nil, fmt.Errorf("result %d: corrupted score matrix: %w", stored.ID, err)
	}
	return stored, nil
}

// loadMatchings восстанавливает подборы результата. Индексы пересадок берутся
// из порядка donor_ids/recipient_ids сохранённой матрицы, а не из пула запроса:
// пул с тем же набором пациентов может прийти в другом порядке.
func loadMatchings(ctx context.Context, tx pgx.Tx, pool *domain.Pool, stored *StoredResult) ([]solver.Matching, error) {
	query := `
		SELECT matching_rank, donor_db_id, recipient_db_id, score, donor_country, recipient_country
		FROM matching_transplants
		WHERE result_id = $1
		ORDER BY matching_rank, position
	`

	rows, err := tx.Query(ctx, query, stored.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transplants: %w", err)
	}
	defer rows.Close()

	donors := positions(stored.Result.DonorIDs)
	recipients := positions(stored.Result.RecipientIDs)

	var ranks []int
	pairs := make(map[int][]solver.Transplant)
	for rows.Next() {
		var (
			rank                           int
			t                              solver.Transplant
			donorCountry, recipientCountry string
		)
		if err := rows.Scan(&rank, &t.DonorID, &t.RecipientID, &t.Score, &donorCountry, &recipientCountry); err != nil {
			return nil, fmt.Errorf("failed to scan transplant: %w", err)
		}
		t.DonorCountry = domain.Country(donorCountry)
		t.RecipientCountry = domain.Country(recipientCountry)
		var dok, rok bool
		t.DonorIndex, dok = donors[t.DonorID]
		t.RecipientIndex, rok = recipients[t.RecipientID]
		if !dok || !rok {
			return nil, apperror.NewCritical(apperror.CodeConsistencyFault,
				fmt.Sprintf("result %d: transplant %d -> %d is outside the stored score matrix", stored.ID, t.DonorID, t.RecipientID))
		}

		if _, seen := pairs[rank]; !seen {
			ranks = append(ranks, rank)
		}
		pairs[rank] = append(pairs[rank], t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	matchings := make([]solver.Matching, 0, len(ranks))
	for _, rank := range ranks {
		rounds, err := solver.DecomposeRounds(pool, pairs[rank])
		if err != nil {
			return nil, err
		}
		m := solver.NewMatching(rounds)
		m.Rank = rank
		matchings = append(matchings, m)
	}
	return matchings, nil
}

func positions(ids []int64) map[int64]int {
	out := make(map[int64]int, len(ids))
	for i, id := range ids {
		out[id] = i
	}
	return out
}

func (r *PostgresResultRepository) Save(ctx context.Context, pool *domain.Pool, cfg domain.Configuration, result *solver.Result) (*StoredResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresResultRepository.Save")
	defer span.End()

	if result == nil {
		return nil, ErrNilResult
	}

	ps := pool.PatientSet()
	stored := &StoredResult{Configuration: cfg.Clone(), PatientSet: ps, Result: result}

	patientSet, err := json.Marshal(ps)
	if err != nil {
		return nil, fmt.Errorf("failed to encode patient set: %w", err)
	}
	configuration, err := json.Marshal(stored.Configuration)
	if err != nil {
		return nil, fmt.Errorf("failed to encode configuration: %w", err)
	}
	matrix, err := json.Marshal(result.ScoreMatrix)
	if err != nil {
		return nil, fmt.Errorf("failed to encode score matrix: %w", err)
	}

	err = database.WithTransaction(ctx, r.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO matching_results (
				patient_set_hash, patient_set, configuration, score_matrix,
				donor_ids, recipient_ids, all_results_found, found_matchings_count
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id, created_at
		`
		err := tx.QueryRow(ctx, query,
			cache.PatientSetHash(ps),
			patientSet,
			configuration,
			matrix,
			result.DonorIDs,
			result.RecipientIDs,
			result.AllResultsFound,
			result.FoundMatchingsCount,
		).Scan(&stored.ID, &stored.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert result: %w", err)
		}

		rows := transplantRows(stored.ID, result.Matchings)
		if len(rows) == 0 {
			return nil
		}
		n, err := tx.CopyFrom(ctx, pgx.Identifier{"matching_transplants"}, transplantColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("failed to insert transplants: %w", err)
		}
		if n != int64(len(rows)) {
			return fmt.Errorf("inserted %d of %d transplants", n, len(rows))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func transplantRows(resultID int64, matchings []solver.Matching) [][]any {
	var rows [][]any
	for _, m := range matchings {
		for pos, t := range m.Transplants() {
			rows = append(rows, []any{
				resultID, m.Rank, pos,
				t.DonorID, t.RecipientID, t.Score,
				string(t.DonorCountry), string(t.RecipientCountry),
			})
		}
	}
	return rows
}

// IsNotFound сообщает, что подходящего результата нет
func IsNotFound(err error) bool {
	return errors.Is(err, ErrResultNotFound)
}
