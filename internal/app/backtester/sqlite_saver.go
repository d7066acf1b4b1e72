package backtester

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"wavebt/internal"
)

// SQLiteSaver пишет сигналы стратегий в таблицы <strategy>_signals.
// Каждая запись пересоздаёт таблицу; NaN в колонках хранятся как NULL.
type SQLiteSaver struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewSQLiteSaver открывает (или создаёт) базу по dsn.
func NewSQLiteSaver(dsn string, logger zerolog.Logger) (*SQLiteSaver, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		logger.Warn().Err(err).Msg("failed to set WAL mode")
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		logger.Warn().Err(err).Msg("failed to set synchronous mode")
	}

	return &SQLiteSaver{db: db, logger: logger}, nil
}

func (s *SQLiteSaver) Close() error {
	return s.db.Close()
}

// validIdent — имя из [a-z0-9_], годное для таблицы или колонки без кавычек.
func validIdent(name string) error {
	if name == "" {
		return fmt.Errorf("empty identifier")
	}
	for _, r := range name {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_') {
			return fmt.Errorf("%q is not a valid identifier", name)
		}
	}
	return nil
}

// TableName — имя таблицы для стратегии: dwt -> dwt_signals.
func TableName(strategy string) (string, error) {
	if err := validIdent(strategy); err != nil {
		return "", err
	}
	return strategy + "_signals", nil
}

// SaveRows пересоздаёт таблицу стратегии и записывает строки одной транзакцией.
func (s *SQLiteSaver) SaveRows(strategy string, rows []CandleWithSignal, columns []string) error {
	table, err := TableName(strategy)
	if err != nil {
		return err
	}
	for _, c := range columns {
		if err := validIdent(c); err != nil {
			return fmt.Errorf("column: %w", err)
		}
	}

	if _, err := s.db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
		return fmt.Errorf("failed to drop %s: %w", table, err)
	}

	// SQLite types: INTEGER for int, REAL for float64, TEXT for string
	defs := []string{
		"idx INTEGER PRIMARY KEY",
		"time TEXT",
		"open REAL", "high REAL", "low REAL", "close REAL", "volume REAL",
		"signal INTEGER",
		"tag TEXT",
	}
	for _, c := range columns {
		defs = append(defs, c+" REAL")
	}
	query := fmt.Sprintf("CREATE TABLE %s (\n\t%s\n);", table, strings.Join(defs, ",\n\t"))
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create %s: %w", table, err)
	}

	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	names := append([]string{"idx", "time", "open", "high", "low", "close", "volume", "signal", "tag"}, columns...)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(names, ", "), placeholders))
	if err != nil {
		return err
	}
	defer stmt.Close()

	args := make([]any, len(names))
	for idx, r := range rows {
		args[0], args[1] = idx, r.Time
		args[2], args[3], args[4], args[5], args[6] = r.Open, r.High, r.Low, r.Close, r.Volume
		args[7] = int(r.Signal)
		args[8] = sql.NullString{String: r.Tag, Valid: r.Tag != ""}
		for i, c := range columns {
			v, ok := r.Columns[c]
			args[9+i] = sql.NullFloat64{Float64: v, Valid: ok}
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
	}

	return tx.Commit()
}

// SaveTopStrategies — ResultSaver поверх SQLite.
func (s *SQLiteSaver) SaveTopStrategies(candles []internal.Candle, results []BenchmarkResult, _ string, topN int) error {
	if topN <= 0 {
		return nil
	}
	if len(results) < topN {
		return fmt.Errorf("not enough strategies to save top %d (have %d)", topN, len(results))
	}

	for _, result := range results[:topN] {
		strategy, ok := internal.GetStrategy(result.Name)
		if !ok {
			return fmt.Errorf("strategy %s not found", result.Name)
		}
		rows, columns, err := SignalRows(candles, strategy, result.Config)
		if err != nil {
			return err
		}
		if err := s.SaveRows(result.Name, rows, columns); err != nil {
			return err
		}
		s.logger.Info().
			Str("strategy", result.Name).
			Int("rows", len(rows)).
			Msg("signals saved to sqlite")
	}
	return nil
}
