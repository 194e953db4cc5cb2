package recorders

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/reusee/trials/signals"
	"github.com/reusee/trials/storages"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS records (
	run TEXT NOT NULL,
	seq INTEGER NOT NULL,
	tick INTEGER NOT NULL,
	time_ns INTEGER NOT NULL,
	grp TEXT NOT NULL,
	name TEXT NOT NULL,
	signal INTEGER NOT NULL,
	kind TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (run, seq)
);
CREATE INDEX IF NOT EXISTS records_group ON records (run, grp);
`

// SQLite buffers records and inserts them in one transaction per flush.
type SQLite struct {
	db      *sql.DB
	run     string
	mu      sync.Mutex
	seq     int64
	pending []Record
}

var _ Sink = new(SQLite)

func NewSQLite(path string, run string) (*SQLite, error) {
	db, err := storages.OpenSQLite(path, sqliteSchema)
	if err != nil {
		return nil, err
	}
	return &SQLite{
		db:  db,
		run: run,
	}, nil
}

func (s *SQLite) Record(record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, record)
	return nil
}

func (s *SQLite) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil
	}
	ctx := context.Background()
	err := storages.WithTx(ctx, s.db, func(tx storages.Tx) error {
		seq := s.seq
		for _, r := range s.pending {
			value, err := json.Marshal(r.Value)
			if err != nil {
				return err
			}
			seq++
			if _, err := tx.Exec(ctx,
				`INSERT INTO records (run, seq, tick, time_ns, grp, name, signal, kind, value)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				s.run, seq, int64(r.Tick), int64(r.Time), r.Group, r.Name, int(r.Signal),
				r.Value.Kind().String(), string(value),
			); err != nil {
				return fmt.Errorf("insert record: %w", err)
			}
		}
		s.seq = seq
		return nil
	})
	if err != nil {
		return err
	}
	s.pending = s.pending[:0]
	return nil
}

func (s *SQLite) Close() error {
	err := s.Flush()
	if cerr := s.db.Close(); err == nil {
		err = cerr
	}
	return err
}

// Query returns the records of a run and group in write order. An empty group selects all.
func (s *SQLite) Query(ctx context.Context, group string) (ret []Record, err error) {
	err = storages.WithTx(ctx, s.db, func(tx storages.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT tick, time_ns, grp, name, signal, kind, value FROM records
			WHERE run = ? AND (? = '' OR grp = ?) ORDER BY seq`,
			s.run, group, group,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				tick, timeNS int64
				signal       int
				r            Record
				kind, value  string
			)
			if err := rows.Scan(&tick, &timeNS, &r.Group, &r.Name, &signal, &kind, &value); err != nil {
				return err
			}
			r.Tick = uint64(tick)
			r.Time = time.Duration(timeNS)
			r.Signal = signals.ID(signal)
			var x any
			if err := json.Unmarshal([]byte(value), &x); err != nil {
				return err
			}
			if r.Value, err = typedValue(kind, x); err != nil {
				return err
			}
			ret = append(ret, r)
		}
		return rows.Err()
	})
	return
}
