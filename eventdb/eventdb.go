// Copyright (c) 2025 The Stakewheel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package eventdb persists pool notifications for off-chain indexers.
// The engine only appends; it never reads its own history back.
package eventdb

import (
	"context"
	"database/sql"
	"math/big"

	_ "github.com/mattn/go-sqlite3"

	"github.com/stakewheel/stakewheel/pool"
	"github.com/stakewheel/stakewheel/wheel"
)

const eventTableSchema = `
create table if not exists event (
	seq integer primary key autoincrement,
	name text not null,
	stakeId integer,
	epochId integer,
	owner blob(20),
	amount text,
	unlockAt integer,
	period integer,
	emittedAt integer
);

create index if not exists nameIndex on event(name);
create index if not exists ownerIndex on event(owner);
`

// Record is one persisted notification. Fields not applicable to the event
// kind are zero.
type Record struct {
	Seq       int64
	Name      string
	Stake     wheel.StakeID
	Epoch     wheel.EpochID
	Owner     wheel.Address
	Amount    *big.Int
	UnlockAt  uint64
	Period    uint64
	EmittedAt uint64
}

// Filter selects records. Zero fields match everything.
type Filter struct {
	Name    string
	Owner   *wheel.Address
	FromSeq int64
	Limit   int
}

type EventDB struct {
	path string
	db   *sql.DB
}

// New creates or opens the event db at the given path.
func New(path string) (eventDB *EventDB, err error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if eventDB == nil {
			db.Close()
		}
	}()
	if _, err := db.Exec(eventTableSchema); err != nil {
		return nil, err
	}
	return &EventDB{path, db}, nil
}

// NewMem creates an event db in ram.
func NewMem() (*EventDB, error) {
	return New(":memory:")
}

// Close closes the event db.
func (db *EventDB) Close() {
	db.db.Close()
}

func (db *EventDB) Path() string {
	return db.path
}

// Write appends one record. Seq is assigned by the db.
func (db *EventDB) Write(r *Record) error {
	amount := ""
	if r.Amount != nil {
		amount = r.Amount.String()
	}
	_, err := db.db.Exec(
		`insert into event(name, stakeId, epochId, owner, amount, unlockAt, period, emittedAt) values(?,?,?,?,?,?,?,?)`,
		r.Name, uint64(r.Stake), uint64(r.Epoch), r.Owner.Bytes(), amount, r.UnlockAt, r.Period, r.EmittedAt,
	)
	return err
}

// Filter returns records matching the filter, in sequence order.
func (db *EventDB) Filter(ctx context.Context, filter *Filter) ([]*Record, error) {
	stmt := `select seq, name, stakeId, epochId, owner, amount, unlockAt, period, emittedAt from event where seq >= ?`
	args := []any{filter.FromSeq}
	if filter.Name != "" {
		stmt += ` and name = ?`
		args = append(args, filter.Name)
	}
	if filter.Owner != nil {
		stmt += ` and owner = ?`
		args = append(args, filter.Owner.Bytes())
	}
	stmt += ` order by seq`
	if filter.Limit > 0 {
		stmt += ` limit ?`
		args = append(args, filter.Limit)
	}

	rows, err := db.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var (
			r      Record
			owner  []byte
			amount string
		)
		if err := rows.Scan(&r.Seq, &r.Name, &r.Stake, &r.Epoch, &owner, &amount, &r.UnlockAt, &r.Period, &r.EmittedAt); err != nil {
			return nil, err
		}
		r.Owner = wheel.BytesToAddress(owner)
		if amount != "" {
			r.Amount, _ = new(big.Int).SetString(amount, 10)
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}

// Sink adapts the db into a pool event sink. now supplies the logical time
// records are stamped with. Write failures are reported through onErr; they
// never propagate back into the pool operation, which has already committed.
func (db *EventDB) Sink(now func() uint64, onErr func(error)) pool.Sink {
	return func(e pool.Event) {
		r := &Record{Name: e.Name(), EmittedAt: now()}
		switch ev := e.(type) {
		case pool.StakeCreated:
			r.Stake, r.Owner, r.Amount = ev.Stake, ev.Owner, ev.Amount
		case pool.RewardDistributed:
			r.Epoch, r.Amount = ev.Epoch, ev.Reward
		case pool.RewardWithdrawn:
			r.Stake, r.Amount = ev.Stake, ev.Amount
		case pool.UnstakeRequested:
			r.Stake, r.Owner, r.Amount, r.UnlockAt = ev.Stake, ev.Owner, ev.Amount, ev.UnlockAt
		case pool.UnstakeCompleted:
			r.Stake, r.Owner, r.Amount = ev.Stake, ev.Owner, ev.Amount
		case pool.LockPeriodChanged:
			r.Period = ev.Period
		}
		if err := db.Write(r); err != nil && onErr != nil {
			onErr(err)
		}
	}
}
