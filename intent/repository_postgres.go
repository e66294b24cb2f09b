package intent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/orbitintent/core/types"
)

// intentRow is the sqlx scan target for the "intents" table of spec §6's
// persisted-state layout: immutable columns plus the mutable status.
type intentRow struct {
	ID              []byte `db:"id"`
	User            []byte `db:"user_address"`
	SourceChainID   int64  `db:"source_chain_id"`
	DestChainID     int64  `db:"dest_chain_id"`
	SourceToken     []byte `db:"source_token"`
	DestToken       []byte `db:"dest_token"`
	SourceAmount    string `db:"source_amount"`
	MinDestAmount   string `db:"min_dest_amount"`
	Deadline        int64  `db:"deadline"`
	Nonce           int64  `db:"nonce"`
	Signature       []byte `db:"signature"`
	Status          string `db:"status"`
	Solver          []byte `db:"solver"`
	ExpectedDest    string `db:"expected_dest"`
	DestAmountFinal string `db:"dest_amount_final"`
	FailureReason   string `db:"failure_reason"`
	RematchCount    int    `db:"rematch_count"`
}

// PostgresRepository implements Repository against the "intents" table
// using sqlx + lib/pq. The schema itself is external to the core per spec
// §1's "persistence schema is external" non-goal; this is one reference
// implementation of the Repository interface.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository wraps an established sqlx connection.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const createIntentsTableSQL = `
CREATE TABLE IF NOT EXISTS intents (
	id                 BYTEA PRIMARY KEY,
	user_address       BYTEA NOT NULL,
	source_chain_id    BIGINT NOT NULL,
	dest_chain_id      BIGINT NOT NULL,
	source_token       BYTEA NOT NULL,
	dest_token         BYTEA NOT NULL,
	source_amount      NUMERIC(78, 0) NOT NULL,
	min_dest_amount    NUMERIC(78, 0) NOT NULL,
	deadline           BIGINT NOT NULL,
	nonce              BIGINT NOT NULL,
	signature          BYTEA NOT NULL,
	status             TEXT NOT NULL,
	solver             BYTEA,
	expected_dest      NUMERIC(78, 0),
	dest_amount_final  NUMERIC(78, 0),
	failure_reason     TEXT,
	rematch_count      INT NOT NULL DEFAULT 0,
	UNIQUE (user_address, nonce)
)`

// Migrate creates the intents table if it does not already exist.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, createIntentsTableSQL)
	return err
}

func toHex(a types.Address) []byte { return a.Bytes() }

func (r *PostgresRepository) Save(ctx context.Context, i *Intent) error {
	row := intentRow{
		ID:            i.ID.Bytes(),
		User:          toHex(i.User),
		SourceChainID: int64(i.SourceChainID),
		DestChainID:   int64(i.DestChainID),
		SourceToken:   toHex(i.SourceToken),
		DestToken:     toHex(i.DestToken),
		SourceAmount:  decOf(i.SourceAmount),
		MinDestAmount: decOf(i.MinDestAmount),
		Deadline:      i.Deadline,
		Nonce:         int64(i.Nonce),
		Signature:     i.Signature,
		Status:        string(i.Status),
		Solver:        toHex(i.Solver),
		ExpectedDest:  decOf(i.ExpectedDest),
		FailureReason: i.FailureReason,
		RematchCount:  i.RematchCount,
	}
	if i.DestAmountFinal != nil {
		row.DestAmountFinal = decOf(i.DestAmountFinal)
	}

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO intents (id, user_address, source_chain_id, dest_chain_id, source_token,
			dest_token, source_amount, min_dest_amount, deadline, nonce, signature, status,
			solver, expected_dest, dest_amount_final, failure_reason, rematch_count)
		VALUES (:id, :user_address, :source_chain_id, :dest_chain_id, :source_token,
			:dest_token, :source_amount, :min_dest_amount, :deadline, :nonce, :signature, :status,
			:solver, :expected_dest, :dest_amount_final, :failure_reason, :rematch_count)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			solver = EXCLUDED.solver,
			expected_dest = EXCLUDED.expected_dest,
			dest_amount_final = EXCLUDED.dest_amount_final,
			failure_reason = EXCLUDED.failure_reason,
			rematch_count = EXCLUDED.rematch_count
	`, row)
	if err != nil {
		return fmt.Errorf("save intent: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id types.Hash) (*Intent, error) {
	var row intentRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM intents WHERE id = $1`, id.Bytes())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get intent: %w", err)
	}
	return rowToIntent(row), nil
}

func (r *PostgresRepository) NonceUsed(ctx context.Context, user types.Address, nonce uint64) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM intents WHERE user_address = $1 AND nonce = $2`, toHex(user), nonce)
	if err != nil {
		return false, fmt.Errorf("check nonce: %w", err)
	}
	return count > 0, nil
}

func (r *PostgresRepository) ListPendingOrMatched(ctx context.Context) ([]*Intent, error) {
	var rows []intentRow
	err := r.db.SelectContext(ctx, &rows, `SELECT * FROM intents WHERE status IN ('Pending', 'Matched')`)
	if err != nil {
		return nil, fmt.Errorf("list pending/matched: %w", err)
	}
	out := make([]*Intent, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowToIntent(row))
	}
	return out, nil
}

func rowToIntent(row intentRow) *Intent {
	i := &Intent{
		SourceChainID: uint64(row.SourceChainID),
		DestChainID:   uint64(row.DestChainID),
		SourceAmount:  u256Of(row.SourceAmount),
		MinDestAmount: u256Of(row.MinDestAmount),
		Deadline:      row.Deadline,
		Nonce:         uint64(row.Nonce),
		Signature:     row.Signature,
		Status:        Status(row.Status),
		FailureReason: row.FailureReason,
		RematchCount:  row.RematchCount,
	}
	i.ID.SetBytes(row.ID)
	i.User.SetBytes(row.User)
	i.SourceToken.SetBytes(row.SourceToken)
	i.DestToken.SetBytes(row.DestToken)
	i.Solver.SetBytes(row.Solver)
	if row.ExpectedDest != "" {
		i.ExpectedDest = u256Of(row.ExpectedDest)
	}
	if row.DestAmountFinal != "" {
		i.DestAmountFinal = u256Of(row.DestAmountFinal)
	}
	return i
}

func decOf(v *types.U256) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

func u256Of(dec string) *types.U256 {
	v := new(types.U256)
	if dec == "" {
		return v
	}
	_ = v.SetFromDecimal(dec)
	return v
}
