package credstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/mattn/go-sqlite3"
)

type (
	// Store owns the sqlite database holding one row per account.
	//
	// Uniqueness of the email column is enforced by the database itself,
	// concurrent inserts for the same email cannot both succeed.
	Store struct {
		db        *sql.DB
		writeable bool
	}

	Account struct {
		ID       int64
		Email    string
		Verifier string
		Secret   string
	}
)

func openStoreDatabase(ctx context.Context, dir string, readwrite bool) (*sql.DB, error) {
	dbfile := filepath.Join(dir, "accounts.db")
	if readwrite {
		err := os.MkdirAll(filepath.Dir(dbfile), 0755)
		if err != nil {
			return nil, fmt.Errorf("unable to create directory %v to store accounts, cause %w", dbfile, err)
		}
	}
	var connstr string
	if readwrite {
		// concurrent registrations contend on the write lock, give
		// them a grace period instead of failing with SQLITE_BUSY
		connstr = fmt.Sprintf("file:%v?_writable_schema=false&_journal=wal&_busy_timeout=5000&mode=rwc", dbfile)
	} else {
		connstr = fmt.Sprintf("file:%v?_writable_schema=false&mode=r", dbfile)
	}
	conn, err := sql.Open("sqlite3", connstr)
	if err != nil {
		return nil, fmt.Errorf("unable to open %v, cause %v", dbfile, err)
	}
	err = conn.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to ping account store %v, cause %v", dbfile, err)
	}
	return conn, nil
}

// Open loads (creating if needed) the account store rooted at dir.
func Open(ctx context.Context, dir string, readwrite bool) (*Store, error) {
	conn, err := openStoreDatabase(ctx, dir, readwrite)
	if err != nil {
		return nil, err
	}
	s := &Store{db: conn, writeable: readwrite}
	if readwrite {
		err = s.init(ctx)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("unable to init account store %v, cause %v", dir, err)
		}
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// FindByEmail returns the account registered under email, or AccountNotFound.
func (s *Store) FindByEmail(ctx context.Context, email string) (*Account, error) {
	hash := emailHash(email)
	acc := Account{Email: email}
	err := s.db.QueryRowContext(ctx, `select account_id, verifier, secret from accounts where email_hash64 = ? and email = ?`,
		hash, email).Scan(&acc.ID, &acc.Verifier, &acc.Secret)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, AccountNotFound{Email: email}
	} else if err != nil {
		return nil, fmt.Errorf("unable to load account from store, cause %w", err)
	}
	return &acc, nil
}

// Insert adds a brand new account. The email unique constraint is the
// only arbiter between two concurrent inserts for the same address,
// the loser gets DuplicateEmail.
func (s *Store) Insert(ctx context.Context, email, verifier, secret string) (*Account, error) {
	id, err := s.nextSeq(ctx, "accounts")
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx, `insert into accounts(account_id, email, email_hash64, verifier, secret) values (?, ?, ?, ?, ?)`,
		id, email, emailHash(email), verifier, secret)
	if err != nil {
		var serr sqlite3.Error
		if errors.As(err, &serr) && serr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, DuplicateEmail{Email: email}
		}
		return nil, fmt.Errorf("unable to insert account to store, cause %w", err)
	}
	return &Account{ID: id, Email: email, Verifier: verifier, Secret: secret}, nil
}

// UpdateSecret replaces the free-form payload kept for email.
func (s *Store) UpdateSecret(ctx context.Context, email, secret string) error {
	res, err := s.db.ExecContext(ctx, `update accounts set secret = ? where email_hash64 = ? and email = ?`,
		secret, emailHash(email), email)
	if err != nil {
		return fmt.Errorf("unable to update secret for account, cause %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to check secret update, cause %w", err)
	}
	if n == 0 {
		return AccountNotFound{Email: email}
	}
	return nil
}

// ListEmails returns every registered email in ascending order.
func (s *Store) ListEmails(ctx context.Context) ([]string, error) {
	var out []string
	rows, err := s.db.QueryContext(ctx, `select email from accounts order by email asc`)
	if err != nil {
		return nil, fmt.Errorf("unable to list accounts, cause %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var email string
		err = rows.Scan(&email)
		if err != nil {
			return nil, fmt.Errorf("unable to scan account email to output, cause %v", err)
		}
		out = append(out, email)
	}
	return out, nil
}

func (s *Store) nextSeq(ctx context.Context, seq string) (int64, error) {
	var val int64
	err := s.db.QueryRowContext(ctx, `insert into counters (name, val) values (?, 1) on conflict do update set val = val + 1 returning val`, seq).Scan(&val)
	if err != nil {
		return 0, fmt.Errorf("unable to increment sequence %v, cause %w", seq, err)
	}
	return val, nil
}

func emailHash(email string) int64 {
	return int64(xxhash.Sum64String(email))
}

func (s *Store) init(ctx context.Context) error {
	for _, cmd := range []string{
		`create table if not exists counters(
			name text not null primary key,
			val integer not null
		)`,
		`create table if not exists accounts(
			account_id integer not null primary key,
			email text not null unique,
			email_hash64 integer not null,
			verifier text not null,
			secret text not null default ''
		)`,
		`create index if not exists idx_accounts_email_hash64 on accounts(email_hash64)`,
	} {
		_, err := s.db.ExecContext(ctx, cmd)
		if err != nil {
			return fmt.Errorf("unable to run %v, cause %w", cmd, err)
		}
	}
	return nil
}
