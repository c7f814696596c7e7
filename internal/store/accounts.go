package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/blackwell-systems/fieldcoach/internal/crm"
)

// InsertUser inserts a user with its email normalized. A zero CreatedAt is
// set to the store clock.
func (db *DB) InsertUser(ctx context.Context, u *crm.User) error {
	u.Email = crm.NormalizeEmail(u.Email)
	if u.CreatedAt.IsZero() {
		u.CreatedAt = db.now()
	}
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO users (id, email, name, created_at) VALUES (?, ?, ?, ?)",
		u.ID, u.Email, u.Name, formatTime(u.CreatedAt),
	)
	return crm.Persistence("insert user", err)
}

// GetUserByEmail returns the user with the given email, or crm.ErrNotFound.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*crm.User, error) {
	email = crm.NormalizeEmail(email)
	row := db.conn.QueryRowContext(ctx,
		"SELECT id, email, name, created_at FROM users WHERE email = ?", email)
	var u crm.User
	var createdAt string
	err := row.Scan(&u.ID, &u.Email, &u.Name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, crm.NotFoundf("user %q not found", email)
	}
	if err != nil {
		return nil, crm.Persistence("get user", err)
	}
	u.CreatedAt = parseTime(createdAt)
	return &u, nil
}

// InsertAccount inserts an account.
func (db *DB) InsertAccount(ctx context.Context, a *crm.Account) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = db.now()
	}
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO accounts (id, owner_id, name, created_at) VALUES (?, ?, ?, ?)",
		a.ID, a.OwnerID, a.Name, formatTime(a.CreatedAt),
	)
	return crm.Persistence("insert account", err)
}

// GetAccount returns the account with the given id, or crm.ErrNotFound.
func (db *DB) GetAccount(ctx context.Context, id string) (*crm.Account, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT id, owner_id, name, created_at FROM accounts WHERE id = ?", id)
	var a crm.Account
	var createdAt string
	err := row.Scan(&a.ID, &a.OwnerID, &a.Name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, crm.NotFoundf("account %q not found", id)
	}
	if err != nil {
		return nil, crm.Persistence("get account", err)
	}
	a.CreatedAt = parseTime(createdAt)
	return &a, nil
}

// ListAccounts returns accounts ordered by name.
func (db *DB) ListAccounts(ctx context.Context, f crm.AccountFilter) ([]crm.Account, error) {
	var w where
	if f.OwnerID != "" {
		w.add("owner_id = ?", f.OwnerID)
	}
	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, owner_id, name, created_at FROM accounts"+w.String()+" ORDER BY name, id",
		w.args...)
	if err != nil {
		return nil, crm.Persistence("list accounts", err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []crm.Account
	for rows.Next() {
		var a crm.Account
		var createdAt string
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.Name, &createdAt); err != nil {
			return nil, crm.Persistence("scan account", err)
		}
		a.CreatedAt = parseTime(createdAt)
		accounts = append(accounts, a)
	}
	return accounts, crm.Persistence("list accounts", rows.Err())
}

// InsertContact inserts a contact.
func (db *DB) InsertContact(ctx context.Context, c *crm.Contact) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = db.now()
	}
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO contacts (id, account_id, name, role, created_at) VALUES (?, ?, ?, ?, ?)",
		c.ID, c.AccountID, c.Name, nullString(c.Role), formatTime(c.CreatedAt),
	)
	return crm.Persistence("insert contact", err)
}

// ListContacts returns contacts in list order (created_at, then id).
func (db *DB) ListContacts(ctx context.Context, f crm.ContactFilter) ([]crm.Contact, error) {
	var w where
	if f.AccountID != "" {
		w.add("account_id = ?", f.AccountID)
	}
	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, account_id, name, role, created_at FROM contacts"+w.String()+" ORDER BY created_at, id",
		w.args...)
	if err != nil {
		return nil, crm.Persistence("list contacts", err)
	}
	defer func() { _ = rows.Close() }()

	var contacts []crm.Contact
	for rows.Next() {
		var c crm.Contact
		var role sql.NullString
		var createdAt string
		if err := rows.Scan(&c.ID, &c.AccountID, &c.Name, &role, &createdAt); err != nil {
			return nil, crm.Persistence("scan contact", err)
		}
		c.Role = role.String
		c.CreatedAt = parseTime(createdAt)
		contacts = append(contacts, c)
	}
	return contacts, crm.Persistence("list contacts", rows.Err())
}
