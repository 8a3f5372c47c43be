package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"gitlab.com/dirk.krummacker/contacts-store/internal/model"
)

// REPLACE inserts a new row when id is NULL and overwrites the row with the same id otherwise.
// Both SQLite and MySQL understand it.
const (
	putContactSQL = `REPLACE INTO contacts (id, firstname, lastname)
		VALUES (:id, :firstname, :lastname)`
	putEmailSQL = `REPLACE INTO emails (id, contactid, type, email)
		VALUES (:id, :contactid, :type, :email)`
	putPhoneSQL = `REPLACE INTO phones (id, contactid, type, phone)
		VALUES (:id, :contactid, :type, :phone)`
)

// put executes a named upsert and returns the key of the written row: the given id if there was
// one, the generated one otherwise.
func put(ctx context.Context, e sqlx.ExtContext, query string, id *int64, arg any) (int64, error) {
	result, err := sqlx.NamedExecContext(ctx, e, query, arg)
	if err != nil {
		return 0, err
	}
	if id != nil {
		return *id, nil
	}
	return result.LastInsertId()
}

func putContact(ctx context.Context, e sqlx.ExtContext, contact model.Contact) (int64, error) {
	id, err := put(ctx, e, putContactSQL, contact.Id, contact)
	if err != nil {
		return 0, fmt.Errorf("put contact: %w", err)
	}
	return id, nil
}

// putEmails writes all emails in order and returns their keys in the same order.
func putEmails(ctx context.Context, e sqlx.ExtContext, emails []model.EmailAddress) ([]int64, error) {
	ids := make([]int64, 0, len(emails))
	for _, email := range emails {
		id, err := put(ctx, e, putEmailSQL, email.Id, email)
		if err != nil {
			return nil, fmt.Errorf("put email %q: %w", email.Email, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// putPhones writes all phones in order and returns their keys in the same order.
func putPhones(ctx context.Context, e sqlx.ExtContext, phones []model.PhoneNumber) ([]int64, error) {
	ids := make([]int64, 0, len(phones))
	for _, phone := range phones {
		id, err := put(ctx, e, putPhoneSQL, phone.Id, phone)
		if err != nil {
			return nil, fmt.Errorf("put phone %q: %w", phone.Phone, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// prune deletes the rows of a child table that belong to contactId but whose id is not in keep.
// An empty keep deletes all rows of the contact.
func prune(ctx context.Context, e sqlx.ExtContext, t table, contactId int64, keep []int64) (int64, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE contactid = ?", t.name)
	args := []any{contactId}
	if len(keep) > 0 {
		var err error
		query, args, err = sqlx.In(query+" AND id NOT IN (?)", contactId, keep)
		if err != nil {
			return 0, fmt.Errorf("prune %s: %w", t.name, err)
		}
	}
	result, err := e.ExecContext(ctx, e.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("prune %s: %w", t.name, err)
	}
	return result.RowsAffected()
}

// selectWhere loads all rows of t whose field equals value, ordered by id.
func selectWhere[T any](ctx context.Context, q sqlx.ExtContext, t table, field string, value any) ([]T, error) {
	if !t.isIndexed(field) {
		return nil, fmt.Errorf("%w: %s is not an indexed field of %s", ErrInvalidQuery, field, t.name)
	}
	rows := []T{}
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = ? ORDER BY id", t.name, field)
	if err := sqlx.SelectContext(ctx, q, &rows, q.Rebind(query), value); err != nil {
		return nil, fmt.Errorf("select %s by %s: %w", t.name, field, err)
	}
	return rows, nil
}
