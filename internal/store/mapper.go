package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"gitlab.com/dirk.krummacker/contacts-store/internal/model"
)

// maxInt is the largest possible int value
const maxInt = int(^uint(0) >> 1)

// allowedOrderBy are the contact columns results can be sorted by.
var allowedOrderBy = []string{"id", "firstname", "lastname"}

// ContactQuery narrows down the contacts returned by FindContacts. The zero value returns all
// contacts sorted by id.
type ContactQuery struct {
	// FirstName and LastName are matched as prefixes.
	FirstName string
	LastName  string

	// Limit is the maximum number of results; 0 means no limit.
	Limit  int
	Offset int

	// OrderBy is one of "id", "firstname", "lastname". Empty means "id".
	OrderBy    string
	Descending bool
}

// newContact wraps a row read from the contacts table so that it can be saved and its children
// loaded. Every read path of the contacts table goes through here.
func newContact(s *Store, row model.Contact) *Contact {
	return &Contact{Contact: row, store: s}
}

// NewContact creates an unsaved contact bound to the store.
func (s *Store) NewContact(firstName string, lastName string) *Contact {
	return newContact(s, model.Contact{FirstName: firstName, LastName: lastName})
}

// GetContact returns the contact with the given id, without its emails and phones.
func (s *Store) GetContact(ctx context.Context, id int64) (*Contact, error) {
	var row model.Contact
	err := s.db.GetContext(ctx, &row, s.db.Rebind("SELECT * FROM contacts WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get contact %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get contact %d: %w", id, err)
	}
	return newContact(s, row), nil
}

// FindContacts returns the contacts matching q.
func (s *Store) FindContacts(ctx context.Context, q ContactQuery) ([]*Contact, error) {
	orderBy := q.OrderBy
	if orderBy == "" {
		orderBy = "id"
	}
	if !slices.Contains(allowedOrderBy, orderBy) {
		return nil, fmt.Errorf("%w: cannot order by %q", ErrInvalidQuery, q.OrderBy)
	}
	if q.Limit < 0 || q.Offset < 0 {
		return nil, fmt.Errorf("%w: negative limit or offset", ErrInvalidQuery)
	}
	direction := "ASC"
	if q.Descending {
		direction = "DESC"
	}
	limit := q.Limit
	if limit == 0 {
		limit = maxInt
	}

	query := fmt.Sprintf(`
		SELECT *
		FROM contacts
		WHERE firstname LIKE ?
			AND lastname LIKE ?
		ORDER BY %s %s
		LIMIT ?
		OFFSET ?`, orderBy, direction)
	var rows []model.Contact
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), q.FirstName+"%", q.LastName+"%", limit, q.Offset)
	if err != nil {
		return nil, fmt.Errorf("find contacts: %w", err)
	}
	contacts := make([]*Contact, 0, len(rows))
	for _, row := range rows {
		contacts = append(contacts, newContact(s, row))
	}
	return contacts, nil
}

// AllContacts returns every contact sorted by id.
func (s *Store) AllContacts(ctx context.Context) ([]*Contact, error) {
	return s.FindContacts(ctx, ContactQuery{})
}

// EmailsWhere returns the email rows whose field equals value. field must be one of the indexed
// fields "contactid", "type" and "email".
func (s *Store) EmailsWhere(ctx context.Context, field string, value any) ([]model.EmailAddress, error) {
	return selectWhere[model.EmailAddress](ctx, s.db, emailsTable, field, value)
}

// PhonesWhere returns the phone rows whose field equals value. field must be one of the indexed
// fields "contactid", "type" and "phone".
func (s *Store) PhonesWhere(ctx context.Context, field string, value any) ([]model.PhoneNumber, error) {
	return selectWhere[model.PhoneNumber](ctx, s.db, phonesTable, field, value)
}
