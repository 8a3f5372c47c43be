package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/jmoiron/sqlx"
	"gitlab.com/dirk.krummacker/contacts-store/internal/model"
	"golang.org/x/sync/errgroup"
)

// Contact is a contact together with its email addresses and phone numbers. Only the embedded
// row is stored in the contacts table; Emails and Phones are kept in their own tables and are
// filled by LoadNavigationProperties.
type Contact struct {
	model.Contact
	Emails []model.EmailAddress
	Phones []model.PhoneNumber

	store *Store
}

// LoadNavigationProperties replaces Emails and Phones with the rows stored for this contact.
// Both lists are queried concurrently. If either query fails, neither field is changed.
func (c *Contact) LoadNavigationProperties(ctx context.Context) error {
	if c.store == nil {
		return fmt.Errorf("load navigation properties: %w: contact is not bound to a store", ErrInvalidState)
	}
	if c.Id == nil {
		return fmt.Errorf("load navigation properties: %w: contact has no id", ErrInvalidState)
	}
	id := *c.Id

	var emails []model.EmailAddress
	var phones []model.PhoneNumber
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		emails, err = selectWhere[model.EmailAddress](gctx, c.store.db, emailsTable, "contactid", id)
		return err
	})
	g.Go(func() error {
		var err error
		phones, err = selectWhere[model.PhoneNumber](gctx, c.store.db, phonesTable, "contactid", id)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load navigation properties of contact %d: %w", id, err)
	}
	c.Emails, c.Phones = emails, phones
	return nil
}

// Save writes the contact and reconciles its child tables in one transaction: afterwards the
// emails and phones tables hold exactly the entries of Emails and Phones for this contact. Rows
// of the contact that are no longer in the lists are deleted. It returns the contact's key.
//
// The contact and its children only receive their new keys after the transaction committed. On
// failure the database and the in-memory contact are unchanged and the returned error wraps
// ErrTransactionAborted. A contact that is not bound to a store, or whose emails or phones share
// a key, is rejected with ErrInvalidState before anything is written.
func (c *Contact) Save(ctx context.Context) (int64, error) {
	if c.store == nil {
		return 0, fmt.Errorf("save contact: %w: contact is not bound to a store", ErrInvalidState)
	}
	if id, ok := duplicateKey(c.Emails, func(e model.EmailAddress) *int64 { return e.Id }); ok {
		return 0, fmt.Errorf("save contact: %w: email %d listed twice", ErrInvalidState, id)
	}
	if id, ok := duplicateKey(c.Phones, func(p model.PhoneNumber) *int64 { return p.Id }); ok {
		return 0, fmt.Errorf("save contact: %w: phone %d listed twice", ErrInvalidState, id)
	}

	row := c.Contact
	emails := slices.Clone(c.Emails)
	phones := slices.Clone(c.Phones)

	err := c.store.Transaction(ctx, func(tx *sqlx.Tx) error {
		// A new contact needs its key before the children can refer to it.
		inserted := false
		if row.Id == nil {
			id, err := putContact(ctx, tx, row)
			if err != nil {
				return err
			}
			row.Id = model.Key(id)
			inserted = true
		}
		contactId := *row.Id
		for i := range emails {
			emails[i].ContactId = contactId
		}
		for i := range phones {
			phones[i].ContactId = contactId
		}

		var emailIds, phoneIds []int64
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			emailIds, err = putEmails(gctx, tx, emails)
			return err
		})
		g.Go(func() error {
			var err error
			phoneIds, err = putPhones(gctx, tx, phones)
			return err
		})
		if err := g.Wait(); err != nil {
			return err
		}

		g, gctx = errgroup.WithContext(ctx)
		g.Go(func() error {
			_, err := prune(gctx, tx, emailsTable, contactId, emailIds)
			return err
		})
		g.Go(func() error {
			_, err := prune(gctx, tx, phonesTable, contactId, phoneIds)
			return err
		})
		if err := g.Wait(); err != nil {
			return err
		}

		for i, id := range emailIds {
			emails[i].Id = model.Key(id)
		}
		for i, id := range phoneIds {
			phones[i].Id = model.Key(id)
		}
		if inserted {
			return nil
		}
		_, err := putContact(ctx, tx, row)
		return err
	})
	if err != nil {
		c.store.logger.Warn("save contact failed", "error", err)
		return 0, fmt.Errorf("save contact: %w: %w", ErrTransactionAborted, err)
	}

	c.Contact, c.Emails, c.Phones = row, emails, phones
	c.store.logger.Debug("contact saved", "id", *row.Id, "emails", len(emails), "phones", len(phones))
	return *row.Id, nil
}

// duplicateKey reports the first key that occurs more than once in rows. Rows without a key are
// new and never collide.
func duplicateKey[T any](rows []T, key func(T) *int64) (int64, bool) {
	seen := make(map[int64]struct{}, len(rows))
	for _, row := range rows {
		id := key(row)
		if id == nil {
			continue
		}
		if _, ok := seen[*id]; ok {
			return *id, true
		}
		seen[*id] = struct{}{}
	}
	return 0, false
}

// TODO: contact deletion. Decide whether removing a contact also removes its emails and phones
// in the same transaction before adding a delete operation.
