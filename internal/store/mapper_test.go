package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/dirk.krummacker/contacts-store/internal/model"
)

// saveContacts stores a contact for each pair of first and last name and returns their keys.
func saveContacts(t *testing.T, s *Store, names ...[2]string) []int64 {
	t.Helper()
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		id, err := s.NewContact(name[0], name[1]).Save(context.Background())
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func contactIds(contacts []*Contact) []int64 {
	ids := make([]int64, 0, len(contacts))
	for _, c := range contacts {
		ids = append(ids, *c.Id)
	}
	return ids
}

// TestGetContactUnknownId expects ErrNotFound for a key that was never assigned.
func TestGetContactUnknownId(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetContact(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestFindContactsByPrefix searches by the beginning of first and last name.
func TestFindContactsByPrefix(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	ids := saveContacts(t, s,
		[2]string{"Julius", "Cäsar"},
		[2]string{"Marc", "Anton"},
		[2]string{"Julia", "Augusta"},
	)

	found, err := s.FindContacts(ctx, ContactQuery{FirstName: "Jul"})
	require.NoError(t, err)
	assert.Equal(t, []int64{ids[0], ids[2]}, contactIds(found))

	found, err = s.FindContacts(ctx, ContactQuery{FirstName: "Jul", LastName: "Cä"})
	require.NoError(t, err)
	assert.Equal(t, []int64{ids[0]}, contactIds(found))

	found, err = s.FindContacts(ctx, ContactQuery{LastName: "Nobody"})
	require.NoError(t, err)
	assert.Empty(t, found)
}

// TestFindContactsOrdered checks ordering, limit and offset.
func TestFindContactsOrdered(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	ids := saveContacts(t, s,
		[2]string{"Anton", "Miller"},
		[2]string{"Zacharias", "Miller"},
		[2]string{"Michael", "Miller"},
	)

	found, err := s.FindContacts(ctx, ContactQuery{OrderBy: "firstname"})
	require.NoError(t, err)
	assert.Equal(t, []int64{ids[0], ids[2], ids[1]}, contactIds(found))

	found, err = s.FindContacts(ctx, ContactQuery{OrderBy: "firstname", Descending: true})
	require.NoError(t, err)
	assert.Equal(t, []int64{ids[1], ids[2], ids[0]}, contactIds(found))

	found, err = s.FindContacts(ctx, ContactQuery{Descending: true, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{ids[2], ids[1]}, contactIds(found))

	found, err = s.FindContacts(ctx, ContactQuery{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, []int64{ids[1]}, contactIds(found))
}

// TestFindContactsInvalidQuery rejects parameters that cannot be turned into SQL.
func TestFindContactsInvalidQuery(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.FindContacts(ctx, ContactQuery{OrderBy: "phone; DROP TABLE contacts"})
	assert.ErrorIs(t, err, ErrInvalidQuery)
	_, err = s.FindContacts(ctx, ContactQuery{Limit: -1})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

// TestReadPathsReturnBoundContacts expects that contacts from every read path can be saved and
// loaded directly.
func TestReadPathsReturnBoundContacts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	ids := saveContacts(t, s, [2]string{"Erika", "Mustermann"})

	all, err := s.AllContacts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	all[0].Phones = []model.PhoneNumber{{Type: "home", Phone: "+49 0815 4711"}}
	_, err = all[0].Save(ctx)
	require.NoError(t, err)

	found, err := s.FindContacts(ctx, ContactQuery{LastName: "Muster"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.NoError(t, found[0].LoadNavigationProperties(ctx))
	assert.Len(t, found[0].Phones, 1)

	got, err := s.GetContact(ctx, ids[0])
	require.NoError(t, err)
	got.LastName = "Musterfrau"
	_, err = got.Save(ctx)
	require.NoError(t, err)

	again, err := s.GetContact(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "Musterfrau", again.LastName)
	require.NoError(t, again.LoadNavigationProperties(ctx))
	assert.Len(t, again.Phones, 1)
}

// TestChildLookupByIndexedField looks up emails and phones by their indexed fields.
func TestChildLookupByIndexedField(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	contact := s.NewContact("Dirk", "Krummacker")
	contact.Emails = []model.EmailAddress{
		{Type: "work", Email: "dirk@work.example"},
		{Type: "home", Email: "dirk@home.example"},
	}
	contact.Phones = []model.PhoneNumber{{Type: "mobile", Phone: "+420 123 456 789"}}
	_, err := contact.Save(ctx)
	require.NoError(t, err)

	work, err := s.EmailsWhere(ctx, "type", "work")
	require.NoError(t, err)
	require.Len(t, work, 1)
	assert.Equal(t, "dirk@work.example", work[0].Email)

	phones, err := s.PhonesWhere(ctx, "phone", "+420 123 456 789")
	require.NoError(t, err)
	require.Len(t, phones, 1)
	assert.Equal(t, *contact.Id, phones[0].ContactId)

	_, err = s.EmailsWhere(ctx, "id", 1)
	assert.ErrorIs(t, err, ErrInvalidQuery)
	_, err = s.PhonesWhere(ctx, "email", "dirk@work.example")
	assert.ErrorIs(t, err, ErrInvalidQuery)
}
