package model

// Contact is the persisted row of a person that we know. It deliberately has no email or phone
// fields: those live in their own tables and are attached in memory by the store.
type Contact struct {
	Id        *int64 `json:"id,omitempty" db:"id"`
	FirstName string `json:"firstname"    db:"firstname"`
	LastName  string `json:"lastname"     db:"lastname"`
}

// EmailAddress is a row of the emails table. ContactId refers to Contact.Id, but the database
// does not enforce that relationship.
type EmailAddress struct {
	Id        *int64 `json:"id,omitempty" db:"id"`
	ContactId int64  `json:"contactid"    db:"contactid"`
	Type      string `json:"type"         db:"type"`
	Email     string `json:"email"        db:"email"`
}

// PhoneNumber is a row of the phones table.
type PhoneNumber struct {
	Id        *int64 `json:"id,omitempty" db:"id"`
	ContactId int64  `json:"contactid"    db:"contactid"`
	Type      string `json:"type"         db:"type"`
	Phone     string `json:"phone"        db:"phone"`
}

// Key returns a pointer to a copy of id, for filling the optional Id fields.
func Key(id int64) *int64 {
	return &id
}
