package model

// Contact is the JSON representation of a contact as exchanged with the REST API, including its
// email addresses and phone numbers. Search results carry no lists; a single contact always
// carries both, empty ones as [].
type Contact struct {
	Id        int64   `json:"id"`
	FirstName string  `json:"firstname"`
	LastName  string  `json:"lastname"`
	Emails    []Email `json:"emails,omitzero"`
	Phones    []Phone `json:"phones,omitzero"`
}

// Email is an email address of a contact. The id is omitted for addresses that were not yet
// stored.
type Email struct {
	Id    int64  `json:"id,omitempty"`
	Type  string `json:"type"`
	Email string `json:"email"`
}

// Phone is a phone number of a contact.
type Phone struct {
	Id    int64  `json:"id,omitempty"`
	Type  string `json:"type"`
	Phone string `json:"phone"`
}
