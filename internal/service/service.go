package service

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gitlab.com/dirk.krummacker/contacts-store/internal/model"
	"gitlab.com/dirk.krummacker/contacts-store/internal/store"
	api "gitlab.com/dirk.krummacker/contacts-store/pkg/model"
)

// contacts is a handle to the contacts store.
var contacts *store.Store

// logger is used for errors that end in an internal server error.
var logger = slog.Default().With("component", "service")

// allowedOrderby are the allowed values for the 'orderby' URL parameter.
var allowedOrderby = []string{"id", "firstname", "lastname"}

// allowedAscending are the allowed values for the 'ascending' URL parameter.
var allowedAscending = []string{"true", "false"}

// contactUpdate is the request body of a PUT. Fields that are omitted keep their stored value;
// a given list replaces all stored entries of that kind, so an empty list removes them.
type contactUpdate struct {
	FirstName *string      `json:"firstname"`
	LastName  *string      `json:"lastname"`
	Emails    *[]api.Email `json:"emails"`
	Phones    *[]api.Phone `json:"phones"`
}

// SetupStore sets the store all handlers work on. The store can be backed by a real database
// for production use or by an in-memory database within tests.
func SetupStore(s *store.Store, l *slog.Logger) {
	contacts = s
	if l != nil {
		logger = l.With("component", "service")
	}
}

// SetupHttpRouter initializes the REST API router and registers all endpoints. HTTP request
// logging is turned off if ginLogging is false.
func SetupHttpRouter(ginLogging bool) *gin.Engine {
	var router *gin.Engine
	if ginLogging {
		router = gin.Default()
	} else {
		logger.Info("turning off HTTP request logging")
		router = gin.New()
		router.Use(gin.Recovery())
	}
	router.GET("/contacts", findContacts)
	router.POST("/contacts", createContact)
	router.GET("/contacts/:id", findContactByID)
	router.PUT("/contacts/:id", updateContactByID)
	router.GET("/contacts/:id/emails", findEmailsByContactID)
	router.GET("/contacts/:id/phones", findPhonesByContactID)
	return router
}

// findContacts responds with a list of contacts as JSON. Emails and phones are not included.
//
// The URL parameters 'firstname' and 'lastname' are interpreted as the beginning of the first name
// or last name of the contact.
//
// The URL parameter 'limit' specifies how many contacts matching the search criteria are returned.
// The URL parameter 'offset' specifies how many items from the sorted list of results are skipped
// in the beginning. Together with the 'limit' parameter, one can implement search result paging.
//
// The URL parameter 'orderby' specifies the contact property by which the results shall be sorted.
// Valid values are 'id', 'firstname' and 'lastname'. If this URL parameter is not specified, the
// contacts will be sorted by id.
//
// If the URL parameter 'ascending' is set to 'false' then the sort order is reversed, starting
// with the 'highest' value. If it is set to 'true', or if this URL parameter is omitted, the
// result starts with the lowest value.
//
// REST API calls:
//
//	> curl "http://localhost:8080/contacts"
//	> curl "http://localhost:8080/contacts?firstname=Ji"
//	> curl "http://localhost:8080/contacts?lastname=Smi"
//	> curl "http://localhost:8080/contacts?limit=20&offset=60"
//	> curl "http://localhost:8080/contacts?orderby=lastname&ascending=false"
func findContacts(c *gin.Context) {
	limit, offset, successLimitAndOffset := parseLimitAndOffset(c)
	if !successLimitAndOffset {
		return
	}
	orderby, descending, successOrderbyAndAscending := parseOrderbyAndAscending(c)
	if !successOrderbyAndAscending {
		return
	}
	found, err := contacts.FindContacts(c.Request.Context(), store.ContactQuery{
		FirstName:  c.Query("firstname"),
		LastName:   c.Query("lastname"),
		Limit:      limit,
		Offset:     offset,
		OrderBy:    orderby,
		Descending: descending,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	if len(found) == 0 {
		c.IndentedJSON(http.StatusNotFound, gin.H{"message": "contact not found"})
		return
	}
	result := make([]api.Contact, 0, len(found))
	for _, contact := range found {
		result = append(result, toAPI(contact))
	}
	c.IndentedJSON(http.StatusOK, result)
}

// parseLimitAndOffset inspects the URL parameters and determines values for limit and offset of
// the result set. A limit of 0 means no limit.
func parseLimitAndOffset(c *gin.Context) (limit int, offset int, success bool) {
	if s := c.Query("limit"); s != "" {
		var errConv error
		limit, errConv = strconv.Atoi(s)
		if errConv != nil || limit < 1 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid limit parameter"})
			return 0, 0, false
		}
	}
	if s := c.Query("offset"); s != "" {
		var errConv error
		offset, errConv = strconv.Atoi(s)
		if errConv != nil || offset < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid offset parameter"})
			return 0, 0, false
		}
	}
	return limit, offset, true
}

// parseOrderbyAndAscending inspects the URL parameters and determines values for the orderby and
// ascending values of the result set.
func parseOrderbyAndAscending(c *gin.Context) (orderby string, descending bool, success bool) {
	orderby = c.Query("orderby")
	if orderby == "" {
		orderby = "id"
	}
	if !contains(allowedOrderby, orderby) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid orderby parameter"})
		return "", false, false
	}
	ascending := c.Query("ascending")
	if ascending == "" {
		ascending = "true"
	}
	if !contains(allowedAscending, ascending) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid ascending parameter"})
		return orderby, false, false
	}
	return orderby, ascending == "false", true
}

// contains returns true if a string is present in a slice.
func contains(slice []string, str string) bool {
	for _, v := range slice {
		if v == str {
			return true
		}
	}
	return false
}

// createContact saves the contact specified in the request's JSON, together with its emails and
// phones. It responds with the full contact data including the newly assigned ids.
//
// Example REST API call:
//
//	> curl http://localhost:8080/contacts --request "POST" --include --header "Content-Type: application/json" --data '{"firstname": "Hans", "lastname": "Wurst", "emails": [{"type": "home", "email": "hans@example.com"}]}'
func createContact(c *gin.Context) {
	var submitted api.Contact
	if err := c.BindJSON(&submitted); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
		return
	}
	contact := contacts.NewContact(submitted.FirstName, submitted.LastName)
	contact.Emails = fromAPIEmails(submitted.Emails)
	contact.Phones = fromAPIPhones(submitted.Phones)
	// A new contact owns no rows yet.
	for i := range contact.Emails {
		contact.Emails[i].Id = nil
	}
	for i := range contact.Phones {
		contact.Phones[i].Id = nil
	}
	if _, err := contact.Save(c.Request.Context()); err != nil {
		abortWithError(c, err)
		return
	}
	c.IndentedJSON(http.StatusCreated, toAPI(contact))
}

// loadContact looks up the contact addressed by the id parameter of the request URL together
// with its emails and phones. It aborts the request and returns false if that is not possible.
func loadContact(c *gin.Context) (*store.Contact, bool) {
	id, errConv := strconv.ParseInt(c.Param("id"), 10, 64)
	if errConv != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "invalid id parameter"})
		return nil, false
	}
	contact, err := contacts.GetContact(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return nil, false
	}
	if err := contact.LoadNavigationProperties(c.Request.Context()); err != nil {
		abortWithError(c, err)
		return nil, false
	}
	return contact, true
}

// findContactByID locates the contact whose ID value matches the id parameter of the request URL,
// then returns that contact with its emails and phones as a response.
//
// Example REST API call:
//
//	> curl http://localhost:8080/contacts/56
func findContactByID(c *gin.Context) {
	contact, ok := loadContact(c)
	if !ok {
		return
	}
	c.IndentedJSON(http.StatusOK, toAPI(contact))
}

// findEmailsByContactID responds with the email addresses of a contact.
//
// Example REST API call:
//
//	> curl http://localhost:8080/contacts/56/emails
func findEmailsByContactID(c *gin.Context) {
	contact, ok := loadContact(c)
	if !ok {
		return
	}
	c.IndentedJSON(http.StatusOK, toAPI(contact).Emails)
}

// findPhonesByContactID responds with the phone numbers of a contact.
//
// Example REST API call:
//
//	> curl http://localhost:8080/contacts/56/phones
func findPhonesByContactID(c *gin.Context) {
	contact, ok := loadContact(c)
	if !ok {
		return
	}
	c.IndentedJSON(http.StatusOK, toAPI(contact).Phones)
}

// updateContactByID updates the contact whose ID value matches the id parameter of the request
// URL with the values specified in the JSON (and only those), and finally responds with the new
// version of the contact. A given 'emails' or 'phones' list replaces the stored one.
//
// Example REST API calls:
//
//	> curl http://localhost:8080/contacts/56 --request "PUT" --include --header "Content-Type: application/json" --data '{"lastname": "Völler"}'
//	> curl http://localhost:8080/contacts/56 --request "PUT" --include --header "Content-Type: application/json" --data '{"phones": [{"type": "work", "phone": "81970"}]}'
func updateContactByID(c *gin.Context) {
	if _, errConv := strconv.ParseInt(c.Param("id"), 10, 64); errConv != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "invalid id parameter"})
		return
	}

	var submitted contactUpdate
	if errBind := c.BindJSON(&submitted); errBind != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
		return
	}
	// It only makes sense to continue if we have at least one value to update.
	if submitted.FirstName == nil && submitted.LastName == nil && submitted.Emails == nil && submitted.Phones == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "no values to be updated"})
		return
	}

	contact, ok := loadContact(c)
	if !ok {
		return
	}
	if submitted.FirstName != nil {
		contact.FirstName = *submitted.FirstName
	}
	if submitted.LastName != nil {
		contact.LastName = *submitted.LastName
	}
	// Ids that do not belong to this contact are treated as new entries, so that a request cannot
	// take over the rows of another contact.
	if submitted.Emails != nil {
		owned := make(map[int64]bool, len(contact.Emails))
		for _, e := range contact.Emails {
			owned[*e.Id] = true
		}
		contact.Emails = fromAPIEmails(*submitted.Emails)
		for i, e := range contact.Emails {
			if e.Id != nil && !owned[*e.Id] {
				contact.Emails[i].Id = nil
			}
		}
	}
	if submitted.Phones != nil {
		owned := make(map[int64]bool, len(contact.Phones))
		for _, p := range contact.Phones {
			owned[*p.Id] = true
		}
		contact.Phones = fromAPIPhones(*submitted.Phones)
		for i, p := range contact.Phones {
			if p.Id != nil && !owned[*p.Id] {
				contact.Phones[i].Id = nil
			}
		}
	}
	if _, err := contact.Save(c.Request.Context()); err != nil {
		abortWithError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, toAPI(contact))
}

// abortWithError translates a store error into the matching HTTP status code.
func abortWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "contact not found"})
	case errors.Is(err, store.ErrInvalidState), errors.Is(err, store.ErrInvalidQuery):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	default:
		logger.Error("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
	}
}

// toAPI converts a stored contact into its JSON representation. Lists that were loaded are
// non-nil, so that they appear in the JSON even when empty.
func toAPI(contact *store.Contact) api.Contact {
	result := api.Contact{
		FirstName: contact.FirstName,
		LastName:  contact.LastName,
	}
	if contact.Id != nil {
		result.Id = *contact.Id
	}
	if contact.Emails != nil {
		result.Emails = make([]api.Email, 0, len(contact.Emails))
	}
	if contact.Phones != nil {
		result.Phones = make([]api.Phone, 0, len(contact.Phones))
	}
	for _, e := range contact.Emails {
		email := api.Email{Type: e.Type, Email: e.Email}
		if e.Id != nil {
			email.Id = *e.Id
		}
		result.Emails = append(result.Emails, email)
	}
	for _, p := range contact.Phones {
		phone := api.Phone{Type: p.Type, Phone: p.Phone}
		if p.Id != nil {
			phone.Id = *p.Id
		}
		result.Phones = append(result.Phones, phone)
	}
	return result
}

// fromAPIEmails converts submitted emails into rows. An id of 0 marks a new entry.
func fromAPIEmails(emails []api.Email) []model.EmailAddress {
	rows := make([]model.EmailAddress, 0, len(emails))
	for _, e := range emails {
		row := model.EmailAddress{Type: e.Type, Email: e.Email}
		if e.Id != 0 {
			row.Id = model.Key(e.Id)
		}
		rows = append(rows, row)
	}
	return rows
}

// fromAPIPhones converts submitted phones into rows. An id of 0 marks a new entry.
func fromAPIPhones(phones []api.Phone) []model.PhoneNumber {
	rows := make([]model.PhoneNumber, 0, len(phones))
	for _, p := range phones {
		row := model.PhoneNumber{Type: p.Type, Phone: p.Phone}
		if p.Id != 0 {
			row.Id = model.Key(p.Id)
		}
		rows = append(rows, row)
	}
	return rows
}
