package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	api "gitlab.com/dirk.krummacker/contacts-store/pkg/model"
)

// Measures the average duration in microseconds of POST, PUT, GET and GET emails requests against
// a running contacts service.
//
// Usage example on the command line:
// > go run main.go -port=8080
func main() {
	portPtr := flag.Int("port", 8080, "the port of the contacts service")
	flag.Parse()
	baseURL := fmt.Sprintf("http://localhost:%d/contacts", *portPtr)

	fmt.Println()
	fmt.Println("  Elements      POST       PUT       GET    EMAILS ")
	fmt.Println("---------------------------------------------------")
	sizes := []int{1000, 5000, 10000, 50000}
	jsonBody := []byte(`{
		"firstname": "Marcus",
		"lastname": "Antonius",
		"emails": [
			{"type": "work", "email": "marcus@senate.example"},
			{"type": "home", "email": "marcus@alexandria.example"}
		],
		"phones": [{"type": "home", "phone": "+39 999 777 555"}]
	}`)
	putBody := []byte(`{
		"emails": [{"type": "work", "email": "antonius@senate.example"}],
		"phones": [{"type": "mobile", "phone": "+39 555 777 999"}]
	}`)
	for _, loops := range sizes {
		ids := make([]int64, 0, loops)
		fmt.Printf("%10d", loops)
		{
			// POST requests
			var duration int64
			for i := 0; i < loops; i++ {
				id, d := sendPostRequest(baseURL, bytes.NewReader(jsonBody))
				ids = append(ids, id)
				duration += d
			}
			fmt.Printf("%10d", duration/int64(loops*1000))
		}
		{
			// PUT requests
			f := func(id int64) int64 {
				return sendRequestForID(baseURL, id, "", http.MethodPut, bytes.NewReader(putBody))
			}
			callInLoop(ids, f)
		}
		{
			// GET requests
			f := func(id int64) int64 {
				return sendRequestForID(baseURL, id, "", http.MethodGet, nil)
			}
			callInLoop(ids, f)
		}
		{
			// GET emails requests
			f := func(id int64) int64 {
				return sendRequestForID(baseURL, id, "/emails", http.MethodGet, nil)
			}
			callInLoop(ids, f)
		}
		fmt.Println()
	}
}

// callInLoop calls f for every id in random order and prints the average duration.
func callInLoop(ids []int64, f func(id int64) int64) {
	shuffled := append([]int64(nil), ids...)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	var duration int64
	for _, id := range shuffled {
		duration += f(id)
	}
	fmt.Printf("%10d", duration/int64(len(ids)*1000))
}

func sendPostRequest(baseURL string, bodyReader io.Reader) (int64, int64) {
	resBody, duration := sendRequest(http.MethodPost, baseURL, bodyReader)
	var contact api.Contact
	err := json.Unmarshal(resBody, &contact)
	if err != nil {
		fmt.Println("could not unmarshal JSON", err)
		panic(err)
	}
	return contact.Id, duration
}

func sendRequestForID(baseURL string, id int64, suffix string, method string, bodyReader io.Reader) int64 {
	requestURL := fmt.Sprintf("%s/%d%s", baseURL, id, suffix)
	_, duration := sendRequest(method, requestURL, bodyReader)
	return duration
}

func sendRequest(method string, requestURL string, bodyReader io.Reader) ([]byte, int64) {
	req, err := http.NewRequest(method, requestURL, bodyReader)
	if err != nil {
		fmt.Println("could not create request", err)
		panic(err)
	}
	before := time.Now().UnixNano()
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Println("error making http request", err)
		panic(err)
	}
	resBody, err := io.ReadAll(res.Body)
	res.Body.Close()
	if err != nil {
		fmt.Println("could not read response body", err)
		panic(err)
	}
	after := time.Now().UnixNano()
	return resBody, after - before
}
