package main

import (
	"flag"
	"fmt"
	"net/http"
	"time"
)

// Polls the contacts service until it answers. Both OK and NOT FOUND count as available, since an
// empty database answers the contacts list with NOT FOUND.
//
// Usage example on the command line:
// > go run main.go -url=http://localhost:8080/contacts -interval=5s
func main() {
	urlPtr := flag.String("url", "http://localhost:8080/contacts", "the URL to poll")
	intervalPtr := flag.Duration("interval", 5*time.Second, "the time between two attempts")
	flag.Parse()

	var totalWaitTime time.Duration
	for {
		res, err := http.Get(*urlPtr)
		if err == nil {
			res.Body.Close()
			fmt.Println(res.Status)
			if res.StatusCode == http.StatusOK || res.StatusCode == http.StatusNotFound {
				break
			}
		} else {
			fmt.Println(err)
		}
		totalWaitTime += *intervalPtr
		fmt.Printf("Waiting %s\n", totalWaitTime)
		time.Sleep(*intervalPtr)
	}
}
