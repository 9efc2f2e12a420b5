package main

import (
	"net/http"
	"os"
)

// Exits non-zero unless the local server has a model loaded.
func main() {
	addr := "http://localhost:8080/api/v1/health"
	if len(os.Args) > 1 {
		addr = os.Args[1]
	}
	resp, err := http.Get(addr)
	if err != nil || resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}
