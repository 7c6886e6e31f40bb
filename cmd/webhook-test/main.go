// Local receiver for exercising the location webhook pipeline
// end to end. Prints every delivery it gets.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	webhookURL := os.Getenv("WEBHOOK_URL")
	if webhookURL == "" {
		webhookURL = "http://localhost:3000/webhook"
	}

	parsed, err := url.Parse(webhookURL)
	if err != nil {
		log.Fatalf("Invalid target URL: %v", err)
	}

	addr := parsed.Host
	path := parsed.Path

	http.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			log.Printf("Error reading body: %v", err)
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		var payload map[string]interface{}
		if err := json.Unmarshal(body, &payload); err != nil {
			log.Printf("Invalid JSON: %v", err)
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}

		fmt.Printf("Received webhook:\n")
		fmt.Printf("  Event type: %s\n", r.Header.Get("X-Event-Type"))
		fmt.Printf("  Idempotency key: %s\n", r.Header.Get("Idempotency-Key"))
		fmt.Printf("  Payload: %v\n", payload)
		fmt.Println("---")

		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	server := &http.Server{Addr: addr}
	go func() {
		log.Println("Webhook test server started on ", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	<-c
	log.Println("Shutting down...")
	server.Close()
}
