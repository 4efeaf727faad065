package main

import (
	"context"
	"log"
	"os"
	"sort"
	"time"

	"github.com/park285/primordia/internal/apiclient"
)

func main() {
	baseURL := os.Getenv("PRIMORDIA_BASE_URL")
	if baseURL == "" {
		log.Fatal("PRIMORDIA_BASE_URL is required")
	}

	client := apiclient.NewClient(baseURL, apiclient.WithTimeout(8*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	st, err := client.Health(ctx)
	if err != nil {
		log.Fatalf("/healthz error: %v", err)
	}
	log.Printf("/healthz ok: status=%s realm=%s at=%s", st.Status, st.Realm, st.Timestamp.Format(time.RFC3339))

	names := make([]string, 0, len(st.Components))
	for name := range st.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	failed := false
	for _, name := range names {
		log.Printf("  %s: %s", name, st.Components[name])
		if st.Components[name] != "ok" {
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}
