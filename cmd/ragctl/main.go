// Command ragctl is a thin HTTP client for ragd's document and search endpoints.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
)

func main() {
	log.SetFlags(0)
	var (
		addr     = flag.String("addr", envOr("RAGD_ADDR", "http://localhost:8080"), "ragd base URL")
		location = flag.String("location", "", "document location (add mode)")
		title    = flag.String("title", "", "document title (add mode)")
		tenant   = flag.String("tenant", "", "tenant id")
		text     = flag.String("text", "", "query text (search mode) or document content (add mode, unless -stdin)")
		stdin    = flag.Bool("stdin", false, "read document content from STDIN (add mode)")
		search   = flag.Bool("search", false, "run a search instead of adding a document")
		force    = flag.Bool("force", false, "force re-ingestion (add mode)")
	)
	flag.Parse()

	if *search {
		if err := runSearch(*addr, *text, *tenant); err != nil {
			log.Fatalf("search: %v", err)
		}
		return
	}

	content := *text
	if *stdin {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			log.Fatalf("read stdin: %v", err)
		}
		content = string(b)
	}
	if err := runAdd(*addr, *location, *title, *tenant, content, *force); err != nil {
		log.Fatalf("add document: %v", err)
	}
}

func runAdd(addr, location, title, tenant, content string, force bool) error {
	payload, _ := json.Marshal(map[string]any{
		"location": location, "title": title, "tenant": tenant, "content": content, "force": force,
	})
	return post(addr+"/v1/documents", payload)
}

func runSearch(addr, text, tenant string) error {
	payload, _ := json.Marshal(map[string]any{"text": text, "tenant": tenant})
	return post(addr+"/v1/search", payload)
}

func post(url string, payload []byte) error {
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%s: %s", resp.Status, string(body))
	}
	fmt.Println(string(body))
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
