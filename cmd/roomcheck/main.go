// roomcheck probes a running room server: /healthz must answer ok and /stats
// is printed for inspection. Exits non-zero on failure.
package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

func main() {
	baseURL := strings.TrimRight(os.Getenv("ROOM_SERVER_URL"), "/")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8080"
	}

	client := &fasthttp.Client{
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	body, err := get(client, baseURL+"/healthz")
	if err != nil {
		log.Fatalf("/healthz error: %v", err)
	}
	if !strings.Contains(string(body), "ok") {
		log.Fatalf("/healthz unexpected body: %s", body)
	}
	fmt.Printf("/healthz ok\n")

	body, err = get(client, baseURL+"/stats")
	if err != nil {
		log.Fatalf("/stats error: %v", err)
	}
	fmt.Printf("/stats: %s\n", strings.TrimSpace(string(body)))
}

func get(client *fasthttp.Client, url string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	if err := client.DoTimeout(req, resp, 5*time.Second); err != nil {
		return nil, err
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode())
	}
	out := make([]byte, len(resp.Body()))
	copy(out, resp.Body())
	return out, nil
}
