// inference-stub is a local stand-in for the remote classification service,
// for development and manual testing without GPUs. It speaks the inference
// contract (POST {text} -> {label, confidence}) and can simulate cold starts.
package main

import (
	"encoding/json"
	"hash/fnv"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
)

type textRequest struct {
	Text string `json:"text"`
}

func main() {
	model := os.Getenv("MODEL_ID")
	if strings.TrimSpace(model) == "" {
		model = "verinews-roberta"
	}
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8000"
	}
	// Number of requests to reject with a loading error before warming up.
	coldStarts, _ := strconv.Atoi(os.Getenv("COLD_STARTS"))

	var served int64

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "online", "model": model})
	})
	mux.HandleFunc("/predict_text", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		w.Header().Set("Content-Type", "application/json")

		if n := atomic.AddInt64(&served, 1); int(n) <= coldStarts {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error":          "Model " + model + " is currently loading",
				"estimated_time": 20.0,
			})
			return
		}

		var req textRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Text) == "" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": "text cannot be empty"})
			return
		}

		// Deterministic pseudo-verdict so repeated runs are reproducible.
		h := fnv.New32a()
		_, _ = h.Write([]byte(req.Text))
		label := "REAL"
		if h.Sum32()%2 == 1 {
			label = "FAKE"
		}
		confidence := 0.60 + float64(h.Sum32()%40)/100.0

		_ = json.NewEncoder(w).Encode(map[string]any{
			"label":      label,
			"confidence": confidence,
		})
	})

	log.Printf("inference-stub serving %s on %s (cold starts: %d)", model, addr, coldStarts)
	log.Fatal(http.ListenAndServe(addr, mux))
}
