package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mahersayed/supplier-ledger/internal/config"
	"github.com/mahersayed/supplier-ledger/internal/connectivity"
	"github.com/mahersayed/supplier-ledger/internal/events"
	eventskafka "github.com/mahersayed/supplier-ledger/internal/events/kafka"
	"github.com/mahersayed/supplier-ledger/internal/ledger"
	"github.com/mahersayed/supplier-ledger/internal/models"
	"github.com/mahersayed/supplier-ledger/internal/queue"
	"github.com/mahersayed/supplier-ledger/internal/remote"
	remotememory "github.com/mahersayed/supplier-ledger/internal/remote/memory"
	remotepostgres "github.com/mahersayed/supplier-ledger/internal/remote/postgres"
	"github.com/mahersayed/supplier-ledger/internal/remote/rest"
	"github.com/mahersayed/supplier-ledger/internal/repository"
	"github.com/mahersayed/supplier-ledger/internal/storage"
	storagefile "github.com/mahersayed/supplier-ledger/internal/storage/file"
	storagememory "github.com/mahersayed/supplier-ledger/internal/storage/memory"
	storagesqlite "github.com/mahersayed/supplier-ledger/internal/storage/sqlite"
	"github.com/mahersayed/supplier-ledger/internal/syncer"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()

	cache, err := openCache(cfg)
	if err != nil {
		logger.Error("cache store init failed", "error", err)
		os.Exit(1)
	}

	remoteStore, err := openRemote(cfg)
	if err != nil {
		logger.Error("remote store init failed", "error", err)
		os.Exit(1)
	}

	q, err := queue.Open(cache)
	if err != nil {
		logger.Error("mutation queue load failed", "error", err)
		os.Exit(1)
	}
	if n := q.Len(); n > 0 {
		logger.Info("pending mutations loaded from cache", "count", n)
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := eventskafka.NewPublisher(cfg.KafkaBrokers)
		defer kp.Close()
		publisher = kp
	}

	monitor := connectivity.NewMonitor(remoteStore, cfg.ProbeInterval, logger)
	repo := repository.New(remoteStore, cache, q, monitor, logger)
	engine := syncer.New(q, remoteStore, repo, publisher, logger)
	engine.Bind(monitor)
	monitor.Start()
	defer monitor.Stop()

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	http.HandleFunc("/suppliers", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			suppliers, err := repo.FetchSuppliers(r.Context())
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, suppliers)
		case http.MethodPost:
			var req struct {
				Name           string          `json:"name"`
				Phone          string          `json:"phone"`
				OpeningBalance json.RawMessage `json:"opening_balance"`
			}
			if !readJSON(w, r, &req) {
				return
			}
			opening, err := parseAmount(req.OpeningBalance)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			created, err := repo.CreateSupplier(r.Context(), req.Name, req.Phone, opening)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, created)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	http.HandleFunc("/suppliers/summaries", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		suppliers, err := repo.FetchSuppliers(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		transactions, err := repo.FetchTransactions(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ledger.Summaries(suppliers, transactions))
	})

	http.HandleFunc("/suppliers/statement", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		supplierID := r.URL.Query().Get("supplier_id")
		if supplierID == "" {
			http.Error(w, "supplier_id is required", http.StatusBadRequest)
			return
		}
		filter, err := statementFilter(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		suppliers, err := repo.FetchSuppliers(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		var supplier *models.Supplier
		for i := range suppliers {
			if suppliers[i].ID == supplierID {
				supplier = &suppliers[i]
				break
			}
		}
		if supplier == nil {
			http.Error(w, "supplier not found", http.StatusNotFound)
			return
		}
		transactions, err := repo.FetchTransactions(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ledger.ComputeStatement(*supplier, transactions, filter))
	})

	http.HandleFunc("/transactions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			transactions, err := repo.FetchTransactions(r.Context())
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, transactions)
		case http.MethodPost:
			var sub repository.Submission
			if !readJSON(w, r, &sub) {
				return
			}
			created, err := repo.Submit(r.Context(), sub)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, created)
		case http.MethodPatch:
			id, ok := transactionID(w, r)
			if !ok {
				return
			}
			var patch models.TransactionPatch
			if !readJSON(w, r, &patch) {
				return
			}
			if err := repo.UpdateTransaction(r.Context(), id, patch); err != nil {
				writeError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		case http.MethodDelete:
			id, ok := transactionID(w, r)
			if !ok {
				return
			}
			if err := repo.DeleteTransaction(r.Context(), id); err != nil {
				writeError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	http.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			users, err := repo.FetchUsers(r.Context())
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, users)
		case http.MethodPost:
			var req struct {
				Name string `json:"name"`
				Code string `json:"code"`
			}
			if !readJSON(w, r, &req) {
				return
			}
			created, err := repo.CreateUser(r.Context(), req.Name, req.Code)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, created)
		case http.MethodDelete:
			id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
			if err != nil {
				http.Error(w, "id is required", http.StatusBadRequest)
				return
			}
			if err := repo.DeleteUser(r.Context(), id); err != nil {
				writeError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	http.HandleFunc("/settings", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			settings, err := repo.FetchSettings(r.Context())
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, settings)
		case http.MethodPut:
			var settings models.Settings
			if !readJSON(w, r, &settings) {
				return
			}
			if err := repo.SaveSettings(r.Context(), settings); err != nil {
				writeError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	http.HandleFunc("/sync", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !monitor.CheckNow(r.Context()) {
			http.Error(w, "remote store unreachable", http.StatusServiceUnavailable)
			return
		}
		res, err := engine.Sync(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	})

	http.HandleFunc("/sync/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"syncing":   engine.Syncing(),
			"reachable": monitor.Reachable(),
			"pending":   q.Len(),
		})
	})

	http.HandleFunc("/backup", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		b, err := repo.Backup(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
	})

	http.HandleFunc("/restore", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var b models.Backup
		if !readJSON(w, r, &b) {
			return
		}
		if err := repo.Restore(r.Context(), b); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	http.HandleFunc("/reset", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := repo.Reset(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	logger.Info("server starting", "port", cfg.Port, "env", cfg.Env,
		"remote_driver", cfg.RemoteDriver, "cache_driver", cfg.CacheDriver)
	if err := http.ListenAndServe(":"+cfg.Port, nil); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func openCache(cfg *config.Config) (storage.Store, error) {
	switch cfg.CacheDriver {
	case "sqlite":
		return storagesqlite.Open(cfg.CachePath)
	case "file":
		return storagefile.NewStore(cfg.CachePath)
	case "memory":
		return storagememory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.CacheDriver)
	}
}

func openRemote(cfg *config.Config) (remote.Store, error) {
	switch cfg.RemoteDriver {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres remote driver")
		}
		return remotepostgres.Open(cfg.DatabaseURL)
	case "rest":
		if cfg.RemoteURL == "" {
			return nil, fmt.Errorf("REMOTE_URL is required for the rest remote driver")
		}
		return rest.NewClient(cfg.RemoteURL, cfg.RemoteKey), nil
	case "memory":
		return remotememory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown remote driver %q", cfg.RemoteDriver)
	}
}

func statementFilter(r *http.Request) (ledger.Filter, error) {
	var f ledger.Filter
	if from := r.URL.Query().Get("from"); from != "" {
		d, err := models.ParseDate(from)
		if err != nil {
			return f, err
		}
		f.Start = d
	}
	if to := r.URL.Query().Get("to"); to != "" {
		d, err := models.ParseDate(to)
		if err != nil {
			return f, err
		}
		f.End = d
	}
	f.Search = r.URL.Query().Get("q")
	if types := r.URL.Query().Get("types"); types != "" {
		f.Types = make(map[models.TransactionType]bool)
		for _, raw := range strings.Split(types, ",") {
			t := models.TransactionType(strings.TrimSpace(raw))
			if !t.Valid() {
				return f, fmt.Errorf("unknown transaction type %q", t)
			}
			f.Types[t] = true
		}
	}
	return f, nil
}

func transactionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		http.Error(w, "id is required", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func parseAmount(raw json.RawMessage) (decimal.Decimal, error) {
	if len(raw) == 0 {
		return decimal.Zero, nil
	}
	var d decimal.Decimal
	err := json.Unmarshal(raw, &d)
	return d, err
}

func readJSON(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case remote.IsNotFound(err):
		http.Error(w, err.Error(), http.StatusNotFound)
	case remote.IsUnreachable(err),
		errors.Is(err, repository.ErrOfflineReset),
		errors.Is(err, repository.ErrOfflineRestore):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}
