// workers/realm_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"resilience-registry/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MirroredRealm matches the JSON shape of the governance indexer's realm
// feed. Ownership recorded here authorizes bounty and proposal creation.
type MirroredRealm struct {
	ID          string    `json:"id"`
	Reference   string    `json:"reference"`
	Name        string    `json:"name"`
	OwnerID     string    `json:"owner_id"`
	CouncilMint string    `json:"council_mint,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type RealmSyncWorker struct {
	db           *gorm.DB
	interval     time.Duration
	baseURL      string
	endpointPath string // e.g., "/api/v1/public/realms"
	serviceToken string
	httpClient   *http.Client
}

func NewRealmSyncWorker(db *gorm.DB, indexerBaseURL, endpointPath, serviceToken string) *RealmSyncWorker {
	return &RealmSyncWorker{
		db:           db,
		interval:     1 * time.Minute,
		baseURL:      indexerBaseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetChangedRealms fetches realms updated after `since` from the indexer.
func (w *RealmSyncWorker) GetChangedRealms(ctx context.Context, since time.Time) ([]MirroredRealm, error) {
	u, err := url.Parse(fmt.Sprintf("%s%s", w.baseURL, w.endpointPath))
	if err != nil {
		return nil, fmt.Errorf("failed to parse indexer URL: %w", err)
	}
	q := u.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call governance indexer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("governance indexer returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Realms []MirroredRealm `json:"realms"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode indexer response: %w", err)
	}
	return response.Realms, nil
}

// Start runs the polling loop until the context is cancelled.
func (w *RealmSyncWorker) Start(ctx context.Context) {
	log.Println("Starting realm sync worker...")
	lastSyncTime := time.Now().UTC().Add(-24 * time.Hour)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Realm sync worker stopped.")
			return
		case <-ticker.C:
			logTime := time.Now().UTC()

			realms, err := w.GetChangedRealms(ctx, lastSyncTime)
			if err != nil {
				log.Printf("Error polling realms: %v", err)
				continue
			}
			if len(realms) == 0 {
				continue
			}

			mirrors := make([]models.Realm, 0, len(realms))
			now := time.Now()
			for _, r := range realms {
				mirrors = append(mirrors, models.Realm{
					ID:          r.ID,
					Reference:   r.Reference,
					Name:        r.Name,
					OwnerID:     r.OwnerID,
					CouncilMint: r.CouncilMint,
					IsActive:    r.IsActive,
					SyncedAt:    now,
					CreatedAt:   r.CreatedAt,
					UpdatedAt:   r.UpdatedAt,
				})
			}

			// Bulk upsert keyed by the realm reference (one statement on
			// PostgreSQL).
			if err := w.db.Clauses(
				clause.OnConflict{
					Columns: []clause.Column{{Name: "reference"}},
					DoUpdates: clause.AssignmentColumns([]string{
						"name",
						"owner_id",
						"council_mint",
						"is_active",
						"synced_at",
						"updated_at",
					}),
				},
			).Create(&mirrors).Error; err != nil {
				log.Printf("Failed to upsert %d realm(s): %v", len(mirrors), err)
				// Keep lastSyncTime so the same window retries next tick
				continue
			}

			lastSyncTime = logTime
			log.Printf("Upserted %d realm(s) into realm mirror.", len(mirrors))
		}
	}
}
