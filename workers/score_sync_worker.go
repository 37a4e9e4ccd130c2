package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"resilience-registry/models"

	"gorm.io/gorm"
)

// ScoreSyncClient polls the external scoring service for fresh resilience
// score snapshots. Scores are opaque here — this service never computes
// them, it only mirrors them onto project rows.
type ScoreSyncClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
}

func NewScoreSyncClient(db *gorm.DB) *ScoreSyncClient {
	baseURL := os.Getenv("SCORING_SERVICE_URL")
	if baseURL == "" {
		log.Fatal("SCORING_SERVICE_URL environment variable is required")
	}
	token := os.Getenv("REGISTRY_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("REGISTRY_SERVICE_TOKEN environment variable is required for score sync")
	}

	return &ScoreSyncClient{
		BaseURL: baseURL,
		Token:   token,
		DB:      db,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetChangedScores fetches score snapshots computed after `since`.
func (c *ScoreSyncClient) GetChangedScores(ctx context.Context, since time.Time) ([]models.ProjectScore, error) {
	since = since.UTC()

	u, err := url.Parse(fmt.Sprintf("%s/api/v1/public/scores", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	q := u.Query()
	q.Set("since", since.Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call scoring service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("scoring service returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Scores []models.ProjectScore `json:"scores"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode scoring service response: %w", err)
	}

	return response.Scores, nil
}

// PollScores mirrors fresh score snapshots onto project rows.
func PollScores(ctx context.Context, client *ScoreSyncClient, pollInterval time.Duration) {
	log.Println("Starting resilience score polling...")
	lastSyncTime := time.Now().UTC().Add(-24 * time.Hour)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Score polling stopped.")
			return
		case <-ticker.C:
			logTime := time.Now().UTC()

			scores, err := client.GetChangedScores(ctx, lastSyncTime)
			if err != nil {
				log.Printf("Error polling scores: %v", err)
				continue
			}
			if len(scores) == 0 {
				continue
			}

			failed := 0
			for _, sc := range scores {
				now := time.Now()
				result := client.DB.Model(&models.Project{}).
					Where("id = ?", sc.ProjectID).
					Updates(map[string]interface{}{
						"github_score":     sc.GithubScore,
						"dependency_score": sc.DependencyScore,
						"governance_score": sc.GovernanceScore,
						"composite_score":  sc.CompositeScore,
						"score_stale":      false,
						"score_synced_at":  &now,
					})
				if result.Error != nil {
					log.Printf("Failed to apply score for project %s: %v", sc.ProjectID, result.Error)
					failed++
				}
				// RowsAffected == 0 means the project is not registered
				// here; snapshots for unknown projects are dropped.
			}
			if failed > 0 {
				// Retry the same window next tick rather than losing updates
				continue
			}

			lastSyncTime = logTime
			log.Printf("Applied %d score snapshot(s).", len(scores))
		}
	}
}
