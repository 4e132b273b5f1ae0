// Package db reads and writes transcripts, highlights and job rows through
// Supabase's PostgREST interface.
package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	postgrest "github.com/supabase-community/postgrest-go"

	"videothingy/council-highlights/internal/apperrors"
)

// Table names.
const (
	speakerSegmentsTable       = "speaker_segments"
	utterancesTable            = "utterances"
	speakerTagsTable           = "speaker_tags"
	peopleTable                = "people"
	highlightsTable            = "highlights"
	highlightedUtterancesTable = "highlighted_utterances"
	processingJobsTable        = "processing_jobs"
)

// TableSource starts a PostgREST query on a table. Both *supabase.Client and
// *postgrest.Client satisfy it.
type TableSource interface {
	From(table string) *postgrest.QueryBuilder
}

// NewPostgrestClient returns a bare PostgREST client for a Supabase project,
// for callers that do not need the rest of the Supabase SDK.
func NewPostgrestClient(supabaseURL, serviceKey string) (*postgrest.Client, error) {
	client := postgrest.NewClient(supabaseURL+"/rest/v1", "", map[string]string{
		"apikey":        serviceKey,
		"Authorization": fmt.Sprintf("Bearer %s", serviceKey),
	})
	if client.ClientError != nil {
		return nil, fmt.Errorf("failed to initialize PostgREST client: %w", client.ClientError)
	}
	return client, nil
}

// Store is the persistence layer of the service.
type Store struct {
	db     TableSource
	logger logrus.FieldLogger
	newID  func() string
	now    func() time.Time
}

// NewStore returns a Store querying through db.
func NewStore(db TableSource, logger logrus.FieldLogger) *Store {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Store{
		db:     db,
		logger: logger.WithField("component", "store"),
		newID:  uuid.NewString,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// selectRows runs a finished filter chain and decodes the rows into out.
func selectRows(ctx context.Context, q *postgrest.FilterBuilder, table string, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, _, err := q.Execute()
	if err != nil {
		return fmt.Errorf("query %s: %w", table, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s rows: %w", table, err)
	}
	return nil
}

// execute runs a write and discards the returned representation.
func (s *Store) execute(ctx context.Context, q *postgrest.FilterBuilder, table string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, _, err := q.Execute(); err != nil {
		return fmt.Errorf("write %s: %w", table, err)
	}
	return nil
}

func notFound(what, id string) error {
	return fmt.Errorf("%s %s: %w", what, id, apperrors.ErrNotFound)
}

func ascending() *postgrest.OrderOpts {
	return &postgrest.OrderOpts{Ascending: true}
}
