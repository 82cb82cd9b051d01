// Package service runs secret-santa draws on behalf of the transports.
//
// A draw resolves its seed, builds one random source from it and runs the
// engine until it produces a complete assignment or the attempt budget is
// spent. Completed draws are persisted when a store is configured, so they can
// be listed again or turned into next year's history file.
package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/louisbranch/secretsanta/internal/platform/id"
	"github.com/louisbranch/secretsanta/internal/platform/logging"
	"github.com/louisbranch/secretsanta/internal/platform/requestctx"
	"github.com/louisbranch/secretsanta/internal/random"
	"github.com/louisbranch/secretsanta/internal/services/exchange/domain"
	"github.com/louisbranch/secretsanta/internal/services/exchange/draw"
	"github.com/louisbranch/secretsanta/internal/services/exchange/metrics"
	"github.com/louisbranch/secretsanta/internal/services/exchange/roster"
	"github.com/louisbranch/secretsanta/internal/services/exchange/storage"
	"github.com/louisbranch/secretsanta/internal/services/exchange/table"
)

// DefaultMaxAttempts bounds engine reruns when Config.MaxAttempts is unset.
const DefaultMaxAttempts = 32

const tracerName = "github.com/louisbranch/secretsanta/internal/services/exchange/service"

// Config wires collaborators for a Service. Only MaxAttempts is normally set;
// the rest default to production implementations or no-ops.
type Config struct {
	MaxAttempts int
	// Store persists completed draws. Nil disables persistence.
	Store   storage.DrawStore
	Metrics *metrics.Recorder
	Logger  *zap.Logger

	Now     func() time.Time
	NewSeed func() (int64, error)
	NewID   func() (string, error)
}

// Request is one draw over an already parsed roster.
type Request struct {
	Roster  []*domain.Participant
	History domain.HistoryIndex
	// Seed replays a previous draw. Nil draws a fresh seed.
	Seed *int64
}

// Draw is a completed assignment.
type Draw struct {
	ID        string
	Seed      int64
	Attempts  int
	CreatedAt time.Time
	// Participants is the roster in input order, each with a recipient.
	Participants []*domain.Participant
	// Relaxed names givers whose history had to be ignored.
	Relaxed []string
}

// Service runs and loads draws. It is safe for concurrent use.
type Service struct {
	maxAttempts int
	store       storage.DrawStore
	metrics     *metrics.Recorder
	logger      *zap.Logger
	now         func() time.Time
	newSeed     func() (int64, error)
	newID       func() (string, error)
}

// New builds a Service from cfg.
func New(cfg Config) *Service {
	s := &Service{
		maxAttempts: cfg.MaxAttempts,
		store:       cfg.Store,
		metrics:     cfg.Metrics,
		logger:      logging.OrNop(cfg.Logger),
		now:         cfg.Now,
		newSeed:     cfg.NewSeed,
		newID:       cfg.NewID,
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = DefaultMaxAttempts
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newSeed == nil {
		s.newSeed = random.NewSeed
	}
	if s.newID == nil {
		s.newID = id.NewID
	}
	return s
}

// Draw assigns every participant in req.Roster a recipient. It never returns
// a partial assignment: when every attempt ends incomplete the recipients are
// cleared and the error matches domain.ErrAssignmentIncomplete.
func (s *Service) Draw(ctx context.Context, req Request) (Draw, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return Draw{}, err
	}

	seed, err := random.ResolveSeed(req.Seed, s.newSeed)
	if err != nil {
		return Draw{}, err
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "exchange.draw")
	defer span.End()
	span.SetAttributes(
		attribute.Int("exchange.participants", len(req.Roster)),
		attribute.Int64("exchange.seed", seed),
		attribute.Bool("exchange.seed_provided", req.Seed != nil),
	)
	logger := s.logger.With(zap.Int64("seed", seed), zap.Int("participants", len(req.Roster)))
	if requestID := requestctx.RequestIDFromContext(ctx); requestID != "" {
		logger = logger.With(zap.String("request_id", requestID))
		span.SetAttributes(attribute.String("exchange.request_id", requestID))
	}

	rng := random.NewSource(seed)
	var (
		result   draw.Result
		attempts int
	)
	for attempts < s.maxAttempts {
		if err := ctx.Err(); err != nil {
			domain.ResetRecipients(req.Roster)
			return Draw{}, err
		}
		attempts++
		var err error
		result, err = draw.Assign(req.Roster, req.History, rng)
		if err != nil {
			s.metrics.ObserveRejected()
			span.RecordError(err)
			span.SetStatus(codes.Error, "draw rejected")
			logger.Info("draw rejected", zap.Error(err))
			return Draw{}, err
		}
		if result.Complete() {
			break
		}
		logger.Debug("draw attempt incomplete",
			zap.Int("attempt", attempts),
			zap.Strings("unassigned", domain.Names(result.Unassigned)),
		)
	}
	span.SetAttributes(
		attribute.Int("exchange.attempts", attempts),
		attribute.String("exchange.outcome", result.Outcome.String()),
	)

	if !result.Complete() {
		err := result.Err()
		domain.ResetRecipients(req.Roster)
		s.metrics.ObserveDraw(metrics.OutcomeIncomplete, attempts, len(req.Roster), 0)
		span.RecordError(err)
		span.SetStatus(codes.Error, "draw incomplete")
		logger.Warn("draw incomplete after all attempts", zap.Int("attempts", attempts), zap.Error(err))
		return Draw{}, err
	}

	drawID, err := s.newID()
	if err != nil {
		domain.ResetRecipients(req.Roster)
		return Draw{}, fmt.Errorf("new draw id: %w", err)
	}
	out := Draw{
		ID:           drawID,
		Seed:         seed,
		Attempts:     attempts,
		CreatedAt:    s.now().UTC(),
		Participants: result.Participants,
		Relaxed:      domain.Names(result.Relaxed),
	}

	if s.store != nil {
		if err := s.store.PutDraw(ctx, Record(out)); err != nil {
			domain.ResetRecipients(req.Roster)
			span.RecordError(err)
			span.SetStatus(codes.Error, "persist draw")
			return Draw{}, fmt.Errorf("persist draw: %w", err)
		}
	}

	s.metrics.ObserveDraw(metrics.OutcomeComplete, attempts, len(out.Participants), len(out.Relaxed))
	span.SetAttributes(attribute.String("exchange.draw_id", out.ID))
	logger.Info("draw complete",
		zap.String("draw_id", out.ID),
		zap.Int("attempts", attempts),
		zap.Int("relaxed", len(out.Relaxed)),
	)
	return out, nil
}

// DrawTables parses the employee roster and previous assignments and draws.
func (s *Service) DrawTables(ctx context.Context, employees, previous table.Source, seed *int64) (Draw, error) {
	rosterTable, err := table.Read(employees)
	if err != nil {
		s.metrics.ObserveRejected()
		return Draw{}, err
	}
	historyTable, err := table.Read(previous)
	if err != nil {
		s.metrics.ObserveRejected()
		return Draw{}, err
	}
	participants, err := roster.ParseRoster(rosterTable)
	if err != nil {
		s.metrics.ObserveRejected()
		return Draw{}, err
	}
	history, err := roster.ParseHistory(historyTable)
	if err != nil {
		s.metrics.ObserveRejected()
		return Draw{}, err
	}
	return s.Draw(ctx, Request{Roster: participants, History: history, Seed: seed})
}

// GetDraw loads a persisted draw. Without a store every id is unknown.
func (s *Service) GetDraw(ctx context.Context, drawID string) (Draw, error) {
	if s.store == nil {
		return Draw{}, storage.ErrNotFound
	}
	record, err := s.store.GetDraw(ctx, drawID)
	if err != nil {
		return Draw{}, err
	}
	return FromRecord(record), nil
}

// Persistent reports whether completed draws are stored.
func (s *Service) Persistent() bool {
	return s.store != nil
}

// Record converts a draw into its storage form.
func Record(d Draw) storage.DrawRecord {
	record := storage.DrawRecord{
		ID:        d.ID,
		Seed:      d.Seed,
		Attempts:  d.Attempts,
		CreatedAt: d.CreatedAt,
		Pairings:  make([]storage.PairingRecord, 0, len(d.Participants)),
	}
	for i, p := range d.Participants {
		pairing := storage.PairingRecord{Position: i, GiverName: p.Name, GiverEmail: p.Email}
		if p.Recipient != nil {
			pairing.RecipientName = p.Recipient.Name
			pairing.RecipientEmail = p.Recipient.Email
		}
		record.Pairings = append(record.Pairings, pairing)
	}
	return record
}

// FromRecord rebuilds a draw from storage. Participant ids are not stored, so
// rebuilt participants carry none.
func FromRecord(record storage.DrawRecord) Draw {
	out := Draw{
		ID:           record.ID,
		Seed:         record.Seed,
		Attempts:     record.Attempts,
		CreatedAt:    record.CreatedAt,
		Participants: make([]*domain.Participant, 0, len(record.Pairings)),
	}
	for _, pairing := range record.Pairings {
		giver := domain.NewParticipant("", pairing.GiverName, pairing.GiverEmail)
		giver.Recipient = domain.NewParticipant("", pairing.RecipientName, pairing.RecipientEmail)
		out.Participants = append(out.Participants, giver)
	}
	return out
}
