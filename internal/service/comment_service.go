package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/forecastlabs/commentd/internal/domain"
	"github.com/forecastlabs/commentd/internal/richtext"
)

// Continuation is deferred work returned from Publish alongside the created
// comment. The transport layer runs it after the response has been sent; its
// errors never reach the original caller.
type Continuation func(ctx context.Context) error

// CommentNotifier is the downstream collaborator invoked once a comment has
// been enriched.
type CommentNotifier interface {
	NewComment(ctx context.Context, market domain.Market, comment domain.Comment, creator domain.User, bet *domain.Bet) error
}

// PublishRequest carries a validated-or-not request to create a comment on a
// market. Exactly one of Content, HTML, or Markdown must yield content.
type PublishRequest struct {
	MarketID         string           `json:"marketId"`
	Content          *domain.Document `json:"content,omitempty"`
	HTML             string           `json:"html,omitempty"`
	Markdown         string           `json:"markdown,omitempty"`
	ReplyToCommentID string           `json:"replyToCommentId,omitempty"`
	ReplyToAnswerID  string           `json:"replyToAnswerId,omitempty"`
	ReplyToBetID     string           `json:"replyToBetId,omitempty"`
	IsRepost         bool             `json:"isRepost,omitempty"`
}

// CommentService owns the comment publication pipeline: validation, record
// construction, the durable write, the real-time broadcast, and the deferred
// enrichment pass.
type CommentService struct {
	comments    domain.CommentStore
	bets        domain.BetStore
	users       domain.UserStore
	markets     domain.MarketStore
	marketCache domain.MarketCache
	ledger      domain.Ledger
	audit       domain.AuditStore
	bus         domain.SignalBus
	notifier    CommentNotifier
	attribution *AttributionService
	logger      *slog.Logger
}

// NewCommentService creates a CommentService with all required dependencies.
// marketCache and notifier may be nil, in which case market lookups always
// hit the store and no notifications are sent.
func NewCommentService(
	comments domain.CommentStore,
	bets domain.BetStore,
	users domain.UserStore,
	markets domain.MarketStore,
	marketCache domain.MarketCache,
	ledger domain.Ledger,
	audit domain.AuditStore,
	bus domain.SignalBus,
	notifier CommentNotifier,
	attribution *AttributionService,
	logger *slog.Logger,
) *CommentService {
	return &CommentService{
		comments:    comments,
		bets:        bets,
		users:       users,
		markets:     markets,
		marketCache: marketCache,
		ledger:      ledger,
		audit:       audit,
		bus:         bus,
		notifier:    notifier,
		attribution: attribution,
		logger:      logger.With(slog.String("component", "comment_service")),
	}
}

// Publish validates the request, writes the comment, broadcasts it, and
// returns it together with the enrichment continuation. No state exists if an
// error is returned; once the comment is returned it is durable and visible.
func (s *CommentService) Publish(ctx context.Context, userID string, kind domain.CredentialKind, req PublishRequest) (domain.Comment, Continuation, error) {
	actor, market, content, err := s.validate(ctx, req.MarketID, userID, req.Content, req.HTML, req.Markdown)
	if err != nil {
		return domain.Comment{}, nil, err
	}

	// An explicit bet reference bypasses windowed attribution entirely.
	var explicitBet *domain.Bet
	var explicitBettor *domain.User
	if req.ReplyToBetID != "" {
		bet, err := s.bets.GetByID(ctx, req.ReplyToBetID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.Comment{}, nil, fmt.Errorf("bet %s: %w", req.ReplyToBetID, domain.ErrBadRequest)
			}
			return domain.Comment{}, nil, fmt.Errorf("comment_service: get bet %s: %w", req.ReplyToBetID, err)
		}
		explicitBet = &bet
		if bettor, err := s.users.GetByID(ctx, bet.UserID); err == nil {
			explicitBettor = &bettor
		}
	}

	comment := domain.Comment{
		ID:          uuid.NewString(),
		Content:     content,
		CreatedTime: time.Now().UTC(),

		UserID:        actor.ID,
		UserName:      actor.Name,
		UserUsername:  actor.Username,
		UserAvatarURL: actor.AvatarURL,

		MarketID:       market.ID,
		MarketSlug:     market.Slug,
		MarketQuestion: market.Question,
		Visibility:     market.Visibility,

		ReplyToCommentID: req.ReplyToCommentID,
		ReplyToAnswerID:  req.ReplyToAnswerID,

		IsAPI:    kind == domain.CredentialAPIKey,
		IsRepost: req.IsRepost,
	}
	comment.AttachBet(explicitBet, explicitBettor)

	if err := s.comments.Insert(ctx, comment); err != nil {
		return domain.Comment{}, nil, fmt.Errorf("comment_service: %w: %v", domain.ErrInternal, err)
	}

	// The broadcast must observe the committed write, so it runs strictly
	// after the insert; its failure does not fail the request.
	s.broadcast(ctx, market, actor, comment)

	cont := func(ctx context.Context) error {
		return s.enrich(ctx, market, actor, comment, req)
	}

	return comment, cont, nil
}

// validate resolves the actor, the market, and the comment content, or fails
// without side effects.
func (s *CommentService) validate(ctx context.Context, marketID, userID string, content *domain.Document, html, markdown string) (domain.User, domain.Market, *domain.Document, error) {
	actor, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.Market{}, nil, fmt.Errorf("account not found: %w", domain.ErrUnauthorized)
		}
		return domain.User{}, domain.Market{}, nil, fmt.Errorf("comment_service: get user %s: %w", userID, err)
	}
	if actor.IsBannedFromPosting {
		return domain.User{}, domain.Market{}, nil, fmt.Errorf("banned from posting: %w", domain.ErrForbidden)
	}
	if actor.IsDeleted {
		return domain.User{}, domain.Market{}, nil, fmt.Errorf("account deleted: %w", domain.ErrForbidden)
	}

	market, err := s.marketByID(ctx, marketID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.Market{}, nil, fmt.Errorf("market %s: %w", marketID, domain.ErrNotFound)
		}
		return domain.User{}, domain.Market{}, nil, fmt.Errorf("comment_service: get market %s: %w", marketID, err)
	}

	doc := content
	if doc == nil {
		doc = richtext.ToDocument(html, markdown)
	}
	if doc == nil {
		return domain.User{}, domain.Market{}, nil, fmt.Errorf("no comment content provided: %w", domain.ErrBadRequest)
	}
	if n := doc.SerializedLen(); n > domain.MaxCommentJSONLength {
		return domain.User{}, domain.Market{}, nil, fmt.Errorf(
			"comment is too long (%d > %d serialized): %w", n, domain.MaxCommentJSONLength, domain.ErrBadRequest)
	}

	return actor, market, doc, nil
}

// marketByID reads the market through the cache when one is configured. Cache
// failures fall through to the store.
func (s *CommentService) marketByID(ctx context.Context, id string) (domain.Market, error) {
	if s.marketCache != nil {
		if market, err := s.marketCache.Get(ctx, id); err == nil {
			return market, nil
		}
	}

	market, err := s.markets.GetByID(ctx, id)
	if err != nil {
		return domain.Market{}, err
	}

	if s.marketCache != nil {
		if err := s.marketCache.Set(ctx, market); err != nil {
			s.logger.WarnContext(ctx, "market cache set failed",
				slog.String("market_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
	return market, nil
}

// broadcast publishes the new comment to the market's real-time channel, and
// to the public firehose when the market is public.
func (s *CommentService) broadcast(ctx context.Context, market domain.Market, author domain.User, comment domain.Comment) {
	payload, err := json.Marshal(map[string]any{
		"event":      "new_comment",
		"market_id":  market.ID,
		"visibility": market.Visibility,
		"author": map[string]string{
			"id":        author.ID,
			"name":      author.Name,
			"username":  author.Username,
			"avatarUrl": author.AvatarURL,
		},
		"comment": comment,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "marshal broadcast failed",
			slog.String("comment_id", comment.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	channels := []string{"ch:comments:" + market.ID}
	if market.Visibility == domain.VisibilityPublic {
		channels = append(channels, "ch:comments")
	}
	for _, ch := range channels {
		if err := s.bus.Publish(ctx, ch, payload); err != nil {
			s.logger.WarnContext(ctx, "broadcast failed",
				slog.String("channel", ch),
				slog.String("comment_id", comment.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// enrich is the deferred half of Publish. It charges the API fee, resolves
// bet attribution and the position snapshot, rewrites the stored comment, and
// notifies the downstream collaborator. Each mutation is a single atomic
// operation, so abandoning the pass partway never leaves a half-written
// record.
func (s *CommentService) enrich(ctx context.Context, market domain.Market, actor domain.User, comment domain.Comment, req PublishRequest) error {
	if comment.IsAPI {
		err := s.ledger.Transfer(ctx, actor.ID, domain.BankAccountID,
			domain.FlatCommentFee, domain.TxnCategoryBotCommentFee)
		if err != nil {
			// The comment stays live even when the fee cannot be collected;
			// the failed attempt is recorded for a later sweep.
			s.logger.WarnContext(ctx, "comment fee debit failed",
				slog.String("comment_id", comment.ID),
				slog.String("user_id", actor.ID),
				slog.String("error", err.Error()),
			)
			if auditErr := s.audit.Log(ctx, "comment_fee_failed", map[string]any{
				"comment_id": comment.ID,
				"user_id":    actor.ID,
				"amount":     domain.FlatCommentFee,
				"reason":     err.Error(),
			}); auditErr != nil {
				s.logger.WarnContext(ctx, "audit log failed",
					slog.String("error", auditErr.Error()),
				)
			}
		}
	}

	// Attribution was already resolved at publish time for explicit replies.
	if req.ReplyToBetID != "" {
		return nil
	}

	bet := s.attribution.CommentableBet(ctx, market.ID, actor.ID, comment.CreatedTime, req.ReplyToAnswerID)
	var bettor *domain.User
	if bet != nil {
		if u, err := s.users.GetByID(ctx, bet.UserID); err == nil {
			bettor = &u
		}
	}

	position := s.attribution.LargestPosition(ctx, market.ID, actor.ID)

	updated := comment
	updated.AttachBet(bet, bettor)
	if position != nil {
		shares := position.Shares
		updated.PositionShares = &shares
		updated.PositionOutcome = position.Outcome
		updated.PositionAnswerID = position.AnswerID
		if market.Mechanism == domain.MechanismCPMM {
			prob := market.Prob
			updated.PositionProb = &prob
		}
	}

	if err := s.comments.Update(ctx, updated); err != nil {
		return fmt.Errorf("comment_service: enrich update %s: %w", comment.ID, err)
	}

	if s.notifier != nil {
		if err := s.notifier.NewComment(ctx, market, updated, actor, bet); err != nil {
			s.logger.WarnContext(ctx, "comment notification failed",
				slog.String("comment_id", comment.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "comment enriched",
		slog.String("comment_id", comment.ID),
		slog.Bool("attributed", bet != nil),
		slog.Bool("position", position != nil),
	)
	return nil
}

// ListByMarket returns a market's comments with pagination.
func (s *CommentService) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Comment, error) {
	comments, err := s.comments.ListByMarket(ctx, marketID, opts)
	if err != nil {
		return nil, fmt.Errorf("comment_service: list by market %q: %w", marketID, err)
	}
	return comments, nil
}
