package service

import (
	"context"
	"errors"
	"log"
	"regexp"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"voicecart/internal/cart"
	"voicecart/internal/catalog"
	"voicecart/internal/config"
	"voicecart/internal/model"
	"voicecart/internal/nlp"
	"voicecart/internal/resolver"
	"voicecart/internal/session"
)

// TurnLogger persists processed turns for offline analysis. Logging is
// best-effort and must never block or fail a turn.
type TurnLogger interface {
	LogTurn(result *model.TurnResult)
}

// maxSearchResults caps how many products a search turn returns.
const maxSearchResults = 10

// clarifyFloor is the intent confidence below which the turn asks the user
// to repeat instead of acting. Transcription confidence can push an
// otherwise solid classification under it.
const clarifyFloor = 0.3

var lastItemRe = regexp.MustCompile(`(?i)\b(?:the\s+)?last\s+(?:item|one|thing)\b`)

// Pipeline processes one command turn end to end: extract and classify in
// parallel, resolve against catalog and conversation context, then apply
// the intent to the session's cart.
type Pipeline struct {
	cfg        *config.NLPConfig
	ensemble   *nlp.Ensemble
	classifier *nlp.Classifier
	resolver   *resolver.Resolver
	sessions   *session.Store
	carts      *cart.Engine
	catalog    catalog.Store
	logger     TurnLogger
}

// NewPipeline wires the turn pipeline. logger may be nil.
func NewPipeline(
	cfg *config.NLPConfig,
	ensemble *nlp.Ensemble,
	classifier *nlp.Classifier,
	res *resolver.Resolver,
	sessions *session.Store,
	carts *cart.Engine,
	store catalog.Store,
	logger TurnLogger,
) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		ensemble:   ensemble,
		classifier: classifier,
		resolver:   res,
		sessions:   sessions,
		carts:      carts,
		catalog:    store,
		logger:     logger,
	}
}

// HandleCommand processes one turn. It always returns a result; failures
// surface as the result's Error field, not as a Go error.
func (p *Pipeline) HandleCommand(ctx context.Context, req model.CommandRequest) *model.TurnResult {
	start := time.Now()
	result := &model.TurnResult{
		TurnID:    uuid.NewString(),
		SessionID: req.SessionID,
	}

	stageCtx, cancel := context.WithTimeout(ctx, p.cfg.StageTimeout)
	defer cancel()

	// Extraction and classification are independent; run them in parallel
	// and join before resolution.
	var (
		entities         []model.Entity
		extractDegraded  bool
		intent           model.Intent
		classifyDegraded bool
	)
	g, gctx := errgroup.WithContext(stageCtx)
	g.Go(func() error {
		entities, extractDegraded = p.ensemble.Extract(gctx, req.Text)
		return nil
	})
	g.Go(func() error {
		intent, classifyDegraded = p.classifier.Classify(gctx, req.Text)
		return nil
	})
	_ = g.Wait()

	// Transcription confidence weighs on the intent decision only; entity
	// confidences reflect extraction, not hearing.
	if req.TranscriptionConfidence != nil {
		intent.Confidence *= *req.TranscriptionConfidence
	}
	intent.Entities = entities

	result.Intent = intent
	result.Entities = entities
	result.Degraded = extractDegraded || classifyDegraded

	p.sessions.Do(req.SessionID, func(conv *session.Context) {
		p.dispatch(stageCtx, req, result, conv)
		conv.RecordTurn(req.Text, result.Intent)
	})

	result.Took = time.Since(start).Milliseconds()

	if p.logger != nil {
		go p.logger.LogTurn(result)
	}

	log.Printf("💬 Turn %s session=%s intent=%s confidence=%.2f took=%dms",
		result.TurnID, req.SessionID, result.Intent.Type, result.Intent.Confidence, result.Took)
	return result
}

// dispatch applies the classified intent under the session lock.
func (p *Pipeline) dispatch(ctx context.Context, req model.CommandRequest, result *model.TurnResult, conv *session.Context) {
	if result.Intent.Type == model.IntentUnknown {
		result.Error = &model.TurnError{
			Reason:  "unknown_intent",
			Message: "I did not understand that. Try \"add two shirts\" or \"show me jeans under $50\".",
		}
		return
	}
	if result.Intent.Confidence < clarifyFloor {
		result.Error = &model.TurnError{
			Reason:  "low_confidence",
			Message: "I'm not sure I heard that right. Could you repeat it?",
		}
		return
	}

	switch result.Intent.Type {
	case model.IntentAdd:
		p.handleAdd(ctx, req, result, conv)
	case model.IntentRemove:
		p.handleRemove(ctx, req, result, conv)
	case model.IntentSearch:
		p.handleSearch(ctx, req, result, conv)
	case model.IntentCheckout:
		p.handleCheckout(result)
	case model.IntentHelp:
		// No state change; the presentation layer renders usage hints.
	case model.IntentCancel:
		// Abandons the utterance only. The cart survives a cancel.
	}
}

func (p *Pipeline) handleAdd(ctx context.Context, req model.CommandRequest, result *model.TurnResult, conv *session.Context) {
	res, ok := p.resolve(ctx, req.Text, result, conv)
	if !ok {
		return
	}
	if res.Ambiguity != nil {
		result.Ambiguities = append(result.Ambiguities, *res.Ambiguity)
		return
	}
	if res.Product == nil {
		result.Error = &model.TurnError{
			Reason:  "missing_product",
			Message: "Which product would you like to add?",
		}
		return
	}

	// An unstated quantity means one; a stated zero goes to the engine,
	// which rejects it.
	quantity := 1
	if res.Quantity != nil {
		quantity = *res.Quantity
	}

	summary, err := p.carts.Add(req.SessionID, res.Product, quantity, res.Size, res.Color)
	if err != nil {
		result.Cart = &summary
		result.Error = cartError(err)
		return
	}

	conv.NoteProduct(res.Product.Ref())
	noteAttributes(conv, res)
	result.Cart = &summary
}

func (p *Pipeline) handleRemove(ctx context.Context, req model.CommandRequest, result *model.TurnResult, conv *session.Context) {
	// Positional removal needs no product resolution at all.
	if lastItemRe.MatchString(req.Text) {
		summary, err := p.carts.Remove(req.SessionID, cart.Selector{Last: true})
		if err != nil {
			result.Error = cartError(err)
			return
		}
		result.Cart = &summary
		return
	}

	res, ok := p.resolve(ctx, req.Text, result, conv)
	if !ok {
		return
	}
	if res.Ambiguity != nil {
		result.Ambiguities = append(result.Ambiguities, *res.Ambiguity)
		return
	}
	if res.Product == nil {
		result.Error = &model.TurnError{
			Reason:  "missing_product",
			Message: "Which item should I remove?",
		}
		return
	}

	sel := cart.Selector{ProductID: res.Product.ProductID, Size: res.Size, Color: res.Color}
	summary, err := p.carts.Remove(req.SessionID, sel)
	if err != nil {
		result.Error = cartError(err)
		return
	}

	conv.NoteProduct(res.Product.Ref())
	result.Cart = &summary
}

func (p *Pipeline) handleSearch(ctx context.Context, req model.CommandRequest, result *model.TurnResult, conv *session.Context) {
	res, err := p.resolver.Resolve(ctx, req.Text, result.Entities, conv)
	if err != nil && !errors.Is(err, resolver.ErrProductNotFound) {
		// An unresolved reference still blocks a search ("show me more of
		// those"); a product miss does not, the filters stand on their own.
		result.Error = resolveError(err)
		return
	}

	query := ""
	if ent := result.Intent.FirstEntity(model.EntityProduct); ent != nil {
		query = ent.Value()
	}
	var filters model.SearchFilters
	if res != nil {
		result.Entities = res.Entities
		result.Intent.Entities = res.Entities
		result.Warnings = append(result.Warnings, res.Warnings...)
		filters = res.Filters(query)
		if res.Product != nil && query == "" {
			filters.Query = res.Product.Name
		}
	} else {
		filters = model.SearchFilters{Query: query}
	}

	products, err := p.catalog.FindByFilters(ctx, filters)
	if err != nil {
		log.Printf("⚠️ Catalog search failed: %v", err)
		result.Error = &model.TurnError{Reason: "catalog_unavailable", Message: "Search is unavailable right now."}
		return
	}

	for _, product := range products {
		result.Results = append(result.Results, product.Ref())
		if len(result.Results) == maxSearchResults {
			break
		}
	}

	if len(result.Results) == 1 {
		conv.NoteProduct(result.Results[0])
	}
	if res != nil {
		noteAttributes(conv, res)
	}
}

func (p *Pipeline) handleCheckout(result *model.TurnResult) {
	summary := p.carts.Summary(result.SessionID)
	if len(summary.Items) == 0 {
		result.Error = &model.TurnError{
			Reason:  "empty_cart",
			Message: "Your cart is empty. Add something before checking out.",
		}
		return
	}

	// The summary snapshots the order; the cart starts fresh afterwards.
	result.Cart = &summary
	p.carts.Drop(result.SessionID)
	log.Printf("🧾 Checkout session=%s items=%d total=%.2f", result.SessionID, summary.TotalItems, summary.TotalPrice)
}

// resolve runs entity resolution and translates its failures into turn
// errors. ok is false when the turn cannot proceed.
func (p *Pipeline) resolve(ctx context.Context, text string, result *model.TurnResult, conv *session.Context) (*resolver.Resolution, bool) {
	res, err := p.resolver.Resolve(ctx, text, result.Entities, conv)
	if err != nil {
		result.Error = resolveError(err)
		return nil, false
	}
	result.Entities = res.Entities
	result.Intent.Entities = res.Entities
	result.Warnings = append(result.Warnings, res.Warnings...)
	return res, true
}

func noteAttributes(conv *session.Context, res *resolver.Resolution) {
	if res.Color != nil {
		conv.NoteEntity(model.EntityColor, *res.Color)
	}
	if res.Size != nil {
		conv.NoteEntity(model.EntitySize, *res.Size)
	}
	if res.Material != nil {
		conv.NoteEntity(model.EntityMaterial, *res.Material)
	}
	if res.Brand != nil {
		conv.NoteEntity(model.EntityBrand, *res.Brand)
	}
}

func resolveError(err error) *model.TurnError {
	switch {
	case errors.Is(err, resolver.ErrUnresolvedReference):
		return &model.TurnError{
			Reason:  "unresolved_reference",
			Message: "I'm not sure what you're referring to. Could you name the product?",
		}
	case errors.Is(err, resolver.ErrProductNotFound):
		return &model.TurnError{
			Reason:  "product_not_found",
			Message: "I couldn't find that product in the catalog.",
		}
	default:
		log.Printf("⚠️ Resolution failed: %v", err)
		return &model.TurnError{Reason: "resolution_failed", Message: "Something went wrong understanding that."}
	}
}

func cartError(err error) *model.TurnError {
	switch {
	case errors.Is(err, cart.ErrQuantityLimitExceeded):
		return &model.TurnError{Reason: "quantity_limit_exceeded", Message: "That would exceed the per-item limit."}
	case errors.Is(err, cart.ErrCartLimitExceeded):
		return &model.TurnError{Reason: "cart_limit_exceeded", Message: "Your cart is full."}
	case errors.Is(err, cart.ErrInsufficientStock):
		return &model.TurnError{Reason: "insufficient_stock", Message: "There isn't enough stock for that."}
	case errors.Is(err, cart.ErrItemNotFound):
		return &model.TurnError{Reason: "item_not_found", Message: "That item isn't in your cart."}
	case errors.Is(err, cart.ErrInvalidQuantity):
		return &model.TurnError{Reason: "invalid_quantity", Message: "The quantity has to be at least one."}
	case errors.Is(err, cart.ErrAttributeUnavailable):
		return &model.TurnError{Reason: "attribute_unavailable", Message: "That option isn't available for this item."}
	default:
		log.Printf("⚠️ Cart operation failed: %v", err)
		return &model.TurnError{Reason: "cart_error", Message: "The cart could not be updated."}
	}
}
