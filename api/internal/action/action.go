package action

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rock-id/api/internal/catalog"
	"rock-id/api/internal/events"
	"rock-id/api/internal/flow"
	"rock-id/api/internal/store"
	"rock-id/api/internal/util"
)

// Identifier is the schema-checked remote call. *flow.Flow implements it.
type Identifier interface {
	IdentifyRock(ctx context.Context, in flow.IdentifyInput) (*flow.IdentifyOutput, error)
	ScoreMatch(ctx context.Context, in flow.MatchInput) (*flow.MatchOutput, error)
	Model() flow.Model
}

const rememberTimeout = 5 * time.Second

type Recorder interface {
	Record(ctx context.Context, rec *store.Record) error
}

type Deps struct {
	Logger    *zap.Logger
	Recorder  Recorder
	Publisher events.Publisher
	Catalog   *catalog.Catalog
}

type Action struct {
	ident     Identifier
	log       *zap.Logger
	recorder  Recorder
	publisher events.Publisher
	catalog   *catalog.Catalog
}

func New(ident Identifier, deps Deps) *Action {
	a := &Action{
		ident:     ident,
		log:       deps.Logger,
		recorder:  deps.Recorder,
		publisher: deps.Publisher,
		catalog:   deps.Catalog,
	}
	if a.log == nil {
		a.log = zap.NewNop()
	}
	if a.publisher == nil {
		a.publisher = events.Nop{}
	}
	if a.catalog == nil {
		a.catalog = catalog.Default()
	}
	return a
}

func (a *Action) Engine() string { return a.ident.Model().Name() }

// IdentifyRock never returns an error: every failure becomes Outcome{Success:false}.
func (a *Action) IdentifyRock(ctx context.Context, imageDataURI string) Outcome {
	if strings.TrimSpace(imageDataURI) == "" {
		return Failed(MsgMissingImage)
	}

	started := time.Now()
	out, err := a.ident.IdentifyRock(ctx, flow.IdentifyInput{PhotoDataURI: imageDataURI})

	var res Outcome
	switch {
	case err != nil:
		a.log.Error("identify rock failed",
			zap.String("engine", a.Engine()),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err),
		)
		res = Failed(err.Error())
	case out == nil || out.Identification == nil:
		a.log.Error("identify rock returned no identification", zap.String("engine", a.Engine()))
		res = Failed(MsgNoResult)
	default:
		a.log.Info("rock identified",
			zap.String("engine", a.Engine()),
			zap.String("closest_match", out.Identification.ClosestMatch),
			zap.Float64("similarity", out.Identification.SimilarityPercentage),
			zap.Duration("elapsed", time.Since(started)),
		)
		res = Succeeded(out)
	}

	res.RecordID = a.remember(ctx, imageDataURI, res)
	return res
}

// remember пишет историю и событие. Ошибки только логируются, исход не меняется.
func (a *Action) remember(ctx context.Context, imageDataURI string, res Outcome) string {
	m := a.ident.Model()
	rec := &store.Record{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
		Engine:    m.Name(),
		Model:     m.GetModel(),
		Success:   res.Success,
		Error:     res.Error,
	}
	if media, err := util.ParseDataURI(imageDataURI); err == nil {
		rec.MediaType = media.MIME
		rec.ImageHash = util.HashBytes(media.Data)
	} else {
		rec.ImageHash = util.HashBytes([]byte(imageDataURI))
	}
	if res.Success {
		rec.ClosestMatch = res.Data.Identification.ClosestMatch
		rec.SimilarityPercentage = res.Data.Identification.SimilarityPercentage
		rec.Information = res.Data.Identification.Information
	}

	// Запрос мог истечь или быть отменён, а попытку всё равно нужно сохранить.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rememberTimeout)
	defer cancel()

	recorded := ""
	if a.recorder != nil {
		if err := a.recorder.Record(rctx, rec); err != nil {
			a.log.Warn("failed to record identification", zap.Error(err))
		} else {
			recorded = rec.ID.String()
		}
	}

	ev := events.Event{
		ID:                   rec.ID.String(),
		At:                   rec.CreatedAt,
		Engine:               rec.Engine,
		Model:                rec.Model,
		ImageHash:            rec.ImageHash,
		Success:              rec.Success,
		ClosestMatch:         rec.ClosestMatch,
		SimilarityPercentage: rec.SimilarityPercentage,
		Error:                util.Truncate(rec.Error, 500),
	}
	if err := a.publisher.Publish(rctx, ev); err != nil {
		a.log.Warn("failed to publish identification event", zap.Error(err))
	}
	return recorded
}

// ScoreMatch сверяет распознанный образец с каталогом.
func (a *Action) ScoreMatch(ctx context.Context, imageAnalysis, identifiedRock string) MatchOutcome {
	if strings.TrimSpace(identifiedRock) == "" {
		return MatchOutcome{Error: MsgMissingRock}
	}
	// имя из каталога пишется так же, как в базе, которую видит модель
	if sp, ok := a.catalog.Find(identifiedRock); ok {
		identifiedRock = sp.Name
	}
	out, err := a.ident.ScoreMatch(ctx, flow.MatchInput{
		ImageAnalysis:  imageAnalysis,
		RockDatabase:   a.catalog.JSON(),
		IdentifiedRock: identifiedRock,
	})
	if err != nil {
		a.log.Error("score match failed", zap.String("engine", a.Engine()), zap.Error(err))
		return MatchOutcome{Error: err.Error()}
	}
	if out == nil {
		return MatchOutcome{Error: MsgNoScore}
	}
	return MatchOutcome{Success: true, Data: out}
}
