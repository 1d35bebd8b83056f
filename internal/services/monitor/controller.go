package monitor

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/NordCoder/Sitewatch/internal/domain/events"
	"github.com/NordCoder/Sitewatch/internal/obs"
	kafkax "github.com/NordCoder/Sitewatch/internal/repository/kafka"
)

type Subscriber interface {
	Consume(ctx context.Context, h kafkax.Handler) error
}

// Controller runs CheckOne for check requests arriving from kafka.
type Controller struct {
	Log    *zap.Logger
	Sub    Subscriber
	Engine *Engine
}

func (c *Controller) Run(ctx context.Context) error {
	return c.Sub.Consume(ctx, c.Handler())
}

func (c *Controller) Handler() kafkax.Handler {
	return kafkax.ProtoHandler(
		func() *structpb.Struct { return &structpb.Struct{} },
		func(ctx context.Context, _ []byte, msg *structpb.Struct) error {
			req, err := events.CheckRequestFromProto(msg)
			if err != nil {
				mRequests.WithLabelValues("invalid").Inc()
				c.Log.Warn("check-request: invalid payload", zap.Error(err))
				return nil
			}
			return c.handle(ctx, req)
		},
	)
}

func (c *Controller) handle(ctx context.Context, req events.CheckRequest) error {
	log := obs.WithTrace(ctx, c.Log).With(zap.Int64("user_id", req.UserID), zap.Int64("site_id", req.SiteID))
	log.Debug("check-request")

	res, err := c.Engine.CheckOne(ctx, req.UserID, req.SiteID, req.LogErrors)
	switch {
	case errors.Is(err, ErrNotFound):
		mRequests.WithLabelValues("not_found").Inc()
		log.Info("check-request: site not found")
		return nil
	case err != nil:
		mRequests.WithLabelValues("error").Inc()
		return err
	}
	mRequests.WithLabelValues("ok").Inc()
	log.Debug("check-request done", zap.String("status", string(res.Site.Status)))
	return nil
}
