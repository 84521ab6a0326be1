package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

const defaultDispatchTimeout = 30 * time.Second

// mailActor owns the Sender. The actor mailbox serializes sends.
type mailActor struct {
	sender Sender
	logger *zap.Logger
}

type deliver struct {
	ctx context.Context
	msg Message
}

type delivered struct {
	err error
}

func (a *mailActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *deliver:
		if err := msg.ctx.Err(); err != nil {
			ctx.Respond(&delivered{err: err})
			return
		}
		err := a.sender.Send(msg.ctx, msg.msg)
		if err != nil {
			a.logger.Warn("Delivery failed", zap.String("subject", msg.msg.Subject), zap.Error(err))
		}
		ctx.Respond(&delivered{err: err})

	case *actor.Started:
		a.logger.Info("Mail actor started")

	case *actor.Stopped:
		a.logger.Info("Mail actor stopped")
	}
}

// Dispatcher is a Sender that hands every message to a single mail actor.
type Dispatcher struct {
	system  *actor.ActorSystem
	pid     *actor.PID
	timeout time.Duration
}

func NewDispatcher(sender Sender, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}
	system := actor.NewActorSystem()
	props := actor.PropsFromProducer(func() actor.Actor {
		return &mailActor{sender: sender, logger: logger.Named("mail-actor")}
	})
	return &Dispatcher{
		system:  system,
		pid:     system.Root.Spawn(props),
		timeout: timeout,
	}
}

// Send waits for the actor's answer to msg. ctx travels with the message, so a cancelled
// caller stops the delivery inside the actor and the answer still tells whether the mail
// went out. The wait is bounded by the dispatch timeout.
func (d *Dispatcher) Send(ctx context.Context, msg Message) error {
	res, err := d.system.Root.RequestFuture(d.pid, &deliver{ctx: ctx, msg: msg}, d.timeout).Result()
	if err != nil {
		return fmt.Errorf("failed to dispatch mail: %w", err)
	}
	resp, ok := res.(*delivered)
	if !ok {
		return fmt.Errorf("unexpected mail actor response %T", res)
	}
	return resp.err
}

func (d *Dispatcher) Stop() {
	d.system.Root.Stop(d.pid)
}
