package main

import (
	"context"
	"log"

	"github.com/keepmind9/teamsbridge/internal/activity"
	"github.com/keepmind9/teamsbridge/internal/respond"
)

// newDispatcher builds the command dispatcher with the built-in commands.
// Embedders replace this with their own Receiver; these commands exist so a
// bare deployment answers something.
func newDispatcher(identity activity.BotIdentity) *respond.Dispatcher {
	d := respond.New(identity)

	register := func(pattern string, h respond.Handler) {
		if err := d.Respond(pattern, h); err != nil {
			log.Fatalf("Failed to register command %q: %v", pattern, err)
		}
	}

	register(`^ping$`, func(ctx context.Context, res *respond.Response) error {
		res.Reply(ctx, "pong")
		return nil
	})
	register(`^help$`, func(ctx context.Context, res *respond.Response) error {
		res.Reply(ctx, "I respond to `ping` and `help`.")
		return nil
	})

	return d
}
